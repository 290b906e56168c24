package florascan

import "sort"

// Merge combines the two provider results into one response. Pure function,
// no side effects.
//
// Rules:
//   - neither present: Unavailable result, no fabricated candidates.
//   - one present: that provider's answer, tagged with the contributor.
//   - both present: candidates are pooled and deduplicated by scientific
//     name (higher score wins); the best candidate is the highest score
//     across both top candidates, preferring primary on an exact tie.
//     Disease and care metadata are complementary, not competing: taken
//     from whichever provider supplied them, primary first.
func Merge(primary, secondary ProviderResult) MergedResult {
	if !primary.Present() && !secondary.Present() {
		return MergedResult{Unavailable: true}
	}

	var m MergedResult
	if primary.Present() {
		m.Contributing = append(m.Contributing, ProviderPrimary)
	}
	if secondary.Present() {
		m.Contributing = append(m.Contributing, ProviderSecondary)
	}

	m.Candidates = poolCandidates(primary, secondary)
	if len(m.Candidates) > 0 {
		m.Best = m.Candidates[0]
	}

	m.Disease = coalesce[*DiseaseInfo](primary.Disease, secondary.Disease)
	m.Care = coalesce[*CareInfo](primary.Care, secondary.Care)

	if primary.Elapsed > secondary.Elapsed {
		m.Elapsed = primary.Elapsed
	} else {
		m.Elapsed = secondary.Elapsed
	}
	return m
}

// poolCandidates merges both candidate lists, best first. Primary's
// candidates are appended first so the stable sort keeps them ahead of
// equal-scored secondary candidates (the explicit tie-break rule).
func poolCandidates(primary, secondary ProviderResult) []Candidate {
	var all []Candidate
	if primary.Present() {
		all = append(all, primary.Candidates...)
	}
	if secondary.Present() {
		all = append(all, secondary.Candidates...)
	}
	if len(all) == 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	// dedupe by name; first occurrence has the higher score (or wins the tie)
	seen := make(map[string]int, len(all))
	out := all[:0]
	for _, c := range all {
		if i, ok := seen[c.Name]; ok {
			// keep the winner but backfill a missing common name
			if out[i].CommonName == "" && c.CommonName != "" {
				out[i].CommonName = c.CommonName
			}
			continue
		}
		seen[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}
