package florascan

import "time"

// ProviderID identifies one of the two recognition services.
type ProviderID uint8

const (
	// ProviderPrimary is the paid, higher-accuracy service. It is the only
	// one offering disease assessment and is rate limited, so it runs behind
	// the stricter breaker configuration.
	ProviderPrimary ProviderID = iota + 1
	// ProviderSecondary is the free, high-quota service.
	ProviderSecondary
)

func (p ProviderID) String() string {
	switch p {
	case ProviderPrimary:
		return "primary"
	case ProviderSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Candidate is one species suggestion with its confidence score in [0,1].
type Candidate struct {
	Name       string  // scientific name
	CommonName string  // best-known vernacular name, may be empty
	Score      float64 // confidence in [0,1]
}

// DiseaseInfo is diagnostic metadata. Only the primary provider supplies it.
type DiseaseInfo struct {
	Name        string
	Probability float64
	Description string
	Treatment   string
}

// CareInfo holds care instructions when a provider supplies them.
type CareInfo struct {
	Watering string
	Sunlight string
	Soil     string
}

// ProviderResult is the outcome of a single provider call attempt.
// A result with Err != nil is "absent": the provider timed out, errored,
// or its breaker was open. Absent results carry no candidates.
// Created per attempt and discarded after merge; never persisted.
type ProviderResult struct {
	Provider   ProviderID
	Candidates []Candidate
	Disease    *DiseaseInfo
	Care       *CareInfo
	Err        error `msgpack:"-" json:"-"`
	Elapsed    time.Duration
}

// Present reports whether the provider actually answered.
func (r ProviderResult) Present() bool { return r.Err == nil }

// MergedResult is the orchestrator's output: both providers' answers combined.
// Immutable after construction. When Unavailable is set, both providers were
// absent and no candidate data is fabricated.
type MergedResult struct {
	// Best is Candidates[0] when any candidate exists; zero otherwise.
	Best Candidate
	// Candidates holds all suggestions, best first, deduplicated by name.
	Candidates []Candidate
	Disease    *DiseaseInfo
	Care       *CareInfo
	// Contributing lists the providers that answered, primary first.
	Contributing []ProviderID
	// Unavailable distinguishes "both providers failed" from "no match".
	Unavailable bool
	Elapsed     time.Duration
}

// Matched reports whether at least one species candidate was found.
// A false Matched with false Unavailable means the providers answered
// but recognized nothing.
func (m MergedResult) Matched() bool { return !m.Unavailable && len(m.Candidates) > 0 }

// ContributedBy reports whether the given provider's answer is part of
// this result.
func (m MergedResult) ContributedBy(p ProviderID) bool {
	for _, c := range m.Contributing {
		if c == p {
			return true
		}
	}
	return false
}
