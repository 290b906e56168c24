package florascan

import (
	"reflect"
	"testing"
	"time"

	c "github.com/verdant-labs/florascan/codec"
)

func sampleMerged() MergedResult {
	return MergedResult{
		Best: Candidate{Name: "Monstera deliciosa", CommonName: "Swiss cheese plant", Score: 0.95},
		Candidates: []Candidate{
			{Name: "Monstera deliciosa", CommonName: "Swiss cheese plant", Score: 0.95},
			{Name: "Monstera adansonii", Score: 0.6},
		},
		Disease:      &DiseaseInfo{Name: "leaf spot", Probability: 0.7, Description: "fungal spots", Treatment: "remove leaves"},
		Care:         &CareInfo{Watering: "moderate", Sunlight: "bright indirect", Soil: "well draining"},
		Contributing: []ProviderID{ProviderPrimary, ProviderSecondary},
		Elapsed:      420 * time.Millisecond,
	}
}

func TestCodecsRoundTripMergedResult(t *testing.T) {
	cases := []struct {
		name  string
		codec c.Codec[MergedResult]
	}{
		{"msgpack", c.Msgpack[MergedResult]{}},
		{"json", c.JSON[MergedResult]{}},
		{"cbor", c.MustCBOR[MergedResult](false)},
		{"cbor_deterministic", c.MustCBOR[MergedResult](true)},
		{"limit_msgpack", c.Limit[MergedResult]{Inner: c.Msgpack[MergedResult]{}, MaxDecode: 1 << 20}},
	}

	want := sampleMerged()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.codec.Encode(want)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := tc.codec.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip changed the value:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestLimitRejectsOversizedEntry(t *testing.T) {
	lim := c.Limit[MergedResult]{Inner: c.Msgpack[MergedResult]{}, MaxDecode: 8}
	b, err := lim.Encode(sampleMerged())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(b) <= 8 {
		t.Fatalf("sample entry unexpectedly tiny: %d bytes", len(b))
	}
	if _, err := lim.Decode(b); err == nil {
		t.Fatal("oversized payload must be rejected before decoding")
	}
}

// ProviderResult.Err is tagged out of serialization: an error captured
// during one call must never leak into a cache entry.
func TestProviderErrIsNeverSerialized(t *testing.T) {
	in := ProviderResult{
		Provider:   ProviderPrimary,
		Candidates: []Candidate{{Name: "Ficus lyrata", Score: 0.9}},
		Err:        errDown,
		Elapsed:    time.Second,
	}

	codecs := []struct {
		name  string
		codec c.Codec[ProviderResult]
	}{
		{"msgpack", c.Msgpack[ProviderResult]{}},
		{"json", c.JSON[ProviderResult]{}},
	}
	for _, tc := range codecs {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.codec.Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := tc.codec.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Err != nil {
				t.Fatalf("Err survived serialization: %v", got.Err)
			}
			if len(got.Candidates) != 1 || got.Candidates[0].Name != "Ficus lyrata" {
				t.Fatalf("payload fields lost: %+v", got)
			}
		})
	}
}
