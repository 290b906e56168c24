// Package codec defines how cached values are (de)serialized. The
// orchestrator stores one MergedResult per cache entry; any Codec
// implementation can be plugged in through Options.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
