package florascan

import (
	"crypto/sha256"
	"fmt"
)

// keySchemaVersion is baked into every cache key. Bump it whenever the
// shape or semantics of cached results change so old entries turn into
// misses instead of being served with stale meaning.
const keySchemaVersion = "v1"

// IdentifyOptions tune a single identification call. The flag set
// participates in the cache key: a result cached without disease data is
// never served to a caller that requested it.
type IdentifyOptions struct {
	// Disease requests a disease assessment from the provider that
	// supports it (primary only).
	Disease bool
}

func (o IdentifyOptions) flagTag() string {
	if o.Disease {
		return "d1"
	}
	return "d0"
}

func (o IdentifyOptions) wireFlags() byte {
	var f byte
	if o.Disease {
		f |= flagDisease
	}
	return f
}

const flagDisease byte = 1 << 0

// CacheKey derives the content-addressed cache key for an image and the
// options that shape the result. Identical input always yields an identical
// key; flipping any option yields a different one.
func CacheKey(image []byte, opts IdentifyOptions) string {
	sum := sha256.Sum256(image)
	return fmt.Sprintf("%s:%x:%s", keySchemaVersion, sum, opts.flagTag())
}
