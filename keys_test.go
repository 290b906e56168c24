package florascan

import (
	"strings"
	"testing"
)

func TestCacheKeyDeterministic(t *testing.T) {
	img := []byte("same-image-bytes")
	a := CacheKey(img, IdentifyOptions{})
	b := CacheKey(img, IdentifyOptions{})
	if a != b {
		t.Fatalf("same input produced different keys: %q vs %q", a, b)
	}
}

func TestCacheKeyDependsOnContent(t *testing.T) {
	a := CacheKey([]byte("image-one"), IdentifyOptions{})
	b := CacheKey([]byte("image-two"), IdentifyOptions{})
	if a == b {
		t.Fatalf("different images produced the same key: %q", a)
	}
}

func TestCacheKeyDependsOnFlags(t *testing.T) {
	img := []byte("same-image-bytes")
	plain := CacheKey(img, IdentifyOptions{})
	disease := CacheKey(img, IdentifyOptions{Disease: true})
	if plain == disease {
		t.Fatalf("disease flag did not change the key: %q", plain)
	}
	if !strings.HasSuffix(plain, ":d0") {
		t.Fatalf("expected d0 suffix, got %q", plain)
	}
	if !strings.HasSuffix(disease, ":d1") {
		t.Fatalf("expected d1 suffix, got %q", disease)
	}
}

func TestCacheKeyCarriesSchemaVersion(t *testing.T) {
	key := CacheKey([]byte("x"), IdentifyOptions{})
	if !strings.HasPrefix(key, keySchemaVersion+":") {
		t.Fatalf("key %q missing schema version prefix", key)
	}
}

func TestWireFlagsMatchFlagTag(t *testing.T) {
	if f := (IdentifyOptions{}).wireFlags(); f != 0 {
		t.Fatalf("expected zero flags, got %b", f)
	}
	if f := (IdentifyOptions{Disease: true}).wireFlags(); f != flagDisease {
		t.Fatalf("expected disease flag, got %b", f)
	}
}
