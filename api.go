package florascan

import (
	"context"
	"time"

	"github.com/verdant-labs/florascan/breaker"
	"github.com/verdant-labs/florascan/codec"
	"github.com/verdant-labs/florascan/lock"
	"github.com/verdant-labs/florascan/metrics"
	"github.com/verdant-labs/florascan/pool"
	"github.com/verdant-labs/florascan/store"
)

// ProviderClient is one external recognition service. Implementations make
// a single HTTP request/response with their own authentication and endpoint;
// they must honor ctx deadlines and be safe for concurrent use.
// See provider/plantid and provider/plantnet.
type ProviderClient interface {
	Identify(ctx context.Context, image []byte, opts IdentifyOptions) (ProviderResult, error)
}

// Identifier is the orchestration entry point. The web layer calls
// IdentifyPlant after image validation and before persistence; both are
// outside this module.
type Identifier interface {
	// IdentifyPlant returns the merged identification for image.
	// It fails only on an empty image (ErrEmptyImage) or when both
	// providers are absent with nothing cached (*UnavailableError);
	// every other fault is absorbed, logged, and reflected in the
	// result's Contributing set.
	IdentifyPlant(ctx context.Context, image []byte, opts IdentifyOptions) (MergedResult, error)

	// Close releases the cache store and lock store. It does not shut
	// down a shared worker pool; see pool.ShutdownDefault.
	Close(ctx context.Context) error
}

// Options wire an Identifier. Primary and Secondary are required; Store is
// required unless DisableCache is set. Everything else has defaults.
type Options struct {
	// Required
	Primary   ProviderClient
	Secondary ProviderClient

	// Store holds serialized merged results. Required unless DisableCache.
	Store store.Store

	// Locks backs the stampede guard. Nil selects an in-process store,
	// which is only correct for single-replica deployments; use
	// lock.NewRedisStore when the cache is shared.
	Locks lock.Store

	// Codec serializes MergedResult. Nil selects msgpack.
	Codec codec.Codec[MergedResult]

	Logger  Logger           // nil => no logging
	Hooks   Hooks            // nil => no hooks
	Metrics *metrics.Metrics // nil => no metrics

	// Pool bounds concurrent provider calls. Nil selects the process-wide
	// pool.Default().
	Pool *pool.Pool

	// Namespace isolates this deployment's keys in a shared store.
	// Default "plant".
	Namespace string

	// Per-provider call deadlines. The primary runs a slower, more
	// accurate model; the secondary answers fast or not at all.
	PrimaryTimeout   time.Duration // 0 => 20s
	SecondaryTimeout time.Duration // 0 => 12s

	// Per-tier result TTLs. The merged entry gets the shortest TTL of its
	// contributing tiers. Shorter for the paid provider keeps its data
	// fresher within quota; the free tier can be cached generously.
	PrimaryTTL   time.Duration // 0 => 30m
	SecondaryTTL time.Duration // 0 => 24h

	// Stampede lock tuning.
	LockTTL            time.Duration // 0 => 30s (renewed while held)
	LockAcquireTimeout time.Duration // 0 => 15s
	LockRetryInterval  time.Duration // 0 => 100ms

	// Breaker settings per provider. Zero-value fields select breaker
	// defaults; explicit defaults here follow the tiering: strict and
	// slow to retry for the paid provider, lenient and quick for the
	// free one.
	PrimaryBreaker   breaker.Settings
	SecondaryBreaker breaker.Settings

	// DisableCache skips all cache and lock traffic: every call fans out.
	DisableCache bool
}

// New validates opts and builds an Identifier.
func New(opts Options) (Identifier, error) {
	return newOrchestrator(opts)
}
