package florascan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verdant-labs/florascan/breaker"
	"github.com/verdant-labs/florascan/codec"
	"github.com/verdant-labs/florascan/internal/wire"
	"github.com/verdant-labs/florascan/lock"
	"github.com/verdant-labs/florascan/metrics"
	"github.com/verdant-labs/florascan/pool"
	"github.com/verdant-labs/florascan/store"
)

type orchestrator struct {
	primary   ProviderClient
	secondary ProviderClient

	store store.Store
	locks *lock.Manager
	codec codec.Codec[MergedResult]

	log     Logger
	hooks   Hooks
	metrics *metrics.Metrics
	pool    *pool.Pool

	ns           string
	cacheEnabled bool

	primaryTimeout   time.Duration
	secondaryTimeout time.Duration
	primaryTTL       time.Duration
	secondaryTTL     time.Duration

	primaryBreaker   *breaker.Breaker
	secondaryBreaker *breaker.Breaker

	lockStore lock.Store
	ownsLocks bool
}

func newOrchestrator(opts Options) (*orchestrator, error) {
	if opts.Primary == nil || opts.Secondary == nil {
		return nil, fmt.Errorf("florascan: both provider clients are required")
	}
	if opts.Store == nil && !opts.DisableCache {
		return nil, fmt.Errorf("florascan: store is required (or set DisableCache)")
	}

	o := &orchestrator{
		primary:      opts.Primary,
		secondary:    opts.Secondary,
		store:        opts.Store,
		metrics:      opts.Metrics,
		cacheEnabled: !opts.DisableCache,
	}

	// defaults
	o.log = coalesce[Logger](opts.Logger, NopLogger{})
	o.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	o.codec = coalesce[codec.Codec[MergedResult]](opts.Codec, codec.Msgpack[MergedResult]{})
	if opts.Pool != nil {
		o.pool = opts.Pool
	} else {
		o.pool = pool.Default()
	}
	o.ns = coalesce[string](opts.Namespace, "plant")
	o.primaryTimeout = coalesce[time.Duration](opts.PrimaryTimeout, 20*time.Second)
	o.secondaryTimeout = coalesce[time.Duration](opts.SecondaryTimeout, 12*time.Second)
	o.primaryTTL = coalesce[time.Duration](opts.PrimaryTTL, 30*time.Minute)
	o.secondaryTTL = coalesce[time.Duration](opts.SecondaryTTL, 24*time.Hour)

	if o.cacheEnabled {
		ls := opts.Locks
		if ls == nil {
			ls = lock.NewLocalStore()
			o.ownsLocks = true
		}
		o.lockStore = ls
		o.locks = lock.NewManager(ls, lock.Config{
			TTL:            opts.LockTTL,
			AcquireTimeout: coalesce[time.Duration](opts.LockAcquireTimeout, 15*time.Second),
			RetryInterval:  opts.LockRetryInterval,
			OnLost: func(key string) {
				o.log.Warn("stampede lock lost before release", Fields{"key": key})
				o.hooks.LockLost(key)
			},
		})
	}

	o.primaryBreaker = breaker.New(o.breakerSettings(ProviderPrimary, opts.PrimaryBreaker, 3, 2*time.Minute))
	o.secondaryBreaker = breaker.New(o.breakerSettings(ProviderSecondary, opts.SecondaryBreaker, 8, 30*time.Second))
	return o, nil
}

// breakerSettings applies tier defaults and chains our observability onto
// any caller-supplied transition callback.
func (o *orchestrator) breakerSettings(id ProviderID, set breaker.Settings, threshold int, reset time.Duration) breaker.Settings {
	set.Name = coalesce[string](set.Name, id.String())
	set.FailureThreshold = coalesce[int](set.FailureThreshold, threshold)
	set.ResetTimeout = coalesce[time.Duration](set.ResetTimeout, reset)

	userCB := set.OnStateChange
	set.OnStateChange = func(name string, from, to breaker.State) {
		o.log.Info("breaker state change", Fields{"provider": name, "from": from.String(), "to": to.String()})
		o.hooks.BreakerStateChange(name, from.String(), to.String())
		o.metrics.RecordBreakerTransition(name, to.String())
		if userCB != nil {
			userCB(name, from, to)
		}
	}
	return set
}

func (o *orchestrator) Close(ctx context.Context) error {
	var errs []error
	if o.ownsLocks && o.lockStore != nil {
		if err := o.lockStore.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if o.store != nil {
		if err := o.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *orchestrator) IdentifyPlant(ctx context.Context, image []byte, opts IdentifyOptions) (MergedResult, error) {
	start := time.Now()
	if len(image) == 0 {
		return MergedResult{}, ErrEmptyImage
	}
	key := o.storageKey(CacheKey(image, opts))

	// fast path
	if res, ok := o.cacheGet(ctx, key, opts); ok {
		o.log.Debug("cache hit", Fields{"key": key})
		o.metrics.RecordCacheRequest("hit")
		o.metrics.RecordIdentifyDuration(time.Since(start).Seconds())
		return res, nil
	}
	o.metrics.RecordCacheRequest("miss")

	// stampede guard: at most one caller per key computes; the rest find
	// the entry on the re-check. Failure to acquire degrades to unguarded
	// execution, never to a failed request.
	var lease *lock.Lease
	if o.cacheEnabled {
		l, ok, err := o.locks.Acquire(ctx, "lock:"+key)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return MergedResult{}, ctx.Err()
			}
			o.log.Warn("lock store degraded; proceeding unguarded", Fields{"key": key, "err": err})
			o.metrics.RecordLockAcquisition("error")
		case !ok:
			o.log.Info("lock contended; proceeding unguarded", Fields{"key": key})
			o.hooks.LockContended(key)
			o.metrics.RecordLockAcquisition("contended")
		default:
			lease = l
			o.log.Debug("lock acquired", Fields{"key": key})
			o.metrics.RecordLockAcquisition("acquired")
			defer func() {
				if err := lease.Release(ctx); err != nil {
					// harmless: the TTL expires it
					o.log.Debug("lock release failed", Fields{"key": key, "err": err})
				}
			}()
		}

		// re-check: the previous holder may have filled the cache while
		// we waited on the lock
		if res, ok := o.cacheGet(ctx, key, opts); ok {
			o.log.Debug("cache hit inside lock", Fields{"key": key})
			o.metrics.RecordCacheRequest("hit")
			o.metrics.RecordIdentifyDuration(time.Since(start).Seconds())
			return res, nil
		}
	}

	pRes, sRes := o.fanOut(ctx, image, opts)
	merged := Merge(pRes, sRes)
	merged.Elapsed = time.Since(start)
	o.metrics.RecordIdentifyDuration(merged.Elapsed.Seconds())

	if merged.Unavailable {
		o.log.Warn("both providers absent", Fields{
			"primary_err":   fmt.Sprint(pRes.Err),
			"secondary_err": fmt.Sprint(sRes.Err),
		})
		o.metrics.RecordMerge("unavailable")
		return merged, &UnavailableError{PrimaryErr: pRes.Err, SecondaryErr: sRes.Err}
	}

	o.log.Info("merged result", Fields{
		"contributing": len(merged.Contributing),
		"candidates":   len(merged.Candidates),
		"matched":      merged.Matched(),
	})
	o.metrics.RecordMerge(mergeOutcome(merged))

	o.cacheSet(ctx, key, merged, opts)
	return merged, nil
}

func mergeOutcome(m MergedResult) string {
	p, s := m.ContributedBy(ProviderPrimary), m.ContributedBy(ProviderSecondary)
	switch {
	case p && s:
		return "both"
	case p:
		return "primary_only"
	case s:
		return "secondary_only"
	default:
		return "unavailable"
	}
}

// fanOut submits one task per provider to the bounded pool and collects
// both results. A task always returns its ProviderResult as a value; an
// absent provider is marked with Err rather than failing the future.
func (o *orchestrator) fanOut(ctx context.Context, image []byte, opts IdentifyOptions) (ProviderResult, ProviderResult) {
	pf, pErr := pool.Submit(ctx, o.pool, o.task(ProviderPrimary, o.primary, o.primaryBreaker, o.primaryTimeout, image, opts))
	sf, sErr := pool.Submit(ctx, o.pool, o.task(ProviderSecondary, o.secondary, o.secondaryBreaker, o.secondaryTimeout, image, opts))

	collect := func(id ProviderID, f *pool.Future[ProviderResult], submitErr error) ProviderResult {
		if submitErr != nil {
			o.absent(id, "pool", submitErr)
			return ProviderResult{Provider: id, Err: submitErr}
		}
		res, err := f.Wait(ctx)
		if err != nil {
			o.absent(id, reasonFor(err), err)
			return ProviderResult{Provider: id, Err: err}
		}
		return res
	}
	return collect(ProviderPrimary, pf, pErr), collect(ProviderSecondary, sf, sErr)
}

// task wraps one provider call in its breaker and per-provider deadline.
func (o *orchestrator) task(id ProviderID, client ProviderClient, b *breaker.Breaker, timeout time.Duration, image []byte, opts IdentifyOptions) func(context.Context) (ProviderResult, error) {
	return func(ctx context.Context) (ProviderResult, error) {
		start := time.Now()
		res, err := breaker.Do(b, func() (ProviderResult, error) {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return client.Identify(cctx, image, opts)
		})
		elapsed := time.Since(start)

		if err != nil {
			reason := reasonFor(err)
			o.absent(id, reason, err)
			o.metrics.RecordProviderRequest(id.String(), reason, elapsed.Seconds())
			return ProviderResult{Provider: id, Err: err, Elapsed: elapsed}, nil
		}
		o.metrics.RecordProviderRequest(id.String(), "success", elapsed.Seconds())
		res.Provider = id
		res.Elapsed = elapsed
		return res, nil
	}
}

func (o *orchestrator) absent(id ProviderID, reason string, err error) {
	o.log.Debug("provider absent", Fields{"provider": id.String(), "reason": reason, "err": err})
	o.hooks.ProviderAbsent(id.String(), reason)
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, breaker.ErrOpen):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, pool.ErrShutdown):
		return "pool"
	default:
		return "error"
	}
}

func (o *orchestrator) storageKey(key string) string {
	return "identify:" + o.ns + ":" + key
}

// cacheGet returns (result, true) on a usable hit. Backend errors degrade
// to a miss; entries that fail strict validation are deleted (self-heal)
// and also read as a miss.
func (o *orchestrator) cacheGet(ctx context.Context, key string, opts IdentifyOptions) (MergedResult, bool) {
	if !o.cacheEnabled {
		return MergedResult{}, false
	}
	raw, ok, err := o.store.Get(ctx, key)
	if err != nil {
		o.log.Warn("cache degraded on read", Fields{"key": key, "err": err})
		o.hooks.CacheDegraded("get", err)
		o.metrics.RecordCacheRequest("degraded")
		return MergedResult{}, false
	}
	if !ok {
		return MergedResult{}, false
	}

	flags, payload, err := wire.Decode(raw)
	if err != nil {
		o.heal(ctx, key, "corrupt")
		return MergedResult{}, false
	}
	if flags != opts.wireFlags() {
		// the key embeds the flag set, so this means schema drift
		o.heal(ctx, key, "flags")
		return MergedResult{}, false
	}
	res, err := o.codec.Decode(payload)
	if err != nil {
		o.heal(ctx, key, "value_decode")
		return MergedResult{}, false
	}
	return res, true
}

func (o *orchestrator) heal(ctx context.Context, key, reason string) {
	_ = o.store.Del(ctx, key)
	o.log.Debug("healed stale cache entry", Fields{"key": key, "reason": reason})
	o.hooks.StaleEntryHealed(key, reason)
}

// cacheSet writes the merged result, best-effort. The entry's TTL is the
// shortest contributing tier's TTL so no provider's data outlives its
// freshness budget.
func (o *orchestrator) cacheSet(ctx context.Context, key string, res MergedResult, opts IdentifyOptions) {
	if !o.cacheEnabled {
		return
	}
	payload, err := o.codec.Encode(res)
	if err != nil {
		o.log.Error("result encode failed; not cached", Fields{"key": key, "err": err})
		return
	}
	entry := wire.Encode(opts.wireFlags(), payload)
	if err := o.store.Set(ctx, key, entry, o.ttlFor(res)); err != nil {
		o.log.Warn("cache degraded on write", Fields{"key": key, "err": err})
		o.hooks.CacheDegraded("set", err)
		return
	}
	o.log.Debug("cached result", Fields{"key": key})
}

func (o *orchestrator) ttlFor(res MergedResult) time.Duration {
	p := res.ContributedBy(ProviderPrimary)
	s := res.ContributedBy(ProviderSecondary)
	switch {
	case p && s:
		if o.primaryTTL < o.secondaryTTL {
			return o.primaryTTL
		}
		return o.secondaryTTL
	case p:
		return o.primaryTTL
	default:
		return o.secondaryTTL
	}
}
