// Package florascan orchestrates plant identification against two independent
// recognition services. A single call fans out to both providers in parallel
// through a bounded worker pool, isolates provider failures behind per-provider
// circuit breakers, merges whatever came back, and caches the merged result
// keyed by image content.
//
// Components:
//   - ProviderClient: one HTTP recognition service (see provider/plantid and
//     provider/plantnet for the two shipped implementations).
//   - store.Store: byte store with TTL (Redis, BigCache, Ristretto) holding
//     serialized merged results.
//   - lock.Manager: TTL-bound distributed lock with renewal, preventing cache
//     stampedes across processes.
//   - breaker.Breaker: per-provider circuit breaker.
//   - pool.Pool: process-wide bounded worker pool.
//   - codec.Codec[V]: (de)serializes MergedResult <-> []byte.
//
// Keys:
//
//	identify:<ns>:<key>       - cached merged results
//	lock:identify:<ns>:<key>  - stampede locks
//
// Only two failures surface to the caller: an empty image, and both
// providers absent with nothing cached (returned as *UnavailableError so
// callers can distinguish "service unavailable" from "no match").
package florascan
