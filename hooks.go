package florascan

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the orchestrator calls
// them on hot paths. Wrap with hooks/async to decouple slow consumers.
type Hooks interface {
	// The cache backend failed; the call proceeded without caching.
	// op ∈ {"get", "set"}
	CacheDegraded(op string, err error)

	// Lock acquisition gave up after the acquisition timeout; the call
	// proceeded without exclusivity.
	LockContended(key string)

	// A held lock could not be renewed (TTL may lapse before release).
	LockLost(key string)

	// A provider contributed nothing to a call.
	// reason ∈ {"error", "timeout", "breaker_open", "pool"}
	ProviderAbsent(provider string, reason string)

	// A breaker changed state. States are "closed", "open", "half-open".
	BreakerStateChange(provider string, from, to string)

	// A cached entry was deleted on read.
	// reason ∈ {"corrupt", "flags", "value_decode"}
	StaleEntryHealed(storageKey string, reason string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CacheDegraded(string, error)               {}
func (NopHooks) LockContended(string)                      {}
func (NopHooks) LockLost(string)                           {}
func (NopHooks) ProviderAbsent(string, string)             {}
func (NopHooks) BreakerStateChange(string, string, string) {}
func (NopHooks) StaleEntryHealed(string, string)           {}
