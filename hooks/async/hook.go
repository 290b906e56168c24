// Package asynchook decouples hook consumers from the orchestrator's hot
// path: events are queued to a small worker set and dropped on overflow
// rather than ever blocking an identification call.
//
//	raw := myHooks{}                      // your florascan.Hooks
//	hooks := asynchook.New(raw, 1, 1000)  // 1 worker; queue 1000 events
//	defer hooks.Close()
package asynchook

import (
	"sync"

	"github.com/verdant-labs/florascan"
)

type Hooks struct {
	inner florascan.Hooks
	q     chan func()
	wg    sync.WaitGroup

	// mu guards closed. Emitters hold it shared while sending so Close
	// cannot close q under a concurrent send.
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

var _ florascan.Hooks = (*Hooks)(nil)

func New(inner florascan.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events emitted after
// (or racing) Close are dropped. Safe to call more than once.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) CacheDegraded(op string, err error) {
	h.try(func() { h.inner.CacheDegraded(op, err) })
}
func (h *Hooks) LockContended(key string) { h.try(func() { h.inner.LockContended(key) }) }
func (h *Hooks) LockLost(key string)      { h.try(func() { h.inner.LockLost(key) }) }
func (h *Hooks) ProviderAbsent(provider, reason string) {
	h.try(func() { h.inner.ProviderAbsent(provider, reason) })
}
func (h *Hooks) BreakerStateChange(provider, from, to string) {
	h.try(func() { h.inner.BreakerStateChange(provider, from, to) })
}
func (h *Hooks) StaleEntryHealed(key, reason string) {
	h.try(func() { h.inner.StaleEntryHealed(key, reason) })
}
