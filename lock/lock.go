// Package lock implements the TTL-bound mutual exclusion used to prevent
// cache stampedes. The lock is advisory and exists for performance, not
// correctness: callers that fail to acquire within the acquisition timeout
// proceed without it.
//
// A held lock auto-expires (the holder may crash), so the Manager renews it
// in the background while work is in progress instead of guessing a single
// worst-case TTL up front.
package lock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the backing primitive: atomic set-if-absent with expiry, plus
// owner-checked renew and release. Shared across processes when backed by
// Redis; in-process with Local.
type Store interface {
	// TryAcquire atomically claims key for owner with the given TTL.
	// Returns false when another owner holds it.
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Renew extends the TTL iff owner still holds the key.
	Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release deletes the key iff owner still holds it.
	Release(ctx context.Context, key, owner string) (bool, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Config tunes a Manager. Zero values select the defaults.
type Config struct {
	TTL            time.Duration // lock lifetime between renewals; default 30s
	AcquireTimeout time.Duration // how long Acquire blocks before giving up; default 15s
	RetryInterval  time.Duration // polling interval while blocked; default 100ms (jittered)

	// OnLost is called when a held lock could not be renewed. Optional.
	OnLost func(key string)
}

// Manager acquires and maintains leases on top of a Store.
type Manager struct {
	store Store
	cfg   Config
}

func NewManager(store Store, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 15 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	return &Manager{store: store, cfg: cfg}
}

// Acquire blocks until the lock for key is held, the acquisition timeout
// elapses, or ctx is done. On timeout it returns (nil, false, nil): the
// caller decides whether to degrade to unguarded execution. On success the
// returned Lease is renewed in the background until Release is called.
//
// Waiters race to acquire after a release; no FIFO fairness is provided.
// Contention windows are one identification long, so starvation is not a
// practical concern.
func (m *Manager) Acquire(ctx context.Context, key string) (*Lease, bool, error) {
	owner := uuid.NewString()
	deadline := time.Now().Add(m.cfg.AcquireTimeout)

	for {
		ok, err := m.store.TryAcquire(ctx, key, owner, m.cfg.TTL)
		if err != nil {
			return nil, false, err
		}
		if ok {
			l := &Lease{
				store:  m.store,
				key:    key,
				owner:  owner,
				ttl:    m.cfg.TTL,
				onLost: m.cfg.OnLost,
				stop:   make(chan struct{}),
			}
			l.wg.Add(1)
			go l.renewLoop()
			return l, true, nil
		}
		if time.Now().After(deadline) {
			return nil, false, nil
		}

		// jittered wait so released locks are not hammered in lockstep
		wait := m.cfg.RetryInterval + time.Duration(rand.Int63n(int64(m.cfg.RetryInterval)))
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Lease is a held lock. Release exactly once; the TTL covers the crash case.
type Lease struct {
	store  Store
	key    string
	owner  string
	ttl    time.Duration
	onLost func(string)

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Key returns the locked key.
func (l *Lease) Key() string { return l.key }

// Owner returns the opaque owner token held by this lease.
func (l *Lease) Owner() string { return l.owner }

// Release stops renewal and deletes the lock if still owned. Safe to call
// multiple times. A failed delete is harmless: the TTL expires it.
func (l *Lease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		l.wg.Wait()
		_, err = l.store.Release(ctx, l.key, l.owner)
	})
	return err
}

// renewLoop extends the TTL at a third of its length so two consecutive
// renewal failures still leave headroom before expiry.
func (l *Lease) renewLoop() {
	defer l.wg.Done()
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			ok, err := l.store.Renew(ctx, l.key, l.owner, l.ttl)
			cancel()
			if err == nil && !ok {
				// lock expired or was taken over; nothing left to renew
				if l.onLost != nil {
					l.onLost(l.key)
				}
				return
			}
			// transient errors: keep trying, TTL headroom absorbs them
		}
	}
}
