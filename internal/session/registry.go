// Package session holds the in-process registry mapping opaque session
// tokens to user snapshots.
//
// The registry is deliberately not durable: sessions live only as long as
// the process and are rebuilt by re-authentication after a restart. What it
// must be is fast and safe under load — every authenticated request resolves
// a token here before touching anything else.
//
// Snapshots are copies taken at login. A ledger mutation after login does
// not change an already-established snapshot; the registry answers "who is
// this" and "what role do they hold", never "what is their balance". Any
// balance-sensitive decision re-reads the store.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/model"
)

// entry pairs a user snapshot with its sliding expiry. The deadline is an
// atomic so Resolve can extend it without taking the registry write lock —
// reads on the hot path never block each other.
type entry struct {
	user     model.User
	deadline atomic.Int64 // unix nanoseconds
}

// Registry is a concurrently-readable token → snapshot map. Establish and
// Revoke take the write lock for the instant of the map mutation only.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// NewToken returns a fresh opaque session token. UUIDv4 is drawn from
// crypto/rand, so tokens are not guessable.
func NewToken() string {
	return uuid.NewString()
}

// Establish inserts (or overwrites) the session for token with a copy of
// the given user snapshot.
func (r *Registry) Establish(token string, user model.User) {
	e := &entry{user: user}
	e.deadline.Store(time.Now().Add(r.ttl).UnixNano())

	r.mu.Lock()
	r.entries[token] = e
	r.mu.Unlock()
}

// Resolve returns the snapshot for token and slides its expiry window
// forward. An unknown or expired token yields an Unauthenticated error.
func (r *Registry) Resolve(token string) (model.User, error) {
	r.mu.RLock()
	e, ok := r.entries[token]
	r.mu.RUnlock()

	if !ok {
		return model.User{}, apperror.Unauthenticated()
	}

	now := time.Now()
	if now.UnixNano() > e.deadline.Load() {
		// Lazily drop the expired entry; the janitor would get it anyway.
		r.Revoke(token)
		return model.User{}, apperror.Unauthenticated()
	}

	e.deadline.Store(now.Add(r.ttl).UnixNano())
	return e.user, nil
}

// Revoke removes the session for token. Revoking an unknown token is a
// no-op.
func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	delete(r.entries, token)
	r.mu.Unlock()
}

// RevokeUser removes every session belonging to the given user ID. Used
// when an account is deleted.
func (r *Registry) RevokeUser(userID int64) {
	r.mu.Lock()
	for token, e := range r.entries {
		if e.user.ID == userID {
			delete(r.entries, token)
		}
	}
	r.mu.Unlock()
}

// Len reports the number of live sessions, expired ones included until the
// next sweep.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// sweep drops every entry whose deadline has passed.
func (r *Registry) sweep(now time.Time) {
	cutoff := now.UnixNano()

	r.mu.Lock()
	for token, e := range r.entries {
		if cutoff > e.deadline.Load() {
			delete(r.entries, token)
		}
	}
	r.mu.Unlock()
}

// RunJanitor sweeps expired sessions at the given interval until ctx is
// cancelled. Run it in its own goroutine alongside the HTTP listener.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}
