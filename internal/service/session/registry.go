// Package session keeps the bearer-token session registry and its sweeper.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-relay/internal/model/chat"
)

// DefaultTTL is how long a freshly joined session stays valid.
const DefaultTTL = time.Hour

var (
	ErrMissingFields = errors.New("missing username / placeId / jobId")
	ErrUnauthorized  = errors.New("invalid or expired token")
)

// Option customises a Registry.
type Option func(*Registry)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry maps opaque tokens to sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]chat.Session),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join registers a new session and returns it with a fresh token. Earlier
// sessions for the same user are left untouched.
func (r *Registry) Join(_ context.Context, displayName string, placeID int64, jobID string) (chat.Session, error) {
	if displayName == "" || placeID == 0 || jobID == "" {
		return chat.Session{}, ErrMissingFields
	}

	session := chat.Session{
		Token:       uuid.NewString(),
		DisplayName: displayName,
		PlaceID:     placeID,
		JobID:       jobID,
		ExpiresAt:   r.now().Add(r.ttl),
	}

	r.mu.Lock()
	r.sessions[session.Token] = session
	r.mu.Unlock()

	return session, nil
}

// Authenticate resolves token to its session. Expiry is checked here as well
// as by Sweep, so a session never outlives ExpiresAt.
func (r *Registry) Authenticate(_ context.Context, token string) (chat.Session, error) {
	if token == "" {
		return chat.Session{}, ErrUnauthorized
	}

	r.mu.RLock()
	session, ok := r.sessions[token]
	r.mu.RUnlock()

	if !ok || session.Expired(r.now()) {
		return chat.Session{}, ErrUnauthorized
	}
	return session, nil
}

// Sweep deletes every expired session and reports how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
