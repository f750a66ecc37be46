package cart

import (
	"context"

	"github.com/fjod/go_cart/fakestore/internal/kv"
	"github.com/fjod/go_cart/fakestore/internal/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxSessions bounds the carts held in memory when no limit is given.
const DefaultMaxSessions = 10000

// Sessions hands out one Store per session id. Each session's keys live under
// "session:<id>:" in the shared backend. At most maxSessions stores are kept;
// the least recently used one is dropped and hydrated again on its next use.
type Sessions struct {
	kv      kv.Store
	stores  *lru.Cache[string, *Store]
	sfg     singleflight.Group // one hydration per session
	metrics *metrics.Metrics
	opts    []Option
}

func NewSessions(store kv.Store, maxSessions int, m *metrics.Metrics, opts ...Option) *Sessions {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	// only fails for a non-positive size
	stores, _ := lru.New[string, *Store](maxSessions)
	return &Sessions{
		kv:      store,
		stores:  stores,
		metrics: m,
		opts:    append([]Option{WithMetrics(m)}, opts...),
	}
}

// Get returns the hydrated Store for sessionID, creating it on first use.
func (s *Sessions) Get(ctx context.Context, sessionID string) *Store {
	if st, ok := s.stores.Get(sessionID); ok {
		return st
	}

	v, _, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		if existing, ok := s.stores.Peek(sessionID); ok {
			return existing, nil
		}

		created := NewStore(kv.Namespace(s.kv, sessionPrefix(sessionID)), s.opts...)
		created.Load(ctx)

		s.stores.Add(sessionID, created)
		s.metrics.SetSessions(s.stores.Len())
		return created, nil
	})
	return v.(*Store)
}

// ClearSession empties the cart of sessionID, whether or not it is in memory.
func (s *Sessions) ClearSession(ctx context.Context, sessionID string) error {
	return s.Get(ctx, sessionID).Clear(ctx)
}

func (s *Sessions) Len() int {
	return s.stores.Len()
}

func sessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
