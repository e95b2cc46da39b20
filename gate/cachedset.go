package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// fetchFunc returns the complete membership set from the backend.
type fetchFunc[T comparable] func(ctx context.Context) ([]T, error)

type setSnapshot[T comparable] struct {
	members   map[T]struct{}
	fetchedAt time.Time
}

// cachedSet memoizes a membership set fetched wholesale from a backend.
// The snapshot is only ever replaced by a fully successful fetch; a
// failed fetch leaves the previous snapshot in place. Concurrent
// refreshes are coalesced so at most one backend call is in flight per
// set at any time.
//
// Before the first successful fetch every query answers false, because
// an unpopulated set must never imply universal access. Once a fetch
// has succeeded, an expired snapshot is still served when the refresh
// fails.
type cachedSet[T comparable] struct {
	name   string
	ttl    time.Duration
	fetch  fetchFunc[T]
	logger *slog.Logger

	mu   sync.RWMutex
	snap *setSnapshot[T]

	flight singleflight.Group
}

func newCachedSet[T comparable](name string, ttl time.Duration, fetch fetchFunc[T], logger *slog.Logger) *cachedSet[T] {
	return &cachedSet[T]{
		name:   name,
		ttl:    ttl,
		fetch:  fetch,
		logger: logger.With("cache", name),
	}
}

func (s *cachedSet[T]) snapshot() *setSnapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *cachedSet[T]) fresh(snap *setSnapshot[T]) bool {
	return snap != nil && time.Since(snap.fetchedAt) < s.ttl
}

// contains answers membership, refreshing the snapshot first if it is
// missing or expired. It never returns an error: failure modes resolve
// to the stale snapshot when one exists, and to false before the first
// successful fetch.
func (s *cachedSet[T]) contains(ctx context.Context, val T) bool {
	snap := s.snapshot()
	if s.fresh(snap) {
		cacheHitsCounter.WithLabelValues(s.name).Inc()
		_, ok := snap.members[val]
		return ok
	}
	cacheMissesCounter.WithLabelValues(s.name).Inc()

	err := s.refresh(ctx, false)

	snap = s.snapshot()
	if snap == nil {
		return false
	}
	if err != nil {
		cacheStaleServesCounter.WithLabelValues(s.name).Inc()
	}
	_, ok := snap.members[val]
	return ok
}

// refresh fetches the full set and replaces the snapshot. Concurrent
// callers share a single backend call. Unless force is set, a snapshot
// refreshed while this caller was waiting on the flight is left alone.
func (s *cachedSet[T]) refresh(ctx context.Context, force bool) error {
	_, err, _ := s.flight.Do("refresh", func() (any, error) {
		if !force && s.fresh(s.snapshot()) {
			return nil, nil
		}
		vals, err := s.fetch(ctx)
		if err != nil {
			cacheRefreshesCounter.WithLabelValues(s.name, "error").Inc()
			s.logger.Warn("cache refresh failed", "err", err)
			return nil, err
		}
		members := make(map[T]struct{}, len(vals))
		for _, v := range vals {
			members[v] = struct{}{}
		}
		s.mu.Lock()
		s.snap = &setSnapshot[T]{members: members, fetchedAt: time.Now()}
		s.mu.Unlock()
		cacheRefreshesCounter.WithLabelValues(s.name, "ok").Inc()
		return nil, nil
	})
	return err
}

// reset clears the snapshot back to the never-fetched state. Intended
// for tests and operational hooks, not request handling.
func (s *cachedSet[T]) reset() {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}
