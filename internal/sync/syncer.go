// Package sync mediates between the catalog client, the shelf store and
// their callers: it caches results by request identity, coalesces identical
// in-flight fetches, and re-fetches invalidated reads after mutations.
package sync

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of a tracked read.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// FetchFunc loads the value for one cache key.
type FetchFunc func(ctx context.Context) (any, error)

// Request describes one tracked read.
type Request struct {
	// Key identifies the (operation, parameters) pair. See Key().
	Key string
	// Groups are the invalidation groups this read belongs to.
	Groups []string
	// TTL is the freshness window for a successful result.
	TTL time.Duration
	// Fetch loads the value on a miss or refetch.
	Fetch FetchFunc
	// Disabled marks a read whose precondition is absent (no session, no
	// movie id, query too short). No request is issued; the read stays idle.
	Disabled bool
}

// Result is the observable state of a tracked read. During a refetch the
// previous good value is still served, flagged Stale.
type Result struct {
	State     State
	Value     any
	Err       error
	Stale     bool
	FetchedAt time.Time
}

// Key builds a cache key from an operation name and its parameters.
func Key(op string, params ...string) string {
	if len(params) == 0 {
		return op
	}
	return op + "?" + strings.Join(params, "&")
}

type entry struct {
	key       string
	groups    []string
	ttl       time.Duration
	fetch     FetchFunc
	state     State
	value     any
	err       error
	fetchedAt time.Time
	expiresAt time.Time
	subs      map[int]func(Result)
	nextSub   int

	// gen changes on every invalidation. A fetch that started under an
	// older generation may carry pre-mutation data; its result is kept
	// but never marked fresh.
	gen uint64
}

func (e *entry) snapshot() Result {
	return Result{
		State:     e.state,
		Value:     e.value,
		Err:       e.err,
		Stale:     e.state != StateIdle && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt),
		FetchedAt: e.fetchedAt,
	}
}

func (e *entry) inGroup(groups []string) bool {
	for _, g := range groups {
		for _, have := range e.groups {
			if g == have {
				return true
			}
		}
	}
	return false
}

// Syncer is the process-wide request cache.
type Syncer struct {
	mu      sync.Mutex
	entries map[string]*entry
	flight  singleflight.Group
	logger  *logrus.Logger

	// genSeq seeds entry generations so a key dropped and re-created never
	// reuses a generation an in-flight fetch captured.
	genSeq uint64

	// refetchTimeout bounds background refetches triggered by invalidation.
	refetchTimeout time.Duration
}

func New(logger *logrus.Logger) *Syncer {
	return &Syncer{
		entries:        make(map[string]*entry),
		logger:         logger,
		refetchTimeout: 30 * time.Second,
	}
}

// Fetch performs the read described by req. A fresh cached value is returned
// without touching the network; a stale value is returned immediately while a
// refetch runs in the background; a cold read blocks. Concurrent calls for
// the same key share one underlying fetch.
func (s *Syncer) Fetch(ctx context.Context, req Request) Result {
	if req.Disabled {
		return s.Snapshot(req.Key)
	}

	s.mu.Lock()
	e := s.ensure(req.Key)
	e.groups = req.Groups
	e.ttl = req.TTL
	e.fetch = req.Fetch

	now := time.Now()
	if e.state == StateSuccess && now.Before(e.expiresAt) {
		res := e.snapshot()
		s.mu.Unlock()
		return res
	}

	if e.state == StateSuccess || e.state == StateError && e.value != nil {
		// Stale-while-revalidate: serve the last good value now, refresh
		// in the background.
		res := e.snapshot()
		res.Stale = true
		s.mu.Unlock()
		s.refetchAsync(req.Key)
		return res
	}

	e.state = StateLoading
	s.mu.Unlock()
	s.notify(req.Key)

	s.doFetch(ctx, req.Key)
	return s.Snapshot(req.Key)
}

// Snapshot reports the current state of a key without issuing a request.
// Unknown keys are idle.
func (s *Syncer) Snapshot(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		return e.snapshot()
	}
	return Result{State: StateIdle}
}

// Subscribe registers fn to run on every state transition of key and returns
// an unsubscribe func. Subscribing to a key that has not been fetched yet is
// allowed; the entry starts idle.
func (s *Syncer) Subscribe(key string, fn func(Result)) func() {
	s.mu.Lock()
	e := s.ensure(key)
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if e, ok := s.entries[key]; ok {
			delete(e.subs, id)
		}
		s.mu.Unlock()
	}
}

// Mutate runs fn and, only on success, invalidates the given groups. The
// mutation completes before dependent invalidation starts, so a read issued
// after Mutate returns will not see the pre-mutation value as fresh.
func (s *Syncer) Mutate(ctx context.Context, fn func(ctx context.Context) error, groups ...string) error {
	if err := fn(ctx); err != nil {
		return err
	}
	s.Invalidate(groups...)
	return nil
}

// Invalidate marks every entry in the given groups stale and triggers a
// background refetch of the ones that are being observed.
func (s *Syncer) Invalidate(groups ...string) {
	s.mu.Lock()
	var refetch []string
	past := time.Now().Add(-time.Second)
	for key, e := range s.entries {
		if !e.inGroup(groups) {
			continue
		}
		s.genSeq++
		e.gen = s.genSeq
		e.expiresAt = past
		// A fetch already in flight predates the mutation; the triggered
		// refetch must not coalesce with it.
		s.flight.Forget(key)
		if len(e.subs) > 0 && e.fetch != nil {
			refetch = append(refetch, key)
		}
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"groups":    groups,
		"refetched": len(refetch),
	}).Debug("Cache groups invalidated")

	for _, key := range refetch {
		s.refetchAsync(key)
	}
}

// Drop removes every entry in the given groups outright. Used on sign-out to
// discard user-scoped reads.
func (s *Syncer) Drop(groups ...string) {
	s.mu.Lock()
	for key, e := range s.entries {
		if e.inGroup(groups) {
			delete(s.entries, key)
			s.flight.Forget(key)
		}
	}
	s.mu.Unlock()
}

func (s *Syncer) ensure(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		s.genSeq++
		e = &entry{
			key:   key,
			state: StateIdle,
			subs:  make(map[int]func(Result)),
			gen:   s.genSeq,
		}
		s.entries[key] = e
	}
	return e
}

// doFetch runs the entry's fetch func behind singleflight so concurrent
// identical reads share one underlying call.
func (s *Syncer) doFetch(ctx context.Context, key string) {
	s.flight.Do(key, func() (any, error) {
		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok || e.fetch == nil {
			s.mu.Unlock()
			return nil, nil
		}
		fetch := e.fetch
		gen := e.gen
		s.mu.Unlock()

		value, err := fetch(ctx)
		s.complete(key, gen, value, err)
		return value, err
	})
}

func (s *Syncer) refetchAsync(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.refetchTimeout)
		defer cancel()
		s.doFetch(ctx, key)
	}()
}

func (s *Syncer) complete(key string, gen uint64, value any, err error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.fetchedAt = time.Now()
	if err != nil {
		// Keep the last good value so the view can stay populated.
		e.state = StateError
		e.err = err
	} else {
		e.state = StateSuccess
		e.err = nil
		e.value = value
		if e.gen == gen {
			e.expiresAt = e.fetchedAt.Add(e.ttl)
		} else {
			// An invalidation landed while this fetch was in flight, so
			// the value may predate the mutation. Keep it, but only as
			// stale; the triggered refetch supplies the fresh one.
			e.expiresAt = e.fetchedAt.Add(-time.Second)
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Tracked read failed")
	}
	s.notify(key)
}

func (s *Syncer) notify(key string) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	res := e.snapshot()
	fns := make([]func(Result), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(res)
	}
}
