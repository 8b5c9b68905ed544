package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/soyeahso/ai4cs/internal/domain"
	"github.com/soyeahso/ai4cs/internal/logging"
)

// MemoryOptions tunes a MemoryStore. The zero value keeps sessions forever.
type MemoryOptions struct {
	TTL         time.Duration // idle expiry, 0 disables
	MaxSessions int           // 0 = unbounded
	OnEvict     EvictFunc
	Now         func() time.Time
}

// entry holds one session. write serializes updaters for the whole
// mutation, including the provider call; mu only guards the fields below
// and is never held across a call-out.
type entry struct {
	write *semaphore.Weighted

	mu         sync.RWMutex
	sess       domain.Session
	lastAccess time.Time
	busy       bool
	removed    bool
}

// Stats is a point-in-time view of the store.
type Stats struct {
	Total int `json:"total"`
	Busy  int `json:"busy"`
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	ttl     time.Duration
	max     int
	onEvict EvictFunc
	now     func() time.Time
	log     *logging.Logger
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts MemoryOptions, log *logging.Logger) *MemoryStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     opts.TTL,
		max:     opts.MaxSessions,
		onEvict: opts.OnEvict,
		now:     now,
		log:     log.Sub("session"),
	}
}

type eviction struct {
	id     string
	reason EvictReason
}

// Create stores sess under sess.ID.
func (s *MemoryStore) Create(sess domain.Session) (string, error) {
	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}

	var evicted []eviction
	s.mu.Lock()
	if old, ok := s.entries[sess.ID]; ok {
		old.mu.Lock()
		stale := !old.busy && s.expired(old, now)
		if stale {
			old.removed = true
		}
		old.mu.Unlock()
		if !stale {
			s.mu.Unlock()
			return "", ErrDuplicateSession
		}
		delete(s.entries, sess.ID)
		evicted = append(evicted, eviction{sess.ID, ReasonExpired})
	}

	if s.max > 0 && len(s.entries) >= s.max {
		victim, ok := s.oldestIdleLocked()
		if !ok {
			s.mu.Unlock()
			s.notify(evicted)
			return "", ErrStoreFull
		}
		delete(s.entries, victim)
		evicted = append(evicted, eviction{victim, ReasonCapacity})
	}

	s.entries[sess.ID] = &entry{write: semaphore.NewWeighted(1), sess: sess.Clone(), lastAccess: now}
	s.mu.Unlock()

	s.notify(evicted)
	return sess.ID, nil
}

// oldestIdleLocked picks the least recently used session that is not being
// updated and marks it removed. Caller holds s.mu.
func (s *MemoryStore) oldestIdleLocked() (string, bool) {
	var (
		victim string
		oldest time.Time
		found  *entry
	)
	for id, e := range s.entries {
		e.mu.RLock()
		idle := !e.busy
		last := e.lastAccess
		e.mu.RUnlock()
		if !idle {
			continue
		}
		if found == nil || last.Before(oldest) {
			victim, oldest, found = id, last, e
		}
	}
	if found == nil {
		return "", false
	}
	found.mu.Lock()
	if found.busy {
		// Picked up by an updater between the scan and now.
		found.mu.Unlock()
		return "", false
	}
	found.removed = true
	found.mu.Unlock()
	return victim, true
}

// Get returns a snapshot of the session and refreshes its idle timer.
func (s *MemoryStore) Get(id string) (domain.Session, bool) {
	e := s.lookup(id)
	if e == nil {
		return domain.Session{}, false
	}

	now := s.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || (!e.busy && s.expired(e, now)) {
		return domain.Session{}, false
	}
	e.lastAccess = now
	return e.sess.Clone(), true
}

// Update implements Store. A caller whose ctx ends while it waits behind
// another updater gets ctx.Err() and fn never runs.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) error {
	e := s.lookup(id)
	if e == nil {
		return ErrSessionNotFound
	}

	if err := e.write.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.write.Release(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.removed || s.expired(e, s.now()) {
		e.mu.Unlock()
		return ErrSessionNotFound
	}
	e.busy = true
	e.lastAccess = s.now()
	work := e.sess.Clone()
	e.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			e.mu.Lock()
			e.busy = false
			e.mu.Unlock()
		}
	}()

	err := fn(&work)

	now := s.now()
	work.ID = id
	work.UpdatedAt = now

	e.mu.Lock()
	e.sess = work
	e.lastAccess = now
	e.busy = false
	e.mu.Unlock()
	committed = true

	return err
}

// Delete removes a session explicitly. It reports whether the id existed.
// A session mid-update is removed once the update commits its copy; later
// lookups already miss it.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()

	s.notify([]eviction{{id, ReasonDeleted}})
	return true
}

// CleanupExpired removes every idle session past its TTL and returns the
// number removed. Sessions mid-update are skipped.
func (s *MemoryStore) CleanupExpired() int {
	if s.ttl <= 0 {
		return 0
	}

	now := s.now()
	var evicted []eviction

	s.mu.Lock()
	for id, e := range s.entries {
		e.mu.Lock()
		if !e.busy && s.expired(e, now) {
			e.removed = true
			delete(s.entries, id)
			evicted = append(evicted, eviction{id, ReasonExpired})
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	s.notify(evicted)
	return len(evicted)
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.Stats().Total
}

// Stats reports live and in-flight session counts. Expired sessions that
// have not been swept yet are not counted.
func (s *MemoryStore) Stats() Stats {
	now := s.now()
	var st Stats

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		e.mu.RLock()
		switch {
		case e.busy:
			st.Total++
			st.Busy++
		case !s.expired(e, now):
			st.Total++
		}
		e.mu.RUnlock()
	}
	return st
}

func (s *MemoryStore) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// expired reports whether e has been idle past the TTL. Caller holds e.mu.
func (s *MemoryStore) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastAccess) > s.ttl
}

func (s *MemoryStore) notify(evicted []eviction) {
	for _, ev := range evicted {
		s.log.Debug().Str("session", ev.id).Str("reason", string(ev.reason)).Msg("session evicted")
		if s.onEvict != nil {
			s.onEvict(ev.id, ev.reason)
		}
	}
}
