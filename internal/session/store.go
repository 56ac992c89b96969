// Package session provides the in-process session store: one session
// per connected client, holding the accumulated workflow state plus
// expiry bookkeeping. Sessions are intentionally non-durable; a process
// restart loses them.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rovista/listingflow/internal/content"
)

// ErrNotFound indicates the session does not exist (never created,
// deleted on disconnect, or swept after expiry).
var ErrNotFound = errors.New("session not found")

// Defaults for session lifetime management.
const (
	// DefaultTTL is the sliding session expiry.
	DefaultTTL = 24 * time.Hour
	// DefaultSweepInterval is how often expired sessions are collected.
	DefaultSweepInterval = 5 * time.Minute
)

// session is the stored record. The run mutex serializes turns: two
// runs for one session must never interleave their merge/write steps.
type session struct {
	id           string
	identity     string
	state        content.State
	createdAt    time.Time
	lastActivity time.Time
	expiresAt    time.Time

	runMu sync.Mutex
}

// View is a read-only copy of a session's data.
type View struct {
	ID           string
	Identity     string
	State        content.State
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
}

// Store is a concurrency-safe map from session ID to session.
// All operations are internally synchronized.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	ttl        time.Duration
	sweepEvery time.Duration
	logger     *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL sets the sliding session expiry. Default: 24h.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often the expiry sweep runs. Default: 5m.
func WithSweepInterval(interval time.Duration) StoreOption {
	return func(s *Store) {
		if interval > 0 {
			s.sweepEvery = interval
		}
	}
}

// WithLogger sets the logger used by the sweep.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions:   make(map[string]*session),
		ttl:        DefaultTTL,
		sweepEvery: DefaultSweepInterval,
		logger:     slog.Default(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a session for the given ID and identity. If the ID
// already exists the existing session is reused and its expiry
// extended, so a client reconnecting with the same session ID picks up
// its accumulated state.
func (st *Store) Create(id, identity string) View {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	if existing, ok := st.sessions[id]; ok && existing.identity == identity {
		existing.lastActivity = now
		existing.expiresAt = now.Add(st.ttl)
		return viewOf(existing)
	}

	s := &session{
		id:           id,
		identity:     identity,
		state:        content.State{SessionID: id},
		createdAt:    now,
		lastActivity: now,
		expiresAt:    now.Add(st.ttl),
	}
	st.sessions[id] = s
	return viewOf(s)
}

// Get returns a copy of the session's data.
func (st *Store) Get(id string) (View, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return View{}, false
	}
	return viewOf(s), true
}

// MergeUpdate applies a partial update to the session's state: set
// fields overwrite, unset fields keep their stored value. Extends the
// expiry and returns the new full state.
func (st *Store) MergeUpdate(id string, u content.Update) (content.State, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return content.State{}, ErrNotFound
	}

	s.state = u.Apply(s.state)
	now := time.Now()
	s.lastActivity = now
	s.expiresAt = now.Add(st.ttl)
	return s.state, nil
}

// Touch extends the session's expiry without modifying state.
func (st *Store) Touch(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		now := time.Now()
		s.lastActivity = now
		s.expiresAt = now.Add(st.ttl)
	}
}

// Delete removes the session immediately, regardless of TTL.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Turn is an acquired per-session run lock. Exactly one Turn can be
// open per session; holding it serializes RunTurns. The Turn is pinned
// to the session object it began against, so a session deleted and
// recreated under the same ID is a different session as far as the Turn
// is concerned.
type Turn struct {
	st *Store
	s  *session
}

// End releases the run lock. Safe to call after the session has been
// deleted from the store.
func (t *Turn) End() {
	t.s.runMu.Unlock()
}

// Merge applies a partial update through the held turn. The update can
// only land in the session incarnation the turn began against: if that
// session has been deleted, or replaced by a reconnect reusing the same
// ID, Merge returns ErrNotFound and stored state is untouched.
func (t *Turn) Merge(u content.Update) (content.State, error) {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()

	if current, ok := t.st.sessions[t.s.id]; !ok || current != t.s {
		return content.State{}, ErrNotFound
	}

	t.s.state = u.Apply(t.s.state)
	now := time.Now()
	t.s.lastActivity = now
	t.s.expiresAt = now.Add(t.st.ttl)
	return t.s.state, nil
}

// BeginTurn acquires the session's run lock, blocking until any
// in-flight turn for the same session finishes. Returns ErrNotFound if
// the session does not exist, was deleted while waiting, or was deleted
// and recreated under the same ID while waiting (the recreated session
// is a different session with its own lock).
func (st *Store) BeginTurn(id string) (*Turn, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	s.runMu.Lock()

	// Re-check by identity, not presence: a reconnect may have replaced
	// the entry with a fresh session whose lock we do not hold.
	st.mu.RLock()
	current, stillThere := st.sessions[id]
	st.mu.RUnlock()
	if !stillThere || current != s {
		s.runMu.Unlock()
		return nil, ErrNotFound
	}

	return &Turn{st: st, s: s}, nil
}

// Start launches the background expiry sweep.
func (st *Store) Start() {
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(st.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-st.done:
				return
			case <-ticker.C:
				st.sweep()
			}
		}
	}()
}

// Stop terminates the sweep goroutine. Idempotent.
func (st *Store) Stop() {
	st.stopOnce.Do(func() { close(st.done) })
	st.wg.Wait()
}

// sweep deletes sessions whose expiry has passed. A session whose run
// lock is held is skipped: deleting under a live run is not safe, and
// the next sweep will get it.
func (st *Store) sweep() {
	now := time.Now()

	st.mu.RLock()
	var expired []*session
	for _, s := range st.sessions {
		if now.After(s.expiresAt) {
			expired = append(expired, s)
		}
	}
	st.mu.RUnlock()

	for _, s := range expired {
		if !s.runMu.TryLock() {
			continue
		}
		st.mu.Lock()
		// Re-check under the write lock; a turn may have extended it.
		if current, ok := st.sessions[s.id]; ok && current == s && now.After(s.expiresAt) {
			delete(st.sessions, s.id)
			st.logger.Debug("session expired",
				slog.String("session_id", s.id),
				slog.Time("expired_at", s.expiresAt))
		}
		st.mu.Unlock()
		s.runMu.Unlock()
	}
}

// viewOf copies the session's data. Caller must hold st.mu.
func viewOf(s *session) View {
	return View{
		ID:           s.id,
		Identity:     s.identity,
		State:        s.state,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
		ExpiresAt:    s.expiresAt,
	}
}
