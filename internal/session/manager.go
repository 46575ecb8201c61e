// Package session keeps one live kanban machine per (board, user) pair and
// serialises access to it.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"retroboard/internal/kanban"
)

// Opener builds the machine for a board, typically with kanban.Open.
type Opener func(ctx context.Context, boardID string) (*kanban.Machine, error)

type key struct {
	boardID string
	userID  string
}

func (k key) String() string {
	return k.boardID + "/" + k.userID
}

type entry struct {
	mu      sync.Mutex
	machine *kanban.Machine

	// guarded by Manager.mu
	active   int
	lastUsed time.Time
}

// Manager owns the live sessions. A session is loaded once, used by one
// request at a time and dropped after it has been idle for the TTL.
type Manager struct {
	open   Opener
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[key]*entry
	loads    singleflight.Group
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(open Opener, ttl time.Duration, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		open:     open,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[key]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do runs fn with exclusive access to the caller's machine for the board,
// opening it first if needed.
func (m *Manager) Do(ctx context.Context, boardID, userID string, fn func(*kanban.Machine) error) error {
	k := key{boardID: boardID, userID: userID}
	e, err := m.acquire(ctx, k)
	if err != nil {
		return err
	}
	defer m.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.machine)
}

func (m *Manager) acquire(ctx context.Context, k key) (*entry, error) {
	m.mu.Lock()
	if e, ok := m.sessions[k]; ok {
		e.active++
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	// Callers joined to the same load must not fail because the first one went away.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := m.loads.Do(k.String(), func() (any, error) {
		m.mu.Lock()
		e, ok := m.sessions[k]
		m.mu.Unlock()
		if ok {
			return e, nil
		}

		machine, err := m.open(loadCtx, k.boardID)
		if err != nil {
			return nil, err
		}
		e = &entry{machine: machine, lastUsed: m.now()}

		m.mu.Lock()
		m.sessions[k] = e
		m.mu.Unlock()
		m.logger.Debug("session opened", zap.String("board_id", k.boardID), zap.String("user_id", k.userID))
		return e, nil
	})
	if err != nil {
		return nil, err
	}

	e := v.(*entry)
	m.mu.Lock()
	e.active++
	m.mu.Unlock()
	return e, nil
}

func (m *Manager) release(e *entry) {
	m.mu.Lock()
	e.active--
	e.lastUsed = m.now()
	m.mu.Unlock()
}

// Forget drops the session so the next request reloads from the store.
func (m *Manager) Forget(boardID, userID string) {
	m.mu.Lock()
	delete(m.sessions, key{boardID: boardID, userID: userID})
	m.mu.Unlock()
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts idle sessions and returns how many were dropped. Sessions in
// use are never evicted.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for k, e := range m.sessions {
		if e.active == 0 && e.lastUsed.Before(cutoff) {
			delete(m.sessions, k)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Debug("evicted idle sessions", zap.Int("count", evicted), zap.Int("remaining", len(m.sessions)))
	}
	return evicted
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}
