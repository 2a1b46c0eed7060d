package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/benjamw/cardparty/internal/cards"
	"github.com/benjamw/cardparty/internal/store"
)

// Manager owns every live session and runs each externally triggered action
// as one serialized transition: load -> validate -> mutate -> persist.
// Per-session mutexes are the serialization point; the store's version check
// backs that up so a lost update can never be silent.
type Manager struct {
	store store.Store
	cards cards.Resolver

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(st store.Store, resolver cards.Resolver) *Manager {
	return &Manager{
		store:    st,
		cards:    resolver,
		sessions: make(map[string]*Session),
	}
}

// session returns the live instance for a code, rehydrating it from the
// store after a restart.
func (m *Manager) session(ctx context.Context, code string) (*Session, error) {
	code = normalizeCode(code)
	m.mu.RLock()
	s := m.sessions[code]
	m.mu.RUnlock()
	if s != nil {
		return s, nil
	}

	rec, err := m.store.Load(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errf(KindNotFound, "game %s not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", code, err)
	}

	loaded := &Session{}
	if err := json.Unmarshal(rec.Payload, loaded); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", code, err)
	}
	loaded.Version = rec.Version

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached := m.sessions[code]; cached != nil {
		return cached, nil // lost the rehydration race
	}
	m.sessions[code] = loaded
	return loaded, nil
}

// update applies one transition under the session lock. If fn fails, or the
// persist fails, the in-memory session is rolled back to the pre-transition
// snapshot so no partial mutation survives.
func (m *Manager) update(ctx context.Context, code string, fn func(*Session) error) error {
	s, err := m.session(ctx, code)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("snapshot session %s: %w", s.Code, err)
	}

	if err := fn(s); err != nil {
		restoreSession(s, snapshot)
		return err
	}

	s.Version++
	s.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(s)
	if err != nil {
		restoreSession(s, snapshot)
		return fmt.Errorf("encode session %s: %w", s.Code, err)
	}
	rec := store.Record{Code: s.Code, Payload: payload, Version: s.Version, UpdatedAt: s.UpdatedAt}
	if err := m.store.Save(ctx, rec); err != nil {
		restoreSession(s, snapshot)
		return fmt.Errorf("persist session %s: %w", s.Code, err)
	}
	return nil
}

// read runs fn with the session locked, without bumping the version.
func (m *Manager) read(ctx context.Context, code string, fn func(*Session) error) error {
	s, err := m.session(ctx, code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func restoreSession(s *Session, snapshot []byte) {
	var prev Session
	if err := json.Unmarshal(snapshot, &prev); err != nil {
		log.Error().Str("code", s.Code).Err(err).Msg("session rollback failed")
		return
	}
	s.CategoryFilters = prev.CategoryFilters
	s.Draw = prev.Draw
	s.Discard = prev.Discard
	s.State = prev.State
	s.History = prev.History
	s.CreatedAt = prev.CreatedAt
	s.UpdatedAt = prev.UpdatedAt
	s.Version = prev.Version
}

// Sweep removes sessions not touched within the retention window, both from
// the store and the in-memory cache.
func (m *Manager) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := m.store.Sweep(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	for code, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, code)
		}
	}
	m.mu.Unlock()
	return removed, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

// normalizeCode upper-cases a session code; codes are case-insensitive on
// the wire.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// randomCode builds a short code from an alphabet without ambiguous
// characters (no I/O/0/1).
func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
