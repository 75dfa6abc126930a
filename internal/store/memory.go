package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/moonvale/nachtrat/server/internal/models"
)

// MemoryStore keeps aggregates in process memory. It is the backend used
// by the test suite and by single-node deployments that accept losing
// sessions on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[uuid.UUID]*entry
	codes map[string]uuid.UUID
}

type entry struct {
	mu sync.Mutex
	g  *models.Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[uuid.UUID]*entry),
		codes: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codes[g.JoinCode]; taken {
		return ErrCodeConflict
	}
	s.games[g.ID] = &entry{g: g.Clone()}
	s.codes[g.JoinCode] = g.ID
	return nil
}

func (s *MemoryStore) FindIDByCode(ctx context.Context, code string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.codes[code]
	if !ok {
		return uuid.Nil, ErrCodeNotFound
	}
	return id, nil
}

func (s *MemoryStore) View(ctx context.Context, id uuid.UUID, fn Viewer) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	snapshot := e.g.Clone()
	e.mu.Unlock()

	return fn(snapshot)
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn Mutator) (bool, error) {
	e, err := s.entry(id)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Mutate a copy; swap in only on success so a failed command leaves
	// no observable effect.
	next := e.g.Clone()
	changed, err := fn(next)
	if err != nil {
		return false, err
	}
	e.g = next
	return changed, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.codes, e.g.JoinCode)
	delete(s.games, id)
	return nil
}

func (s *MemoryStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) entry(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}
