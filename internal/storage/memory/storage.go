package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu      sync.RWMutex
	players map[model.StableID]*model.PlayerRecord
	saves   int
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[model.StableID]*model.PlayerRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) LoadPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*model.PlayerRecord, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p.Clone())
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := player.Clone()
	p.LiveConn = model.NoConn
	s.players[p.ID] = p
	s.saves++
	return nil
}

func (s *Storage) Close() error {
	return nil
}

// Saves reports how many SavePlayer calls were made (for tests)
func (s *Storage) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
