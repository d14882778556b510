// Package filestore keeps every player record in one JSON document keyed
// by stable ID, rewritten wholesale on each save.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/storage"
)

// Storage is a JSON-file implementation of the storage interface
type Storage struct {
	mu      sync.Mutex
	path    string
	players map[string]*model.PlayerRecord
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open reads path if it exists. A missing file is an empty store.
func Open(path string) (*Storage, error) {
	s := &Storage{
		path:    path,
		players: make(map[string]*model.PlayerRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}

	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.players); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	for key, p := range s.players {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: bad player key %q", path, key)
		}
		p.ID = model.StableID(id)
	}

	return s, nil
}

func (s *Storage) LoadPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.players[strconv.FormatUint(uint64(player.ID), 10)] = p

	// a failed write stays in memory and goes out with the next flush
	return s.flush()
}

// flush writes the whole document next to the target and renames it in place
func (s *Storage) flush() error {
	data, err := json.MarshalIndent(s.players, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o775); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

func (s *Storage) Close() error {
	return nil
}
