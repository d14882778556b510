package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/mcoot/shapesync/internal/dependencies/clock"
	"github.com/mcoot/shapesync/internal/model"
)

// ProfileStore remembers the local identity between runs
type ProfileStore interface {
	Load() (model.Profile, error)
	Save(p model.Profile) error
}

// DefaultName is the name given to a profile created on first run
func DefaultName(c clock.Clock) string {
	return fmt.Sprintf("Player_%d", c.Now().UnixMilli())
}

// FileProfileStore keeps the profile in a YAML file
type FileProfileStore struct {
	path  string
	clock clock.Clock
}

var _ ProfileStore = (*FileProfileStore)(nil)

// NewFileProfileStore creates a store backed by path
func NewFileProfileStore(path string, c clock.Clock) *FileProfileStore {
	return &FileProfileStore{path: path, clock: c}
}

// DefaultProfilePath returns the profile location under the user config dir
func DefaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "shapesync-profile.yml"
	}
	return filepath.Join(dir, "shapesync", "profile.yml")
}

// Load reads the profile. A missing file yields a fresh profile with no
// stable id.
func (s *FileProfileStore) Load() (model.Profile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Profile{Name: DefaultName(s.clock)}, nil
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("reading profile: %w", err)
	}

	var p model.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Profile{}, fmt.Errorf("parsing profile %s: %w", s.path, err)
	}
	if p.Name == "" {
		p.Name = DefaultName(s.clock)
	}
	return p, nil
}

// Save writes the profile, creating its directory if needed
func (s *FileProfileStore) Save(p model.Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}

// MemoryProfileStore keeps the profile in memory (for tests and bots)
type MemoryProfileStore struct {
	mu      sync.Mutex
	profile model.Profile
	saves   int
}

var _ ProfileStore = (*MemoryProfileStore)(nil)

// NewMemoryProfileStore creates a store holding p
func NewMemoryProfileStore(p model.Profile) *MemoryProfileStore {
	return &MemoryProfileStore{profile: p}
}

func (s *MemoryProfileStore) Load() (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, nil
}

func (s *MemoryProfileStore) Save(p model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.saves++
	return nil
}

// Saves reports how many times Save was called
func (s *MemoryProfileStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
