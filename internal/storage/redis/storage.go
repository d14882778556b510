package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) LoadPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	values, err := s.client.HGetAll(ctx, playersKey()).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.PlayerRecord, 0, len(values))
	for field, val := range values {
		var p model.PlayerRecord
		if err := json.Unmarshal([]byte(val), &p); err != nil {
			return nil, fmt.Errorf("decoding player %s: %w", field, err)
		}
		players = append(players, &p)
	}

	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.PlayerRecord) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	return s.client.HSet(ctx, playersKey(), playerField(player.ID), data).Err()
}
