package storage

import (
	"context"

	"github.com/mcoot/shapesync/internal/model"
)

// Storage defines the interface for player persistence.
// Implementations never persist PlayerRecord.LiveConn; loaded records
// always come back offline.
type Storage interface {
	// LoadPlayers returns every record ever saved
	LoadPlayers(ctx context.Context) ([]*model.PlayerRecord, error)

	// SavePlayer inserts or replaces the record with the same ID
	SavePlayer(ctx context.Context, player *model.PlayerRecord) error

	// Close releases the backend
	Close() error
}
