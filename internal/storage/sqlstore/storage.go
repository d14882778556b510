// Package sqlstore persists player records in a SQL database. SQLite is
// the embedded default; PostgreSQL serves deployments that share one
// database between server restarts on different hosts.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/storage"
)

// Dialect selects placeholder syntax and driver
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS players (
	id BIGINT PRIMARY KEY,
	name VARCHAR(64) NOT NULL,
	x DOUBLE PRECISION NOT NULL,
	y DOUBLE PRECISION NOT NULL,
	shape SMALLINT NOT NULL,
	last_seen BIGINT NOT NULL
);`

const upsertPlayer = `INSERT INTO players (
	id,
	name,
	x,
	y,
	shape,
	last_seen
) VALUES (
	?,
	?,
	?,
	?,
	?,
	?
) ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	x = excluded.x,
	y = excluded.y,
	shape = excluded.shape,
	last_seen = excluded.last_seen;`

const selectPlayers = `SELECT id, name, x, y, shape, last_seen FROM players ORDER BY id;`

// Storage is a database/sql implementation of the storage interface
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// OpenSQLite opens (creating if needed) a SQLite database file
func OpenSQLite(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o775); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(string(DialectSQLite), path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	return open(db, DialectSQLite)
}

// OpenPostgres connects to a PostgreSQL database using a lib/pq DSN
func OpenPostgres(dsn string) (*Storage, error) {
	db, err := sql.Open(string(DialectPostgres), dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return open(db, DialectPostgres)
}

func open(db *sql.DB, dialect Dialect) (*Storage, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Storage{db: db, dialect: dialect}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) LoadPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectPlayers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*model.PlayerRecord
	for rows.Next() {
		var (
			p        model.PlayerRecord
			id       int64
			shape    int64
			lastSeen int64
		)

		if err := rows.Scan(&id, &p.Name, &p.Position.X, &p.Position.Y, &shape, &lastSeen); err != nil {
			return nil, err
		}

		p.ID = model.StableID(id)
		p.Shape = model.Shape(shape)
		p.LastSeen = time.Unix(0, lastSeen).UTC()
		players = append(players, &p)
	}

	return players, rows.Err()
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.PlayerRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(upsertPlayer),
		int64(player.ID),
		player.Name,
		player.Position.X,
		player.Position.Y,
		int64(player.Shape),
		player.LastSeen.UnixNano(),
	)
	return err
}

// rebind rewrites ? placeholders into $n for postgres
func (s *Storage) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
