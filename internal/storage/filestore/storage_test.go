package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/storage"
	"github.com/mcoot/shapesync/internal/storage/storagetest"
)

type FileSuite struct {
	storagetest.Suite
	path string
}

func TestFileSuite(t *testing.T) {
	suite.Run(t, new(FileSuite))
}

func (s *FileSuite) open() storage.Storage {
	store, err := Open(s.path)
	s.Require().NoError(err)
	return store
}

func (s *FileSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "players.json")
	s.Ctx = context.Background()
	s.Storage = s.open()
	s.Reopen = s.open
}

func (s *FileSuite) TestDocumentKeyedByID() {
	rec := &model.PlayerRecord{ID: 4, Name: "Ann", Shape: model.ShapeCircle}
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, rec))

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Contains(string(data), `"4": {`)
	s.Contains(string(data), `"shape": "circle"`)
}

func (s *FileSuite) TestNoTempFilesLeftBehind() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.PlayerRecord{ID: 1, Shape: model.ShapeBox}))

	entries, err := os.ReadDir(filepath.Dir(s.path))
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *FileSuite) TestFailedSaveIsWrittenByNextSave() {
	// a directory in the way makes the rename fail
	s.Require().NoError(os.Mkdir(s.path, 0o755))
	ann := &model.PlayerRecord{ID: 1, Name: "Ann", Position: model.Vec2{X: 50, Y: 60}, Shape: model.ShapeBox}
	s.Error(s.Storage.SavePlayer(s.Ctx, ann))
	s.Require().NoError(os.Remove(s.path))

	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.PlayerRecord{ID: 2, Name: "Bob", Shape: model.ShapeCircle}))

	players, err := s.open().LoadPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal(model.StableID(1), players[0].ID)
	s.Equal(model.Vec2{X: 50, Y: 60}, players[0].Position)
	s.Equal(model.ShapeBox, players[0].Shape)
	s.Equal("Bob", players[1].Name)
}

func TestOpenRejectsBadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"abc": {"name": "x", "shape": "box"}}`), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpenRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpenTakesIDFromKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.json")
	doc := `{"9": {"name": "Ann", "position": {"x": 1, "y": 2}, "shape": "triangle"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	players, err := store.LoadPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, model.StableID(9), players[0].ID)
	assert.Equal(t, model.Vec2{X: 1, Y: 2}, players[0].Position)
}
