// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/storage"
)

// Suite runs the shared storage contract. Backends embed it and set
// Storage in SetupTest; Reopen, when set, returns a fresh handle on the
// same data.
type Suite struct {
	suite.Suite
	Ctx     context.Context
	Storage storage.Storage
	Reopen  func() storage.Storage
}

func (s *Suite) record(id model.StableID, name string) *model.PlayerRecord {
	return &model.PlayerRecord{
		ID:       id,
		Name:     name,
		Position: model.Vec2{X: float64(id) * 10, Y: -float64(id)},
		Shape:    model.ShapeCircle,
		LastSeen: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		LiveConn: model.ConnID(id + 100),
	}
}

func (s *Suite) TestLoadEmpty() {
	players, err := s.Storage.LoadPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *Suite) TestSaveAndLoadRoundTrip() {
	rec := s.record(1, "Ann")
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, rec))

	players, err := s.Storage.LoadPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 1)

	got := players[0]
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.Name, got.Name)
	s.Equal(rec.Position, got.Position)
	s.Equal(rec.Shape, got.Shape)
	s.True(rec.LastSeen.Equal(got.LastSeen))
	s.Equal(model.NoConn, got.LiveConn, "live connection must not survive a reload")
}

func (s *Suite) TestSaveUpserts() {
	rec := s.record(1, "Ann")
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, rec))

	rec.Name = "Annie"
	rec.Position = model.Vec2{X: 5, Y: 6}
	rec.Shape = model.ShapeBox
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, rec))

	players, err := s.Storage.LoadPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal("Annie", players[0].Name)
	s.Equal(model.Vec2{X: 5, Y: 6}, players[0].Position)
	s.Equal(model.ShapeBox, players[0].Shape)
}

func (s *Suite) TestLoadMany() {
	for id := model.StableID(1); id <= 5; id++ {
		s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.record(id, "p")))
	}

	players, err := s.Storage.LoadPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Len(players, 5)

	ids := make([]model.StableID, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	s.ElementsMatch([]model.StableID{1, 2, 3, 4, 5}, ids)
}

func (s *Suite) TestSavedRecordIsNotAliased() {
	rec := s.record(1, "Ann")
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, rec))
	rec.Name = "changed after save"

	players, err := s.Storage.LoadPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Equal("Ann", players[0].Name)
}

func (s *Suite) TestSurvivesReopen() {
	if s.Reopen == nil {
		s.T().Skip("backend has no durable state")
	}
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.record(7, "Ann")))
	s.Require().NoError(s.Storage.Close())

	s.Storage = s.Reopen()

	players, err := s.Storage.LoadPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal(model.StableID(7), players[0].ID)
	s.Equal("Ann", players[0].Name)
}
