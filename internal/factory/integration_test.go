package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shapesync/internal/client"
	"github.com/mcoot/shapesync/internal/config"
	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/testutil"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

type IntegrationSuite struct {
	suite.Suite
	app    *TestApp
	ctx    context.Context
	cancel context.CancelFunc
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Require().NoError(s.app.Start(s.ctx))

	l, err := s.app.Network.Listen("server")
	s.Require().NoError(err)
	go s.app.Dispatcher.Serve(s.ctx, l)
}

func (s *IntegrationSuite) TearDownTest() {
	s.cancel()
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) session(profile model.Profile) *client.Session {
	sess, err := client.NewSession(s.app.Network, client.NewMemoryProfileStore(profile), client.DefaultConfig(), testutil.NopLogger())
	s.Require().NoError(err)
	s.T().Cleanup(sess.Disconnect)
	return sess
}

func (s *IntegrationSuite) join(sess *client.Session, name string) client.Entity {
	s.Require().NoError(sess.Connect("server", name))
	var local client.Entity
	s.Eventually(func() bool {
		var ok bool
		local, ok = sess.Local()
		return ok
	}, waitFor, poll)
	return local
}

// Test: two players meet, move, one leaves and comes back
func (s *IntegrationSuite) TestPlayersMeetLeaveAndReturn() {
	ann := s.session(model.Profile{})
	s.Equal(model.StableID(1), s.join(ann, "Ann").ID)

	bob := s.session(model.Profile{})
	s.Equal(model.StableID(2), s.join(bob, "Bob").ID)

	// both see each other
	s.Eventually(func() bool { return len(ann.Entities()) == 2 && len(bob.Entities()) == 2 }, waitFor, poll)

	// Ann moves and Bob's view converges on it
	s.Require().NoError(ann.SendUpdate(model.Vec2{X: 120, Y: 80}, model.ShapeBox))
	s.Eventually(func() bool {
		bob.Tick(0.1)
		e := bob.Entities()[0]
		return e.Position == model.Vec2{X: 120, Y: 80} && e.Shape == model.ShapeBox
	}, waitFor, poll)

	// Ann leaves
	annProfile := ann.Profile()
	ann.Disconnect()
	s.Eventually(func() bool { return len(bob.Entities()) == 1 }, waitFor, poll)

	// Ann returns with the same identity and position
	again := s.session(annProfile)
	s.Equal(model.StableID(1), s.join(again, "Ann").ID)
	s.Eventually(func() bool {
		l, _ := again.Local()
		return l.Position == model.Vec2{X: 120, Y: 80}
	}, waitFor, poll)
	s.Eventually(func() bool { return len(bob.Entities()) == 2 }, waitFor, poll)

	players, err := s.app.Registry.Players(s.ctx)
	s.Require().NoError(err)
	s.Len(players, 2)
}

// Test: state written to storage is restored by a fresh app
func (s *IntegrationSuite) TestRegistryStateIsPersisted() {
	ann := s.session(model.Profile{})
	s.join(ann, "Ann")
	s.Require().NoError(ann.SendUpdate(model.Vec2{X: 4, Y: 2}, model.ShapeCircle))

	s.Eventually(func() bool {
		stored, err := s.app.Memory.LoadPlayers(s.ctx)
		return err == nil && len(stored) == 1 && stored[0].Position == model.Vec2{X: 4, Y: 2}
	}, waitFor, poll)

	stored, err := s.app.Memory.LoadPlayers(s.ctx)
	s.Require().NoError(err)
	s.Equal("Ann", stored[0].Name)
	s.Equal(model.ShapeCircle, stored[0].Shape)
	s.Equal(model.NoConn, stored[0].LiveConn)
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.Storage
		ok   bool
	}{
		{"empty defaults to memory", config.Storage{}, true},
		{"memory", config.Storage{Type: config.StorageMemory}, true},
		{"file", config.Storage{Type: config.StorageFile, File: dir + "/players.json"}, true},
		{"sqlite", config.Storage{Type: config.StorageSQLite, SQLite: dir + "/players.db"}, true},
		{"unknown", config.Storage{Type: "tape"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := OpenStorage(tt.cfg)
			if !tt.ok {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenStorage: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}
