package cli

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shapesync/internal/client"
	"github.com/mcoot/shapesync/internal/dependencies/mocks"
	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/testutil"
)

type BotSuite struct {
	suite.Suite
	server *gameServer
	rng    *mocks.MockRandom
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotSuite))
}

func (s *BotSuite) SetupTest() {
	s.server = startGameServer(&s.Suite)
	s.rng = mocks.NewMockRandom()
}

func (s *BotSuite) TearDownTest() {
	s.server.stop()
}

func (s *BotSuite) connected(w *walker) client.Entity {
	s.Require().NoError(w.session.Connect("server", "Bot"))
	var local client.Entity
	s.Require().Eventually(func() bool {
		var ok bool
		local, ok = w.session.Local()
		return ok
	}, waitFor, poll)
	return local
}

func (s *BotSuite) TestStepBeforeConnectIsNoop() {
	w := newWalker(s.server.session(&s.Suite, model.Profile{}), s.rng, 100, testutil.NopLogger())
	s.ErrorIs(w.step(0.1), client.ErrNotConnected)
}

func (s *BotSuite) TestWalksAlongHeading() {
	w := newWalker(s.server.session(&s.Suite, model.Profile{}), s.rng, 100, testutil.NopLogger())
	start := s.connected(w)

	// heading straight down (quarter turn), keep it for 2s, no shape change
	s.rng.QueueFloat(0.25, 0.5)
	s.rng.QueueIntn(1)

	s.Require().NoError(w.step(0.5))
	local, _ := w.session.Local()
	s.InDelta(start.Position.X, local.Position.X, 1e-9)
	s.InDelta(start.Position.Y+50, local.Position.Y, 1e-9)
	s.InDelta(2.0, w.turnIn, 1e-9)

	// same heading on the next step
	s.Require().NoError(w.step(0.5))
	local, _ = w.session.Local()
	s.InDelta(start.Position.Y+100, local.Position.Y, 1e-9)
	s.Equal(start.Shape, local.Shape)
}

func (s *BotSuite) TestChangesShapeOnTurn() {
	w := newWalker(s.server.session(&s.Suite, model.Profile{}), s.rng, 100, testutil.NopLogger())
	s.connected(w)

	s.rng.QueueFloat(0, 0)
	s.rng.QueueIntn(0, 2)

	s.Require().NoError(w.step(0.1))
	local, _ := w.session.Local()
	s.Equal(model.ShapeBox, local.Shape)
	s.InDelta(1.0, w.heading.X, 1e-9)
	s.InDelta(0.0, math.Abs(w.heading.Y), 1e-9)
}

func (s *BotSuite) TestRunConnectsAndMoves() {
	sess := s.server.session(&s.Suite, model.Profile{})
	w := newWalker(sess, s.rng, 100, testutil.NopLogger())
	s.rng.QueueFloat(0, 0.9)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx, "server", "Bot")
		close(done)
	}()

	s.Eventually(func() bool {
		players, err := s.server.app.Registry.Players(context.Background())
		return err == nil && len(players) == 1 && players[0].Position.X > 0
	}, waitFor, poll)

	cancel()
	select {
	case <-done:
	case <-time.After(waitFor):
		s.Fail("walker did not stop")
	}
	s.Equal(client.StateDisconnected, sess.State())
}

func (s *BotSuite) TestRunLogsSkippedSteps() {
	logger, logs := testutil.BufferLogger()
	w := newWalker(s.server.session(&s.Suite, model.Profile{}), s.rng, 100, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx, "nowhere", "Bot")
		close(done)
	}()

	s.Eventually(func() bool {
		return strings.Contains(logs.String(), "step skipped") &&
			strings.Contains(logs.String(), client.ErrNotConnected.Error())
	}, waitFor, poll)

	cancel()
	select {
	case <-done:
	case <-time.After(waitFor):
		s.Fail("walker did not stop")
	}
}
