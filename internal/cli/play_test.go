package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shapesync/internal/client"
	"github.com/mcoot/shapesync/internal/dependencies/mocks"
	"github.com/mcoot/shapesync/internal/factory"
	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/testutil"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

// gameServer runs a full server over the in-process network
type gameServer struct {
	app    *factory.TestApp
	cancel context.CancelFunc
}

func startGameServer(s *suite.Suite) *gameServer {
	app := factory.NewTestApp()
	ctx, cancel := context.WithCancel(context.Background())
	s.Require().NoError(app.Start(ctx))

	l, err := app.Network.Listen("server")
	s.Require().NoError(err)
	go app.Dispatcher.Serve(ctx, l)

	return &gameServer{app: app, cancel: cancel}
}

func (g *gameServer) stop() {
	g.cancel()
	_ = g.app.Close()
}

func (g *gameServer) session(s *suite.Suite, profile model.Profile) *client.Session {
	sess, err := client.NewSession(g.app.Network, client.NewMemoryProfileStore(profile), client.DefaultConfig(), testutil.NopLogger())
	s.Require().NoError(err)
	s.T().Cleanup(sess.Disconnect)
	return sess
}

type PlaySuite struct {
	suite.Suite
	server *gameServer
	screen tcell.SimulationScreen
	clock  *mocks.MockClock
}

func TestPlaySuite(t *testing.T) {
	suite.Run(t, new(PlaySuite))
}

func (s *PlaySuite) SetupTest() {
	s.server = startGameServer(&s.Suite)
	s.screen = tcell.NewSimulationScreen("UTF-8")
	s.Require().NoError(s.screen.Init())
	s.screen.SetSize(40, 21)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func (s *PlaySuite) TearDownTest() {
	s.screen.Fini()
	s.server.stop()
}

func (s *PlaySuite) newGame(addr string) *game {
	sess := s.server.session(&s.Suite, model.Profile{})
	return newGame(sess, s.screen, s.clock, addr, "Ann", testutil.NopLogger())
}

func (s *PlaySuite) joined(g *game) client.Entity {
	g.connect()
	var local client.Entity
	s.Require().Eventually(func() bool {
		var ok bool
		local, ok = g.session.Local()
		return ok
	}, waitFor, poll)
	return local
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func (s *PlaySuite) TestMoveSendsPosition() {
	g := s.newGame("server")
	local := s.joined(g)

	s.True(g.handleInput(key('d')))
	g.step(0.1)

	moved, ok := g.session.Local()
	s.Require().True(ok)
	s.InDelta(local.Position.X+MoveSpeed*0.1, moved.Position.X, 1e-9)
	s.InDelta(local.Position.Y, moved.Position.Y, 1e-9)

	s.Eventually(func() bool {
		p, err := s.server.app.Registry.Player(context.Background(), local.ID)
		return err == nil && p.Position.X > local.Position.X
	}, waitFor, poll)
}

func (s *PlaySuite) TestArrowKeysMove() {
	g := s.newGame("server")
	local := s.joined(g)

	s.True(g.handleInput(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)))
	g.step(0.5)

	moved, _ := g.session.Local()
	s.InDelta(local.Position.Y-MoveSpeed*0.5, moved.Position.Y, 1e-9)
}

func (s *PlaySuite) TestMovementStopsAfterHoldWindow() {
	g := s.newGame("server")
	s.joined(g)

	g.handleInput(key('s'))
	s.clock.Advance(holdWindow + time.Millisecond)
	before, _ := g.session.Local()
	g.step(0.1)
	after, _ := g.session.Local()

	s.Equal(before.Position, after.Position)
}

func (s *PlaySuite) TestShapeKeys() {
	g := s.newGame("server")
	s.joined(g)

	g.handleInput(key('3'))
	local, _ := g.session.Local()
	s.Equal(model.ShapeBox, local.Shape)

	g.handleInput(key('2'))
	local, _ = g.session.Local()
	s.Equal(model.ShapeCircle, local.Shape)
}

func (s *PlaySuite) TestQuitKeys() {
	g := s.newGame("server")

	s.False(g.handleInput(key('q')))
	s.False(g.handleInput(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	s.False(g.handleInput(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))
	s.True(g.handleInput(key('x')))
}

func (s *PlaySuite) TestStepDrawsLocalPlayer() {
	g := s.newGame("server")
	s.joined(g)

	g.step(0.016)

	r, _, _, _ := s.screen.GetContent(20, 10)
	s.Equal('▲', r)
}

func (s *PlaySuite) TestConnectFailureShowsMessage() {
	g := s.newGame("nowhere")
	g.connect()

	s.Require().Eventually(func() bool {
		select {
		case ev := <-g.session.Events():
			g.handleSessionEvent(ev)
		default:
		}
		return strings.HasPrefix(g.message, "cannot connect")
	}, waitFor, poll)

	// the following state change keeps the failure text
	g.handleSessionEvent(client.Event{Kind: client.EventStateChanged, State: client.StateDisconnected})
	s.True(strings.HasPrefix(g.message, "cannot connect"))
}

func (s *PlaySuite) TestReconnectKey() {
	g := s.newGame("server")
	first := s.joined(g)

	g.handleInput(key('r'))

	s.Eventually(func() bool {
		local, ok := g.session.Local()
		return ok && local.ID == first.ID
	}, waitFor, poll)
}
