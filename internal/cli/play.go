package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/mcoot/shapesync/internal/client"
	"github.com/mcoot/shapesync/internal/dependencies/clock"
	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/transport/rudptransport"
	"github.com/mcoot/shapesync/internal/view"
)

const (
	// MoveSpeed is how far the local player moves per second, in world units
	MoveSpeed = 200.0

	frameInterval = 16 * time.Millisecond

	// Terminals report key presses but not releases, so a press keeps the
	// player moving until the key repeat delivers the next one.
	holdWindow = 150 * time.Millisecond
)

func newPlayCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join the game in a terminal view",
		Long: `Connect to the game server and control a shape in the terminal.

Keys:
  WASD / arrows  move
  1 2 3          triangle, circle, box
  r              reconnect
  q / Esc        quit

Logs are discarded unless --log-file is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := cfg.Logger(io.Discard)
			if err != nil {
				return err
			}
			defer closeLog()

			profiles := client.NewFileProfileStore(cfg.ProfilePath, clock.New())
			session, err := client.NewSession(&rudptransport.Dialer{}, profiles, client.DefaultConfig(), logger)
			if err != nil {
				return err
			}
			defer session.Disconnect()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("creating screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("initialising screen: %w", err)
			}
			defer screen.Fini()

			g := newGame(session, screen, clock.New(), cfg.GameAddr, name, logger)
			return g.run()
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (default: the name in the profile)")

	return cmd
}

// game drives one Session from terminal input and renders it
type game struct {
	session *client.Session
	screen  tcell.Screen
	clock   clock.Clock
	addr    string
	name    string
	logger  *slog.Logger

	heading   model.Vec2
	moveUntil time.Time
	message   string
}

func newGame(session *client.Session, screen tcell.Screen, c clock.Clock, addr, name string, logger *slog.Logger) *game {
	return &game{
		session: session,
		screen:  screen,
		clock:   c,
		addr:    addr,
		name:    name,
		logger:  logger.With(slog.String("component", "play")),
	}
}

func (g *game) run() error {
	g.connect()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				// screen finalised
				return
			}
			eventChan <- ev
		}
	}()

	last := g.clock.Now()
	for {
		select {
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				return nil
			}

		case ev := <-g.session.Events():
			g.handleSessionEvent(ev)

		case <-ticker.C:
			dt := clock.Seconds(g.clock, last)
			last = g.clock.Now()
			g.step(dt)
		}
	}
}

func (g *game) connect() {
	if err := g.session.Connect(g.addr, g.name); err != nil {
		if !errors.Is(err, client.ErrAlreadyConnecting) {
			g.message = err.Error()
		}
		return
	}
	g.message = "connecting to " + g.addr
}

// handleInput applies one terminal event and reports whether to keep running
func (g *game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return g.handleKey(ev)
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

func (g *game) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		g.move(model.Vec2{Y: -1})
	case tcell.KeyDown:
		g.move(model.Vec2{Y: 1})
	case tcell.KeyLeft:
		g.move(model.Vec2{X: -1})
	case tcell.KeyRight:
		g.move(model.Vec2{X: 1})
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return false
		case 'w', 'W':
			g.move(model.Vec2{Y: -1})
		case 's', 'S':
			g.move(model.Vec2{Y: 1})
		case 'a', 'A':
			g.move(model.Vec2{X: -1})
		case 'd', 'D':
			g.move(model.Vec2{X: 1})
		case '1':
			g.setShape(model.ShapeTriangle)
		case '2':
			g.setShape(model.ShapeCircle)
		case '3':
			g.setShape(model.ShapeBox)
		case 'r', 'R':
			g.session.Disconnect()
			g.connect()
		}
	}
	return true
}

func (g *game) move(dir model.Vec2) {
	g.heading = dir
	g.moveUntil = g.clock.Now().Add(holdWindow)
}

func (g *game) setShape(shape model.Shape) {
	local, ok := g.session.Local()
	if !ok {
		return
	}
	if err := g.session.SendUpdate(local.Position, shape); err != nil {
		g.logger.Debug("shape change not sent", slog.Any("error", err))
	}
}

func (g *game) handleSessionEvent(ev client.Event) {
	switch ev.Kind {
	case client.EventConnectFailed:
		g.message = fmt.Sprintf("cannot connect: %v (r to retry)", ev.Err)
	case client.EventStateChanged:
		switch ev.State {
		case client.StateConnecting:
			g.message = "connecting to " + g.addr
		case client.StateConnected:
			g.message = ""
		case client.StateDisconnected:
			// keep the failure text from EventConnectFailed
			if g.message == "" || g.message == "connecting to "+g.addr {
				g.message = "disconnected (r to reconnect)"
			}
		}
	}
}

// step advances the game by dt seconds and redraws
func (g *game) step(dt float64) {
	if g.clock.Now().Before(g.moveUntil) {
		if local, ok := g.session.Local(); ok {
			pos := local.Position.Add(g.heading.Scale(MoveSpeed * dt))
			if err := g.session.SendUpdate(pos, local.Shape); err != nil {
				g.logger.Debug("move not sent", slog.Any("error", err))
			}
		}
	}

	g.session.Tick(dt)

	profile := g.session.Profile()
	status := view.Status{
		State:   g.session.State(),
		Name:    profile.Name,
		Message: g.message,
	}
	if _, ok := g.session.Local(); ok {
		status.ID = profile.StableID
	}
	view.Draw(g.screen, g.session.Entities(), status)
	g.screen.Show()
}
