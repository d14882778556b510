package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/shapesync/internal/client"
	"github.com/mcoot/shapesync/internal/dependencies/clock"
	"github.com/mcoot/shapesync/internal/dependencies/random"
	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/transport/rudptransport"
)

const (
	botTickInterval = 50 * time.Millisecond
	botRetryDelay   = 2 * time.Second
)

func newBotCmd() *cobra.Command {
	var (
		count     int
		name      string
		duration  time.Duration
		speed     float64
		keepIdent bool
	)

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run headless players that wander at random",
		Long: `Connect one or more headless players that walk in random directions and
occasionally change shape. Bots reconnect when the server goes away.

Unless --keep-identity is set each bot joins as a new player. With
--keep-identity a single bot reuses the profile at --profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1")
			}
			if keepIdent && count != 1 {
				return fmt.Errorf("--keep-identity needs --count 1")
			}

			logger, closeLog, err := cfg.Logger(os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if duration > 0 {
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			var wg sync.WaitGroup
			for i := 1; i <= count; i++ {
				botName := name
				if count > 1 {
					botName = fmt.Sprintf("%s_%d", name, i)
				}

				var profiles client.ProfileStore = client.NewMemoryProfileStore(model.Profile{Name: botName})
				if keepIdent {
					profiles = client.NewFileProfileStore(cfg.ProfilePath, clock.New())
				}
				session, err := client.NewSession(&rudptransport.Dialer{}, profiles, client.DefaultConfig(),
					logger.With(slog.String("bot", botName)))
				if err != nil {
					return err
				}

				w := newWalker(session, random.New(), speed, logger.With(slog.String("bot", botName)))
				wg.Add(1)
				go func() {
					defer wg.Done()
					w.run(ctx, cfg.GameAddr, botName)
				}()
			}

			logger.Info("bots running", slog.Int("count", count), slog.String("addr", cfg.GameAddr))
			wg.Wait()
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of bots")
	cmd.Flags().StringVar(&name, "name", "Bot", "Bot display name (numbered when --count > 1)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().Float64Var(&speed, "speed", MoveSpeed, "Movement speed in world units per second")
	cmd.Flags().BoolVar(&keepIdent, "keep-identity", false, "Reuse the profile file so the bot keeps its id")

	return cmd
}

// walker moves one session's player in random straight lines
type walker struct {
	session *client.Session
	rng     random.Random
	speed   float64
	logger  *slog.Logger

	heading model.Vec2
	shape   model.Shape
	turnIn  float64
}

func newWalker(session *client.Session, rng random.Random, speed float64, logger *slog.Logger) *walker {
	return &walker{
		session: session,
		rng:     rng,
		speed:   speed,
		logger:  logger.With(slog.String("component", "walker")),
	}
}

func (w *walker) run(ctx context.Context, addr, name string) {
	defer w.session.Disconnect()

	ticker := time.NewTicker(botTickInterval)
	defer ticker.Stop()

	var retryAt time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.session.Events():
		case now := <-ticker.C:
			if w.session.State() == client.StateDisconnected && !now.Before(retryAt) {
				if err := w.session.Connect(addr, name); err != nil {
					w.logger.Debug("connect not started", slog.Any("error", err))
				}
				retryAt = now.Add(botRetryDelay)
			}
			if err := w.step(botTickInterval.Seconds()); err != nil {
				w.logger.Debug("step skipped", slog.Any("error", err))
			}
		}
	}
}

// step advances the walk by dt seconds. It does nothing until the
// server has confirmed the player's identity.
func (w *walker) step(dt float64) error {
	local, ok := w.session.Local()
	if !ok {
		return client.ErrNotConnected
	}
	if w.shape == 0 {
		w.shape = local.Shape
	}

	w.turnIn -= dt
	if w.turnIn <= 0 {
		angle := w.rng.Float64() * 2 * math.Pi
		w.heading = model.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
		w.turnIn = 1 + 2*w.rng.Float64()
		if w.rng.Intn(4) == 0 {
			w.shape = model.Shape(w.rng.Intn(3) + 1)
		}
	}

	pos := local.Position.Add(w.heading.Scale(w.speed * dt))
	return w.session.SendUpdate(pos, w.shape)
}
