package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/shapesync/internal/api"
	"github.com/mcoot/shapesync/internal/config"
	"github.com/mcoot/shapesync/internal/factory"
	"github.com/mcoot/shapesync/internal/transport/rudptransport"
)

func main() {
	configPath := config.DefaultPath
	if p, ok := os.LookupEnv("SHAPESYNC_CONFIG"); ok {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(factory.Config{
		Server: cfg,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to load players", slog.String("error", err.Error()))
		os.Exit(1)
	}

	listener, err := rudptransport.Listen(cfg.Listen)
	if err != nil {
		logger.Error("failed to listen", slog.String("addr", cfg.Listen), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create status API server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.HTTP
	server := api.NewServer(app.Router(), serverConfig, logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()

	gameDone := make(chan struct{})
	go func() {
		defer close(gameDone)
		if err := app.Dispatcher.Serve(ctx, listener); err != nil {
			errCh <- err
		}
	}()

	logger.Info("server started",
		slog.String("game_addr", listener.Addr().String()),
		slog.String("http_addr", server.Addr()))

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
		cancel()
	case <-ctx.Done():
	}

	// spectator streams end with the hub, which lets Shutdown finish
	app.Hub.Close()
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}
	<-gameDone

	logger.Info("server stopped")
	if exitCode != 0 {
		app.Close()
		os.Exit(exitCode)
	}
}
