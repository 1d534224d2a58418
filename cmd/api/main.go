package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/zhouzirui/z-relay/internal/config"
	"github.com/zhouzirui/z-relay/internal/handler"
	"github.com/zhouzirui/z-relay/internal/logging"
	beaconService "github.com/zhouzirui/z-relay/internal/service/beacon"
	boardService "github.com/zhouzirui/z-relay/internal/service/board"
	chatService "github.com/zhouzirui/z-relay/internal/service/chat"
	sessionService "github.com/zhouzirui/z-relay/internal/service/session"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", version, short)
}

func main() {
	if err := logging.Setup("info", "console"); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using process environment only")
	}

	app := &cli.Command{
		Name:    "relay",
		Usage:   "Ephemeral in-memory message relay",
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Usage:   "listen port or address",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "mode",
				Usage:   "route set to serve (chat, board)",
				Sources: cli.EnvVars("RELAY_MODE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log format (console, json)",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("relay stopped")
	}
}

func run(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if c.IsSet("port") {
		cfg.Server.Port = c.String("port")
	}
	if c.IsSet("mode") {
		cfg.Server.Mode = c.String("mode")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}

	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	services := handler.Services{}
	switch cfg.RelayMode() {
	case config.ModeBoard:
		services.Board = boardService.NewService(boardService.WithCapacity(cfg.Board.Capacity))
		services.Beacons = beaconService.NewCounter()
	default:
		services.Sessions = sessionService.NewRegistry(sessionService.WithTTL(cfg.Session.TTL))
		services.Chat = chatService.NewService(
			chatService.WithCapacity(cfg.Chat.Capacity),
			chatService.WithMaxLength(cfg.Chat.MaxLength),
		)

		sweeper := sessionService.NewSweeper(services.Sessions, cfg.Session.SweepInterval, logging.Component("sweeper"))
		stopSweeper := sweeper.Start(ctx)
		defer stopSweeper()
		log.Info().Dur("ttl", cfg.Session.TTL).Dur("interval", cfg.Session.SweepInterval).Msg("session sweeper started")
	}

	router := handler.NewRouter(cfg.RelayMode(), services, logging.Component("http"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", cfg.Server.Addr).Str("mode", cfg.Server.Mode).Str("version", build()).Msg("relay listening")
	return runServer(ctx, srv, cfg.Server.ShutdownTimeout)
}

func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
