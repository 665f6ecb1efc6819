package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Meet/internal/adapters/http"
	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/relay"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/identity"
)

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cliApp := &cli.App{
		Name:  "meet",
		Usage: "meeting signaling server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "config environment, selects config/config.<env>.yaml", EnvVars: []string{"CONFIG_ENV"}},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "explicit config file path"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "override listen port"},
		},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case c.String("config") != "":
		cfg, err = config.LoadFile(c.String("config"))
	case c.String("env") != "":
		cfg, err = config.LoadFile(fmt.Sprintf("config/config.%s.yaml", c.String("env")))
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if p := c.Int("port"); p > 0 {
		cfg.Port = p
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	ctx, cancel := ossignal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	store := core.NewMemoryStore()
	reg := app.NewRegistry()
	hub := app.NewHub()

	o := orch.New(reg, store)
	o.AutoCreate = cfg.Meetings.AutoCreate
	rel := relay.New(hub, reg, store)

	issuer, err := identity.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	policy, err := app.ParsePolicy(cfg.Signal.Backpressure)
	if err != nil {
		return err
	}

	ctl := signal.NewSignalWSController(o, rel, issuer, policy, signal.Options{
		SendBuffer:     cfg.Signal.SendBuffer,
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		RequireToken:   cfg.Auth.RequireToken,
		AllowedOrigins: cfg.AllowedOrigins,
		ChatMaxLength:  cfg.Chat.MaxLength,
		ChatRateLimit:  cfg.Chat.RateLimit,
		ChatRateEvery:  cfg.Chat.RateInterval,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(ctx, cfg, o, ctl, issuer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("backpressure", cfg.Signal.Backpressure).Msg("Meet server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
