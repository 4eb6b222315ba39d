// Command console runs the gate admin console's realtime client: it holds the
// admin session, keeps one socket to the backend while the session is valid,
// refreshes dashboard state on realtime events and optionally journals live
// events to PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/gate-console/internal/api"
	"github.com/rickgao/gate-console/internal/config"
	"github.com/rickgao/gate-console/internal/dashboard"
	"github.com/rickgao/gate-console/internal/database"
	"github.com/rickgao/gate-console/internal/journal"
	"github.com/rickgao/gate-console/internal/realtime"
	"github.com/rickgao/gate-console/internal/session"
	"github.com/rickgao/gate-console/internal/telemetry"
	"github.com/rickgao/gate-console/internal/version"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "console",
		Usage:   "realtime client for the gate admin console",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/console.local.yaml",
				Usage:   "path to config file",
				Sources: cli.EnvVars("CONSOLE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "read the access token from this file (overrides session.token_file)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides log.level)",
			},
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println(version.String())
					return nil
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("console failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}
	if v := cmd.String("token-file"); v != "" {
		cfg.Session.TokenFile = v
		cfg.Session.Token = ""
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting console",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"base_url", cfg.API.BaseURL,
	)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version.Version)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Session
	holder := session.NewHolder(logger)
	if err := loadToken(cfg.Session, holder); err != nil {
		return err
	}

	apiClient := api.NewClient(
		cfg.API.BaseURL,
		func() string { return holder.State().Token },
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithUserAgent(version.UserAgent()),
		api.WithUnauthorizedHook(holder.Reset),
	)

	rtClient := realtime.NewClient(realtimeConfig(cfg), realtime.WithLogger(logger))

	dash := dashboard.New(dashboard.Config{
		RecentLivesMinutes: cfg.Dashboard.RecentLivesMinutes,
		RecentLivesLimit:   cfg.Dashboard.RecentLivesLimit,
		RefreshInterval:    cfg.Dashboard.RefreshInterval,
		CreditsHours:       cfg.Dashboard.CreditsHours,
		CreditsInterval:    cfg.Dashboard.CreditsInterval,
	}, apiClient, logger)
	detach := dash.Attach(rtClient)
	defer detach()

	var recorder *journal.Recorder
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		recorder = journal.NewRecorder(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger)
		if err := recorder.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := recorder.Stop(stopCtx); err != nil {
				logger.Warn("journal stop failed", "error", err)
			}
		}()
		unsub := recorder.Attach(rtClient)
		defer unsub()
	}

	controller := session.NewController(holder, rtClient, cfg.Session.RequiredRole, logger)

	healthServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: newHealthRouter(healthDeps{
			realtime:  rtClient,
			dashboard: dash,
			journal:   recorder,
			active:    controller.Active,
			logger:    logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return controller.Run(gctx, cfg.Session.CheckInterval)
	})
	g.Go(func() error {
		return dash.Run(gctx)
	})
	g.Go(func() error {
		drainDiagnostics(gctx, rtClient.Errors(), logger)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("console running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	err = g.Wait()
	rtClient.Disconnect()
	logger.Info("console stopped")
	return err
}

// loadToken seeds the session from the configured token or token file.
// A missing token is not an error; the console idles until one is set.
func loadToken(cfg config.SessionConfig, holder *session.Holder) error {
	token := cfg.Token
	if cfg.TokenFile != "" {
		t, err := session.LoadTokenFile(cfg.TokenFile)
		if err != nil {
			return err
		}
		token = t
	}
	if token == "" {
		return nil
	}
	if err := holder.SetToken(token); err != nil {
		return fmt.Errorf("load session token: %w", err)
	}
	return nil
}

func realtimeConfig(cfg *config.ConsoleConfig) realtime.Config {
	return realtime.Config{
		BaseURL:              cfg.API.BaseURL,
		Path:                 cfg.Realtime.Path,
		TokenParam:           cfg.Realtime.TokenParam,
		ReconnectBaseDelay:   cfg.Realtime.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.Realtime.ReconnectAttempts(),
		HandshakeTimeout:     cfg.Realtime.HandshakeTimeout,
		WriteTimeout:         cfg.Realtime.WriteTimeout,
		ReadTimeout:          cfg.Realtime.ReadTimeout,
		KeepaliveInterval:    cfg.Realtime.KeepaliveInterval,
		UserAgent:            version.UserAgent(),
	}
}

// drainDiagnostics consumes the client's diagnostic channel. The client has
// already logged each error; exhaustion is escalated.
func drainDiagnostics(ctx context.Context, errs <-chan error, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if errors.Is(err, realtime.ErrReconnectExhausted) {
				logger.Error("realtime connection lost; waiting for a new session", "error", err)
			}
		}
	}
}
