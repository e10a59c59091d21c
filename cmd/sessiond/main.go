package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"garagepro/internal/activity"
	"garagepro/internal/api"
	"garagepro/internal/config"
	"garagepro/internal/events"
	"garagepro/internal/hermes"
	"garagepro/internal/metrics"
	"garagepro/internal/policy"
	"garagepro/internal/session"
	"garagepro/internal/store"
)

func main() {
	configPath := flag.String("config", "./sessiond.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "listen", cfg.Listen, "default_timeout", cfg.Session.DefaultTimeout, "roles", len(cfg.Session.Roles))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitter := events.NewEmitter(logger)
	metrics.RegisterEventHandler(emitter)

	// Audit store.
	var st store.SessionStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureSchema(ctx, pg.Pool()); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		st = pg
		logger.Info("session audit store ready", "backend", "postgres")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("no database_url configured, session audit is kept in memory")
	}
	defer st.Close()

	kinds := make([]activity.Kind, 0, len(cfg.Session.Kinds))
	for _, k := range cfg.Session.Kinds {
		kind, _ := activity.ParseKind(k) // validated by config.Load
		kinds = append(kinds, kind)
	}

	mgr := session.NewManager(
		buildProvider(cfg, emitter, logger),
		activity.NewHub(),
		st,
		emitter,
		session.ManagerConfig{Kinds: kinds},
		logger,
	)

	// Hermes bridge.
	var bridge *hermes.Bridge
	if cfg.Hermes.Enabled {
		hc, err := hermes.Connect(cfg.Hermes, "sessiond", logger)
		if err != nil {
			logger.Error("failed to connect to hermes", "error", err)
			os.Exit(1)
		}
		defer hc.Close()

		if cfg.Hermes.ProvisionStreams {
			if err := hc.ProvisionStreams(ctx); err != nil {
				logger.Warn("stream provisioning failed (continuing without)", "error", err)
			}
		}
		bridge = hermes.NewBridge(hc, mgr, logger)
		if err := bridge.Start(hc, emitter); err != nil {
			logger.Error("failed to start hermes bridge", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      api.NewServer(mgr, cfg.AdminToken, logger).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	// Wait for shutdown signal or SIGHUP for reload.
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigCh)

		for {
			select {
			case <-gctx.Done():
				logger.Info("shutting down", "reason", gctx.Err())
			case sig := <-sigCh:
				if sig == syscall.SIGHUP {
					logger.Info("SIGHUP received, reloading config")
					if newCfg := reloadConfig(*configPath, cfg, mgr, emitter, logger); newCfg != nil {
						cfg = newCfg
					}
					continue
				}
				logger.Info("shutting down", "signal", sig, "sessions", mgr.Len())
			}
			break
		}

		if bridge != nil {
			bridge.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		mgr.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("sessiond failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("sessiond stopped")
}

// buildProvider assembles the timeout provider chain for cfg.
func buildProvider(cfg *config.Config, emitter *events.Emitter, logger *slog.Logger) policy.Provider {
	var p policy.Provider = policy.NewStatic(cfg.Session.DefaultTimeout, cfg.Session.Roles)
	if cfg.Policy.URL == "" {
		return p
	}
	return policy.WithFallback(policy.NewRemote(cfg.Policy.URL, cfg.Policy.Timeout), cfg.Session.DefaultTimeout,
		func(role string, err error) {
			emitter.Emit(events.Event{
				Type:   events.PolicyFallback,
				Role:   role,
				Fields: map[string]string{"error": err.Error()},
			})
		}, logger)
}

// reloadConfig applies runtime-safe changes and returns the new config, or
// nil if it could not be loaded.
func reloadConfig(path string, old *config.Config, mgr *session.Manager, emitter *events.Emitter, logger *slog.Logger) *config.Config {
	newCfg, err := config.Load(path)
	if err != nil {
		logger.Error("failed to reload config", "error", err)
		return nil
	}

	// Warn about structural changes that require restart.
	for _, field := range restartRequired(old, newCfg) {
		logger.Warn("config reload: change requires restart", "field", field)
	}

	// Timeouts apply to sessions opened after the reload.
	mgr.SetProvider(buildProvider(newCfg, emitter, logger))
	emitter.Emit(events.Event{
		Type:   events.ConfigReloaded,
		Fields: map[string]string{"default_timeout": newCfg.Session.DefaultTimeout.String()},
	})
	logger.Info("config reload complete")
	return newCfg
}

// restartRequired lists the settings that differ between old and new but
// only take effect on restart.
func restartRequired(old, new_ *config.Config) []string {
	var fields []string
	if new_.Listen != old.Listen {
		fields = append(fields, "listen")
	}
	if new_.AdminToken != old.AdminToken {
		fields = append(fields, "admin_token")
	}
	if new_.DatabaseURL != old.DatabaseURL {
		fields = append(fields, "database_url")
	}
	if new_.Hermes != old.Hermes {
		fields = append(fields, "hermes")
	}
	if !slices.Equal(new_.Session.Kinds, old.Session.Kinds) {
		fields = append(fields, "session.kinds")
	}
	return fields
}
