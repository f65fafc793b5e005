// cmd/menu-advisor/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/config"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/database"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/observability"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/settings"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/workflow"
)

// openStore connects the configured preferences backend. The returned
// closer releases the connection.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (settings.Store, io.Closer, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		store := settings.NewPostgresStore(pg.DB, cfg.Storage.KeyPrefix)
		if err := store.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		log.Info("preferences stored in postgres", map[string]interface{}{"host": cfg.Database.Postgres.Host})
		return store, pg, nil
	default:
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		if err := rdb.Ping(ctx); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		log.Info("preferences stored in redis", map[string]interface{}{"address": cfg.Database.Redis.Address})
		return settings.NewRedisStore(rdb.GetClient(), cfg.Storage.KeyPrefix), rdb, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log, zapLog, err := logger.NewFromOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	sessionID := uuid.NewString()
	log = log.WithFields(map[string]interface{}{"session": sessionID})

	obs := observability.New("menu-advisor")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closer, err := openStore(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("preferences store unavailable", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}
	defer closer.Close()

	prefs := settings.New(store, log)
	if err := prefs.Load(ctx); err != nil {
		zapLog.Fatal("preferences load failed", zap.Error(err))
	}

	generator := genai.NewGeminiGenerator(&genai.GeminiConfig{
		BaseURL:     cfg.GenAI.BaseURL,
		APIKey:      cfg.GenAI.APIKey,
		Model:       cfg.GenAI.Model,
		Temperature: cfg.GenAI.Temperature,
		Timeout:     config.GetDuration(cfg.GenAI.Timeout),
	})
	advisor := genai.NewClient(generator, genai.Options{
		DefaultSearchContext: cfg.GenAI.DefaultSearchContext,
	}, log, obs)

	ctrl := workflow.NewController(advisor, retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       config.GetDuration(cfg.Retry.Delay),
	}, log)

	log.Info("session started", map[string]interface{}{"model": cfg.GenAI.Model})
	sess := newSession(ctrl, prefs, log, os.Stdout)
	if g := cfg.Geolocation; g.Enabled {
		sess.geo = fixedGeolocator{pos: workflow.Position{Latitude: g.Latitude, Longitude: g.Longitude}}
	}
	if err := sess.Run(ctx, os.Stdin); err != nil && err != context.Canceled {
		log.Error("session ended", map[string]interface{}{"error": err.Error()})
	}
}
