// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/camunda"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/config"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/observability"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
	"github.com/MathNerdzRule/dietary-menu-advisor/pkg/registry"

	crm "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/classify-menu-items"
	frm "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/find-restaurant-menu"
	rg "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/reverse-geocode"
	snr "github.com/MathNerdzRule/dietary-menu-advisor/internal/workers/advisor/search-nearby-restaurants"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateForWorkers(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
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

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
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

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       config.GetDuration(cfg.Retry.Delay),
	}

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	var workers []worker.JobWorker
	start := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if w := camunda.StartWorker(zeebe.GetClient(), taskType, wcfg, handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	// --- Advisor Workers (4) ---
	{
		wcfg := rg.LoadConfig()
		wcfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, rg.TaskType).Timeout)
		wcfg.Retry = policy
		wcfg.InputSchema = reg.InputSchemaFor(rg.TaskType)
		start(rg.TaskType, rg.NewHandler(wcfg, advisor, log))
	}
	{
		wcfg := frm.LoadConfig()
		wcfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, frm.TaskType).Timeout)
		wcfg.Retry = policy
		wcfg.InputSchema = reg.InputSchemaFor(frm.TaskType)
		start(frm.TaskType, frm.NewHandler(wcfg, advisor, log))
	}
	{
		wcfg := snr.LoadConfig()
		wcfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, snr.TaskType).Timeout)
		wcfg.Retry = policy
		wcfg.InputSchema = reg.InputSchemaFor(snr.TaskType)
		start(snr.TaskType, snr.NewHandler(wcfg, advisor, log))
	}
	{
		wcfg := crm.LoadConfig()
		wcfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, crm.TaskType).Timeout)
		wcfg.Retry = policy
		wcfg.InputSchema = reg.InputSchemaFor(crm.TaskType)
		start(crm.TaskType, crm.NewHandler(wcfg, advisor, log))
	}

	zapLog.Info("advisor workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
	}
	if err := server.Shutdown(ctx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}
