package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fagerbits/quizrelay/internal/adapters/http/api"
	"github.com/fagerbits/quizrelay/internal/adapters/klaviyo"
	app "github.com/fagerbits/quizrelay/internal/app"
	"github.com/fagerbits/quizrelay/internal/config"
	"github.com/fagerbits/quizrelay/internal/domain/normalize"
	"github.com/fagerbits/quizrelay/pkg/logger"
	"github.com/fagerbits/quizrelay/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics;
	// we collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	client, err := klaviyo.New(cfg.KlaviyoAPIKey,
		klaviyo.WithBaseURL(cfg.KlaviyoBaseURL),
		klaviyo.WithRevision(cfg.KlaviyoRevision),
		klaviyo.WithTimeout(time.Duration(cfg.HTTPTimeoutSeconds)*time.Second),
		klaviyo.WithRetry(cfg.EventRetryAttempts, time.Duration(cfg.EventRetryBaseMS)*time.Millisecond),
		klaviyo.WithPolling(cfg.SubscribePollAttempts, time.Duration(cfg.SubscribePollIntervalMS)*time.Millisecond),
		klaviyo.WithLogger(log.Named("klaviyo")),
	)
	if err != nil {
		os.Stderr.WriteString("failed to build klaviyo client: " + err.Error() + "\n")
		os.Exit(1)
	}

	// The legacy revision references metrics by ID; resolve it up front when
	// the deployment did not pin one.
	metricID := cfg.MetricID
	if cfg.KlaviyoRevision == klaviyo.RevisionLegacy && metricID == "" {
		metricID, err = client.ResolveMetricID(ctx, cfg.MetricName)
		if err != nil {
			log.Warn(ctx, "could not resolve metric id; event sends will fail until it is configured",
				logger.String("metric_name", cfg.MetricName),
				logger.Error(err))
		}
	}

	relay := app.New(client,
		app.WithLogger(log.Named("relay")),
		app.WithSecret(cfg.TypeformSecret),
		app.WithListID(cfg.ListID),
		app.WithMetricName(cfg.MetricName),
		app.WithMetricID(metricID),
		app.WithHistoryCap(cfg.HistoryCap),
		app.WithUnknownEndingLogSize(cfg.UnknownEndingLogSize),
		app.WithNormalizer(normalize.New(
			normalize.WithConsentRef(cfg.ConsentRef),
			normalize.WithDefaultLanguage(cfg.DefaultLanguage),
			normalize.WithDefaultQuizName(cfg.DefaultQuizName),
			normalize.WithDefaultSource(cfg.DefaultSource),
		)),
	)

	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(relay, relay)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("revision", client.Revision()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
