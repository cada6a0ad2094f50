// Package server provides the public entry point for composing the GridSight
// decision plane.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(fmt.Sprintf(":%d", srv.Port), srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/internal/alerting"
	"github.com/gridsight/control-plane/internal/api"
	"github.com/gridsight/control-plane/internal/api/handlers"
	"github.com/gridsight/control-plane/internal/config"
	"github.com/gridsight/control-plane/internal/intent"
	"github.com/gridsight/control-plane/internal/logstore"
	"github.com/gridsight/control-plane/internal/metricsource"
	"github.com/gridsight/control-plane/internal/notify"
	"github.com/gridsight/control-plane/internal/orchestrator"
	"github.com/gridsight/control-plane/internal/summary"
	"github.com/gridsight/control-plane/internal/telemetry"
	"github.com/gridsight/control-plane/pkg/contracts"
	"github.com/gridsight/control-plane/pkg/models"
)

// Server holds the initialized decision plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Orchestrator runs one question end to end. The CLI calls it directly.
	Orchestrator *orchestrator.Orchestrator

	// Logs are the bounded alert, simulation and memory logs.
	Logs *logstore.Logs

	// Provider is the (cached) metrics provider.
	Provider contracts.MetricsProvider

	// Config is the resolved configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	notifier  *notify.Service
	telemetry func(context.Context) error
}

// New loads configuration from GRIDSIGHT_CONFIG and the environment and
// composes a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig composes the decision plane from an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	logs, err := logstore.Open(logstore.Backend(cfg.Data.Backend), cfg.Data.Dir, logstore.Capacities{
		Alerts:      cfg.Data.AlertCapacity,
		Simulations: cfg.Data.SimulationCapacity,
		Memory:      cfg.Data.MemoryCapacity,
	})
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("open logs: %w", err)
	}
	log.Info().Str("backend", cfg.Data.Backend).Str("dir", cfg.Data.Dir).Msg("✅ Log stores initialized")

	provider := metricsource.NewCached(metricsource.NewFileProvider(cfg.Metrics), cfg.Metrics.CacheTTL)
	log.Info().Str("report", cfg.Metrics.ReportPath).Dur("cache_ttl", cfg.Metrics.CacheTTL).Msg("✅ Metrics provider initialized")

	summarizer, err := summary.New(cfg.Summary, summary.WithErrorHook(func(error) {
		metrics.ExternalCallFailures.WithLabelValues("summary").Inc()
	}))
	if err != nil {
		_ = logs.Close()
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("init summary: %w", err)
	}
	log.Info().Str("driver", cfg.Summary.Driver).Msg("✅ Summary generator initialized")

	notifier := notify.NewService(cfg.Notify)
	notifier.OnError(func(error) {
		metrics.ExternalCallFailures.WithLabelValues("notify").Inc()
	})
	log.Info().Int("webhooks", len(cfg.Notify.WebhookURLs)).Msg("✅ Alert notifier initialized")

	classifier := intent.NewClassifier(keywordTable(cfg.Intent.Keywords))
	orch := orchestrator.New(orchestrator.Deps{
		Provider:   provider,
		Summarizer: summarizer,
		Classifier: classifier,
		Alerts:     alerting.NewEngine(logs.Alerts, notifier, metrics),
		Logs:       logs,
		Metrics:    metrics,
	}, orchestrator.Options{
		ProviderTimeout: cfg.Metrics.Timeout,
		RecentLogLimit:  cfg.Metrics.RecentLogLimit,
		HistoryLimit:    cfg.Metrics.HistoryLimit,
	})

	h := handlers.New(orch, logs, provider, classifier)
	router := api.NewRouter(cfg, h, reg)

	return &Server{
		Handler:      router,
		Orchestrator: orch,
		Logs:         logs,
		Provider:     provider,
		Config:       cfg,
		Port:         cfg.Port,
		notifier:     notifier,
		telemetry:    shutdownTelemetry,
	}, nil
}

// Shutdown waits for in-flight alert deliveries, closes the log stores and
// flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Alert deliveries still in flight at shutdown")
	}
	return errors.Join(s.Logs.Close(), s.telemetry(ctx))
}

func keywordTable(raw map[string][]string) intent.Table {
	if len(raw) == 0 {
		return nil
	}
	table := make(intent.Table, len(raw))
	for agent, keywords := range raw {
		table[models.AgentName(agent)] = keywords
	}
	return table
}
