// Package orchestrator runs the full decision pipeline for one operator
// question: scenario detection, intent routing, agent evaluation,
// confidence scoring, risk recalculation, aggregation, summary and alerting.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/gridsight/control-plane/internal/agents"
	"github.com/gridsight/control-plane/internal/aggregator"
	"github.com/gridsight/control-plane/internal/alerting"
	"github.com/gridsight/control-plane/internal/confidence"
	"github.com/gridsight/control-plane/internal/intent"
	"github.com/gridsight/control-plane/internal/logstore"
	"github.com/gridsight/control-plane/internal/risk"
	"github.com/gridsight/control-plane/internal/scenario"
	"github.com/gridsight/control-plane/internal/summary"
	"github.com/gridsight/control-plane/internal/telemetry"
	"github.com/gridsight/control-plane/pkg/contracts"
	"github.com/gridsight/control-plane/pkg/models"
)

// Options tunes the external calls made per run.
type Options struct {
	ProviderTimeout time.Duration
	RecentLogLimit  int
	HistoryLimit    int
}

// DefaultOptions match the reference deployment.
var DefaultOptions = Options{
	ProviderTimeout: 10 * time.Second,
	RecentLogLimit:  5,
	HistoryLimit:    3,
}

// Deps are the collaborators of an Orchestrator. Summarizer, Alerts, Logs
// and Metrics may be nil.
type Deps struct {
	Provider   contracts.MetricsProvider
	Summarizer contracts.SummaryGenerator
	Classifier *intent.Classifier
	Agents     *agents.Registry
	Alerts     *alerting.Engine
	Logs       *logstore.Logs
	Metrics    *telemetry.Metrics
}

// Orchestrator owns no state between runs; all persistence goes through the
// injected log stores.
type Orchestrator struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// New creates an orchestrator. A nil Classifier or Agents registry gets the
// defaults.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(nil)
	}
	if deps.Agents == nil {
		deps.Agents = agents.NewRegistry()
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultOptions.ProviderTimeout
	}
	return &Orchestrator{
		deps: deps,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// gathered is everything fetched from the metrics provider for one run.
type gathered struct {
	snapshot models.MetricsSnapshot
	drift    models.DriftStatus
	logs     []models.LogEntry
	history  []models.MetricsSnapshot
	warnings []string
}

// Run answers one question. It never fails: collaborator errors degrade to
// placeholders and are listed in Warnings. override, when non-nil, replaces
// the provider's latest metrics.
func (o *Orchestrator) Run(ctx context.Context, plantID int, question string, override *models.MetricsSnapshot) *models.AggregatedDecision {
	started := o.now()
	runID := uuid.NewString()

	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("gridsight.run_id", runID),
		attribute.Int("gridsight.plant_id", plantID),
	)

	// 1. Scenario detection and intent routing, both on the raw question.
	req := scenario.Detect(question)
	route := o.deps.Classifier.Classify(question)
	simulation := req.IsSimulation || route.IsHypothetical

	// 2. Gather provider data.
	g := o.gather(ctx, override)

	// Provider drift status only feeds confidence. Agents and the risk
	// recalculator see drift only when the snapshot or an override sets it.
	baseline := g.snapshot
	snap := baseline
	drift := g.drift
	if req.IsSimulation {
		snap = scenario.ApplyOverrides(baseline, req.Overrides)
		if req.Overrides.DriftRisk != "" {
			drift = models.DriftStatus{DriftRisk: snap.Drift(), Source: "simulation"}
		}
	}

	// 3. Selected agents.
	warnings := g.warnings
	verdicts, err := o.deps.Agents.Evaluate(ctx, route.SelectedAgents, snap)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("agent evaluation incomplete: %v", err))
		verdicts = map[models.AgentName]models.Verdict{}
	}

	// 4. Confidence.
	conf := confidence.Compute(verdicts, &drift, snap)

	// 5. Risk recalculation for hypothetical runs.
	var sim *models.SimulationInfo
	if simulation {
		sim = &models.SimulationInfo{
			Overrides:        req.Overrides,
			RealMetrics:      baseline,
			SimulatedMetrics: snap,
			Risk:             risk.Recalculate(snap),
		}
	}

	// 6. Aggregate.
	d := aggregator.Aggregate(aggregator.Input{
		Verdicts:    verdicts,
		Intent:      route,
		Confidence:  conf,
		DriftStatus: &drift,
		Simulation:  simulation,
	})
	d.RunID = runID
	d.PlantID = plantID
	d.Question = question
	d.Simulation = sim
	d.StartedAt = started

	// 7. Natural-language summary.
	if o.deps.Summarizer != nil {
		prompt := summary.BuildPrompt(summary.PromptInput{
			Question:   question,
			Decision:   d,
			RecentLogs: g.logs,
			History:    g.history,
		})
		sctx, sspan := telemetry.Tracer().Start(ctx, "orchestrator.summary")
		d.AISummary = o.deps.Summarizer.Generate(sctx, prompt)
		sspan.End()
	}

	// 8. Alerting.
	if o.deps.Alerts != nil {
		outcome := o.deps.Alerts.Evaluate(ctx, d, plantID)
		d.Alert = &outcome
	}

	// 9. Audit logs.
	o.record(ctx, d, req)

	d.Warnings = warnings
	d.CompletedAt = o.now()

	if m := o.deps.Metrics; m != nil {
		m.Runs.WithLabelValues(string(route.RoutingType), strconv.FormatBool(simulation)).Inc()
		m.Confidence.Observe(conf.Score)
	}
	if len(warnings) > 0 {
		span.SetStatus(codes.Error, "degraded run")
	}
	span.SetAttributes(
		attribute.String("gridsight.decision", d.FinalDecision),
		attribute.String("gridsight.priority", string(d.Priority)),
		attribute.Float64("gridsight.confidence", conf.Score),
		attribute.Bool("gridsight.simulation", simulation),
	)

	log.Info().
		Str("run_id", runID).
		Int("plant_id", plantID).
		Str("routing", string(route.RoutingType)).
		Int("agents", route.AgentCount).
		Bool("simulation", simulation).
		Float64("confidence", conf.Score).
		Str("priority", string(d.Priority)).
		Dur("elapsed", d.CompletedAt.Sub(started)).
		Msg("🧭 Orchestration complete")

	return d
}

// gather fetches metrics, drift, recent logs and history concurrently. Each
// call is bounded by the provider timeout and degrades independently.
func (o *Orchestrator) gather(ctx context.Context, override *models.MetricsSnapshot) gathered {
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.gather")
	defer span.End()

	out := gathered{
		drift:   models.DriftStatus{DriftRisk: models.DriftLow, Source: "default"},
		logs:    []models.LogEntry{},
		history: []models.MetricsSnapshot{},
	}
	if override != nil {
		out.snapshot = override.Clone()
	}
	if o.deps.Provider == nil {
		if override == nil {
			out.warnings = append(out.warnings, "metrics provider not configured, using defaults")
		}
		return out
	}

	var mu sync.Mutex
	fail := func(what string, err error) {
		mu.Lock()
		defer mu.Unlock()
		out.warnings = append(out.warnings, fmt.Sprintf("%s unavailable: %v", what, err))
		log.Warn().Err(err).Str("call", what).Msg("Metrics provider call failed")
		if o.deps.Metrics != nil {
			o.deps.Metrics.ExternalCallFailures.WithLabelValues("metrics_provider").Inc()
		}
	}

	var eg errgroup.Group
	call := func(fn func(ctx context.Context)) {
		eg.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
			defer cancel()
			fn(cctx)
			return nil
		})
	}

	if override == nil {
		call(func(ctx context.Context) {
			snap, err := o.deps.Provider.LatestMetrics(ctx)
			if err != nil {
				fail("metrics", err)
				return
			}
			out.snapshot = snap
		})
	}
	call(func(ctx context.Context) {
		ds, err := o.deps.Provider.DriftStatus(ctx)
		if err != nil {
			fail("drift status", err)
			return
		}
		out.drift = ds
	})
	call(func(ctx context.Context) {
		logs, err := o.deps.Provider.RecentLogs(ctx, o.opts.RecentLogLimit)
		if err != nil {
			fail("recent logs", err)
			return
		}
		out.logs = logs
	})
	call(func(ctx context.Context) {
		history, err := o.deps.Provider.MetricsHistory(ctx, o.opts.HistoryLimit)
		if err != nil {
			fail("metrics history", err)
			return
		}
		out.history = history
	})
	_ = eg.Wait()

	return out
}

// record appends the simulation and memory entries. Failures are logged and
// counted but never surface to the caller.
func (o *Orchestrator) record(ctx context.Context, d *models.AggregatedDecision, req models.ScenarioRequest) {
	logs := o.deps.Logs
	if logs == nil {
		return
	}

	if d.Simulation != nil && logs.Simulations != nil {
		err := logs.Simulations.Append(ctx, models.SimulationLogEntry{
			Timestamp:  d.StartedAt,
			RunID:      d.RunID,
			PlantID:    d.PlantID,
			Question:   d.Question,
			Overrides:  req.Overrides,
			Risk:       d.Simulation.Risk,
			Confidence: d.Confidence,
		})
		o.logWriteResult("simulations", err)
	}

	if logs.Memory != nil {
		level := models.RiskLow
		if rv, ok := d.Risk(); ok {
			level = rv.Level
		}
		err := logs.Memory.Append(ctx, models.MemoryEntry{
			Timestamp:  d.StartedAt,
			RunID:      d.RunID,
			PlantID:    d.PlantID,
			Question:   d.Question,
			Response:   d.AISummary,
			RiskLevel:  level,
			AgentsUsed: d.Routing.SelectedAgents,
			Confidence: d.Confidence.Score,
		})
		o.logWriteResult("memory", err)
	}
}

func (o *Orchestrator) logWriteResult(name string, err error) {
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("log", name).Msg("Failed to append audit log")
	if o.deps.Metrics != nil {
		o.deps.Metrics.LogWriteFailures.WithLabelValues(name).Inc()
	}
}
