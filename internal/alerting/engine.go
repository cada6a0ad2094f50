package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/internal/logstore"
	"github.com/gridsight/control-plane/internal/telemetry"
	"github.com/gridsight/control-plane/pkg/contracts"
	"github.com/gridsight/control-plane/pkg/models"
)

// Engine evaluates decisions and fires P0/P1 alerts.
type Engine struct {
	alerts   logstore.Log[models.AlertRecord]
	notifier contracts.AlertNotifier
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewEngine creates an alert engine. notifier and metrics may be nil.
func NewEngine(alerts logstore.Log[models.AlertRecord], notifier contracts.AlertNotifier, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		alerts:   alerts,
		notifier: notifier,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate classifies the decision and, for P0 and P1, logs, persists and
// dispatches an alert. Persistence and notification failures are logged and
// never change the outcome.
func (e *Engine) Evaluate(ctx context.Context, d *models.AggregatedDecision, plantID int) models.AlertOutcome {
	severity, reason := DetermineSeverity(d)

	priority := d.Priority
	if priority == "" {
		priority = models.PriorityP2
	}
	record := models.AlertRecord{
		ID:        uuid.New().String()[:8],
		Timestamp: e.now(),
		Severity:  severity,
		Decision:  d.FinalDecision,
		Priority:  priority,
		PlantID:   plantID,
		Message:   reason,
	}

	outcome := models.AlertOutcome{
		Severity:  severity,
		AlertType: models.AlertNone,
		Reason:    reason,
		AlertID:   record.ID,
		Timestamp: record.Timestamp,
	}

	if e.metrics != nil {
		e.metrics.Alerts.WithLabelValues(string(severity)).Inc()
	}

	switch severity {
	case models.PriorityP0:
		outcome.Triggered = true
		outcome.AlertType = models.AlertCritical
		log.Error().
			Str("alert_id", record.ID).
			Int("plant_id", plantID).
			Str("decision", record.Decision).
			Str("reason", reason).
			Msg("🚨 CRITICAL ALERT [P0]")
	case models.PriorityP1:
		outcome.Triggered = true
		outcome.AlertType = models.AlertWarning
		log.Warn().
			Str("alert_id", record.ID).
			Int("plant_id", plantID).
			Str("decision", record.Decision).
			Str("reason", reason).
			Msg("⚠️ WARNING ALERT [P1]")
	default:
		log.Debug().Int("plant_id", plantID).Str("reason", reason).Msg("No alert")
		return outcome
	}

	if e.alerts != nil {
		if err := e.alerts.Append(ctx, record); err != nil {
			log.Warn().Err(err).Str("alert_id", record.ID).Msg("Failed to persist alert")
			if e.metrics != nil {
				e.metrics.LogWriteFailures.WithLabelValues("alerts").Inc()
			}
		}
	}
	if e.notifier != nil {
		e.notifier.DispatchAlert(ctx, record)
	}
	return outcome
}
