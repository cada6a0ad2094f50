// Package logstore provides append-only, capacity-capped audit logs.
//
// Every backend keeps only the most recent Capacity entries in arrival
// order and evicts the oldest first. Appends from concurrent requests never
// overwrite each other.
package logstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/pkg/models"
)

// Log is a bounded FIFO log of T. A log with capacity <= 0 retains nothing.
type Log[T any] interface {
	// Append adds entry and evicts the oldest entries beyond capacity.
	Append(ctx context.Context, entry T) error

	// Recent returns up to n entries, oldest first. n <= 0 returns all.
	Recent(ctx context.Context, n int) ([]T, error)

	Capacity() int
}

// Backend selects the persistence used by Open.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Capacities for the three decision-plane logs.
type Capacities struct {
	Alerts      int
	Simulations int
	Memory      int
}

// DefaultCapacities are the reference retention limits.
var DefaultCapacities = Capacities{Alerts: 50, Simulations: 100, Memory: 10}

// Logs bundles the alert, simulation and agent memory logs.
type Logs struct {
	Alerts      Log[models.AlertRecord]
	Simulations Log[models.SimulationLogEntry]
	Memory      Log[models.MemoryEntry]

	db *sql.DB
}

// Open builds the three logs on the chosen backend. dir is ignored for the
// memory backend.
func Open(backend Backend, dir string, caps Capacities) (*Logs, error) {
	switch backend {
	case BackendMemory:
		return &Logs{
			Alerts:      NewMemoryLog[models.AlertRecord](caps.Alerts),
			Simulations: NewMemoryLog[models.SimulationLogEntry](caps.Simulations),
			Memory:      NewMemoryLog[models.MemoryEntry](caps.Memory),
		}, nil

	case BackendJSON, "":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		return &Logs{
			Alerts:      NewFileLog[models.AlertRecord](filepath.Join(dir, "alerts_log.json"), caps.Alerts),
			Simulations: NewFileLog[models.SimulationLogEntry](filepath.Join(dir, "simulation_log.json"), caps.Simulations),
			Memory:      NewFileLog[models.MemoryEntry](filepath.Join(dir, "agent_memory.json"), caps.Memory),
		}, nil

	case BackendSQLite:
		db, err := OpenSQLite(filepath.Join(dir, "gridsight.sqlite"))
		if err != nil {
			return nil, err
		}
		logs := &Logs{db: db}
		var e1, e2, e3 error
		logs.Alerts, e1 = NewSQLiteLog[models.AlertRecord](db, "alerts", caps.Alerts)
		logs.Simulations, e2 = NewSQLiteLog[models.SimulationLogEntry](db, "simulations", caps.Simulations)
		logs.Memory, e3 = NewSQLiteLog[models.MemoryEntry](db, "agent_memory", caps.Memory)
		if err := errors.Join(e1, e2, e3); err != nil {
			_ = db.Close()
			return nil, err
		}
		return logs, nil

	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

// Close releases the database handle, if any.
func (l *Logs) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	if err := l.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close log database")
		return err
	}
	return nil
}

func tail[T any](entries []T, n int) []T {
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]T, n)
	copy(out, entries[len(entries)-n:])
	return out
}
