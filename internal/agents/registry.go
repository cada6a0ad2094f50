package agents

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gridsight/control-plane/pkg/models"
)

// Registry holds the evaluators available to the orchestrator.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[models.AgentName]Evaluator
}

// NewRegistry returns a registry with the four built-in agents.
func NewRegistry() *Registry {
	r := &Registry{evaluators: make(map[models.AgentName]Evaluator)}
	r.Register(EvaluatorFunc{Agent: models.AgentOps, Fn: func(m models.MetricsSnapshot) models.Verdict { return Ops(m) }})
	r.Register(EvaluatorFunc{Agent: models.AgentFinance, Fn: func(m models.MetricsSnapshot) models.Verdict { return Finance(m) }})
	r.Register(EvaluatorFunc{Agent: models.AgentRisk, Fn: func(m models.MetricsSnapshot) models.Verdict { return Risk(m) }})
	r.Register(EvaluatorFunc{Agent: models.AgentExecutive, Fn: func(m models.MetricsSnapshot) models.Verdict { return Strategy(m) }})
	return r
}

// Register adds or replaces the evaluator for its agent name.
func (r *Registry) Register(e Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[e.Name()] = e
}

// Get returns the evaluator for name, or nil.
func (r *Registry) Get(name models.AgentName) Evaluator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.evaluators[name]
}

// Evaluate runs the selected agents concurrently against the same snapshot.
// Each evaluator gets its own copy. Unregistered agents are skipped.
func (r *Registry) Evaluate(ctx context.Context, selected []models.AgentName, m models.MetricsSnapshot) (map[models.AgentName]models.Verdict, error) {
	var (
		mu  sync.Mutex
		out = make(map[models.AgentName]models.Verdict, len(selected))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range selected {
		name := name
		e := r.Get(name)
		if e == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v := e.Evaluate(m.Clone())
			mu.Lock()
			out[name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
