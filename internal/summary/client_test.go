package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight/control-plane/internal/config"
	"github.com/gridsight/control-plane/pkg/models"
)

func TestClient_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "why?", req.Prompt)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "Because drift."})
	}))
	defer srv.Close()

	c, err := New(config.SummaryConfig{Driver: "ollama", Endpoint: srv.URL, Model: "mistral", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "Because drift.", c.Generate(context.Background(), "why?"))
}

func TestClient_OpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"All stable."}}]}`))
	}))
	defer srv.Close()

	c, err := New(config.SummaryConfig{Driver: "openai", Endpoint: srv.URL, Model: "gpt-4o-mini", APIKey: "sk-test", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "All stable.", c.Generate(context.Background(), "status"))
}

func TestClient_FailuresBecomeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var hooked error
	c, err := New(config.SummaryConfig{Driver: "ollama", Endpoint: srv.URL, Model: "mistral", Timeout: 5 * time.Second},
		WithErrorHook(func(err error) { hooked = err }))
	require.NoError(t, err)

	out := c.Generate(context.Background(), "p")
	assert.True(t, strings.HasPrefix(out, "LLM call failed: "), out)
	assert.Contains(t, out, "status 500")
	assert.Error(t, hooked)
}

type slowDriver struct{}

func (slowDriver) Kind() string { return "slow" }
func (slowDriver) Complete(ctx context.Context, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(5 * time.Second):
		return "late", nil
	}
}

func TestClient_Timeout(t *testing.T) {
	c := NewWithDriver(slowDriver{}, 20*time.Millisecond)
	out := c.Generate(context.Background(), "p")
	assert.Contains(t, out, "LLM call failed")
	assert.Contains(t, out, context.DeadlineExceeded.Error())
}

func TestClient_Disabled(t *testing.T) {
	c, err := New(config.SummaryConfig{Driver: "disabled"})
	require.NoError(t, err)
	assert.Equal(t, DisabledText, c.Generate(context.Background(), "p"))

	_, err = New(config.SummaryConfig{Driver: "bard"})
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	d := &models.AggregatedDecision{
		ExecutiveSummary: "Operations: High risk (RMSE above acceptable threshold) | Decision: WARNING",
		FinalDecision:    "WARNING — Monitor Closely",
		Priority:         models.PriorityP1,
		Confidence:       models.ConfidenceResult{Score: 0.45, Label: models.ConfidenceLow},
		AgentOutputs: map[models.AgentName]models.Verdict{
			models.AgentOps: models.OpsVerdict{Risk: models.SeverityHigh, Reason: "RMSE above acceptable threshold"},
		},
	}
	prompt := BuildPrompt(PromptInput{
		Question:   "give me a status report",
		Decision:   d,
		RecentLogs: []models.LogEntry{{"prediction": 512.3}},
		History:    []models.MetricsSnapshot{{EvaluatedAt: "2026-10-01", Metrics: models.EvaluationMetrics{R2: models.Float(0.91)}}},
	})

	assert.Contains(t, prompt, "Question: give me a status report")
	assert.Contains(t, prompt, "Priority: P1")
	assert.Contains(t, prompt, "Confidence: 0.45 (LOW)")
	assert.Contains(t, prompt, `"operational_risk": "High"`)
	assert.Contains(t, prompt, "2026-10-01: r2=0.9100")
	assert.Contains(t, prompt, "Recent Prediction Logs")
}
