package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight/control-plane/internal/config"
	"github.com/gridsight/control-plane/pkg/models"
)

func testAlert() models.AlertRecord {
	return models.AlertRecord{
		ID:        "a1b2c3d4",
		Timestamp: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		Severity:  models.PriorityP0,
		Decision:  "CRITICAL — Immediate Action Required",
		Priority:  models.PriorityP0,
		PlantID:   7,
		Message:   "Risk assessment is CRITICAL",
	}
}

func fastService(urls []string, secret string) *Service {
	svc := NewService(config.NotifyConfig{WebhookURLs: urls, Secret: secret, Timeout: 5 * time.Second, MaxRetries: 3})
	svc.RegisterDriver(&WebhookChannelDriver{
		client:          &http.Client{Timeout: time.Second},
		maxRetries:      3,
		initialInterval: time.Millisecond,
	})
	return svc
}

func TestWebhook_SignsPayload(t *testing.T) {
	var got models.AlertRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, Sign("s3cret", body), r.Header.Get("X-GridSight-Signature"))
		assert.Equal(t, "P0", r.Header.Get("X-GridSight-Severity"))
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	results := fastService([]string{srv.URL}, "s3cret").DispatchAll(context.Background(), testAlert())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, "a1b2c3d4", got.ID)
	assert.Equal(t, 7, got.PlantID)
}

func TestWebhook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	results := fastService([]string{srv.URL}, "").DispatchAll(context.Background(), testAlert())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.EqualValues(t, 3, calls.Load())
}

func TestWebhook_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var failures atomic.Int32
	svc := fastService([]string{srv.URL}, "")
	svc.OnError(func(error) { failures.Add(1) })

	results := svc.DispatchAll(context.Background(), testAlert())
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "after 3 attempts")
	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 1, failures.Load())
}

func TestWebhook_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	results := fastService([]string{srv.URL}, "").DispatchAll(context.Background(), testAlert())
	assert.False(t, results[0].Success)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDispatchAlert_AsyncSurvivesCallerCancel(t *testing.T) {
	delivered := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a models.AlertRecord
		_ = json.NewDecoder(r.Body).Decode(&a)
		delivered <- a.ID
	}))
	defer srv.Close()

	svc := fastService([]string{srv.URL}, "")
	ctx, cancel := context.WithCancel(context.Background())
	svc.DispatchAlert(ctx, testAlert())
	cancel()
	svc.Wait()

	select {
	case id := <-delivered:
		assert.Equal(t, "a1b2c3d4", id)
	default:
		t.Fatal("alert was not delivered")
	}
}

func TestDispatchAlert_NoChannelsIsNoop(t *testing.T) {
	svc := NewService(config.NotifyConfig{})
	svc.DispatchAlert(context.Background(), testAlert())
	svc.Wait()
}
