// Package notify delivers triggered alerts to registered notification
// channels.
//
// The built-in WebhookChannelDriver posts the alert as JSON with
// optional HMAC-SHA256 signing. Other channel kinds plug in via
// RegisterDriver.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/internal/config"
	"github.com/gridsight/control-plane/pkg/models"
)

// ── Channels ────────────────────────────────────────────────

// ChannelKind identifies a channel driver.
type ChannelKind string

const ChannelWebhook ChannelKind = "webhook"

// Channel is one notification destination.
type Channel struct {
	Name   string
	Kind   ChannelKind
	URL    string
	Secret string
}

// ChannelDriver sends an alert through one kind of channel.
type ChannelDriver interface {
	Kind() ChannelKind
	Send(ctx context.Context, channel Channel, alert models.AlertRecord) error
}

// Result records the outcome of one channel delivery.
type Result struct {
	Channel   string    `json:"channel"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ── Service ──────────────────────────────────────────────────

// Service dispatches alerts to every configured channel. It implements
// contracts.AlertNotifier.
type Service struct {
	channels []Channel
	timeout  time.Duration
	drivers  map[ChannelKind]ChannelDriver
	drvMu    sync.RWMutex
	onError  func(error)
	inflight sync.WaitGroup
}

// NewService creates a notification service with the built-in webhook
// driver and one webhook channel per configured URL.
func NewService(cfg config.NotifyConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	svc := &Service{
		timeout: timeout,
		drivers: make(map[ChannelKind]ChannelDriver),
	}
	svc.RegisterDriver(&WebhookChannelDriver{
		client:     &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
	})
	for i, url := range cfg.WebhookURLs {
		svc.channels = append(svc.channels, Channel{
			Name:   fmt.Sprintf("webhook-%d", i+1),
			Kind:   ChannelWebhook,
			URL:    url,
			Secret: cfg.Secret,
		})
	}
	return svc
}

// RegisterDriver adds or replaces a channel driver for the given kind.
func (s *Service) RegisterDriver(driver ChannelDriver) {
	s.drvMu.Lock()
	defer s.drvMu.Unlock()
	s.drivers[driver.Kind()] = driver
	log.Info().Str("kind", string(driver.Kind())).Msg("Registered notification channel driver")
}

// AddChannel registers an extra destination.
func (s *Service) AddChannel(ch Channel) {
	s.drvMu.Lock()
	defer s.drvMu.Unlock()
	s.channels = append(s.channels, ch)
}

// OnError registers a callback run for every failed delivery.
func (s *Service) OnError(fn func(error)) {
	s.onError = fn
}

func (s *Service) getDriver(kind ChannelKind) ChannelDriver {
	s.drvMu.RLock()
	defer s.drvMu.RUnlock()
	return s.drivers[kind]
}

func (s *Service) listChannels() []Channel {
	s.drvMu.RLock()
	defer s.drvMu.RUnlock()
	return append([]Channel(nil), s.channels...)
}

// DispatchAlert delivers the alert in the background. Delivery outlives the
// caller's context but is bounded by the service timeout.
func (s *Service) DispatchAlert(ctx context.Context, alert models.AlertRecord) {
	channels := s.listChannels()
	if len(channels) == 0 {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		s.DispatchAll(dctx, alert)
	}()
}

// Wait blocks until all background deliveries finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// DispatchAll sends the alert to every channel concurrently and returns the
// collected results.
func (s *Service) DispatchAll(ctx context.Context, alert models.AlertRecord) []Result {
	channels := s.listChannels()
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]Result, 0, len(channels))
	)
	for _, ch := range channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			r := s.DispatchToChannel(ctx, ch, alert)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(ch)
	}
	wg.Wait()
	return results
}

// DispatchToChannel sends the alert through one channel.
func (s *Service) DispatchToChannel(ctx context.Context, ch Channel, alert models.AlertRecord) Result {
	result := Result{
		Channel:   fmt.Sprintf("%s/%s", ch.Kind, ch.Name),
		Timestamp: time.Now().UTC(),
	}

	driver := s.getDriver(ch.Kind)
	if driver == nil {
		result.Error = fmt.Sprintf("no driver registered for channel kind %s", ch.Kind)
		log.Warn().Str("kind", string(ch.Kind)).Str("channel", ch.Name).Msg("No channel driver")
		return result
	}

	if err := driver.Send(ctx, ch, alert); err != nil {
		result.Error = err.Error()
		log.Warn().Err(err).Str("channel", ch.Name).Str("alert_id", alert.ID).Msg("Alert notification failed")
		if s.onError != nil {
			s.onError(err)
		}
		return result
	}

	result.Success = true
	log.Info().Str("channel", ch.Name).Str("alert_id", alert.ID).Str("severity", string(alert.Severity)).Msg("📣 Alert notification dispatched")
	return result
}

// ── Webhook Channel Driver ───────────────────────────────────

// WebhookChannelDriver posts alerts via HTTP POST with optional HMAC-SHA256
// signing. Server errors and transport failures are retried with exponential
// backoff; 4xx responses are not.
type WebhookChannelDriver struct {
	client     *http.Client
	maxRetries int

	// initialInterval overrides the first backoff delay; tests shorten it.
	initialInterval time.Duration
}

func (d *WebhookChannelDriver) Kind() ChannelKind {
	return ChannelWebhook
}

// Send posts the alert as JSON to the channel's URL.
func (d *WebhookChannelDriver) Send(ctx context.Context, ch Channel, alert models.AlertRecord) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var sig string
	if ch.Secret != "" {
		sig = Sign(ch.Secret, body)
	}

	attempts := 0
	op := func() error {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "GridSight-Webhook/1.0")
		req.Header.Set("X-GridSight-Event", "alert")
		req.Header.Set("X-GridSight-Severity", string(alert.Severity))
		if sig != "" {
			req.Header.Set("X-GridSight-Signature", sig)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, ch.URL))
		default:
			return fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, ch.URL)
		}
	}

	if err := backoff.Retry(op, d.policy(ctx)); err != nil {
		return fmt.Errorf("webhook failed after %d attempts: %w", attempts, err)
	}
	return nil
}

func (d *WebhookChannelDriver) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	if d.initialInterval > 0 {
		b.InitialInterval = d.initialInterval
	}
	retries := d.maxRetries
	if retries <= 0 {
		retries = 3
	}
	// maxRetries counts total attempts.
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries-1)), ctx)
}

// Sign returns the signature header value for body under secret, for
// receivers verifying deliveries.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
