// Package summary calls the natural-language model that writes the final
// summary of a decision.
//
// Two provider drivers are supported: a local Ollama server (/api/generate)
// and any OpenAI-compatible chat completions endpoint. Failures never
// propagate; the returned text carries the error instead.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/internal/config"
)

// DisabledText is returned when no summary driver is configured.
const DisabledText = "AI summary disabled"

// Driver sends a single prompt to one provider kind.
type Driver interface {
	Kind() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client implements contracts.SummaryGenerator.
type Client struct {
	driver  Driver
	timeout time.Duration
	onError func(error)
}

// Option configures a Client.
type Option func(*Client)

// WithErrorHook registers a callback run on every failed call, e.g. to bump a
// failure counter.
func WithErrorHook(fn func(error)) Option {
	return func(c *Client) { c.onError = fn }
}

// New creates a client for the configured driver.
func New(cfg config.SummaryConfig, opts ...Option) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var d Driver
	switch cfg.Driver {
	case "ollama":
		d = &OllamaDriver{client: httpClient, endpoint: cfg.Endpoint, model: cfg.Model}
	case "openai":
		d = &OpenAIDriver{client: httpClient, endpoint: cfg.Endpoint, model: cfg.Model, apiKey: cfg.APIKey}
	case "disabled", "":
		d = nil
	default:
		return nil, fmt.Errorf("unknown summary driver %q", cfg.Driver)
	}
	return NewWithDriver(d, cfg.Timeout, opts...), nil
}

// NewWithDriver wraps an arbitrary driver. A nil driver disables summaries.
func NewWithDriver(d Driver, timeout time.Duration, opts ...Option) *Client {
	c := &Client{driver: d, timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the model's text, or "LLM call failed: <err>" on any
// failure. It never returns an error.
func (c *Client) Generate(ctx context.Context, prompt string) string {
	if c.driver == nil {
		return DisabledText
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.driver.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("driver", c.driver.Kind()).Msg("Summary generation failed")
		if c.onError != nil {
			c.onError(err)
		}
		return "LLM call failed: " + err.Error()
	}
	log.Debug().Str("driver", c.driver.Kind()).Dur("latency", time.Since(start)).Msg("Summary generated")
	return text
}

// ── Ollama Provider ─────────────────────────────────────────

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// OllamaDriver calls a local Ollama server.
type OllamaDriver struct {
	client   *http.Client
	endpoint string
	model    string
}

func (d *OllamaDriver) Kind() string { return "ollama" }

func (d *OllamaDriver) Complete(ctx context.Context, prompt string) (string, error) {
	endpoint := d.endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}

	body, _ := json.Marshal(ollamaRequest{Model: d.model, Prompt: prompt, Stream: false})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return "", fmt.Errorf("ollama: status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp ollamaResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	if resp.Response == "" {
		return "LLM returned empty response", nil
	}
	return resp.Response, nil
}

// ── OpenAI-compatible Provider ──────────────────────────────

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIDriver calls an OpenAI-compatible chat completions endpoint.
type OpenAIDriver struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
}

func (d *OpenAIDriver) Kind() string { return "openai" }

func (d *OpenAIDriver) Complete(ctx context.Context, prompt string) (string, error) {
	endpoint := d.endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	body, _ := json.Marshal(openAIRequest{
		Model:    d.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return "", fmt.Errorf("openai: status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "LLM returned empty response", nil
	}
	return resp.Choices[0].Message.Content, nil
}
