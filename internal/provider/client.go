// Package provider is the uniform gateway to every configured LLM backend
// over one OpenRouter-style chat-completions transport.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"counsel/core/internal/config"
)

const (
	maxErrorBodyBytes   = 8 * 1024
	defaultMaxAttempts  = 4
	defaultRetryBackoff = 1200 * time.Millisecond
	defaultCallTimeout  = 120 * time.Second
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CallRequest is the wire-independent request shape. MaxTokens <= 0, or the
// no-limits toggle, omits the bound from the payload entirely.
type CallRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type CallResult struct {
	Text  string
	Usage Usage
}

// AttemptEvent describes one transport-level attempt, success or failure,
// so the audit log can see through the transparent retry layer.
type AttemptEvent struct {
	Model   string
	Attempt int
	Elapsed time.Duration
	Err     error
}

type completionAPIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type completionAPIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type Client struct {
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	maxAttempts   int
	retryBackoff  time.Duration
	callTimeout   time.Duration
	noTokenLimits bool
	heartbeat     time.Duration
	notify        func(model string, elapsed time.Duration)
	observe       func(AttemptEvent)
}

func NewClient(cfg config.Config, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return Client{
		apiKey:        strings.TrimSpace(cfg.ProviderAPIKey),
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.ProviderBaseURL), "/"),
		httpClient:    httpClient,
		maxAttempts:   defaultMaxAttempts,
		retryBackoff:  defaultRetryBackoff,
		callTimeout:   callTimeout,
		noTokenLimits: cfg.NoTokenLimits,
		heartbeat:     cfg.HeartbeatInterval,
	}
}

// WithNotifier returns a copy that invokes notify on a fixed interval while
// a call is in flight. The notifier stops the instant the call resolves.
func (c Client) WithNotifier(notify func(model string, elapsed time.Duration)) Client {
	c.notify = notify
	return c
}

// WithObserver returns a copy that reports every transport attempt.
func (c Client) WithObserver(observe func(AttemptEvent)) Client {
	c.observe = observe
	return c
}

// WithTransportRetries overrides the transport retry budget and initial
// backoff.
func (c Client) WithTransportRetries(maxAttempts int, backoff time.Duration) Client {
	if maxAttempts > 0 {
		c.maxAttempts = maxAttempts
	}
	if backoff > 0 {
		c.retryBackoff = backoff
	}
	return c
}

// Call issues one logical completion. Rate limiting and transient transport
// failures are retried with doubling backoff up to a fixed budget; auth and
// model-availability failures surface immediately.
func (c Client) Call(ctx context.Context, req CallRequest) (CallResult, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return CallResult{}, AuthError{Err: ErrMissingAPIKey}
	}
	if strings.TrimSpace(req.Model) == "" {
		return CallResult{}, errors.New("model is required")
	}
	if len(req.Messages) == 0 {
		return CallResult{}, errors.New("messages are required")
	}

	stop := startHeartbeat(c.heartbeat, func(elapsed time.Duration) {
		if c.notify != nil {
			c.notify(req.Model, elapsed)
		}
	})
	defer stop()

	var lastErr error
	backoff := c.retryBackoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		started := time.Now()
		result, err := c.doCall(ctx, req)
		if c.observe != nil {
			c.observe(AttemptEvent{Model: req.Model, Attempt: attempt, Elapsed: time.Since(started), Err: err})
		}
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CallResult{}, ctxErr
		}
		if !isTransportRetryable(err) {
			return CallResult{}, err
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		if waitErr := waitForRetry(ctx, backoff); waitErr != nil {
			return CallResult{}, waitErr
		}
		backoff *= 2
	}
	return CallResult{}, lastErr
}

func (c Client) doCall(ctx context.Context, req CallRequest) (CallResult, error) {
	payload := completionAPIRequest{
		Model:    strings.TrimSpace(req.Model),
		Messages: req.Messages,
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		payload.Temperature = &temperature
	}
	if req.MaxTokens > 0 && !c.noTokenLimits {
		maxTokens := req.MaxTokens
		payload.MaxTokens = &maxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CallResult{}, fmt.Errorf("marshal provider request: %w", err)
	}

	callCtx := ctx
	cancel := func() {}
	if c.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CallResult{}, fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return CallResult{}, TransportError{Op: "request provider", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return CallResult{}, errorFromStatus(req.Model, resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var parsed completionAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return CallResult{}, fmt.Errorf("decode provider response: %w", err)
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return CallResult{}, TransportError{Op: "provider call", Body: strings.TrimSpace(parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return CallResult{}, TransportError{Op: "provider call", Body: "response had no choices"}
	}

	result := CallResult{Text: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		result.Usage = *parsed.Usage
	}
	return result, nil
}

func waitForRetry(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
