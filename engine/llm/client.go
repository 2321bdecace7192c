// Package llm calls the completion provider (OpenRouter by default)
// with the composed prompt. Availability failures are classified into
// ErrUnavailable so the orchestrator can drop the feature into its
// retrieval-only path instead of failing the batch.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/geoflag/geoflag/pkg/fn"
	"github.com/geoflag/geoflag/pkg/resilience"
)

// OpenRouterBaseURL is the default completion endpoint.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is the default completion model id.
const DefaultModel = "moonshotai/kimi-k2:free"

// ErrUnavailable marks provider-level failure: timeout, quota or token
// exhaustion, network error, or a 5xx response. Callers fall back to
// retrieval-only analysis when they see it.
var ErrUnavailable = errors.New("llm: provider unavailable")

// Phase is the client's position in one call's lifecycle.
type Phase string

const (
	PhaseReady     Phase = "READY"
	PhaseCalling   Phase = "CALLING"
	PhaseSucceeded Phase = "SUCCEEDED"
	PhaseFailed    Phase = "FAILED"
)

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures the completion client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration // per-call cap, the sole cancellation point
	MaxTokens   int
	Temperature float32
	RPS         float64 // request rate toward the provider, 0 disables limiting
}

// Client is a rate-limited, circuit-broken completion client.
type Client struct {
	api     completionAPI
	model   string
	timeout time.Duration
	maxTok  int
	temp    float32

	limiter *rate.Limiter
	breaker *resilience.Breaker
	log     *slog.Logger

	mu    sync.Mutex
	phase Phase
}

// New creates a Client against opts.BaseURL (OpenRouter when empty).
func New(opts Options, log *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenRouterBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL
	return newClient(openai.NewClientWithConfig(cfg), opts, log)
}

// NewWithAPI creates a Client over an injected completion API. Used in
// tests.
func NewWithAPI(api completionAPI, opts Options, log *slog.Logger) *Client {
	return newClient(api, opts, log)
}

func newClient(api completionAPI, opts Options, log *slog.Logger) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.3
	}
	if log == nil {
		log = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return &Client{
		api:     api,
		model:   opts.Model,
		timeout: opts.Timeout,
		maxTok:  opts.MaxTokens,
		temp:    opts.Temperature,
		limiter: limiter,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		log:     log,
		phase:   PhaseReady,
	}
}

// Phase reports the outcome of the most recent call.
func (c *Client) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Client) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Complete sends one system+user exchange and returns the completion
// text. At most one retry with backoff; after that, availability
// failures surface as ErrUnavailable.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	c.setPhase(PhaseCalling)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.setPhase(PhaseFailed)
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	result := fn.Retry(ctx, fn.RetryOpts{
		MaxAttempts: 2,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Jitter:      true,
	}, func(ctx context.Context) fn.Result[string] {
		var text string
		err := c.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			text, callErr = c.call(ctx, system, user)
			return callErr
		})
		return fn.FromPair(text, err)
	})

	text, err := result.Unwrap()
	if err != nil {
		c.setPhase(PhaseFailed)
		if unavailable(err) {
			c.log.Warn("llm provider unavailable", "model", c.model, "error", err)
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("llm: complete: %w", err)
	}

	c.setPhase(PhaseSucceeded)
	return text, nil
}

func (c *Client) call(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   c.maxTok,
		Temperature: c.temp,
		TopP:        0.9,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// unavailable classifies provider failure modes that warrant the
// retrieval-only fallback rather than a hard error.
func unavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusPaymentRequired:
			return true // quota or token exhaustion
		}
		return apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
