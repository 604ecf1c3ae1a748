// Package llm wraps the hosted text-generation endpoint with the retry policy
// and failure classification every agent relies on.
package llm

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/pathakanu/inboxpilot/internal/textutil"
)

const (
	// MaxPromptRunes bounds every prompt sent to the endpoint.
	MaxPromptRunes = 4000

	defaultMaxAttempts = 3
	defaultBaseDelay   = 30 * time.Second
)

// Request is a single completion request handed to a Completer.
type Request struct {
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TopK            int
}

// Completer performs one raw call against a text-generation backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client submits prompts to a Completer, retrying on quota errors with
// exponential backoff.
type Client struct {
	backend     Completer
	logger      *log.Logger
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option customises a Client.
type Option func(*Client)

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// WithBaseDelay sets the first backoff interval.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// New returns a Client over backend. A nil logger discards output.
func New(backend Completer, logger *log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Client{
		backend:     backend,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the generated text for prompt. Any failure is a
// *GenerationError.
func (c *Client) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if c == nil || c.backend == nil {
		return "", unavailable(ErrClientNotInitialised)
	}

	req := Request{
		Prompt:          textutil.Truncate(prompt, MaxPromptRunes),
		MaxOutputTokens: maxOutputTokens,
		Temperature:     0.7,
		TopP:            0.8,
		TopK:            40,
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		text, err := c.backend.Complete(ctx, req)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err
		c.logger.Printf("llm: attempt %d/%d failed: %v", attempt+1, c.maxAttempts, err)

		if !isQuotaError(err) {
			return "", unavailable(err)
		}
		if attempt == c.maxAttempts-1 {
			break
		}

		wait := c.baseDelay << attempt
		c.logger.Printf("llm: quota hit, retrying in %s", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return "", unavailable(err)
		}
	}

	return "", quotaExceeded(lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
