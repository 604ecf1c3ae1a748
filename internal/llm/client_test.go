package llm

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

type fakeCompleter struct {
	errs     []error
	text     string
	requests []Request
}

func (f *fakeCompleter) Complete(_ context.Context, req Request) (string, error) {
	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.text, nil
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(backend Completer, rec *sleepRecorder) *Client {
	return New(backend, log.New(io.Discard, "", 0), WithSleep(rec.sleep))
}

func TestGenerateQuotaExhaustsRetries(t *testing.T) {
	t.Parallel()

	quotaErr := errors.New("POST /chat/completions: 429 Too Many Requests")
	backend := &fakeCompleter{errs: []error{quotaErr, quotaErr, quotaErr, quotaErr}}
	rec := &sleepRecorder{}

	text, err := newTestClient(backend, rec).Generate(context.Background(), "hello", 100)
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
	if !IsQuotaExceeded(err) {
		t.Fatalf("expected quota exceeded error, got %v", err)
	}
	if len(backend.requests) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(backend.requests))
	}
	want := []time.Duration{30 * time.Second, 60 * time.Second}
	if len(rec.waits) != len(want) {
		t.Fatalf("unexpected waits: %v", rec.waits)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Fatalf("wait %d = %s, want %s", i, rec.waits[i], want[i])
		}
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected user-facing quota message, got %q", err.Error())
	}
	if !errors.Is(err, quotaErr) {
		t.Fatalf("expected underlying error in chain")
	}
}

func TestGenerateRecoversAfterQuota(t *testing.T) {
	t.Parallel()

	backend := &fakeCompleter{
		errs: []error{errors.New("You exceeded your current Quota")},
		text: "  done \n",
	}
	rec := &sleepRecorder{}

	text, err := newTestClient(backend, rec).Generate(context.Background(), "hello", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "done" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
	if len(backend.requests) != 2 || len(rec.waits) != 1 {
		t.Fatalf("expected one retry, got %d requests and %d waits", len(backend.requests), len(rec.waits))
	}
}

func TestGenerateNonQuotaFailsImmediately(t *testing.T) {
	t.Parallel()

	backend := &fakeCompleter{errs: []error{errors.New("404 model not found")}}
	rec := &sleepRecorder{}

	_, err := newTestClient(backend, rec).Generate(context.Background(), "hello", 100)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if genErr.Kind != ServiceUnavailable {
		t.Fatalf("expected service unavailable, got %s", genErr.Kind)
	}
	if !strings.Contains(genErr.Message, "404 model not found") {
		t.Fatalf("expected underlying text in message, got %q", genErr.Message)
	}
	if len(backend.requests) != 1 || len(rec.waits) != 0 {
		t.Fatalf("expected a single attempt without waiting")
	}
}

func TestGenerateRequestShape(t *testing.T) {
	t.Parallel()

	backend := &fakeCompleter{text: "ok"}
	prompt := strings.Repeat("é", MaxPromptRunes+500)

	if _, err := newTestClient(backend, &sleepRecorder{}).Generate(context.Background(), prompt, 150); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := backend.requests[0]
	if n := utf8.RuneCountInString(req.Prompt); n != MaxPromptRunes {
		t.Fatalf("prompt has %d runes, want %d", n, MaxPromptRunes)
	}
	if req.MaxOutputTokens != 150 || req.Temperature != 0.7 || req.TopP != 0.8 || req.TopK != 40 {
		t.Fatalf("unexpected sampling config: %+v", req)
	}
}

func TestGenerateCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	backend := &fakeCompleter{errs: []error{errors.New("429"), errors.New("429"), errors.New("429")}}
	client := New(backend, nil, WithBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Generate(ctx, "hello", 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if IsQuotaExceeded(err) {
		t.Fatalf("cancellation must not be reported as quota exhaustion")
	}
	if len(backend.requests) != 1 {
		t.Fatalf("expected one attempt before cancellation, got %d", len(backend.requests))
	}
}

func TestGenerateWithoutBackend(t *testing.T) {
	t.Parallel()

	_, err := newUnconfiguredClient().Generate(context.Background(), "hello", 10)
	if !errors.Is(err, ErrClientNotInitialised) {
		t.Fatalf("expected ErrClientNotInitialised, got %v", err)
	}

	var nilClient *Client
	if _, err := nilClient.Generate(context.Background(), "hello", 10); !errors.Is(err, ErrClientNotInitialised) {
		t.Fatalf("expected ErrClientNotInitialised from nil client, got %v", err)
	}
}

func newUnconfiguredClient() *Client {
	return New(NewOpenAI("", "", 0), nil, WithSleep(func(context.Context, time.Duration) error { return nil }))
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	if got := UserMessage(errors.New("boom"), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := UserMessage(quotaExceeded(errors.New("429")), "fallback"); got != quotaMessage {
		t.Fatalf("expected quota message, got %q", got)
	}
}
