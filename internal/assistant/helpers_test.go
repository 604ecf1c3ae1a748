package assistant

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pathakanu/inboxpilot/internal/config"
	"github.com/pathakanu/inboxpilot/internal/llm"
	"github.com/pathakanu/inboxpilot/internal/mailbox"
	"github.com/pathakanu/inboxpilot/internal/model"
)

var testNow = time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return "", unavailableErr("no response scripted")
	}
	return respond(prompt)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func respondWith(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func failWith(err error) func(string) (string, error) {
	return func(string) (string, error) { return "", err }
}

func quotaErr() error {
	return &llm.GenerationError{Kind: llm.QuotaExceeded, Message: "AI quota exceeded (429)."}
}

func unavailableErr(msg string) error {
	return &llm.GenerationError{Kind: llm.ServiceUnavailable, Message: "AI service unavailable: " + msg, Err: errors.New(msg)}
}

type fakeMailbox struct {
	emails []model.Email
	err    error
	limit  int
}

func (f *fakeMailbox) Fetch(_ context.Context, limit int) ([]model.Email, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.emails, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailbox.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailbox.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeNotifier struct {
	name  string
	err   error
	texts []string
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxEmails:      10,
		SummaryLength:  100,
		DigestSchedule: "0 8 * * *",
		LocalTimezone:  time.UTC,
	}
}

func newTestAssistant(t *testing.T, deps Deps) *Assistant {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	return New(testConfig(), deps).WithClock(func() time.Time { return testNow })
}

// loadEmails installs a batch without going through a mailbox.
func loadEmails(a *Assistant, emails ...model.Email) {
	a.mu.Lock()
	a.emails = emails
	a.mu.Unlock()
}

func sampleEmail(subject, from, body string) model.Email {
	addr := from
	if start := strings.Index(from, "<"); start >= 0 {
		addr = strings.Trim(from[start:], "<>")
	}
	return model.Email{
		Subject:  subject,
		From:     from,
		FromAddr: addr,
		Body:     body,
		Date:     testNow.Add(-time.Hour),
	}
}

func mailboxMessage(to string) mailbox.Message {
	return mailbox.Message{To: to, Subject: "Hello", Body: "Hi"}
}
