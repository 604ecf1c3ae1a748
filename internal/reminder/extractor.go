// Package reminder turns emails into action items and tracks their
// completion.
package reminder

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/pathakanu/inboxpilot/internal/model"
	"github.com/pathakanu/inboxpilot/internal/textutil"
)

const (
	// DefaultDue is used when the model names no date.
	DefaultDue = "TOMORROW"

	maxBodyRunes    = 1000
	maxOutputTokens = 150
)

// Generator produces text for a prompt. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// Extraction is a normalized action/due pair.
type Extraction struct {
	Action string `json:"action"`
	Due    string `json:"due"`
}

// Extractor asks the model whether an email needs follow-up.
type Extractor struct {
	gen    Generator
	now    func() time.Time
	logger *log.Logger
}

// NewExtractor returns an Extractor using the system clock.
func NewExtractor(gen Generator, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Extractor{gen: gen, now: time.Now, logger: logger}
}

// WithClock returns a copy of e that resolves relative dates against now.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	clone := *e
	clone.now = now
	return &clone
}

// Extract returns the action required by email, if any. Generation failures
// are logged and reported as no action.
func (e *Extractor) Extract(ctx context.Context, email model.Email) (Extraction, bool) {
	response, err := e.gen.Generate(ctx, buildPrompt(email), maxOutputTokens)
	if err != nil {
		e.logger.Printf("reminder: extraction for %q skipped: %v", email.Subject, err)
		return Extraction{}, false
	}
	return e.Parse(response)
}

var (
	noActionPattern   = regexp.MustCompile(`(?i)NO_ACTION`)
	actionPattern     = regexp.MustCompile(`(?i)\bACTION:\s*(.+)`)
	datePattern       = regexp.MustCompile(`(?i)\bDATE:\s*(.+)`)
	inlineDatePattern = regexp.MustCompile(`(?i)\bDATE:`)
	labelPattern      = regexp.MustCompile(`(?i)\b(?:ACTION|DATE):`)
)

// Parse interprets a model response. NO_ACTION anywhere in the response
// wins over an ACTION line.
func (e *Extractor) Parse(response string) (Extraction, bool) {
	if noActionPattern.MatchString(response) {
		return Extraction{}, false
	}

	match := actionPattern.FindStringSubmatch(response)
	if match == nil {
		return Extraction{}, false
	}
	action := firstLine(match[1])
	if loc := inlineDatePattern.FindStringIndex(action); loc != nil {
		action = action[:loc[0]]
	}
	action = strings.TrimSpace(labelPattern.ReplaceAllString(action, ""))
	if action == "" {
		return Extraction{}, false
	}

	due := DefaultDue
	if m := datePattern.FindStringSubmatch(response); m != nil {
		due = strings.TrimSpace(labelPattern.ReplaceAllString(firstLine(m[1]), ""))
	}
	switch strings.ToUpper(due) {
	case "", "ASAP", "SOON":
		due = e.now().AddDate(0, 0, 1).Format("2006-01-02")
	}

	return Extraction{Action: action, Due: due}, true
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func buildPrompt(email model.Email) string {
	return fmt.Sprintf(`Analyze this email and determine if it requires any action or follow-up.

Email Subject: %s
From: %s
Content: %s

If this email requires action (like a meeting, task, deadline, or follow-up),
respond with:
ACTION: [clear action description]
DATE: [specific date if mentioned, otherwise use "TOMORROW"]

If it's just informational (like newsletters, notifications, authentication codes),
respond with: NO_ACTION

Examples:
- "Meeting on Friday" -> ACTION: Attend meeting DATE: This Friday
- "Please review the document" -> ACTION: Review document DATE: TOMORROW
- "Your verification code is 123456" -> NO_ACTION
- "Newsletter update" -> NO_ACTION

Your analysis:`,
		textutil.Fallback(email.Subject, "No subject"),
		textutil.Fallback(email.From, "Unknown sender"),
		textutil.Truncate(textutil.Fallback(email.Body, "No content"), maxBodyRunes),
	)
}
