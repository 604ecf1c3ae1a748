// Package assistant coordinates the mailbox, the text generation client and
// the reminder and conversation state of one user session.
package assistant

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pathakanu/inboxpilot/internal/config"
	"github.com/pathakanu/inboxpilot/internal/conversation"
	"github.com/pathakanu/inboxpilot/internal/llm"
	"github.com/pathakanu/inboxpilot/internal/mailbox"
	"github.com/pathakanu/inboxpilot/internal/model"
	"github.com/pathakanu/inboxpilot/internal/reminder"
)

// ErrEmailNotFound is returned when an email index is outside the most
// recently fetched batch.
var ErrEmailNotFound = errors.New("email not found")

// Mailbox fetches recent messages.
type Mailbox interface {
	Fetch(ctx context.Context, limit int) ([]model.Email, error)
}

// Sender delivers outgoing mail.
type Sender interface {
	Send(ctx context.Context, msg mailbox.Message) error
}

// Archiver keeps reminders after they are cleared from the session.
type Archiver interface {
	Save(ctx context.Context, reminders []model.Reminder) error
	List(ctx context.Context, since time.Time) ([]model.ArchivedReminder, error)
}

// Notifier is a digest delivery channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, text string) error
}

// Deps are the collaborators of an Assistant. Only Generator is required;
// missing collaborators disable the features that need them.
type Deps struct {
	Generator reminder.Generator
	Mailbox   Mailbox
	Sender    Sender
	Archive   Archiver
	Notifiers []Notifier
	Logger    *log.Logger
}

// Assistant owns the reminder store and conversation memory of the session
// and runs every agent against the currently fetched emails.
type Assistant struct {
	gen       reminder.Generator
	mailbox   Mailbox
	sender    Sender
	archive   Archiver
	notifiers []Notifier
	extractor *reminder.Extractor
	reminders *reminder.Store
	memory    *conversation.Memory
	cron      *cron.Cron
	logger    *log.Logger
	now       func() time.Time

	maxEmails      int
	summaryLength  int
	digestSchedule string
	location       *time.Location

	mu     sync.RWMutex
	emails []model.Email
}

// New creates an Assistant for cfg.
func New(cfg *config.Config, deps Deps) *Assistant {
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gen := deps.Generator
	if gen == nil {
		gen = llm.New(nil, logger)
	}
	location := cfg.LocalTimezone
	if location == nil {
		location = time.Local
	}

	a := &Assistant{
		gen:            gen,
		mailbox:        deps.Mailbox,
		sender:         deps.Sender,
		archive:        deps.Archive,
		notifiers:      deps.Notifiers,
		extractor:      reminder.NewExtractor(gen, logger),
		reminders:      reminder.NewStore(),
		memory:         conversation.NewMemory(),
		cron:           cron.New(cron.WithLocation(location)),
		logger:         logger,
		now:            time.Now,
		maxEmails:      positive(cfg.MaxEmails, 10),
		summaryLength:  positive(cfg.SummaryLength, 100),
		digestSchedule: cfg.DigestSchedule,
		location:       location,
	}
	if a.digestSchedule == "" {
		a.digestSchedule = "0 8 * * *"
	}
	return a
}

// WithClock replaces the clock used for today's stats and relative due
// dates. It must be called before the Assistant is shared.
func (a *Assistant) WithClock(now func() time.Time) *Assistant {
	a.now = now
	a.extractor = a.extractor.WithClock(now)
	return a
}

// ProcessedEmail is one categorized and summarized message.
type ProcessedEmail struct {
	Index    int       `json:"index"`
	Subject  string    `json:"subject"`
	From     string    `json:"from"`
	Date     time.Time `json:"date"`
	Read     bool      `json:"read"`
	Category string    `json:"category"`
	Summary  string    `json:"summary"`
}

// SenderCount is one entry of the top senders list.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// Stats describes the fetched batch.
type Stats struct {
	Total      int           `json:"total_emails"`
	Unread     int           `json:"unread_count"`
	Read       int           `json:"read_count"`
	Today      int           `json:"today_count"`
	TopSenders []SenderCount `json:"top_senders"`
}

// Triage is the result of a fetch-and-process run.
type Triage struct {
	Emails        []ProcessedEmail `json:"emails"`
	Stats         Stats            `json:"stats"`
	CategoryStats map[string]int   `json:"category_stats"`
}

func emptyTriage() *Triage {
	return &Triage{
		Emails:        []ProcessedEmail{},
		Stats:         Stats{TopSenders: []SenderCount{}},
		CategoryStats: categoryCounts(nil),
	}
}

// FetchAndProcess fetches up to limit emails (MaxEmails when limit <= 0),
// categorizes and summarizes them and replaces the current batch. Email chat
// threads refer to batch indexes, so they are cleared. Fetch failures yield
// an empty result.
func (a *Assistant) FetchAndProcess(ctx context.Context, limit int) *Triage {
	if limit <= 0 {
		limit = a.maxEmails
	}
	if a.mailbox == nil {
		a.logger.Printf("assistant: fetch skipped: no mailbox configured")
		return emptyTriage()
	}

	emails, err := a.mailbox.Fetch(ctx, limit)
	if err != nil {
		a.logger.Printf("assistant: fetch emails: %v", err)
		return emptyTriage()
	}

	a.mu.Lock()
	a.emails = emails
	a.mu.Unlock()
	a.memory.ClearEmailThreads()

	if len(emails) == 0 {
		return emptyTriage()
	}

	result := &Triage{Emails: make([]ProcessedEmail, 0, len(emails))}
	categorize := a.newCategorizer()
	summarize := a.newSummarizer()
	for i, email := range emails {
		result.Emails = append(result.Emails, ProcessedEmail{
			Index:    i,
			Subject:  email.Subject,
			From:     email.From,
			Date:     email.Date,
			Read:     email.Read,
			Category: categorize(ctx, email),
			Summary:  summarize(ctx, email),
		})
	}
	result.Stats = a.computeStats(emails)
	result.CategoryStats = categoryCounts(result.Emails)
	return result
}

// Emails returns a copy of the current batch.
func (a *Assistant) Emails() []model.Email {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.Email, len(a.emails))
	copy(out, a.emails)
	return out
}

// Stats returns statistics for the current batch.
func (a *Assistant) Stats() Stats {
	return a.computeStats(a.Emails())
}

func (a *Assistant) email(index int) (model.Email, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.emails) {
		return model.Email{}, ErrEmailNotFound
	}
	return a.emails[index], nil
}

func (a *Assistant) computeStats(emails []model.Email) Stats {
	stats := Stats{Total: len(emails), TopSenders: []SenderCount{}}
	today := a.now().In(a.location)
	senders := make(map[string]int)

	for _, email := range emails {
		if email.Read {
			stats.Read++
		} else {
			stats.Unread++
		}
		if !email.Date.IsZero() {
			d := email.Date.In(a.location)
			if d.Year() == today.Year() && d.YearDay() == today.YearDay() {
				stats.Today++
			}
		}
		senders[email.From]++
	}

	for sender, count := range senders {
		stats.TopSenders = append(stats.TopSenders, SenderCount{Sender: sender, Count: count})
	}
	sort.Slice(stats.TopSenders, func(i, j int) bool {
		if stats.TopSenders[i].Count != stats.TopSenders[j].Count {
			return stats.TopSenders[i].Count > stats.TopSenders[j].Count
		}
		return stats.TopSenders[i].Sender < stats.TopSenders[j].Sender
	})
	if len(stats.TopSenders) > 5 {
		stats.TopSenders = stats.TopSenders[:5]
	}
	return stats
}

func positive(value, def int) int {
	if value <= 0 {
		return def
	}
	return value
}
