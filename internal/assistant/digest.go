package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathakanu/inboxpilot/internal/mailbox"
	"github.com/pathakanu/inboxpilot/internal/model"
)

// StartScheduler registers the reminder digest job and starts the cron loop.
func (a *Assistant) StartScheduler() error {
	_, err := a.cron.AddFunc(a.digestSchedule, func() {
		a.SendDigest(context.Background())
	})
	if err != nil {
		return fmt.Errorf("scheduling digest %q: %w", a.digestSchedule, err)
	}
	a.cron.Start()
	a.logger.Printf("scheduler: digest scheduled at %q (%s)", a.digestSchedule, a.location)
	return nil
}

// StopScheduler stops the cron scheduler and waits for a running digest.
func (a *Assistant) StopScheduler() {
	ctx := a.cron.Stop()
	<-ctx.Done()
}

// SendDigest delivers the pending reminders through every notifier and
// returns how many channels accepted it. Nothing is sent when no reminder
// is pending.
func (a *Assistant) SendDigest(ctx context.Context) int {
	pending := a.reminders.Pending()
	if len(pending) == 0 {
		return 0
	}
	text := FormatDigest(pending)

	delivered := 0
	for _, n := range a.notifiers {
		if err := n.Notify(ctx, text); err != nil {
			a.logger.Printf("scheduler: %s digest: %v", n.Name(), err)
			continue
		}
		delivered++
	}
	return delivered
}

// FormatDigest renders pending reminders as a numbered plain-text list.
func FormatDigest(pending []model.Reminder) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d pending reminder(s):\n", len(pending))
	for i, r := range pending {
		fmt.Fprintf(&sb, "%d. %s (due %s) - %s\n", i+1, r.Action, r.Due, r.EmailSubject)
	}
	return sb.String()
}

// EmailNotifier delivers the digest by mail, usually to the account owner.
type EmailNotifier struct {
	sender Sender
	to     string
}

// NewEmailNotifier creates a notifier mailing digests to to.
func NewEmailNotifier(sender Sender, to string) *EmailNotifier {
	return &EmailNotifier{sender: sender, to: to}
}

// Name identifies the channel in logs.
func (n *EmailNotifier) Name() string {
	return "email"
}

// Notify mails text as the reminder digest.
func (n *EmailNotifier) Notify(ctx context.Context, text string) error {
	return n.sender.Send(ctx, mailbox.Message{
		To:      n.to,
		Subject: "Your reminder digest",
		Body:    text,
	})
}
