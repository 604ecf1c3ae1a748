package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/pathakanu/inboxpilot/internal/model"
	"github.com/pathakanu/inboxpilot/internal/reminder"
)

const defaultCustomAction = "Follow up on email"

// SetReminderForEmail creates a reminder for the email at index. A custom
// extraction bypasses the model. The bool is false when the email needs no
// action.
func (a *Assistant) SetReminderForEmail(ctx context.Context, index int, custom *reminder.Extraction) (model.Reminder, bool, error) {
	email, err := a.email(index)
	if err != nil {
		return model.Reminder{}, false, err
	}
	created, ok := a.createReminder(ctx, email, custom)
	return created, ok, nil
}

// ExtractReminders runs extraction over a snapshot of the current batch and
// returns the reminders created.
func (a *Assistant) ExtractReminders(ctx context.Context) []model.Reminder {
	var created []model.Reminder
	for _, email := range a.Emails() {
		if r, ok := a.createReminder(ctx, email, nil); ok {
			created = append(created, r)
		}
	}
	return created
}

func (a *Assistant) createReminder(ctx context.Context, email model.Email, custom *reminder.Extraction) (model.Reminder, bool) {
	var extraction reminder.Extraction
	if custom != nil {
		extraction = reminder.Extraction{
			Action: strings.TrimSpace(custom.Action),
			Due:    strings.TrimSpace(custom.Due),
		}
		if extraction.Action == "" {
			extraction.Action = defaultCustomAction
		}
		if extraction.Due == "" {
			extraction.Due = reminder.DefaultDue
		}
	} else {
		var ok bool
		extraction, ok = a.extractor.Extract(ctx, email)
		if !ok {
			return model.Reminder{}, false
		}
	}

	created := a.reminders.Create(email.Subject, extraction.Action, extraction.Due)
	a.logger.Printf("reminder: #%d %q due %s", created.ID, created.Action, created.Due)
	return created, true
}

// Reminders returns every reminder in creation order.
func (a *Assistant) Reminders() []model.Reminder {
	return a.reminders.List()
}

// PendingReminders returns the reminders not yet completed.
func (a *Assistant) PendingReminders() []model.Reminder {
	return a.reminders.Pending()
}

// MarkReminderCompleted completes the reminder with id.
func (a *Assistant) MarkReminderCompleted(id int64) bool {
	return a.reminders.MarkCompleted(id)
}

// ClearCompletedReminders removes completed reminders and archives them.
// An archive failure is logged; the reminders are still removed.
func (a *Assistant) ClearCompletedReminders(ctx context.Context) int {
	removed := a.reminders.RemoveCompleted()
	if len(removed) > 0 && a.archive != nil {
		if err := a.archive.Save(ctx, removed); err != nil {
			a.logger.Printf("reminder: archive %d cleared reminders: %v", len(removed), err)
		}
	}
	return len(removed)
}

// ArchivedReminders lists archived reminders completed at or after since.
func (a *Assistant) ArchivedReminders(ctx context.Context, since time.Time) ([]model.ArchivedReminder, error) {
	if a.archive == nil {
		return []model.ArchivedReminder{}, nil
	}
	return a.archive.List(ctx, since)
}
