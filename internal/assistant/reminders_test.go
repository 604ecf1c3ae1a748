package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pathakanu/inboxpilot/internal/database"
	"github.com/pathakanu/inboxpilot/internal/reminder"
)

func newTestArchive(t *testing.T) *database.Archive {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database.NewArchive(db)
}

func TestSetReminderForEmailExtractsAction(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{respond: respondWith("ACTION: Attend meeting DATE: This Friday")}
	a := newTestAssistant(t, Deps{Generator: gen})
	loadEmails(a, sampleEmail("Meeting Friday", "Alice <alice@example.com>", "Let's meet on Friday at 10."))

	r, ok, err := a.SetReminderForEmail(context.Background(), 0, nil)
	if err != nil || !ok {
		t.Fatalf("expected reminder, got ok=%v err=%v", ok, err)
	}
	if r.ID != 1 || r.Action != "Attend meeting" || r.Due != "This Friday" || r.EmailSubject != "Meeting Friday" {
		t.Fatalf("unexpected reminder %+v", r)
	}
	if r.Completed || r.CompletedAt != nil {
		t.Fatalf("new reminder should be pending: %+v", r)
	}
	if !strings.Contains(gen.lastPrompt(), "Meeting Friday") {
		t.Fatalf("prompt should include the subject: %q", gen.lastPrompt())
	}
	if got := a.Reminders(); len(got) != 1 {
		t.Fatalf("expected 1 stored reminder, got %d", len(got))
	}
}

func TestSetReminderForEmailNoAction(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{respond: respondWith("NO_ACTION")}
	a := newTestAssistant(t, Deps{Generator: gen})
	loadEmails(a, sampleEmail("Your code", "noreply@example.com", "Your verification code is 123456"))

	_, ok, err := a.SetReminderForEmail(context.Background(), 0, nil)
	if err != nil || ok {
		t.Fatalf("expected no reminder, got ok=%v err=%v", ok, err)
	}
	if got := a.Reminders(); len(got) != 0 {
		t.Fatalf("expected no reminders, got %+v", got)
	}
}

func TestSetReminderForEmailGenerationFailure(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{respond: failWith(quotaErr())}
	a := newTestAssistant(t, Deps{Generator: gen})
	loadEmails(a, sampleEmail("Review doc", "bob@example.com", "Please review the document"))

	_, ok, err := a.SetReminderForEmail(context.Background(), 0, nil)
	if err != nil || ok {
		t.Fatalf("generation failure should yield no reminder, got ok=%v err=%v", ok, err)
	}
}

func TestSetReminderForEmailCustom(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{}
	a := newTestAssistant(t, Deps{Generator: gen})
	loadEmails(a, sampleEmail("Invoice", "billing@example.com", "Invoice attached"))

	r, ok, err := a.SetReminderForEmail(context.Background(), 0, &reminder.Extraction{})
	if err != nil || !ok {
		t.Fatalf("expected custom reminder, got ok=%v err=%v", ok, err)
	}
	if r.Action != defaultCustomAction || r.Due != reminder.DefaultDue {
		t.Fatalf("unexpected defaults %+v", r)
	}

	r, _, _ = a.SetReminderForEmail(context.Background(), 0, &reminder.Extraction{Action: " Pay invoice ", Due: "2025-10-01"})
	if r.Action != "Pay invoice" || r.Due != "2025-10-01" || r.ID != 2 {
		t.Fatalf("unexpected custom reminder %+v", r)
	}
	if gen.calls() != 0 {
		t.Fatalf("custom reminders must not call the model, got %d calls", gen.calls())
	}
}

func TestSetReminderForEmailInvalidIndex(t *testing.T) {
	t.Parallel()
	a := newTestAssistant(t, Deps{Generator: &fakeGenerator{}})

	for _, index := range []int{-1, 0, 3} {
		if _, _, err := a.SetReminderForEmail(context.Background(), index, nil); !errors.Is(err, ErrEmailNotFound) {
			t.Fatalf("index %d: expected ErrEmailNotFound, got %v", index, err)
		}
	}
}

func TestExtractRemindersSkipsInformational(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Email Subject: Weekly Newsletter") {
			return "NO_ACTION", nil
		}
		return "ACTION: Review document\nDATE: TOMORROW", nil
	}}
	a := newTestAssistant(t, Deps{Generator: gen})
	loadEmails(a,
		sampleEmail("Weekly Newsletter", "news@example.com", "This week in tech"),
		sampleEmail("Draft", "carol@example.com", "Please review the document"),
	)

	created := a.ExtractReminders(context.Background())
	if len(created) != 1 || created[0].EmailSubject != "Draft" {
		t.Fatalf("unexpected reminders %+v", created)
	}
	if created[0].Due != reminder.DefaultDue {
		t.Fatalf("unexpected due %q", created[0].Due)
	}
}

func TestExtractRemindersUsesBatchSnapshot(t *testing.T) {
	t.Parallel()
	var a *Assistant
	var swapped bool
	gen := &fakeGenerator{respond: func(string) (string, error) {
		if !swapped {
			swapped = true
			loadEmails(a,
				sampleEmail("Replacement one", "x@example.com", "other"),
				sampleEmail("Replacement two", "y@example.com", "other"),
			)
		}
		return "ACTION: Reply\nDATE: Monday", nil
	}}
	a = newTestAssistant(t, Deps{Generator: gen})
	loadEmails(a,
		sampleEmail("Invoice", "billing@example.com", "Pay invoice 42"),
		sampleEmail("Offsite", "boss@example.com", "Book the venue"),
	)

	created := a.ExtractReminders(context.Background())
	if len(created) != 2 {
		t.Fatalf("expected 2 reminders, got %+v", created)
	}
	if created[0].EmailSubject != "Invoice" || created[1].EmailSubject != "Offsite" {
		t.Fatalf("reminders should follow the batch being extracted, got %q and %q",
			created[0].EmailSubject, created[1].EmailSubject)
	}
}

func TestClearCompletedRemindersArchives(t *testing.T) {
	t.Parallel()
	archive := newTestArchive(t)
	a := newTestAssistant(t, Deps{Generator: &fakeGenerator{}, Archive: archive})
	loadEmails(a, sampleEmail("Meeting Friday", "alice@example.com", "Friday"))
	ctx := context.Background()

	first, _, _ := a.SetReminderForEmail(ctx, 0, &reminder.Extraction{Action: "Attend meeting", Due: "This Friday"})
	second, _, _ := a.SetReminderForEmail(ctx, 0, &reminder.Extraction{Action: "Send notes"})

	if !a.MarkReminderCompleted(first.ID) {
		t.Fatalf("expected completion of %d", first.ID)
	}
	if a.MarkReminderCompleted(99) {
		t.Fatalf("unknown id should not complete")
	}

	if got := a.ClearCompletedReminders(ctx); got != 1 {
		t.Fatalf("expected 1 cleared, got %d", got)
	}
	remaining := a.Reminders()
	if len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Fatalf("unexpected remaining reminders %+v", remaining)
	}

	archived, err := a.ArchivedReminders(ctx, time.Time{})
	if err != nil {
		t.Fatalf("list archive: %v", err)
	}
	if len(archived) != 1 || archived[0].ReminderID != first.ID || archived[0].Action != "Attend meeting" {
		t.Fatalf("unexpected archive %+v", archived)
	}

	next, _, _ := a.SetReminderForEmail(ctx, 0, &reminder.Extraction{Action: "Call back"})
	if next.ID <= second.ID {
		t.Fatalf("ids must keep increasing after clearing, got %d", next.ID)
	}
}

func TestArchivedRemindersWithoutArchive(t *testing.T) {
	t.Parallel()
	a := newTestAssistant(t, Deps{Generator: &fakeGenerator{}})

	got, err := a.ArchivedReminders(context.Background(), time.Time{})
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty archive, got %v %v", got, err)
	}
}
