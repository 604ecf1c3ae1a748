package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pathakanu/inboxpilot/internal/model"
	"gorm.io/gorm"
)

// Archive keeps completed reminders after they are cleared from the
// in-memory list.
type Archive struct {
	db *gorm.DB
}

// NewArchive wraps an open connection.
func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db}
}

// Save stores completed reminders. Pending ones are skipped.
func (a *Archive) Save(ctx context.Context, reminders []model.Reminder) error {
	rows := make([]model.ArchivedReminder, 0, len(reminders))
	for _, r := range reminders {
		if !r.Completed || r.CompletedAt == nil {
			continue
		}
		rows = append(rows, model.ArchivedReminder{
			ReminderID:   r.ID,
			EmailSubject: r.EmailSubject,
			Action:       r.Action,
			Due:          r.Due,
			CreatedAt:    r.CreatedAt,
			CompletedAt:  *r.CompletedAt,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := a.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("archiving %d reminders: %w", len(rows), err)
	}
	return nil
}

// List returns archived reminders, most recently completed first. A zero
// since returns everything.
func (a *Archive) List(ctx context.Context, since time.Time) ([]model.ArchivedReminder, error) {
	query := a.db.WithContext(ctx).Model(&model.ArchivedReminder{})
	if !since.IsZero() {
		query = query.Where("completed_at >= ?", since)
	}

	var rows []model.ArchivedReminder
	if err := query.Order("completed_at DESC, reminder_id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing archived reminders: %w", err)
	}
	return rows, nil
}
