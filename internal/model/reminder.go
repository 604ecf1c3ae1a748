package model

import "time"

// Reminder is an action item derived from an email or entered by the user.
// CompletedAt is set exactly when Completed is true.
type Reminder struct {
	ID           int64      `json:"id"`
	EmailSubject string     `json:"email_subject"`
	Action       string     `json:"action"`
	Due          string     `json:"due"`
	CreatedAt    time.Time  `json:"created_at"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ArchivedReminder is the persisted copy of a completed reminder that was
// cleared from the active list.
type ArchivedReminder struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	ReminderID   int64     `gorm:"index;not null" json:"reminder_id"`
	EmailSubject string    `gorm:"type:text" json:"email_subject"`
	Action       string    `gorm:"type:text;not null" json:"action"`
	Due          string    `gorm:"type:text" json:"due"`
	CreatedAt    time.Time `json:"created_at"`
	CompletedAt  time.Time `json:"completed_at"`
	ArchivedAt   time.Time `gorm:"autoCreateTime" json:"archived_at"`
}
