package reminder

import (
	"sync"
	"time"

	"github.com/pathakanu/inboxpilot/internal/model"
)

// Store is the in-memory set of reminders for the running session. IDs come
// from a counter that is never rewound, so they stay unique after clearing.
type Store struct {
	mu        sync.RWMutex
	reminders []model.Reminder
	nextID    int64
	now       func() time.Time
}

// NewStore returns an empty store whose first reminder gets ID 1.
func NewStore() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// Create appends a pending reminder and returns it.
func (s *Store) Create(emailSubject, action, due string) model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := model.Reminder{
		ID:           s.nextID,
		EmailSubject: emailSubject,
		Action:       action,
		Due:          due,
		CreatedAt:    s.now(),
	}
	s.nextID++
	s.reminders = append(s.reminders, r)
	return r
}

// List returns every reminder, oldest first.
func (s *Store) List() []model.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAll(s.reminders)
}

// Pending returns the reminders not yet completed, oldest first.
func (s *Store) Pending() []model.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []model.Reminder
	for _, r := range s.reminders {
		if !r.Completed {
			pending = append(pending, clone(r))
		}
	}
	return pending
}

// Get looks up a reminder by ID.
func (s *Store) Get(id int64) (model.Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reminders {
		if r.ID == id {
			return clone(r), true
		}
	}
	return model.Reminder{}, false
}

// MarkCompleted completes the reminder with the given ID. It returns false
// only when no such reminder exists. Completing twice keeps the first
// completion time.
func (s *Store) MarkCompleted(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reminders {
		r := &s.reminders[i]
		if r.ID != id {
			continue
		}
		if !r.Completed {
			completedAt := s.now()
			r.Completed = true
			r.CompletedAt = &completedAt
		}
		return true
	}
	return false
}

// ClearCompleted drops every completed reminder and returns how many were
// removed.
func (s *Store) ClearCompleted() int {
	return len(s.RemoveCompleted())
}

// RemoveCompleted drops every completed reminder and returns them.
func (s *Store) RemoveCompleted() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []model.Reminder
	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if r.Completed {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	// Zero the tail so dropped reminders are not retained by the backing array.
	for i := len(kept); i < len(s.reminders); i++ {
		s.reminders[i] = model.Reminder{}
	}
	s.reminders = kept
	return removed
}

func clone(r model.Reminder) model.Reminder {
	if r.CompletedAt != nil {
		completedAt := *r.CompletedAt
		r.CompletedAt = &completedAt
	}
	return r
}

func cloneAll(in []model.Reminder) []model.Reminder {
	out := make([]model.Reminder, len(in))
	for i, r := range in {
		out[i] = clone(r)
	}
	return out
}
