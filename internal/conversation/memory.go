// Package conversation keeps the bounded chat history used to build
// multi-turn prompts.
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pathakanu/inboxpilot/internal/model"
)

const (
	// GeneralKey is the thread of the mailbox-wide chat.
	GeneralKey = "general"

	// GeneralPairs is how many exchanges the general chat keeps.
	GeneralPairs = 10
	// EmailPairs is how many exchanges a per-email chat keeps.
	EmailPairs = 5

	defaultRenderPairs = 3
	emailKeyPrefix     = "email:"
)

// EmailKey returns the thread key for the email at index in the current fetch.
func EmailKey(index int) string {
	return fmt.Sprintf("%s%d", emailKeyPrefix, index)
}

// IsEmailKey reports whether key belongs to a per-email thread.
func IsEmailKey(key string) bool {
	return strings.HasPrefix(key, emailKeyPrefix)
}

// Memory stores conversation threads by key. Each thread keeps only its most
// recent pairs; older entries are dropped without archival.
type Memory struct {
	mu           sync.Mutex
	threads      map[string][]model.ConversationEntry
	caps         map[string]int
	defaultPairs int
	now          func() time.Time
}

// Option customises a Memory.
type Option func(*Memory)

// WithCap sets the pair limit for a single key.
func WithCap(key string, pairs int) Option {
	return func(m *Memory) {
		m.caps[key] = pairs
	}
}

// WithDefaultCap sets the pair limit for keys without their own cap.
func WithDefaultCap(pairs int) Option {
	return func(m *Memory) {
		m.defaultPairs = pairs
	}
}

// NewMemory returns a Memory keeping GeneralPairs exchanges for GeneralKey
// and EmailPairs for every other key.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		threads:      make(map[string][]model.ConversationEntry),
		caps:         map[string]int{GeneralKey: GeneralPairs},
		defaultPairs: EmailPairs,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Append records one user/assistant exchange under key.
func (m *Memory) Append(key, userMessage, assistantMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now()
	thread := append(m.threads[key],
		model.ConversationEntry{Role: model.RoleUser, Content: userMessage, Timestamp: ts},
		model.ConversationEntry{Role: model.RoleAssistant, Content: assistantMessage, Timestamp: ts},
	)

	if limit := 2 * m.capFor(key); len(thread) > limit {
		trimmed := make([]model.ConversationEntry, limit)
		copy(trimmed, thread[len(thread)-limit:])
		thread = trimmed
	}
	m.threads[key] = thread
}

// Get returns a copy of the full thread for key.
func (m *Memory) Get(key string) []model.ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread := m.threads[key]
	out := make([]model.ConversationEntry, len(thread))
	copy(out, thread)
	return out
}

// Clear discards the thread for key and reports whether it held anything.
func (m *Memory) Clear(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed := len(m.threads[key]) > 0
	delete(m.threads, key)
	return existed
}

// ClearPrefix discards every thread whose key starts with prefix and returns
// how many were dropped.
func (m *Memory) ClearPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for key := range m.threads {
		if strings.HasPrefix(key, prefix) {
			delete(m.threads, key)
			dropped++
		}
	}
	return dropped
}

// ClearEmailThreads drops every per-email thread.
func (m *Memory) ClearEmailThreads() int {
	return m.ClearPrefix(emailKeyPrefix)
}

// RenderContext flattens the last maxPairs exchanges of key into prompt text.
// maxPairs <= 0 means 3.
func (m *Memory) RenderContext(key string, maxPairs int) string {
	if maxPairs <= 0 {
		maxPairs = defaultRenderPairs
	}

	m.mu.Lock()
	thread := m.threads[key]
	if n := 2 * maxPairs; len(thread) > n {
		thread = thread[len(thread)-n:]
	}
	var sb strings.Builder
	for _, entry := range thread {
		switch entry.Role {
		case model.RoleUser:
			sb.WriteString("User: ")
		default:
			sb.WriteString("Assistant: ")
		}
		sb.WriteString(entry.Content)
		sb.WriteString("\n")
		if entry.Role == model.RoleAssistant {
			sb.WriteString("\n")
		}
	}
	m.mu.Unlock()

	return sb.String()
}

func (m *Memory) capFor(key string) int {
	if pairs, ok := m.caps[key]; ok && pairs > 0 {
		return pairs
	}
	return m.defaultPairs
}
