package model

import "time"

// Email is a mailbox message as seen by the agents.
type Email struct {
	UID        uint32    `json:"uid"`
	MessageID  string    `json:"message_id,omitempty"`
	References string    `json:"references,omitempty"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	FromAddr   string    `json:"from_addr,omitempty"`
	Date       time.Time `json:"date"`
	Body       string    `json:"body"`
	Read       bool      `json:"read"`
	Flags      []string  `json:"flags,omitempty"`
}

// ReplyAddress returns the address replies should go to.
func (e Email) ReplyAddress() string {
	if e.FromAddr != "" {
		return e.FromAddr
	}
	return e.From
}
