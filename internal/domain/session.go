// Package domain holds the consultation data model shared across packages.
package domain

import (
	"slices"
	"time"
)

// Session is one consultation: its transcript, the raw answers the user
// gave, and an advisory label for the protocol stage.
type Session struct {
	ID        string    `json:"id"`
	History   []Message `json:"history"`
	Answers   []string  `json:"answers"`
	Step      Step      `json:"step"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// alias the stored transcript.
func (s Session) Clone() Session {
	c := s
	c.History = slices.Clone(s.History)
	c.Answers = slices.Clone(s.Answers)
	return c
}

// LastTurn returns the most recent transcript entry.
func (s Session) LastTurn() (Message, bool) {
	if len(s.History) == 0 {
		return Message{}, false
	}
	return s.History[len(s.History)-1], true
}

// Alternates reports whether the transcript strictly alternates user and
// model turns starting with a user turn.
func (s Session) Alternates() bool {
	for i, m := range s.History {
		want := RoleUser
		if i%2 == 1 {
			want = RoleModel
		}
		if m.Role != want {
			return false
		}
	}
	return true
}
