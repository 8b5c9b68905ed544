package domain

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single turn in a consultation transcript. The transcript is
// replayed to the completion provider verbatim, so order matters.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UserTurn builds a user message stamped with the given time.
func UserTurn(text string, at time.Time) Message {
	return Message{Role: RoleUser, Text: text, Timestamp: at}
}

// ModelTurn builds a model message stamped with the given time.
func ModelTurn(text string, at time.Time) Message {
	return Message{Role: RoleModel, Text: text, Timestamp: at}
}
