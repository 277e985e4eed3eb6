package convo

import (
	"time"

	"github.com/serenehq/serene/pkg/emotion"
)

// Roles recorded on conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a durable conversation thread.
type Session struct {
	ID        string
	UserID    string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn in a session. Immutable once appended.
type Message struct {
	ID         string
	SessionID  string
	Role       string
	Content    string
	Emotion    emotion.Label
	Confidence float64
	CreatedAt  time.Time
}

// EmergencyContact is the user's designated escalation contact.
type EmergencyContact struct {
	UserID               string
	Name                 string
	Address              string
	NotificationsEnabled bool
}

// AlertRecord is an append-only audit entry for one escalation decision.
// Created at most once per triggering request, never mutated.
type AlertRecord struct {
	ID             string
	UserID         string
	ContactAddress string
	AlertType      string
	Excerpt        string
	SentAt         time.Time
	WasDelivered   bool
}
