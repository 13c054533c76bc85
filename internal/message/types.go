// Package message provides the append-only per-conversation message log.
package message

import (
	"errors"
	"time"
)

// Role tags who authored a message. The set is closed.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

var (
	// ErrForbidden indicates the requester does not own the conversation.
	ErrForbidden = errors.New("conversation access forbidden")
	// ErrNotFound indicates the conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrInvalidRole indicates a role outside the closed user/assistant set.
	ErrInvalidRole = errors.New("invalid message role")
)

// Message is one persisted log entry. Wire keys are camelCase to match the
// client protocol.
type Message struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversationId"`
	Role             Role      `json:"role"`
	Content          string    `json:"content"`
	Image            string    `json:"image,omitempty"`
	SegmentationMask string    `json:"segmentationMask,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// AppendInput carries the fields for one append. ID and CreatedAt are always
// server-assigned.
type AppendInput struct {
	ConversationID string
	Role           Role
	Content        string
	// Image is the attachment reference persisted with the message, if any.
	Image string
	// SegmentationMask is the derived-annotation reference, if any.
	SegmentationMask string
}
