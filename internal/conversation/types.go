// Package conversation defines conversation records and get-or-create
// resolution rules.
package conversation

import (
	"errors"
	"strings"
	"time"
)

// Title derivation bounds.
const (
	titleMaxRunes   = 30
	titleTruncation = "..."
)

// ErrNotFound indicates the conversation does not exist or is not owned by
// the requesting identity. Ownership failures are deliberately
// indistinguishable from missing records.
var ErrNotFound = errors.New("conversation not found")

// Conversation is an owned, ordered thread of messages.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ResolveInput carries the parameters for Resolve.
type ResolveInput struct {
	// ConversationID is empty when the sender starts a new thread.
	ConversationID string
	OwnerID        string
	// SeedContent titles a newly created conversation.
	SeedContent string
}

// DeriveTitle produces the conversation title from the first message's
// leading text: a bounded prefix with a truncation marker when the content
// exceeds the bound.
func DeriveTitle(seed string) string {
	seed = strings.TrimSpace(seed)
	runes := []rune(seed)
	if len(runes) <= titleMaxRunes {
		return seed
	}
	return string(runes[:titleMaxRunes]) + titleTruncation
}
