// Package relay implements the realtime message relay: it ingests sendMessage
// events from authenticated connections, persists them, and pushes results
// back to the originating identity's channel.
package relay

import "encoding/json"

// Wire event names, client-compatible.
const (
	EventSendMessage     = "sendMessage"
	EventMessageReceived = "messageReceived"
	EventNewConversation = "newConversation"
	EventMessageError    = "messageError"
)

// InboundFrame is one client-to-server event.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutboundFrame is one server-to-client event.
type OutboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SendMessageRequest is the payload of a sendMessage event. A send must carry
// text content or an image; conversationId is absent for a new thread.
type SendMessageRequest struct {
	Content        string `json:"content" validate:"required_without=Image"`
	Image          string `json:"image,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ErrorPayload is the data of a messageError event.
type ErrorPayload struct {
	Message string `json:"message"`
}
