package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/inteltrace/inteltrace/internal/auth"
	"github.com/inteltrace/inteltrace/internal/conversation"
	"github.com/inteltrace/inteltrace/internal/message"
)

// ConversationLister exposes the conversation retrieval surface.
type ConversationLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]conversation.Conversation, error)
}

// MessageLister exposes the ownership-checked message retrieval surface.
type MessageLister interface {
	ListByConversation(ctx context.Context, conversationID, requesterID string) ([]message.Message, error)
}

// ConversationsHandler serves the sidebar listing and per-conversation history.
type ConversationsHandler struct {
	conversations ConversationLister
	messages      MessageLister
	logger        *slog.Logger
}

// NewConversationsHandler creates a ConversationsHandler.
func NewConversationsHandler(log *slog.Logger, conversations ConversationLister, messages MessageLister) *ConversationsHandler {
	return &ConversationsHandler{
		conversations: conversations,
		messages:      messages,
		logger:        log.With(slog.String("handler", "conversations")),
	}
}

// Register registers the conversation routes.
func (h *ConversationsHandler) Register(e *echo.Echo) {
	e.GET("/conversations", h.List)
	e.GET("/conversations/:id/messages", h.ListMessages)
}

// List returns the requester's conversations, newest-updated first.
func (h *ConversationsHandler) List(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	items, err := h.conversations.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("list conversations failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list conversations")
	}
	return c.JSON(http.StatusOK, items)
}

// ListMessages returns one conversation's messages, oldest first. Requesters
// who do not own the conversation get 403; unknown conversations get 404.
func (h *ConversationsHandler) ListMessages(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	conversationID := strings.TrimSpace(c.Param("id"))
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	items, err := h.messages.ListByConversation(c.Request().Context(), conversationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, message.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		case errors.Is(err, message.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "not allowed to read conversation")
		default:
			h.logger.Error("list messages failed", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
		}
	}
	return c.JSON(http.StatusOK, items)
}
