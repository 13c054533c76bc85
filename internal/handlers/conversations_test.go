package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteltrace/inteltrace/internal/conversation"
	"github.com/inteltrace/inteltrace/internal/message"
)

type fakeConversationLister struct {
	items []conversation.Conversation
	err   error
}

func (f *fakeConversationLister) ListByOwner(context.Context, string) ([]conversation.Conversation, error) {
	return f.items, f.err
}

type fakeMessageLister struct {
	items []message.Message
	err   error
}

func (f *fakeMessageLister) ListByConversation(context.Context, string, string) ([]message.Message, error) {
	return f.items, f.err
}

func authedContext(t *testing.T, e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID string) echo.Context {
	t.Helper()
	c := e.NewContext(req, rec)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     userID,
		"user_id": userID,
	})
	token.Valid = true
	c.Set("user", token)
	return c
}

func TestConversationsList(t *testing.T) {
	t.Parallel()

	lister := &fakeConversationLister{items: []conversation.Conversation{
		{ID: "conv-2", OwnerID: "alice", Title: "second", UpdatedAt: time.Now()},
		{ID: "conv-1", OwnerID: "alice", Title: "first", UpdatedAt: time.Now().Add(-time.Hour)},
	}}
	h := NewConversationsHandler(slog.Default(), lister, &fakeMessageLister{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	c := authedContext(t, e, req, rec, "alice")

	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []conversation.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "conv-2", got[0].ID)
}

func TestConversationsListMessagesErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unknown conversation", err: message.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "foreign conversation", err: message.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "backend failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewConversationsHandler(slog.Default(), &fakeConversationLister{}, &fakeMessageLister{err: tc.err})

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/conversations/conv-1/messages", nil)
			rec := httptest.NewRecorder()
			c := authedContext(t, e, req, rec, "alice")
			c.SetParamNames("id")
			c.SetParamValues("conv-1")

			err := h.ListMessages(c)
			require.Error(t, err)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.wantStatus, httpErr.Code)
		})
	}
}

func TestConversationsListMessages(t *testing.T) {
	t.Parallel()

	lister := &fakeMessageLister{items: []message.Message{
		{ID: "msg-1", ConversationID: "conv-1", Role: message.RoleUser, Content: "hello"},
		{ID: "msg-2", ConversationID: "conv-1", Role: message.RoleAssistant, Content: "reply"},
	}}
	h := NewConversationsHandler(slog.Default(), &fakeConversationLister{}, lister)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/conversations/conv-1/messages", nil)
	rec := httptest.NewRecorder()
	c := authedContext(t, e, req, rec, "alice")
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	require.NoError(t, h.ListMessages(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []message.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "msg-1", got[0].ID)
	assert.Equal(t, "msg-2", got[1].ID)
}
