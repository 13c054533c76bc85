package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteltrace/inteltrace/internal/accounts"
	"github.com/inteltrace/inteltrace/internal/auth"
	"github.com/inteltrace/inteltrace/internal/relay"
	"github.com/inteltrace/inteltrace/internal/session"
)

const testSecret = "handler-test-secret"

type fakeDirectory struct {
	accounts map[string]accounts.Account
}

func (f *fakeDirectory) GetByID(_ context.Context, id string) (accounts.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}
	return account, nil
}

type nopSink struct{}

func (nopSink) HandleSend(context.Context, accounts.Account, relay.SendMessageRequest) {}

func newRelayHandler(directory *fakeDirectory) *RelayHandler {
	return NewRelayHandler(slog.Default(), session.NewHub(slog.Default()), nopSink{}, directory, testSecret)
}

func connectWith(t *testing.T, h *RelayHandler, target string, header http.Header) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	return h.Connect(e.NewContext(req, rec))
}

func TestConnectRejectsMissingCredential(t *testing.T) {
	t.Parallel()

	h := newRelayHandler(&fakeDirectory{})
	err := connectWith(t, h, "/ws", nil)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	assert.Equal(t, "credential required", httpErr.Message)
}

func TestConnectRejectsInvalidCredential(t *testing.T) {
	t.Parallel()

	h := newRelayHandler(&fakeDirectory{})
	err := connectWith(t, h, "/ws?token=not-a-jwt", nil)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	assert.Equal(t, "credential rejected", httpErr.Message)
}

func TestConnectRejectsUnknownIdentity(t *testing.T) {
	t.Parallel()

	token, _, err := auth.GenerateToken("ghost", testSecret, time.Minute)
	require.NoError(t, err)

	h := newRelayHandler(&fakeDirectory{})
	connErr := connectWith(t, h, "/ws?token="+token, nil)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, connErr, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	assert.Equal(t, auth.ErrIdentityNotFound.Error(), httpErr.Message)
}

func TestConnectAcceptsAuthorizationHeader(t *testing.T) {
	t.Parallel()

	token, _, err := auth.GenerateToken("alice", testSecret, time.Minute)
	require.NoError(t, err)

	directory := &fakeDirectory{accounts: map[string]accounts.Account{
		"alice": {ID: "alice", Username: "alice"},
	}}
	h := newRelayHandler(directory)

	// httptest's recorder cannot be hijacked, so a successful authentication
	// still fails at the upgrade; the handler reports that as a plain nil
	// after the upgrader writes its response, never as a 401.
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	err = connectWith(t, h, "/ws", header)
	assert.NoError(t, err)
}
