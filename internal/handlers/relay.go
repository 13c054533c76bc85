package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/inteltrace/inteltrace/internal/accounts"
	"github.com/inteltrace/inteltrace/internal/auth"
	"github.com/inteltrace/inteltrace/internal/relay"
	"github.com/inteltrace/inteltrace/internal/session"
)

const (
	readLimit = 16 * 1024 * 1024
	pongWait  = 60 * time.Second
)

// AccountDirectory resolves a token subject to its account.
type AccountDirectory interface {
	GetByID(ctx context.Context, id string) (accounts.Account, error)
}

// MessageSink consumes inbound sendMessage events.
type MessageSink interface {
	HandleSend(ctx context.Context, sender accounts.Account, req relay.SendMessageRequest)
}

// RelayHandler is the websocket gateway: it authenticates the credential
// before the upgrade, enrolls the connection in the session hub, and feeds
// inbound frames to the ingestion pipeline.
type RelayHandler struct {
	hub       *session.Hub
	pipeline  MessageSink
	directory AccountDirectory
	jwtSecret string
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(log *slog.Logger, hub *session.Hub, pipeline MessageSink, directory AccountDirectory, jwtSecret string) *RelayHandler {
	return &RelayHandler{
		hub:       hub,
		pipeline:  pipeline,
		directory: directory,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; the JWT is the
			// access control, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.With(slog.String("handler", "relay")),
	}
}

// Register registers the websocket route. Auth happens inside Connect, before
// the upgrade, so the route is skipped by the HTTP JWT middleware.
func (h *RelayHandler) Register(e *echo.Echo) {
	e.GET("/ws", h.Connect)
}

// Connect authenticates the credential, upgrades to a websocket, and runs the
// connection's read loop until the peer goes away. Each authentication failure
// class is rejected distinctly before any upgrade or event flows.
func (h *RelayHandler) Connect(c echo.Context) error {
	account, err := h.authenticate(c)
	if err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return nil
	}

	conn := session.NewConnection(account.ID, ws)
	h.hub.Enroll(account.ID, conn)
	conn.Start()
	h.logger.Info("connection established",
		slog.String("user_id", account.ID),
		slog.String("connection_id", conn.ID),
	)

	defer func() {
		h.hub.Remove(conn)
		conn.Close(websocket.CloseNormalClosure, "")
		h.logger.Info("connection closed",
			slog.String("user_id", account.ID),
			slog.String("connection_id", conn.ID),
		)
	}()

	h.readLoop(c.Request().Context(), ws, account)
	return nil
}

func (h *RelayHandler) authenticate(c echo.Context) (accounts.Account, error) {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		header := strings.TrimSpace(c.Request().Header.Get("Authorization"))
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	userID, err := auth.VerifyToken(token, h.jwtSecret)
	if err != nil {
		if errors.Is(err, auth.ErrTokenMissing) {
			return accounts.Account{}, echo.NewHTTPError(http.StatusUnauthorized, "credential required")
		}
		return accounts.Account{}, echo.NewHTTPError(http.StatusUnauthorized, "credential rejected")
	}

	account, err := h.directory.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return accounts.Account{}, echo.NewHTTPError(http.StatusUnauthorized, auth.ErrIdentityNotFound.Error())
		}
		h.logger.Error("account lookup failed", slog.Any("error", err))
		return accounts.Account{}, echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve identity")
	}
	return account, nil
}

func (h *RelayHandler) readLoop(ctx context.Context, ws *websocket.Conn, account accounts.Account) {
	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read failed", slog.String("user_id", account.ID), slog.Any("error", err))
			}
			return
		}

		var frame relay.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.logger.Debug("malformed frame dropped", slog.String("user_id", account.ID))
			continue
		}

		switch frame.Event {
		case relay.EventSendMessage:
			var req relay.SendMessageRequest
			if err := json.Unmarshal(frame.Data, &req); err != nil {
				h.logger.Debug("malformed sendMessage dropped", slog.String("user_id", account.ID))
				continue
			}
			h.pipeline.HandleSend(ctx, account, req)
		default:
			h.logger.Debug("unknown event ignored",
				slog.String("user_id", account.ID),
				slog.String("event", frame.Event),
			)
		}
	}
}
