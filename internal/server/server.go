// Package server assembles the echo HTTP server from registered handlers.
package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/inteltrace/inteltrace/internal/auth"
)

// Handler registers its routes on the echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

type Server struct {
	echo *echo.Echo
	addr string
}

var (
	jwtExactSkipPaths = map[string]struct{}{
		"/ping":   {},
		"/health": {},
		// The websocket gateway authenticates explicitly before the upgrade.
		"/ws": {},
	}
	jwtPrefixSkipPaths = []string{
		// Attachment refs are embedded in <img> tags, which cannot carry an
		// Authorization header.
		"/uploads/",
	}
)

func shouldSkipJWT(path string) bool {
	if _, ok := jwtExactSkipPaths[path]; ok {
		return true
	}
	for _, prefix := range jwtPrefixSkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// New builds the server with recovery, request logging, and JWT auth on every
// route except the skip list.
func New(log *slog.Logger, addr, jwtSecret string, handlers []Handler) *Server {
	if addr == "" {
		addr = ":5001"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(jwtSecret, func(c echo.Context) bool {
		return shouldSkipJWT(c.Request().URL.Path)
	}))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{echo: e, addr: addr}
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
