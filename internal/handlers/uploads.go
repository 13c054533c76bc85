package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inteltrace/inteltrace/internal/attachment"
)

// AttachmentOpener resolves a stored attachment name back to its bytes.
type AttachmentOpener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// UploadsHandler serves stored attachment bytes.
type UploadsHandler struct {
	store  AttachmentOpener
	logger *slog.Logger
}

// NewUploadsHandler creates an UploadsHandler.
func NewUploadsHandler(log *slog.Logger, store AttachmentOpener) *UploadsHandler {
	return &UploadsHandler{
		store:  store,
		logger: log.With(slog.String("handler", "uploads")),
	}
}

// Register registers the upload routes.
func (h *UploadsHandler) Register(e *echo.Echo) {
	e.GET("/uploads/:name", h.Serve)
}

// Serve streams one stored attachment. The store rejects names with path
// separators before touching the filesystem.
func (h *UploadsHandler) Serve(c echo.Context) error {
	reader, mime, err := h.store.Open(c.Request().Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, attachment.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "attachment not found")
		}
		h.logger.Error("open attachment failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open attachment")
	}
	defer reader.Close()
	c.Response().Header().Set("Cache-Control", "private, max-age=86400")
	return c.Stream(http.StatusOK, mime, reader)
}
