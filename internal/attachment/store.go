package attachment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// RefPrefix is the public path prefix stored attachments are served under.
const RefPrefix = "/uploads/"

// Stored describes a persisted attachment. Ref is the stable locator a later
// fetch resolves back to the bytes.
type Stored struct {
	Name    string `json:"name"`
	Ref     string `json:"ref"`
	Subtype string `json:"subtype"`
	Mime    string `json:"mime"`
	Size    int64  `json:"size"`
}

// Store validates inlined image payloads and persists the decoded bytes under
// the uploads directory. Stored content is immutable once written.
type Store struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// NewStore creates an attachment store rooted at dir, creating it if needed.
func NewStore(log *slog.Logger, dir string, maxBytes int64) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{
		dir:      abs,
		maxBytes: maxBytes,
		logger:   log.With(slog.String("service", "attachment")),
	}, nil
}

// Save decodes, validates, and persists an inline image payload. The file
// name is random and independent of any client-supplied name; every call
// yields a new, distinct reference even for byte-identical input.
func (s *Store) Save(_ context.Context, payload string) (Stored, error) {
	img, err := ParseImageDataURI(payload, s.maxBytes)
	if err != nil {
		return Stored{}, err
	}

	name := uuid.NewString() + "." + img.Subtype
	dest := filepath.Join(s.dir, name)
	if err := os.WriteFile(dest, img.Data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write attachment: %w", err)
	}

	s.logger.Debug("attachment stored",
		slog.String("name", name),
		slog.Int64("size", int64(len(img.Data))),
	)
	return Stored{
		Name:    name,
		Ref:     RefPrefix + name,
		Subtype: img.Subtype,
		Mime:    img.Mime,
		Size:    int64(len(img.Data)),
	}, nil
}

// Open returns a reader over a stored attachment along with its content type.
// Names containing path separators are rejected before touching the
// filesystem.
func (s *Store) Open(_ context.Context, name string) (io.ReadCloser, string, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), RefPrefix)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open attachment: %w", err)
	}
	mime := "application/octet-stream"
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		if m, ok := allowedSubtypes[strings.ToLower(name[idx+1:])]; ok {
			mime = m
		}
	}
	return f, mime, nil
}
