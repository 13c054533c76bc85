package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/inteltrace/inteltrace/internal/db"
)

// Service provides conversation persistence with get-or-create semantics.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a conversation service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "conversation")),
	}
}

// Resolve returns the conversation the send targets, creating one when no id
// is given. The returned flag reports whether a new record was created.
// Looking up an id owned by a different identity fails with ErrNotFound.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) (Conversation, bool, error) {
	pgOwnerID, err := dbpkg.ParseUUID(input.OwnerID)
	if err != nil {
		return Conversation{}, false, fmt.Errorf("invalid owner id: %w", err)
	}

	if strings.TrimSpace(input.ConversationID) == "" {
		var out Conversation
		err := s.pool.QueryRow(ctx,
			`INSERT INTO conversations (owner_id, title)
			 VALUES ($1, $2)
			 RETURNING id, owner_id, title, created_at, updated_at`,
			pgOwnerID, DeriveTitle(input.SeedContent),
		).Scan(&out.ID, &out.OwnerID, &out.Title, &out.CreatedAt, &out.UpdatedAt)
		if err != nil {
			return Conversation{}, false, fmt.Errorf("create conversation: %w", err)
		}
		return out, true, nil
	}

	pgID, err := dbpkg.ParseUUID(input.ConversationID)
	if err != nil {
		return Conversation{}, false, ErrNotFound
	}
	var out Conversation
	err = s.pool.QueryRow(ctx,
		`UPDATE conversations SET updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, owner_id, title, created_at, updated_at`,
		pgID, pgOwnerID,
	).Scan(&out.ID, &out.OwnerID, &out.Title, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, false, ErrNotFound
		}
		return Conversation{}, false, fmt.Errorf("resolve conversation: %w", err)
	}
	return out, false, nil
}

// Get returns the conversation when it exists and is owned by ownerID.
func (s *Service) Get(ctx context.Context, id, ownerID string) (Conversation, error) {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return Conversation{}, ErrNotFound
	}
	pgOwnerID, err := dbpkg.ParseUUID(ownerID)
	if err != nil {
		return Conversation{}, fmt.Errorf("invalid owner id: %w", err)
	}
	var out Conversation
	err = s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, created_at, updated_at
		 FROM conversations WHERE id = $1 AND owner_id = $2`,
		pgID, pgOwnerID,
	).Scan(&out.ID, &out.OwnerID, &out.Title, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return out, nil
}

// ListByOwner returns the owner's conversations, most recently active first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Conversation, error) {
	pgOwnerID, err := dbpkg.ParseUUID(ownerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, title, created_at, updated_at
		 FROM conversations WHERE owner_id = $1
		 ORDER BY updated_at DESC`,
		pgOwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]Conversation, 0)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
