package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/inteltrace/inteltrace/internal/db"
)

// Service persists and reads conversation messages.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a message service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "message")),
	}
}

// Append writes a single message to the log and returns the persisted record
// with its server-assigned id and timestamp. Prior entries are never touched;
// concurrent appends to the same conversation are serialized by the store and
// ordered by the assigned timestamps.
func (s *Service) Append(ctx context.Context, input AppendInput) (Message, error) {
	if !input.Role.Valid() {
		return Message{}, ErrInvalidRole
	}
	pgConvID, err := dbpkg.ParseUUID(input.ConversationID)
	if err != nil {
		return Message{}, fmt.Errorf("invalid conversation id: %w", err)
	}

	var (
		out   Message
		image pgtype.Text
		mask  pgtype.Text
	)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, role, content, image, segmentation_mask)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, conversation_id, role, content, image, segmentation_mask, created_at`,
		pgConvID, string(input.Role), input.Content,
		dbpkg.ToText(input.Image), dbpkg.ToText(input.SegmentationMask),
	).Scan(&out.ID, &out.ConversationID, &out.Role, &out.Content, &image, &mask, &out.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	out.Image = dbpkg.TextToString(image)
	out.SegmentationMask = dbpkg.TextToString(mask)
	return out, nil
}

// ListByConversation returns the conversation's messages oldest first. The
// requester must own the conversation: ErrForbidden otherwise, ErrNotFound
// when the conversation does not exist at all.
func (s *Service) ListByConversation(ctx context.Context, conversationID, requesterID string) ([]Message, error) {
	pgConvID, err := dbpkg.ParseUUID(conversationID)
	if err != nil {
		return nil, ErrNotFound
	}
	pgRequesterID, err := dbpkg.ParseUUID(requesterID)
	if err != nil {
		return nil, fmt.Errorf("invalid requester id: %w", err)
	}

	var ownerID pgtype.UUID
	err = s.pool.QueryRow(ctx,
		`SELECT owner_id FROM conversations WHERE id = $1`, pgConvID,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("check conversation owner: %w", err)
	}
	if ownerID != pgRequesterID {
		return nil, ErrForbidden
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, image, segmentation_mask, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at, id`,
		pgConvID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var (
			m     Message
			image pgtype.Text
			mask  pgtype.Text
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &image, &mask, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Image = dbpkg.TextToString(image)
		m.SegmentationMask = dbpkg.TextToString(mask)
		out = append(out, m)
	}
	return out, rows.Err()
}
