// Package accounts resolves authenticated identities to account records.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	dbpkg "github.com/inteltrace/inteltrace/internal/db"
)

// ErrAccountNotFound indicates no account matches the given id or username.
var ErrAccountNotFound = errors.New("account not found")

// Account is the authenticated principal. Resolved once at connection time
// and immutable for the connection's lifetime.
type Account struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service provides account lookup backed by postgres.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates an account service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "accounts")),
	}
}

// GetByID returns the account with the given id.
func (s *Service) GetByID(ctx context.Context, id string) (Account, error) {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return Account{}, ErrAccountNotFound
	}
	var out Account
	err = s.pool.QueryRow(ctx,
		`SELECT id, username, display_name, created_at FROM accounts WHERE id = $1`,
		pgID,
	).Scan(&out.ID, &out.Username, &out.DisplayName, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return out, nil
}

// GetByUsername returns the account with the given username.
func (s *Service) GetByUsername(ctx context.Context, username string) (Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, ErrAccountNotFound
	}
	var out Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, display_name, created_at FROM accounts WHERE username = $1`,
		username,
	).Scan(&out.ID, &out.Username, &out.DisplayName, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("get account by username: %w", err)
	}
	return out, nil
}

// EnsureSeedAccount creates the configured bootstrap account when the
// accounts table is empty. Credential issuance itself lives outside this
// service; the seed only guarantees the relay has someone to authenticate.
func (s *Service) EnsureSeedAccount(ctx context.Context, username, password, displayName string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return fmt.Errorf("seed account username/password required")
	}
	if password == "change-your-password-here" {
		s.logger.Warn("seed account password uses default placeholder; please update config.toml")
	}

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&count); err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = username
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO accounts (username, display_name, password_hash) VALUES ($1, $2, $3)`,
		username, displayName, string(hashed),
	)
	if err != nil {
		return fmt.Errorf("create seed account: %w", err)
	}
	s.logger.Info("seed account created", slog.String("username", username))
	return nil
}
