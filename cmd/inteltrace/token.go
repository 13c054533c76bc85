package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inteltrace/inteltrace/internal/accounts"
	"github.com/inteltrace/inteltrace/internal/auth"
	"github.com/inteltrace/inteltrace/internal/config"
	"github.com/inteltrace/inteltrace/internal/db"
	"github.com/inteltrace/inteltrace/internal/logger"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
}

// tokenCmd mints a connection credential for an existing account. Operators
// hand the printed token to a client; there is no login endpoint.
var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Mint a connection credential for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	expiresIn, err := cfg.Auth.ExpiresDuration()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	account, err := accounts.NewService(logger.L, pool).GetByUsername(ctx, args[0])
	if err != nil {
		return err
	}

	token, expiresAt, err := auth.GenerateToken(account.ID, cfg.Auth.JWTSecret, expiresIn)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
