package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/inteltrace/inteltrace/internal/accounts"
	"github.com/inteltrace/inteltrace/internal/analysis"
	"github.com/inteltrace/inteltrace/internal/attachment"
	"github.com/inteltrace/inteltrace/internal/config"
	"github.com/inteltrace/inteltrace/internal/conversation"
	"github.com/inteltrace/inteltrace/internal/db"
	"github.com/inteltrace/inteltrace/internal/handlers"
	"github.com/inteltrace/inteltrace/internal/logger"
	"github.com/inteltrace/inteltrace/internal/message"
	"github.com/inteltrace/inteltrace/internal/relay"
	"github.com/inteltrace/inteltrace/internal/server"
	"github.com/inteltrace/inteltrace/internal/session"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			accounts.NewService,
			conversation.NewService,
			message.NewService,
			session.NewHub,
			provideAttachmentStore,
			provideAnalyzer,
			providePipeline,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideConversationsHandler),
			provideServerHandler(provideUploadsHandler),
			provideServerHandler(provideRelayHandler),
			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideAttachmentStore(log *slog.Logger, cfg config.Config) (*attachment.Store, error) {
	return attachment.NewStore(log, cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
}

func provideAnalyzer(cfg config.Config) analysis.Analyzer {
	return analysis.NewStub(cfg.Analysis.DelayDuration())
}

func providePipeline(log *slog.Logger, conversations *conversation.Service, messages *message.Service, store *attachment.Store, analyzer analysis.Analyzer, hub *session.Hub) *relay.Pipeline {
	return relay.NewPipeline(log, conversations, messages, store, analyzer, hub)
}

func provideConversationsHandler(log *slog.Logger, conversations *conversation.Service, messages *message.Service) *handlers.ConversationsHandler {
	return handlers.NewConversationsHandler(log, conversations, messages)
}

func provideUploadsHandler(log *slog.Logger, store *attachment.Store) *handlers.UploadsHandler {
	return handlers.NewUploadsHandler(log, store)
}

func provideRelayHandler(log *slog.Logger, hub *session.Hub, pipeline *relay.Pipeline, accountService *accounts.Service, cfg config.Config) *handlers.RelayHandler {
	return handlers.NewRelayHandler(log, hub, pipeline, accountService, cfg.Auth.JWTSecret)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Handlers)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config, accountService *accounts.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := accountService.EnsureSeedAccount(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.DisplayName); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
