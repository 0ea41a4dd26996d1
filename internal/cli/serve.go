package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msomdec/contacts-api/internal/cache"
	"github.com/msomdec/contacts-api/internal/config"
	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/handler"
	"github.com/msomdec/contacts-api/internal/logging"
	"github.com/msomdec/contacts-api/internal/mail"
	"github.com/msomdec/contacts-api/internal/metrics"
	"github.com/msomdec/contacts-api/internal/repository/objectstore"
	"github.com/msomdec/contacts-api/internal/service"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Apply pending migrations and serve the HTTP API until SIGINT or
SIGTERM, then shut down gracefully.`,
		RunE: runServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// loadConfig reads and validates the configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, sqlDB, err := openStore(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied", "driver", cfg.DB.Driver)

	sessions, closeCache, err := newSessionCache(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache.Close()

	transport, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}
	// Closed after the server has shut down, so queued emails are flushed.
	dispatcher := mail.NewDispatcher(transport, cfg.Mail.Workers, cfg.Mail.QueueSize, logger)
	defer dispatcher.Close()

	files, err := newFileStore(ctx, cfg, store)
	if err != nil {
		return err
	}

	tokens, err := service.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.TTL)
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(
		store.Accounts(),
		service.NewPasswordHasher(cfg.Bcrypt.Cost),
		tokens,
		sessions,
		dispatcher,
		service.GravatarProvider{Default: "identicon"},
		files,
		service.AccountConfig{
			SessionCacheTTL: cfg.Cache.TTL,
			AvatarBaseURL:   cfg.HTTP.PublicURL + "/api/avatars",
		},
		logger,
	)
	contacts := service.NewContactService(store.Contacts(), nil)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, accounts, contacts, sqlDB, metrics.NewRegistry())

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Instrument(handler.SecurityHeaders(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// newSessionCache builds the configured cache tier, wrapped for metrics. The
// returned closer releases its resources.
func newSessionCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (domain.SessionCache, io.Closer, error) {
	switch cfg.Driver {
	case "redis":
		r, err := cache.DialRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("redis session cache: %w", err)
		}
		return cache.Instrumented{SessionCache: r}, r, nil
	case "none":
		return cache.Instrumented{SessionCache: cache.Noop{}}, cache.Noop{}, nil
	default:
		m := cache.NewMemory(time.Minute)
		return cache.Instrumented{SessionCache: m}, m, nil
	}
}

func newMailer(cfg *config.Config, logger *slog.Logger) (domain.Mailer, error) {
	composer := mail.Composer{BaseURL: cfg.HTTP.PublicURL, AppName: cfg.Mail.FromName}
	if cfg.Mail.Driver == "smtp" {
		m, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
		}, composer)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return mail.LogMailer{Composer: composer, Logger: logger}, nil
}

func newFileStore(ctx context.Context, cfg *config.Config, store domain.Store) (domain.FileStore, error) {
	if cfg.Avatar.Store != "s3" {
		return store.FileStore(), nil
	}
	s, err := objectstore.New(ctx, objectstore.Config{
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 avatar store: %w", err)
	}
	return s, nil
}
