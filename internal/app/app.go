package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"voxnote/config"
	"voxnote/internal/aiclient"
	"voxnote/internal/auth"
	"voxnote/internal/db"
	"voxnote/internal/history"
	"voxnote/internal/pipeline"
	"voxnote/internal/storage"
)

// Services are the components shared by the gateway and the recorder client.
type Services struct {
	Config   *config.Config
	Auth     *auth.Service
	Pipeline *pipeline.Pipeline
	History  *history.Repository
	AIClient *aiclient.AIClient

	closers []func() error
}

// Build wires the identity, storage, history and processing components from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Services{Config: cfg}

	authService, err := newAuthService(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.Auth = authService

	backend, err := newStorageBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := newHistoryStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		s.closers = append(s.closers, closeStore)
	}
	s.History = history.NewRepository(store, logger.WithField("component", "history"))

	s.AIClient = aiclient.NewAIClient(cfg.BackendURL, cfg.BackendTimeout, logger.WithField("component", "aiclient"))
	s.closers = append(s.closers, s.AIClient.Close)

	s.Pipeline = pipeline.New(
		storage.NewUploader(backend, logger.WithField("component", "uploader")),
		storage.NewSigner(backend, cfg.SignedURLTTL, logger.WithField("component", "signer")),
		s.AIClient,
		logger.WithField("component", "pipeline"),
	)

	logger.WithFields(logrus.Fields{
		"storage_driver": cfg.StorageDriver,
		"history_store":  historyStoreName(cfg),
		"backend_url":    cfg.BackendURL,
	}).Info("Services initialized")
	return s, nil
}

// Close releases connections held by the services.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newAuthService(cfg *config.Config, logger *logrus.Logger) (*auth.Service, error) {
	client, err := config.NewSupabaseClient(cfg, cfg.ClientKey())
	if err != nil {
		return nil, err
	}
	provider := auth.NewGoTrueProvider(client.Auth, cfg.SupabaseURL+"/auth/v1", cfg.ClientKey())

	var verifier *auth.TokenVerifier
	if cfg.SupabaseJWTSecret != "" {
		verifier = auth.NewTokenVerifier(cfg.SupabaseJWTSecret)
	}
	return auth.NewService(provider, verifier, cfg.AppURL, logger.WithField("component", "auth")), nil
}

func newStorageBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3Backend(ctx, storage.S3Options{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.StorageBucket,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	case "supabase":
		return storage.NewSupabaseBackend(cfg.SupabaseURL+"/storage/v1", cfg.ServerKey(), cfg.StorageBucket), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// newHistoryStore uses a direct SQL connection when DATABASE_URL is set and
// PostgREST otherwise.
func newHistoryStore(ctx context.Context, cfg *config.Config) (history.Store, func() error, error) {
	if cfg.DatabaseURL == "" {
		client, err := db.NewPostgrestClient(cfg.SupabaseURL, cfg.ServerKey())
		if err != nil {
			return nil, nil, err
		}
		return history.NewPostgrestStore(client), nil, nil
	}

	conn, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return history.NewSQLStore(conn), conn.Close, nil
}

func historyStoreName(cfg *config.Config) string {
	if cfg.DatabaseURL == "" {
		return "postgrest"
	}
	return cfg.DatabaseDriver
}
