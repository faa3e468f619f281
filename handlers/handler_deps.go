package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"voxnote/internal/auth"
	"voxnote/internal/storage"
	"voxnote/models"
)

// AuthService defines the identity operations handlers expect.
// The concrete implementation is auth.Service.
type AuthService interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*auth.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPassword(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) (*models.Session, error)
	ResendConfirmation(ctx context.Context, email string) error
	Authenticate(ctx context.Context, accessToken string) (*models.Session, error)
	Ping(ctx context.Context) error
}

// AudioPipeline uploads audio and runs it through the processing backend.
type AudioPipeline interface {
	UploadAndProcess(ctx context.Context, file storage.File, userID string, opts models.ProcessingOptions) (*models.ProcessingResult, error)
}

// HistoryRepository is the user-scoped transcript store.
type HistoryRepository interface {
	List(ctx context.Context, userID string) ([]models.Transcript, error)
	Result(ctx context.Context, transcriptID, userID string) (*models.ProcessingResult, error)
	Delete(ctx context.Context, transcriptID, userID string) error
	Ping(ctx context.Context) error
}

// AIClientInterface defines the operations handlers expect from the processing
// backend client beyond dispatch, which goes through the pipeline.
type AIClientInterface interface {
	Health(ctx context.Context) error
	Close() error
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Auth     AuthService
	Pipeline AudioPipeline
	History  HistoryRepository
	AIClient AIClientInterface
	Logger   *logrus.Logger
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(authService AuthService, pipeline AudioPipeline, history HistoryRepository, aiClient AIClientInterface, logger *logrus.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		Auth:     authService,
		Pipeline: pipeline,
		History:  history,
		AIClient: aiClient,
		Logger:   logger,
	}
}
