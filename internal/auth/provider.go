package auth

import (
	"context"

	"voxnote/models"
)

// Provider is the identity backend boundary. Implementations return *Error values
// whose Kind has already been classified.
type Provider interface {
	// SignUp registers a user. The returned session has no AccessToken when the
	// project requires email confirmation.
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}, redirectTo string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RecoverPassword(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*models.Session, error)
	ResendConfirmation(ctx context.Context, email, redirectTo string) error
	GetUser(ctx context.Context, accessToken string) (*models.Session, error)
	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	// Ping checks that the provider is reachable.
	Ping(ctx context.Context) error
}
