package auth

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"voxnote/models"
)

// Redirect paths appended to the application URL in auth emails.
const (
	DashboardPath     = "/dashboard"
	ResetPasswordPath = "/reset-password"
)

// SignUpResult describes a completed registration. Session has no access token when
// ConfirmationRequired is true.
type SignUpResult struct {
	Session              *models.Session
	ConfirmationRequired bool
}

// Service runs identity operations against a Provider and normalizes their errors.
// It holds no session state; see Holder for that.
type Service struct {
	provider Provider
	verifier *TokenVerifier
	appURL   string
	logger   logrus.FieldLogger
}

// NewService creates a Service. verifier may be nil, in which case tokens are
// checked with the provider.
func NewService(provider Provider, verifier *TokenVerifier, appURL string, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		provider: provider,
		verifier: verifier,
		appURL:   strings.TrimRight(appURL, "/"),
		logger:   logger,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*SignUpResult, error) {
	email = NormalizeEmail(email)
	session, err := s.provider.SignUp(ctx, email, password, metadata, s.redirect(DashboardPath))
	if err != nil {
		return nil, s.fail(OpSignUp, email, err)
	}

	result := &SignUpResult{Session: session, ConfirmationRequired: session.AccessToken == ""}
	s.logger.WithFields(logrus.Fields{
		"user_id":               session.UserID,
		"confirmation_required": result.ConfirmationRequired,
	}).Info("User signed up")
	return result, nil
}

// SignIn authenticates with email and password. Accounts whose email is not
// confirmed are rejected even when the provider accepts the credentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = NormalizeEmail(email)
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, s.fail(OpSignIn, email, err)
	}
	if !session.EmailConfirmed() {
		return nil, s.fail(OpSignIn, email, newError(OpSignIn, KindEmailNotConfirmed, nil))
	}

	s.logger.WithField("user_id", session.UserID).Info("User signed in")
	return session, nil
}

func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		return s.fail(OpSignOut, "", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := s.provider.RecoverPassword(ctx, email, s.redirect(ResetPasswordPath)); err != nil {
		return s.fail(OpResetPassword, email, err)
	}
	s.logger.WithField("email", email).Info("Password reset email requested")
	return nil
}

func (s *Service) UpdatePassword(ctx context.Context, accessToken, newPassword string) (*models.Session, error) {
	if accessToken == "" {
		return nil, newError(OpUpdatePassword, KindSessionMissing, nil)
	}
	session, err := s.provider.UpdatePassword(ctx, accessToken, newPassword)
	if err != nil {
		return nil, s.fail(OpUpdatePassword, "", err)
	}
	return session, nil
}

func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := s.provider.ResendConfirmation(ctx, email, s.redirect(DashboardPath)); err != nil {
		return s.fail(OpResendConfirmation, email, err)
	}
	return nil
}

// Authenticate resolves an access token to a session, locally when a JWT secret is
// configured and through the provider otherwise.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.Session, error) {
	if accessToken == "" {
		return nil, newError(OpAuthenticate, KindSessionMissing, nil)
	}
	if s.verifier != nil {
		session, err := s.verifier.Verify(accessToken)
		if err != nil {
			return nil, newError(OpAuthenticate, KindSessionMissing, err)
		}
		return session, nil
	}
	session, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, wrapError(OpAuthenticate, err)
	}
	return session, nil
}

// Refresh exchanges refreshToken for a new session. The old refresh token is
// kept when the provider does not rotate it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, newError(OpRefresh, KindSessionMissing, nil)
	}
	session, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, wrapError(OpRefresh, err)
	}
	if session.RefreshToken == "" {
		session.RefreshToken = refreshToken
	}
	s.logger.WithField("user_id", session.UserID).Info("Session refreshed")
	return session, nil
}

// Ping reports whether the identity provider is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.provider.Ping(ctx)
}

func (s *Service) redirect(path string) string {
	if s.appURL == "" {
		return ""
	}
	return s.appURL + path
}

func (s *Service) fail(op Operation, email string, err error) error {
	wrapped := wrapError(op, err)
	entry := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"kind":      KindOf(wrapped).String(),
	})
	if email != "" {
		entry = entry.WithField("email", email)
	}
	entry.WithError(err).Warn("Identity operation failed")
	return wrapped
}
