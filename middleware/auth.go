package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"voxnote/internal/auth"
	"voxnote/models"
	"voxnote/utils"
)

const (
	LocalsSession     = "session"
	LocalsAccessToken = "access_token"
)

// Authenticator resolves a bearer token to a session.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Session, error)
}

// RequireAuth rejects requests without a valid bearer token. The session and raw
// token are stored in Locals for handlers.
func RequireAuth(authenticator Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := utils.BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return utils.RespondWithError(c, fiber.StatusUnauthorized, "Please log in to continue")
		}

		session, err := authenticator.Authenticate(c.UserContext(), token)
		if err != nil {
			var authErr *auth.Error
			if errors.As(err, &authErr) && (authErr.Kind == auth.KindSessionMissing || authErr.Kind == auth.KindInvalidCredentials) {
				return utils.RespondWithError(c, fiber.StatusUnauthorized, authErr.Message())
			}
			return utils.RespondWithError(c, fiber.StatusServiceUnavailable, "Could not verify your session. Please try again.")
		}

		c.Locals(LocalsSession, session)
		c.Locals(LocalsAccessToken, token)
		return c.Next()
	}
}

// Session returns the session stored by RequireAuth, or nil.
func Session(c *fiber.Ctx) *models.Session {
	session, _ := c.Locals(LocalsSession).(*models.Session)
	return session
}

// AccessToken returns the bearer token accepted by RequireAuth, or "".
func AccessToken(c *fiber.Ctx) string {
	token, _ := c.Locals(LocalsAccessToken).(string)
	return token
}

// UserID returns the authenticated user's id, or "".
func UserID(c *fiber.Ctx) string {
	if session := Session(c); session != nil {
		return session.UserID
	}
	return ""
}
