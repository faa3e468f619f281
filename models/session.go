package models

import (
	"time"
)

// Session is the authenticated identity held by a client.
type Session struct {
	UserID           string                 `json:"user_id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	AccessToken      string                 `json:"access_token,omitempty"`
	RefreshToken     string                 `json:"refresh_token,omitempty"`
	ExpiresAt        *time.Time             `json:"expires_at,omitempty"`
}

// EmailConfirmed reports whether the account's email has been verified.
func (s Session) EmailConfirmed() bool {
	return s.EmailConfirmedAt != nil && !s.EmailConfirmedAt.IsZero()
}
