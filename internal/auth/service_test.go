package auth

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxnote/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestServiceSignInNormalizesEmail(t *testing.T) {
	p := &fakeProvider{signInSession: confirmedSession("u1")}
	svc := NewService(p, nil, "http://localhost:3000/", quietLogger())

	session, err := svc.SignIn(context.Background(), "  Ada@Example.COM ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "ada@example.com", p.lastEmail)
}

func TestServiceSignInRejectsUnconfirmedEmail(t *testing.T) {
	p := &fakeProvider{signInSession: &models.Session{UserID: "u1", AccessToken: "tok"}}
	svc := NewService(p, nil, "", quietLogger())

	session, err := svc.SignIn(context.Background(), "ada@example.com", "pw")
	assert.Nil(t, session)
	require.Error(t, err)
	assert.Equal(t, KindEmailNotConfirmed, KindOf(err))
	assert.Equal(t,
		"Please verify your email address before signing in. Check your inbox for the confirmation link.",
		err.Error())
}

func TestServiceSignUpRedirects(t *testing.T) {
	p := &fakeProvider{signUpSession: &models.Session{UserID: "u1", Email: "ada@example.com"}}
	svc := NewService(p, nil, "http://localhost:3000/", quietLogger())

	res, err := svc.SignUp(context.Background(), "Ada@example.com", "Str0ngPass", nil)
	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
	assert.Equal(t, "http://localhost:3000/dashboard", p.lastTarget)

	require.NoError(t, svc.ResetPassword(context.Background(), "ada@example.com"))
	assert.Equal(t, "http://localhost:3000/reset-password", p.lastTarget)

	require.NoError(t, svc.ResendConfirmation(context.Background(), " ADA@example.com"))
	assert.Equal(t, "http://localhost:3000/dashboard", p.lastTarget)
	assert.Equal(t, "ada@example.com", p.lastEmail)
}

func TestServiceErrorsCarryOperation(t *testing.T) {
	p := &fakeProvider{err: newError("", KindUnexpected, assert.AnError)}
	svc := NewService(p, nil, "", quietLogger())

	err := svc.ResetPassword(context.Background(), "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, "Failed to send reset email. Please try again.", err.Error())

	err = svc.SignOut(context.Background(), "tok")
	assert.Equal(t, "Failed to sign out. Please try again.", err.Error())

	_, err = svc.UpdatePassword(context.Background(), "", "Str0ngPass")
	assert.Equal(t, KindSessionMissing, KindOf(err))
}

func TestServiceAuthenticate(t *testing.T) {
	t.Run("provider fallback", func(t *testing.T) {
		p := &fakeProvider{user: &models.Session{UserID: "u1"}}
		svc := NewService(p, nil, "", quietLogger())

		session, err := svc.Authenticate(context.Background(), "opaque")
		require.NoError(t, err)
		assert.Equal(t, "u1", session.UserID)
		assert.Contains(t, p.calls, "getuser")
	})

	t.Run("local verification", func(t *testing.T) {
		p := &fakeProvider{}
		svc := NewService(p, NewTokenVerifier(testSecret), "", quietLogger())

		session, err := svc.Authenticate(context.Background(), signTestToken(t, "u2", testSecret))
		require.NoError(t, err)
		assert.Equal(t, "u2", session.UserID)
		assert.Empty(t, p.calls)

		_, err = svc.Authenticate(context.Background(), "garbage")
		assert.Equal(t, KindSessionMissing, KindOf(err))
	})

	t.Run("empty token", func(t *testing.T) {
		svc := NewService(&fakeProvider{}, nil, "", quietLogger())
		_, err := svc.Authenticate(context.Background(), "")
		assert.Equal(t, KindSessionMissing, KindOf(err))
	})
}

func TestServiceRefresh(t *testing.T) {
	p := &fakeProvider{refreshed: confirmedSession("u1")}
	svc := NewService(p, nil, "", quietLogger())

	_, err := svc.Refresh(context.Background(), "")
	assert.Equal(t, KindSessionMissing, KindOf(err))
	assert.Empty(t, p.calls)

	session, err := svc.Refresh(context.Background(), "valid-refresh")
	require.NoError(t, err)
	assert.Equal(t, "valid-refresh", session.RefreshToken)

	_, err = svc.Refresh(context.Background(), "revoked")
	require.Error(t, err)
	assert.Equal(t, "Your session has expired. Please sign in again.", err.Error())
}
