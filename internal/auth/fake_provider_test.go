package auth

import (
	"context"
	"sync"
	"time"

	"voxnote/models"
)

type fakeProvider struct {
	mu sync.Mutex

	signUpSession *models.Session
	signInSession *models.Session
	user          *models.Session
	refreshed     *models.Session
	err           error

	calls      []string
	lastEmail  string
	lastTarget string
}

func (f *fakeProvider) record(call, email, redirect string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.lastEmail = email
	f.lastTarget = redirect
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string, _ map[string]interface{}, redirectTo string) (*models.Session, error) {
	f.record("signup", email, redirectTo)
	if f.err != nil {
		return nil, f.err
	}
	return f.signUpSession, nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, _ string) (*models.Session, error) {
	f.record("signin", email, "")
	if f.err != nil {
		return nil, f.err
	}
	s := *f.signInSession
	return &s, nil
}

func (f *fakeProvider) SignOut(_ context.Context, _ string) error {
	f.record("signout", "", "")
	return f.err
}

func (f *fakeProvider) RecoverPassword(_ context.Context, email, redirectTo string) error {
	f.record("recover", email, redirectTo)
	return f.err
}

func (f *fakeProvider) UpdatePassword(_ context.Context, accessToken, _ string) (*models.Session, error) {
	f.record("update", "", "")
	if f.err != nil {
		return nil, f.err
	}
	return &models.Session{UserID: "u1", Email: "ada@example.com", AccessToken: accessToken}, nil
}

func (f *fakeProvider) ResendConfirmation(_ context.Context, email, redirectTo string) error {
	f.record("resend", email, redirectTo)
	return f.err
}

func (f *fakeProvider) GetUser(_ context.Context, _ string) (*models.Session, error) {
	f.record("getuser", "", "")
	if f.user == nil {
		return nil, newError(OpAuthenticate, KindSessionMissing, nil)
	}
	s := *f.user
	return &s, nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*models.Session, error) {
	f.record("refresh", "", "")
	if f.refreshed == nil || refreshToken != "valid-refresh" {
		return nil, newError(OpRefresh, KindSessionMissing, nil)
	}
	s := *f.refreshed
	return &s, nil
}

func (f *fakeProvider) Ping(context.Context) error {
	return f.err
}

func confirmedSession(userID string) *models.Session {
	confirmed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.Session{
		UserID:           userID,
		Email:            "ada@example.com",
		EmailConfirmedAt: &confirmed,
		AccessToken:      "token-" + userID,
	}
}
