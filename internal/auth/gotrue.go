package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"voxnote/models"
)

const providerTimeout = 10 * time.Second

// GoTrueProvider talks to Supabase Auth through gotrue-go.
type GoTrueProvider struct {
	client gotrue.Client
	// authURL is the GoTrue base, e.g. https://<ref>.supabase.co/auth/v1
	authURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGoTrueProvider wraps client. authURL and apiKey are used for the endpoints
// gotrue-go does not cover.
func NewGoTrueProvider(client gotrue.Client, authURL, apiKey string) *GoTrueProvider {
	return &GoTrueProvider{
		client:     client,
		authURL:    authURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: providerTimeout},
	}
}

// NewGoTrueProviderFromURL builds a provider for a Supabase project URL.
func NewGoTrueProviderFromURL(supabaseURL, apiKey string) *GoTrueProvider {
	authURL := supabaseURL + "/auth/v1"
	client := gotrue.New(supabaseURL, apiKey).WithCustomGoTrueURL(authURL)
	return NewGoTrueProvider(client, authURL, apiKey)
}

func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}, redirectTo string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(OpSignUp, KindUnexpected, err)
	}
	resp, err := p.withRedirect(redirectTo).Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     metadata,
	})
	if err != nil {
		return nil, providerFailure(OpSignUp, err)
	}

	session := sessionFromUser(resp.User)
	if resp.Session.AccessToken != "" {
		session = sessionFromToken(resp.Session)
	}
	return session, nil
}

func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(OpSignIn, KindUnexpected, err)
	}
	resp, err := p.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, providerFailure(OpSignIn, err)
	}
	return sessionFromToken(resp.Session), nil
}

func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return newError(OpSignOut, KindUnexpected, err)
	}
	if err := p.client.WithToken(accessToken).Logout(); err != nil {
		return providerFailure(OpSignOut, err)
	}
	return nil
}

func (p *GoTrueProvider) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	if err := ctx.Err(); err != nil {
		return newError(OpResetPassword, KindUnexpected, err)
	}
	if err := p.withRedirect(redirectTo).Recover(types.RecoverRequest{Email: email}); err != nil {
		return providerFailure(OpResetPassword, err)
	}
	return nil
}

func (p *GoTrueProvider) UpdatePassword(ctx context.Context, accessToken, password string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(OpUpdatePassword, KindUnexpected, err)
	}
	resp, err := p.client.WithToken(accessToken).UpdateUser(types.UpdateUserRequest{Password: &password})
	if err != nil {
		return nil, providerFailure(OpUpdatePassword, err)
	}
	session := sessionFromUser(resp.User)
	session.AccessToken = accessToken
	return session, nil
}

// ResendConfirmation posts to /resend, which gotrue-go does not wrap.
func (p *GoTrueProvider) ResendConfirmation(ctx context.Context, email, redirectTo string) error {
	body, err := json.Marshal(map[string]string{"type": "signup", "email": email})
	if err != nil {
		return newError(OpResendConfirmation, KindUnexpected, err)
	}

	endpoint := p.authURL + "/resend"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return newError(OpResendConfirmation, KindUnexpected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return newError(OpResendConfirmation, KindUnexpected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fullBody, _ := io.ReadAll(resp.Body)
		return providerFailure(OpResendConfirmation, fmt.Errorf("response status code %d: %s", resp.StatusCode, fullBody))
	}
	return nil
}

func (p *GoTrueProvider) GetUser(ctx context.Context, accessToken string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(OpAuthenticate, KindUnexpected, err)
	}
	resp, err := p.client.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, providerFailure(OpAuthenticate, err)
	}
	session := sessionFromUser(resp.User)
	session.AccessToken = accessToken
	return session, nil
}

func (p *GoTrueProvider) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(OpRefresh, KindUnexpected, err)
	}
	resp, err := p.client.RefreshToken(refreshToken)
	if err != nil {
		return nil, providerFailure(OpRefresh, err)
	}
	return sessionFromToken(resp.Session), nil
}

func (p *GoTrueProvider) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.client.GetSettings(); err != nil {
		return fmt.Errorf("auth settings: %w", err)
	}
	return nil
}

// withRedirect returns a client copy whose requests carry redirect_to.
func (p *GoTrueProvider) withRedirect(redirectTo string) gotrue.Client {
	if redirectTo == "" {
		return p.client
	}
	return p.client.WithClient(http.Client{
		Timeout:   providerTimeout,
		Transport: redirectTransport{base: http.DefaultTransport, redirectTo: redirectTo},
	})
}

type redirectTransport struct {
	base       http.RoundTripper
	redirectTo string
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("redirect_to", t.redirectTo)
	r.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(r)
}

func sessionFromUser(u types.User) *models.Session {
	s := &models.Session{
		Email:            u.Email,
		EmailConfirmedAt: u.EmailConfirmedAt,
		Metadata:         u.UserMetadata,
	}
	if u.ID != uuid.Nil {
		s.UserID = u.ID.String()
	}
	return s
}

func sessionFromToken(t types.Session) *models.Session {
	s := sessionFromUser(t.User)
	s.AccessToken = t.AccessToken
	s.RefreshToken = t.RefreshToken
	switch {
	case t.ExpiresAt > 0:
		exp := time.Unix(t.ExpiresAt, 0)
		s.ExpiresAt = &exp
	case t.ExpiresIn > 0:
		exp := time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
		s.ExpiresAt = &exp
	}
	return s
}
