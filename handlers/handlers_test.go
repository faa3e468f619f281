package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxnote/internal/aiclient"
	"voxnote/internal/auth"
	"voxnote/internal/history"
	"voxnote/internal/pipeline"
	"voxnote/internal/storage"
	"voxnote/models"
)

const validToken = "good-token"

type fakeAuth struct {
	signUpErr   error
	signInErr   error
	signInCalls int
	signedOut   string
	updated     string
	resent      string
	reset       string
	pingErr     error
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string, metadata map[string]interface{}) (*auth.SignUpResult, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &auth.SignUpResult{
		Session:              &models.Session{UserID: "u-new", Email: email, Metadata: metadata},
		ConfirmationRequired: true,
	}, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*models.Session, error) {
	f.signInCalls++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &models.Session{UserID: "u1", Email: email, AccessToken: validToken}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = token
	return nil
}

func (f *fakeAuth) ResetPassword(_ context.Context, email string) error {
	f.reset = email
	return nil
}

func (f *fakeAuth) UpdatePassword(_ context.Context, _ string, password string) (*models.Session, error) {
	f.updated = password
	return &models.Session{UserID: "u1"}, nil
}

func (f *fakeAuth) ResendConfirmation(_ context.Context, email string) error {
	f.resent = email
	return nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.Session, error) {
	if token != validToken {
		return nil, &auth.Error{Op: auth.OpAuthenticate, Kind: auth.KindSessionMissing}
	}
	return &models.Session{UserID: "u1", Email: "ada@example.com"}, nil
}

func (f *fakeAuth) Ping(context.Context) error { return f.pingErr }

type fakePipeline struct {
	calls  int
	file   storage.File
	body   string
	userID string
	opts   models.ProcessingOptions
	err    error
}

func (f *fakePipeline) UploadAndProcess(_ context.Context, file storage.File, userID string, opts models.ProcessingOptions) (*models.ProcessingResult, error) {
	f.calls++
	f.file, f.userID, f.opts = file, userID, opts
	data, _ := io.ReadAll(file.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProcessingResult{
		Success:      true,
		FileKey:      "u1_1.wav",
		TranscriptID: "t1",
		SummaryID:    "s1",
		Transcript:   "hello",
		Summary:      "hi",
		Language:     "te",
	}, nil
}

type fakeHistory struct {
	transcripts []models.Transcript
	deleteErr   error
	deleted     string
	pingErr     error
}

func (f *fakeHistory) List(context.Context, string) ([]models.Transcript, error) {
	return f.transcripts, nil
}

func (f *fakeHistory) Result(_ context.Context, id, _ string) (*models.ProcessingResult, error) {
	for _, t := range f.transcripts {
		if t.ID == id {
			res := models.ResultFromTranscript(t)
			return &res, nil
		}
	}
	return nil, history.ErrNotFound
}

func (f *fakeHistory) Delete(_ context.Context, id, _ string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = id
	return nil
}

func (f *fakeHistory) Ping(context.Context) error { return f.pingErr }

type fakeBackend struct{ healthErr error }

func (f *fakeBackend) Health(context.Context) error { return f.healthErr }
func (f *fakeBackend) Close() error                 { return nil }

type testEnv struct {
	app      *fiber.App
	auth     *fakeAuth
	pipeline *fakePipeline
	history  *fakeHistory
	backend  *fakeBackend
}

func newTestEnv() *testEnv {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		auth:     &fakeAuth{},
		pipeline: &fakePipeline{},
		history:  &fakeHistory{},
		backend:  &fakeBackend{},
	}
	h := NewApplicationHandler(env.auth, env.pipeline, env.history, env.backend, logger)
	env.app = fiber.New()
	h.RegisterRoutes(env.app)
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withToken(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+validToken)
	return req
}

func audioRequest(t *testing.T, filename, contentType string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF-audio"))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio/process", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return withToken(req)
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "Secret123", "confirm_password": "Secret124",
	}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Passwords do not match", body["message"])
	assert.Equal(t, "Passwords do not match", body["fields"].(map[string]interface{})["confirm_password"])

	status, body = env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret123", "confirm_password": "secret123",
	}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Password must contain at least one uppercase letter", body["message"])
}

func TestSignUpSuccess(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name": "  Ada Lovelace ", "email": " ada@example.com ", "password": "Secret123", "confirm_password": "Secret123",
	}))
	require.Equal(t, fiber.StatusCreated, status)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["confirmation_required"])
	assert.Equal(t, signUpConfirmMessage, data["message"])
	session := data["session"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", session["email"])
	assert.Equal(t, "Ada Lovelace", session["metadata"].(map[string]interface{})["full_name"])
}

func TestSignUpAlreadyRegistered(t *testing.T) {
	env := newTestEnv()
	env.auth.signUpErr = &auth.Error{Op: auth.OpSignUp, Kind: auth.KindAlreadyRegistered}

	status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "Secret123", "confirm_password": "Secret123",
	}))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "An account with this email already exists. Please sign in instead.", body["message"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "not-an-email", "password": "x",
	}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Please enter a valid email address", body["message"])
	assert.Zero(t, env.auth.signInCalls, "validation runs before any network call")

	env.auth.signInErr = &auth.Error{Op: auth.OpSignIn, Kind: auth.KindEmailNotConfirmed}
	status, body = env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "Secret123",
	}))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Contains(t, body["message"], "verify your email")

	env.auth.signInErr = nil
	status, body = env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "Secret123",
	}))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, validToken, body["data"].(map[string]interface{})["access_token"])
}

func TestAuthenticatedAuthRoutes(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Please log in to continue", body["message"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer expired")
	status, body = env.do(t, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Your session has expired. Please sign in again.", body["message"])

	status, body = env.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u1", body["data"].(map[string]interface{})["user_id"])

	status, _ = env.do(t, withToken(jsonRequest(http.MethodPost, "/api/v1/auth/update-password", map[string]string{
		"password": "Newpass1", "confirm_password": "Newpass1",
	})))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Newpass1", env.auth.updated)

	status, _ = env.do(t, withToken(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, validToken, env.auth.signedOut)
}

func TestEmailOnlyRoutes(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"email": ""}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Email is required", body["message"])

	status, _ = env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"email": "ada@example.com"}))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ada@example.com", env.auth.reset)

	status, _ = env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/resend-confirmation", map[string]string{"email": "ada@example.com"}))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ada@example.com", env.auth.resent)
}

func TestProcessAudio(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, audioRequest(t, "demo.wav", "audio/wav", map[string]string{
		"language": "te", "max_length": "120", "min_length": "20",
	}))
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, 1, env.pipeline.calls)
	assert.Equal(t, "u1", env.pipeline.userID)
	assert.Equal(t, "demo.wav", env.pipeline.file.Name)
	assert.Equal(t, "audio/wav", env.pipeline.file.ContentType)
	assert.Equal(t, "RIFF-audio", env.pipeline.body)
	assert.Equal(t, models.ProcessingOptions{ForceOutputLanguage: "te", MaxLength: 120, MinLength: 20}, env.pipeline.opts)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "u1_1.wav", data["fileKey"])
	assert.Equal(t, "t1", data["transcriptId"])
}

func TestProcessAudioRejectsBeforePipeline(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, audioRequest(t, "notes.txt", "text/plain", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, pipeline.ErrInvalidAudioFile.Error(), body["message"])

	status, body = env.do(t, audioRequest(t, "demo.wav", "audio/wav", map[string]string{"max_length": "long"}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "max_length must be a non-negative integer", body["message"])

	status, body = env.do(t, audioRequest(t, "demo.wav", "audio/wav", map[string]string{"language": "fr"}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "language must be one of auto, te, en", body["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio/process", strings.NewReader(""))
	status, _ = env.do(t, withToken(req))
	assert.Equal(t, fiber.StatusBadRequest, status)

	assert.Zero(t, env.pipeline.calls)
}

func TestProcessAudioErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"busy", pipeline.ErrAlreadyProcessing, fiber.StatusConflict, pipeline.ErrAlreadyProcessing.Error()},
		{"upload", storage.ErrUploadFailed, fiber.StatusBadGateway, "Failed to upload file to Supabase Storage"},
		{"sign", storage.ErrSignFailed, fiber.StatusBadGateway, "failed to generate signed URL"},
		{"backend", &aiclient.BackendError{StatusCode: 500, Body: `{"detail":"Processing failed: boom"}`}, fiber.StatusBadGateway, `Backend processing failed: {"detail":"Processing failed: boom"}`},
		{"unexpected", errors.New("kaboom"), fiber.StatusInternalServerError, "Failed to process audio. Please try again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			env.pipeline.err = tc.err

			status, body := env.do(t, audioRequest(t, "demo.webm", "audio/webm", nil))
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestTranscriptRoutes(t *testing.T) {
	env := newTestEnv()
	owner := "u1"
	env.history.transcripts = []models.Transcript{{
		ID:             "t1",
		UserID:         &owner,
		TranscriptText: "hello",
		Language:       "en",
		CreatedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Summaries:      []models.Summary{{ID: "s1", TranscriptID: "t1", SummaryText: "hi"}},
	}}

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/transcripts", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = env.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/v1/transcripts", nil)))
	require.Equal(t, fiber.StatusOK, status)
	list := body["data"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].(map[string]interface{})["id"])

	status, body = env.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/v1/transcripts/t1", nil)))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "hi", body["data"].(map[string]interface{})["summary"])

	status, _ = env.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/v1/transcripts/missing", nil)))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.do(t, withToken(httptest.NewRequest(http.MethodDelete, "/api/v1/transcripts/t1", nil)))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "t1", env.history.deleted)
}

func TestDeleteTranscriptErrors(t *testing.T) {
	env := newTestEnv()

	env.history.deleteErr = history.ErrUnauthorized
	status, body := env.do(t, withToken(httptest.NewRequest(http.MethodDelete, "/api/v1/transcripts/t9", nil)))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Unauthorized: You can only delete your own transcripts", body["message"])

	env.history.deleteErr = errors.New("(23503) foreign key violation")
	status, body = env.do(t, withToken(httptest.NewRequest(http.MethodDelete, "/api/v1/transcripts/t9", nil)))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Failed to delete transcript", body["message"])
}

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv()

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "connected", body["status"])

	env.history.pingErr = errors.New("(42P01) relation \"transcripts\" does not exist")
	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "error", body["status"])

	components := body["components"].([]interface{})
	require.Len(t, components, 3)
	database := components[1].(map[string]interface{})
	assert.Equal(t, "database", database["name"])
	assert.Equal(t, false, database["ok"])
}
