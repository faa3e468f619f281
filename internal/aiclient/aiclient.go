package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	UserID              string `json:"userId"`
	AudioURL            string `json:"audioUrl"`
	FileKey             string `json:"file_key"`
	ForceOutputLanguage string `json:"force_output_language"`
	MaxLength           int    `json:"max_length"`
	MinLength           int    `json:"min_length"`
}

// ProcessResponse is the success body of POST /process.
type ProcessResponse struct {
	TranscriptID string `json:"transcript_id"`
	SummaryID    string `json:"summary_id"`
	Transcript   string `json:"transcript"`
	Summary      string `json:"summary"`
	Language     string `json:"language"`
	Message      string `json:"message"`
}

// BackendError is returned for non-2xx responses. Body is the response text, verbatim.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return "Backend processing failed: " + e.Body
}

// AIClient calls the transcription and summarization backend over HTTP.
type AIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewAIClient creates a client for the backend at baseURL. A zero timeout leaves
// requests bounded only by the caller's context.
func NewAIClient(baseURL string, timeout time.Duration, logger logrus.FieldLogger) *AIClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Close releases idle connections to the backend.
func (c *AIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Process makes exactly one POST /process request. There is no retry.
func (c *AIClient) Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	log := c.logger.WithFields(logrus.Fields{
		"user_id":  req.UserID,
		"file_key": req.FileKey,
	})
	log.Info("AIClient: sending process request")

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode process request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build process request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Error("AIClient: process request failed")
		return nil, fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		log.WithField("status_code", resp.StatusCode).Error("AIClient: backend rejected process request")
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	var out ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode process response: %w", err)
	}

	log.WithField("transcript_id", out.TranscriptID).Info("AIClient: received process response")
	return &out, nil
}

// Health calls GET /health on the backend.
func (c *AIClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend health: status %d", resp.StatusCode)
	}
	return nil
}
