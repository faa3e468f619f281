package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"voxnote/internal/aiclient"
	"voxnote/internal/storage"
	"voxnote/models"
)

// ErrAlreadyProcessing is returned when the user already has a request in flight.
var ErrAlreadyProcessing = errors.New("a recording is already being processed")

type Uploader interface {
	Upload(ctx context.Context, file storage.File, userID string) (*models.StoredObject, error)
}

type Signer interface {
	SignedURL(ctx context.Context, key string, expiresIn time.Duration) (*models.SignedAccessGrant, error)
}

type Dispatcher interface {
	Process(ctx context.Context, req aiclient.ProcessRequest) (*aiclient.ProcessResponse, error)
}

// Pipeline uploads recordings and hands them to the processing backend.
type Pipeline struct {
	uploader   Uploader
	signer     Signer
	dispatcher Dispatcher
	guard      *Guard
	validate   *validator.Validate
	logger     logrus.FieldLogger
}

func New(uploader Uploader, signer Signer, dispatcher Dispatcher, logger logrus.FieldLogger) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{
		uploader:   uploader,
		signer:     signer,
		dispatcher: dispatcher,
		guard:      NewGuard(),
		validate:   validator.New(),
		logger:     logger,
	}
}

// Busy reports whether userID has a request in flight.
func (p *Pipeline) Busy(userID string) bool {
	return p.guard.Busy(userID)
}

// Process signs key and sends it to the backend. Zero-valued options take the
// defaults. The backend is called exactly once.
func (p *Pipeline) Process(ctx context.Context, key, userID string, opts models.ProcessingOptions) (*models.ProcessingResult, error) {
	opts, err := p.options(opts)
	if err != nil {
		return nil, err
	}

	grant, err := p.signer.SignedURL(ctx, key, 0)
	if err != nil {
		return nil, err
	}

	resp, err := p.dispatcher.Process(ctx, aiclient.ProcessRequest{
		UserID:              userID,
		AudioURL:            grant.URL,
		FileKey:             key,
		ForceOutputLanguage: opts.ForceOutputLanguage,
		MaxLength:           opts.MaxLength,
		MinLength:           opts.MinLength,
	})
	if err != nil {
		return nil, err
	}

	return &models.ProcessingResult{
		Success:      true,
		FileKey:      key,
		TranscriptID: resp.TranscriptID,
		SummaryID:    resp.SummaryID,
		Transcript:   resp.Transcript,
		Summary:      resp.Summary,
		Language:     resp.Language,
		Message:      resp.Message,
	}, nil
}

// options applies the defaults and validates the result.
func (p *Pipeline) options(opts models.ProcessingOptions) (models.ProcessingOptions, error) {
	opts = opts.WithDefaults()
	if err := p.validate.Struct(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// UploadAndProcess stores file and processes it. An upload failure stops before
// the backend is contacted. Only one call per user runs at a time.
func (p *Pipeline) UploadAndProcess(ctx context.Context, file storage.File, userID string, opts models.ProcessingOptions) (*models.ProcessingResult, error) {
	// invalid options must not leave an orphaned object in storage
	opts, err := p.options(opts)
	if err != nil {
		return nil, err
	}

	release, ok := p.guard.Acquire(userID)
	if !ok {
		return nil, ErrAlreadyProcessing
	}
	defer release()

	log := p.logger.WithFields(logrus.Fields{"user_id": userID, "file_name": file.Name})
	start := time.Now()

	obj, err := p.uploader.Upload(ctx, file, userID)
	if err != nil {
		log.WithError(err).Warn("Upload step failed")
		return nil, err
	}

	result, err := p.Process(ctx, obj.Key, userID, opts)
	if err != nil {
		log.WithError(err).WithField("file_key", obj.Key).Warn("Processing step failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"file_key":      obj.Key,
		"transcript_id": result.TranscriptID,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Audio processed")
	return result, nil
}
