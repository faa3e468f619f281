package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"voxnote/models"
)

// Signer issues signed read URLs. Grants are not cached.
type Signer struct {
	backend Backend
	ttl     time.Duration
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewSigner creates a Signer whose grants last ttl, or DefaultSignedURLTTL when ttl is zero.
func NewSigner(backend Backend, ttl time.Duration, logger logrus.FieldLogger) *Signer {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Signer{backend: backend, ttl: ttl, logger: logger, now: time.Now}
}

// SignedURL requests a fresh grant for key. A zero expiresIn uses the signer's TTL.
func (s *Signer) SignedURL(ctx context.Context, key string, expiresIn time.Duration) (*models.SignedAccessGrant, error) {
	if expiresIn <= 0 {
		expiresIn = s.ttl
	}

	issuedAt := s.now()
	url, err := s.backend.SignURL(ctx, key, expiresIn)
	if err != nil || url == "" {
		s.logger.WithField("file_key", key).WithError(err).Error("Error creating signed URL")
		return nil, ErrSignFailed
	}

	return &models.SignedAccessGrant{URL: url, ExpiresAt: issuedAt.Add(expiresIn)}, nil
}
