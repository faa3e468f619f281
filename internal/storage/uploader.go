package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"voxnote/models"
)

// DefaultExtension is used for files whose name has no extension, such as
// in-memory recordings.
const DefaultExtension = "webm"

// Uploader stores audio files under user-scoped, time-unique keys.
type Uploader struct {
	backend Backend
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewUploader(backend Backend, logger logrus.FieldLogger) *Uploader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Uploader{backend: backend, logger: logger, now: time.Now}
}

// ObjectKey builds the storage key for a file uploaded by userID at t.
func ObjectKey(userID, filename string, t time.Time) string {
	return fmt.Sprintf("%s_%d.%s", userID, t.UnixMilli(), Extension(filename))
}

// Extension returns the text after the last dot of filename, or DefaultExtension.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return DefaultExtension
	}
	return filename[i+1:]
}

// Upload stores file for userID. Provider failures are logged and reported as
// ErrUploadFailed. There is no retry.
func (u *Uploader) Upload(ctx context.Context, file File, userID string) (*models.StoredObject, error) {
	if file.Body == nil {
		return nil, ErrMissingFile
	}
	if userID == "" {
		return nil, ErrMissingUser
	}

	key := ObjectKey(userID, file.Name, u.now())
	contentType := file.ContentType
	if contentType == "" {
		contentType = "audio/" + DefaultExtension
	}

	if err := u.backend.Put(ctx, key, file.Body, contentType); err != nil {
		u.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"file_key": key,
		}).WithError(err).Error("Error uploading file")
		return nil, ErrUploadFailed
	}

	u.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"file_key": key,
	}).Info("File uploaded")
	return &models.StoredObject{Key: key, OwnerID: userID, ContentType: contentType}, nil
}
