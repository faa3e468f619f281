package history

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"voxnote/models"
)

var (
	ErrNotFound     = errors.New("transcript not found")
	ErrUnauthorized = errors.New("Unauthorized: You can only delete your own transcripts")
)

// Store is the persistence boundary for transcripts and their summaries.
type Store interface {
	// ListByUser returns the user's transcripts with nested summaries, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Transcript, error)
	// Get returns one transcript with nested summaries, or ErrNotFound.
	Get(ctx context.Context, transcriptID string) (*models.Transcript, error)
	DeleteSummaries(ctx context.Context, ids []string) error
	DeleteTranscript(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// AtomicDeleter is implemented by stores that can remove a transcript and its
// summaries in one transaction.
type AtomicDeleter interface {
	DeleteTranscriptWithSummaries(ctx context.Context, transcriptID string, summaryIDs []string) error
}

// Repository is the user-scoped view over a Store.
type Repository struct {
	store  Store
	logger logrus.FieldLogger
}

func NewRepository(store Store, logger logrus.FieldLogger) *Repository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Repository{store: store, logger: logger}
}

// List returns userID's transcripts ordered by created_at, newest first.
func (r *Repository) List(ctx context.Context, userID string) ([]models.Transcript, error) {
	transcripts, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(transcripts, func(i, j int) bool {
		return transcripts[i].CreatedAt.After(transcripts[j].CreatedAt)
	})
	return transcripts, nil
}

// Get returns one of userID's transcripts. Transcripts owned by someone else are
// reported as ErrNotFound.
func (r *Repository) Get(ctx context.Context, transcriptID, userID string) (*models.Transcript, error) {
	t, err := r.store.Get(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(userID) {
		return nil, ErrNotFound
	}
	return t, nil
}

// Result rebuilds the processing view for one of userID's transcripts.
func (r *Repository) Result(ctx context.Context, transcriptID, userID string) (*models.ProcessingResult, error) {
	t, err := r.Get(ctx, transcriptID, userID)
	if err != nil {
		return nil, err
	}
	res := models.ResultFromTranscript(*t)
	return &res, nil
}

// Delete removes a transcript and its summaries after checking that userID owns
// it. Summaries are removed first. Stores without AtomicDeleter run the two
// deletes separately, so a failure between them leaves the transcript without
// its summaries.
func (r *Repository) Delete(ctx context.Context, transcriptID, userID string) error {
	t, err := r.store.Get(ctx, transcriptID)
	if err != nil {
		return err
	}
	if !t.OwnedBy(userID) {
		r.logger.WithFields(logrus.Fields{
			"transcript_id": transcriptID,
			"user_id":       userID,
		}).Warn("Refusing to delete transcript owned by another user")
		return ErrUnauthorized
	}

	summaryIDs := t.SummaryIDs()
	if deleter, ok := r.store.(AtomicDeleter); ok {
		return deleter.DeleteTranscriptWithSummaries(ctx, transcriptID, summaryIDs)
	}

	if len(summaryIDs) > 0 {
		if err := r.store.DeleteSummaries(ctx, summaryIDs); err != nil {
			return err
		}
	}
	if err := r.store.DeleteTranscript(ctx, transcriptID); err != nil {
		r.logger.WithField("transcript_id", transcriptID).WithError(err).
			Error("Transcript delete failed after its summaries were removed")
		return err
	}
	return nil
}

// Ping checks that the store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
