package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voxnote/models"
)

const transcriptSelect = `
SELECT t.id, t.user_id, t.transcript_text, t.language, t.confidence, t.created_at,
       s.id, s.user_id, s.summary_text, s.method, s.created_at
FROM transcripts t
LEFT JOIN summaries s ON s.transcript_id = t.id`

// SQLStore keeps history in a SQL database reached through database/sql.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string) ([]models.Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		transcriptSelect+` WHERE t.user_id = $1 ORDER BY t.created_at DESC, t.id DESC, s.created_at ASC, s.id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	return scanTranscripts(rows)
}

func (s *SQLStore) Get(ctx context.Context, transcriptID string) (*models.Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		transcriptSelect+` WHERE t.id = $1 ORDER BY s.created_at ASC, s.id ASC`,
		transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}

	transcripts, err := scanTranscripts(rows)
	if err != nil {
		return nil, err
	}
	if len(transcripts) == 0 {
		return nil, ErrNotFound
	}
	return &transcripts[0], nil
}

func (s *SQLStore) DeleteSummaries(ctx context.Context, ids []string) error {
	return deleteSummaries(ctx, s.db, ids)
}

func (s *SQLStore) DeleteTranscript(ctx context.Context, id string) error {
	return deleteTranscript(ctx, s.db, id)
}

// DeleteTranscriptWithSummaries removes the summaries and then the transcript in
// one transaction.
func (s *SQLStore) DeleteTranscriptWithSummaries(ctx context.Context, transcriptID string, summaryIDs []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteSummaries(ctx, tx, summaryIDs); err != nil {
		return err
	}
	if err = deleteTranscript(ctx, tx, transcriptID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM transcripts LIMIT 1`).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query transcripts: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteSummaries(ctx context.Context, db execer, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `DELETE FROM summaries WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete summaries: %w", err)
	}
	return nil
}

func deleteTranscript(ctx context.Context, db execer, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return nil
}

// scanTranscripts folds joined transcript/summary rows into transcripts, keeping
// the row order of the query.
func scanTranscripts(rows *sql.Rows) ([]models.Transcript, error) {
	defer rows.Close()

	var out []models.Transcript
	index := make(map[string]int)

	for rows.Next() {
		var (
			t                                   models.Transcript
			userID                              sql.NullString
			confidence                          sql.NullFloat64
			summaryID, summaryUser, summaryText sql.NullString
			method                              sql.NullString
			summaryCreated                      sql.NullTime
		)
		if err := rows.Scan(
			&t.ID, &userID, &t.TranscriptText, &t.Language, &confidence, &t.CreatedAt,
			&summaryID, &summaryUser, &summaryText, &method, &summaryCreated,
		); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}

		i, seen := index[t.ID]
		if !seen {
			if userID.Valid {
				t.UserID = &userID.String
			}
			if confidence.Valid {
				t.Confidence = &confidence.Float64
			}
			t.Summaries = []models.Summary{}
			out = append(out, t)
			i = len(out) - 1
			index[t.ID] = i
		}

		if summaryID.Valid {
			sum := models.Summary{
				ID:           summaryID.String,
				TranscriptID: t.ID,
				SummaryText:  summaryText.String,
			}
			if summaryUser.Valid {
				sum.UserID = &summaryUser.String
			}
			if method.Valid {
				sum.Method = &method.String
			}
			if summaryCreated.Valid {
				created := summaryCreated.Time.In(time.UTC)
				sum.CreatedAt = &created
			}
			out[i].Summaries = append(out[i].Summaries, sum)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return out, nil
}
