package history

import (
	"context"
	"encoding/json"
	"fmt"

	postgrest "github.com/supabase-community/postgrest-go"

	"voxnote/models"
)

const (
	transcriptsTable  = "transcripts"
	summariesTable    = "summaries"
	transcriptColumns = "*, summaries(*)"
)

// QueryClient is satisfied by *postgrest.Client and *supabase.Client.
type QueryClient interface {
	From(table string) *postgrest.QueryBuilder
}

// PostgrestStore reads and deletes history rows through Supabase's REST API.
type PostgrestStore struct {
	db QueryClient
}

func NewPostgrestStore(db QueryClient) *PostgrestStore {
	return &PostgrestStore{db: db}
}

func (s *PostgrestStore) ListByUser(ctx context.Context, userID string) ([]models.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var transcripts []models.Transcript
	body, _, err := s.db.From(transcriptsTable).
		Select(transcriptColumns, "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("error fetching transcripts: %w", err)
	}

	if err := json.Unmarshal(body, &transcripts); err != nil {
		return nil, fmt.Errorf("error unmarshalling transcripts: %w", err)
	}
	return transcripts, nil
}

func (s *PostgrestStore) Get(ctx context.Context, transcriptID string) (*models.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var transcripts []models.Transcript
	body, _, err := s.db.From(transcriptsTable).
		Select(transcriptColumns, "", false).
		Eq("id", transcriptID).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("error fetching transcript: %w", err)
	}

	if err := json.Unmarshal(body, &transcripts); err != nil {
		return nil, fmt.Errorf("error unmarshalling transcript: %w", err)
	}
	if len(transcripts) == 0 {
		return nil, ErrNotFound
	}
	return &transcripts[0], nil
}

func (s *PostgrestStore) DeleteSummaries(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.db.From(summariesTable).Delete("minimal", "").In("id", ids).Execute(); err != nil {
		return fmt.Errorf("error deleting summaries: %w", err)
	}
	return nil
}

func (s *PostgrestStore) DeleteTranscript(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.db.From(transcriptsTable).Delete("minimal", "").Eq("id", id).Execute(); err != nil {
		return fmt.Errorf("error deleting transcript: %w", err)
	}
	return nil
}

// Ping runs the connection check query: one transcript id. An empty table is fine.
func (s *PostgrestStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.db.From(transcriptsTable).Select("id", "", false).Limit(1, "").Execute(); err != nil {
		return fmt.Errorf("error querying transcripts: %w", err)
	}
	return nil
}
