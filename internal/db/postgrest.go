package db

import (
	"fmt"
	"strings"

	postgrest "github.com/supabase-community/postgrest-go"
)

// NewPostgrestClient creates a PostgREST client for a Supabase project using key
// for both the apikey and bearer headers.
func NewPostgrestClient(supabaseURL, key string) (*postgrest.Client, error) {
	if supabaseURL == "" || key == "" {
		return nil, fmt.Errorf("SUPABASE_URL and a Supabase key must be set")
	}

	client := postgrest.NewClient(strings.TrimRight(supabaseURL, "/")+"/rest/v1", "public", map[string]string{
		"apikey":        key,
		"Authorization": fmt.Sprintf("Bearer %s", key),
	})

	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to initialize PostgREST client: %w", client.ClientError)
	}
	return client, nil
}
