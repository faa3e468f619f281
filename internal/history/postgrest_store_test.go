package history

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	postgrest "github.com/supabase-community/postgrest-go"
)

type recordedRequest struct {
	method string
	path   string
	query  map[string]string
}

func newPostgrestServer(t *testing.T, respond func(r *http.Request) (int, string)) (*PostgrestStore, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k, v := range r.URL.Query() {
			q[k] = v[0]
		}
		mu.Lock()
		requests = append(requests, recordedRequest{r.Method, r.URL.Path, q})
		mu.Unlock()

		status, body := respond(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client := postgrest.NewClient(srv.URL+"/rest/v1", "public", map[string]string{"apikey": "k"})
	return NewPostgrestStore(client), &requests
}

const transcriptRow = `{
	"id": "t1",
	"user_id": "u1",
	"transcript_text": "hello world",
	"language": "en",
	"confidence": 0.93,
	"created_at": "2024-03-01T10:00:00.123456+00:00",
	"summaries": [{"id": "s1", "transcript_id": "t1", "summary_text": "hi", "method": "bart"}]
}`

func TestPostgrestListByUser(t *testing.T) {
	store, requests := newPostgrestServer(t, func(*http.Request) (int, string) {
		return http.StatusOK, "[" + transcriptRow + "]"
	})

	got, err := store.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello world", got[0].TranscriptText)
	require.Len(t, got[0].Summaries, 1)
	assert.Equal(t, "bart", *got[0].Summaries[0].Method)

	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/rest/v1/transcripts", req.path)
	assert.Equal(t, "*,summaries(*)", req.query["select"])
	assert.Equal(t, "eq.u1", req.query["user_id"])
	assert.Equal(t, "created_at.desc.nullslast", req.query["order"])
}

func TestPostgrestGet(t *testing.T) {
	store, _ := newPostgrestServer(t, func(r *http.Request) (int, string) {
		if r.URL.Query().Get("id") == "eq.t1" {
			return http.StatusOK, "[" + transcriptRow + "]"
		}
		return http.StatusOK, "[]"
	})

	got, err := store.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, got.OwnedBy("u1"))

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgrestDeleteThroughRepository(t *testing.T) {
	store, requests := newPostgrestServer(t, func(r *http.Request) (int, string) {
		if r.Method == http.MethodGet {
			return http.StatusOK, "[" + transcriptRow + "]"
		}
		return http.StatusNoContent, ""
	})
	repo := NewRepository(store, quietLogger())

	require.NoError(t, repo.Delete(context.Background(), "t1", "u1"))
	require.Len(t, *requests, 3)

	del := (*requests)[1]
	assert.Equal(t, http.MethodDelete, del.method)
	assert.Equal(t, "/rest/v1/summaries", del.path)
	assert.Equal(t, "in.(s1)", del.query["id"])

	del = (*requests)[2]
	assert.Equal(t, http.MethodDelete, del.method)
	assert.Equal(t, "/rest/v1/transcripts", del.path)
	assert.Equal(t, "eq.t1", del.query["id"])
}

func TestPostgrestErrors(t *testing.T) {
	store, _ := newPostgrestServer(t, func(*http.Request) (int, string) {
		return http.StatusBadRequest, `{"code":"42P01","message":"relation \"public.transcripts\" does not exist"}`
	})

	_, err := store.ListByUser(context.Background(), "u1")
	assert.ErrorContains(t, err, "(42P01)")
	assert.Error(t, store.Ping(context.Background()))
}
