package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseBackend stores objects in a Supabase Storage bucket.
type SupabaseBackend struct {
	url    string
	key    string
	bucket string
	// client is used for signing only. storage-go keeps upload options in the
	// client's shared headers, so each upload gets its own client.
	client *storage_go.Client
}

// NewSupabaseBackend creates a backend for bucket. storageURL is the project's
// storage endpoint, e.g. https://<ref>.supabase.co/storage/v1.
func NewSupabaseBackend(storageURL, key, bucket string) *SupabaseBackend {
	return &SupabaseBackend{
		url:    storageURL,
		key:    key,
		bucket: bucket,
		client: newStorageClient(storageURL, key),
	}
}

func newStorageClient(storageURL, key string) *storage_go.Client {
	return storage_go.NewClient(storageURL, key, map[string]string{"apikey": key})
}

func (b *SupabaseBackend) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cacheControl := "3600"
	upsert := false
	_, err := newStorageClient(b.url, b.key).UploadFile(b.bucket, key, body, storage_go.FileOptions{
		CacheControl: &cacheControl,
		ContentType:  &contentType,
		Upsert:       &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", b.bucket, key, err)
	}
	return nil
}

func (b *SupabaseBackend) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := b.client.CreateSignedUrl(b.bucket, key, int(ttl.Seconds()))
	if err != nil {
		return "", fmt.Errorf("sign %s/%s: %w", b.bucket, key, err)
	}
	return resp.SignedURL, nil
}
