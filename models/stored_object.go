package models

import (
	"time"
)

// StoredObject is an uploaded recording. Keys have the form <userId>_<epochMillis>.<ext>.
type StoredObject struct {
	Key         string `json:"key"`
	OwnerID     string `json:"owner_id"`
	ContentType string `json:"content_type,omitempty"`
}

// SignedAccessGrant is a short-lived read URL for a stored object. It is never persisted.
type SignedAccessGrant struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
