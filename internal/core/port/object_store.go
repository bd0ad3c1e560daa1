package port

import (
	"context"
	"net/http"
	"time"
)

// PresignedRequest is a time-boxed request a client can perform directly against storage.
type PresignedRequest struct {
	URL       string
	Method    string
	Headers   http.Header
	ExpiresAt time.Time
}

// ObjectStore is the object storage boundary used for attachments.
type ObjectStore interface {
	// Metadata returns the user metadata of key. found is false when the
	// object does not exist; that case is not an error.
	Metadata(ctx context.Context, key string) (metadata map[string]string, found bool, err error)
	// ReplaceMetadata overwrites all user metadata of an existing object.
	ReplaceMetadata(ctx context.Context, key string, metadata map[string]string) error
	PresignPut(ctx context.Context, key, contentType string, metadata map[string]string, ttl time.Duration) (PresignedRequest, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (PresignedRequest, error)
}
