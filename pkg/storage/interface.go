package storage

import (
	"context"
	"io"
	"time"
)

// EvidenceStore persists media captured during an SOS. Upload returns a
// stable key plus a direct URL; SignedURL produces a time-limited link
// for viewers that must not reach the bucket directly.
type EvidenceStore interface {
	Upload(ctx context.Context, request *UploadRequest) (*UploadResponse, error)
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type UploadRequest struct {
	Key         string
	Reader      io.Reader
	ContentType string
	Size        int64
	Metadata    map[string]string
}

type UploadResponse struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}
