package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to the archive bucket.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged opportunity-log rows to cold storage and prunes them
// from the primary store.
type Archiver interface {
	ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error)
}
