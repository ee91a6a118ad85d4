package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// multipartThreshold is the payload size above which the archiver switches
// from a single PutObject to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// multipartWriter is satisfied by writers that support multipart uploads for
// large payloads.
type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver implements domain.Archiver by querying the opportunity store for
// old records, serializing them to JSONL, uploading the result to S3, and
// deleting the archived rows. Deletion only happens after a successful
// upload, so a failed archive never loses data.
type Archiver struct {
	writer domain.BlobWriter
	store  domain.OpportunityStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver over the given writer and store.
func NewArchiver(writer domain.BlobWriter, store domain.OpportunityStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		store:  store,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveOpportunities uploads all opportunities evaluated before the cutoff
// to archive/opportunities/YYYY-MM.jsonl and removes them from the primary
// store. It returns the number of records archived.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	results, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(results)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", before)
	if mp, ok := a.writer.(multipartWriter); ok && len(buf) > multipartThreshold {
		err = mp.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		// The upload succeeded; the rows will be re-archived next cycle.
		return int64(len(results)), fmt.Errorf("s3blob: archive opportunities delete: %w", err)
	}

	a.logger.Info("opportunities archived",
		slog.String("path", path),
		slog.Int("archived", len(results)),
		slog.Int64("deleted", deleted),
	)
	return int64(len(results)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/opportunities/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
