package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// archivePageSize bounds how many decisions are loaded per archive batch.
const archivePageSize = 5000

// Archiver implements domain.Archiver by paging aged decision records out of
// the database, serializing them to JSONL, uploading the result to S3, and
// only then deleting the archived rows. A failed upload leaves the database
// untouched so the next run retries the same window.
type Archiver struct {
	writer    domain.BlobWriter
	decisions domain.DecisionStore
	logger    *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, decisions domain.DecisionStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		decisions: decisions,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveDecisions uploads all decisions decided before the cutoff to
// archive/decisions/YYYY-MM-DD.jsonl and deletes them from the database.
// It returns the number of records archived.
func (a *Archiver) ArchiveDecisions(ctx context.Context, before time.Time) (int64, error) {
	var archived int64
	for {
		page, err := a.decisions.ListBefore(ctx, before, archivePageSize)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive decisions query: %w", err)
		}
		if len(page) == 0 {
			return archived, nil
		}

		buf, err := marshalJSONL(page)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive decisions marshal: %w", err)
		}

		// Pages are oldest-first, so the last entry bounds this batch. The
		// delete cutoff is nudged past it to include that entry itself.
		cutoff := page[len(page)-1].DecidedAt.Add(time.Nanosecond)

		path := archivePath("decisions", cutoff)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return archived, fmt.Errorf("s3blob: archive decisions upload: %w", err)
		}

		deleted, err := a.decisions.DeleteBefore(ctx, cutoff)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive decisions delete: %w", err)
		}

		archived += int64(len(page))
		a.logger.InfoContext(ctx, "archived decisions",
			slog.String("path", path),
			slog.Int("uploaded", len(page)),
			slog.Int64("deleted", deleted),
		)

		if len(page) < archivePageSize {
			return archived, nil
		}
	}

}

// archivePath builds the S3 key for an archive file, partitioned by the
// cutoff date.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01-02"))
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
