package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

type memDecisionStore struct {
	decisions []domain.Decision
}

func (m *memDecisionStore) Insert(ctx context.Context, d domain.Decision) error {
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *memDecisionStore) ListRecent(ctx context.Context, limit int) ([]domain.Decision, error) {
	return nil, nil
}

func (m *memDecisionStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Decision, error) {
	var out []domain.Decision
	for _, d := range m.decisions {
		if d.DecidedAt.Before(before) {
			out = append(out, d)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memDecisionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var kept []domain.Decision
	var deleted int64
	for _, d := range m.decisions {
		if d.DecidedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	m.decisions = kept
	return deleted, nil
}

type memBlobWriter struct {
	objects map[string][]byte
}

func (m *memBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[path] = b
	return nil
}

func TestArchiveDecisions(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &memDecisionStore{}
	for i := 0; i < 5; i++ {
		store.decisions = append(store.decisions, domain.Decision{
			ID:        string(rune('a' + i)),
			Approve:   i%2 == 0,
			DecidedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		})
	}

	writer := &memBlobWriter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewArchiver(writer, store, logger)

	// Cutoff between the third and fourth record.
	cutoff := base.Add(60 * time.Hour)
	n, err := a.ArchiveDecisions(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveDecisions: %v", err)
	}
	if n != 3 {
		t.Fatalf("archived = %d, want 3", n)
	}
	if len(store.decisions) != 2 {
		t.Fatalf("remaining = %d, want 2", len(store.decisions))
	}

	if len(writer.objects) != 1 {
		t.Fatalf("uploaded objects = %d, want 1", len(writer.objects))
	}
	for path, data := range writer.objects {
		if !strings.HasPrefix(path, "archive/decisions/") || !strings.HasSuffix(path, ".jsonl") {
			t.Fatalf("unexpected archive path %q", path)
		}
		if lines := bytes.Count(data, []byte("\n")); lines != 3 {
			t.Fatalf("jsonl lines = %d, want 3", lines)
		}
	}
}

func TestArchiveDecisionsEmpty(t *testing.T) {
	writer := &memBlobWriter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewArchiver(writer, &memDecisionStore{}, logger)

	n, err := a.ArchiveDecisions(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchiveDecisions: %v", err)
	}
	if n != 0 {
		t.Fatalf("archived = %d, want 0", n)
	}
	if len(writer.objects) != 0 {
		t.Fatal("no upload expected for empty window")
	}
}
