package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/localdoc/internal/connmgr"
	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/metrics"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore creates a store on a fresh in-memory database.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	m, err := connmgr.Open(context.Background(), connmgr.Options{InMemory: true, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("connmgr.Open() failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	base := []Option{
		WithLogger(discardLogger()),
		WithClock(fixedClock{t: testEpoch}),
		WithMetrics(metrics.New()),
	}
	return New(m.Master(), append(base, opts...)...)
}

// createDiskStore returns a manager on a temp file and a store on its master.
func createDiskStore(t *testing.T) (*connmgr.Manager, *Store) {
	t.Helper()
	m, err := connmgr.Open(context.Background(), connmgr.Options{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("connmgr.Open() failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, New(m.Master(), WithLogger(discardLogger()))
}

// newDoc builds a document from a JSON literal.
func newDoc(bucket, body string) *Document {
	return &Document{Bucket: bucket, Body: jsonv.MustParseObject(body)}
}

// sequenceIDs hands out ids from a fixed list.
type sequenceIDs struct {
	ids []string
}

func (s *sequenceIDs) Next() string {
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id
}
