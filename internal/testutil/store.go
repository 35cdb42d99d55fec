package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/localdoc/internal/connmgr"
	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/store"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewMemoryStore opens a fresh in-memory database and returns a store on
// it with a fixed clock and sequential ids. The database is closed when
// the test ends.
func NewMemoryStore(t testing.TB, opts ...store.Option) *store.Store {
	t.Helper()
	m, err := connmgr.Open(context.Background(), connmgr.Options{InMemory: true, Logger: DiscardLogger()})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	base := []store.Option{
		store.WithLogger(DiscardLogger()),
		store.WithClock(FixedClock(Epoch)),
		store.WithIDGenerator(NewSequenceIDs("doc")),
	}
	return store.New(m.Master(), append(base, opts...)...)
}

// Seed inserts one document per JSON body into bucket, in order, as clean
// rows. It fails the test on the first error.
func Seed(t testing.TB, s *store.Store, bucket string, bodies ...string) []*store.Document {
	t.Helper()
	docs := make([]*store.Document, 0, len(bodies))
	for _, body := range bodies {
		obj, err := jsonv.ParseObject([]byte(body))
		if err != nil {
			t.Fatalf("seed %s: parse %s: %v", bucket, body, err)
		}
		doc := &store.Document{Bucket: bucket, Body: obj}
		if err := s.Insert(context.Background(), doc, store.StateClean); err != nil {
			t.Fatalf("seed %s: insert %s: %v", bucket, body, err)
		}
		docs = append(docs, doc)
	}
	return docs
}

// IDs returns the ids of docs in order.
func IDs(docs []store.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
