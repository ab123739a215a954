// Package storetest provides an in-memory event store for tests.
package storetest

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/iyulab/cyber-defense/internal/store"
)

// New returns a migrated store backed by a private in-memory SQLite database.
// The store is closed when the test ends.
func New(t testing.TB) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s := store.New(db, zaptest.NewLogger(t))
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
