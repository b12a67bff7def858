package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteCredentialStore {
	t.Helper()
	s, err := NewSQLiteCredentialStore(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCredentialStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteCredentialRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, AuthTokenKey, "token-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, AuthTokenKey)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "token-1" {
		t.Errorf("Get() = %q, want token-1", got)
	}
}

func TestSQLiteCredentialOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, AuthTokenKey, "old")
	if err := s.Set(ctx, AuthTokenKey, "new"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := s.Get(ctx, AuthTokenKey); got != "new" {
		t.Errorf("Get() = %q, want new", got)
	}
}

func TestSQLiteCredentialAbsentIsEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Errorf("Get() = %q, want empty string for absent key", got)
	}
}

func TestSQLiteCredentialDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, AuthTokenKey, "token-1")
	if err := s.Delete(ctx, AuthTokenKey); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := s.Get(ctx, AuthTokenKey); got != "" {
		t.Errorf("Get() after Delete() = %q, want empty", got)
	}
}
