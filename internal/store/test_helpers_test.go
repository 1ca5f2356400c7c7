package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/joinq/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// loadUsers loads a small users table with every value type.
func loadUsers(t *testing.T, s *Store) []ir.IRObject {
	t.Helper()
	rows := []ir.IRObject{
		{"id": ir.IRInt(1), "name": ir.IRString("Ada"), "admin": ir.IRBool(true), "tags": ir.IRArray{ir.IRString("x")}},
		{"id": ir.IRInt(2), "name": ir.IRString("Bob"), "admin": ir.IRBool(false)},
		{"id": ir.IRInt(3), "name": ir.IRNull{}, "admin": ir.IRBool(false), "tags": ir.IRObject{"k": ir.IRInt(1)}},
	}
	if _, err := s.LoadTable(context.Background(), "users", []string{"id", "name", "admin", "tags", "note"}, rows); err != nil {
		t.Fatalf("LoadTable() failed: %v", err)
	}
	return rows
}
