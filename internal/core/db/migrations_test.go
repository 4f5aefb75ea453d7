package db

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
)

func openMigrated(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return conn
}

// The schema file opens with a header comment in the same chunk as its
// first CREATE TABLE; every table must still come out of MigrateUp.
func TestMigrateUp_CreatesAllTables(t *testing.T) {
	conn := openMigrated(t)

	tables := []string{
		"subsidy", "eligibility_rule", "match_run", "match_item",
		"users", "field", "cattle", "finance", "api_keys",
	}
	for _, table := range tables {
		var name string
		err := conn.Get(&name, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}

	// And the tables are usable, not just named
	if _, err := conn.Exec("SELECT id, code, name FROM subsidy"); err != nil {
		t.Errorf("subsidy table not queryable: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	conn := openMigrated(t)

	if err := MigrateUp(conn); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}

	var applied int
	if err := conn.Get(&applied, "SELECT COUNT(*) FROM schema_migrations"); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if applied != 1 {
		t.Errorf("expected 1 recorded migration, got %d", applied)
	}
}

func TestMigrateStatus(t *testing.T) {
	conn := openMigrated(t)

	statuses, err := MigrateStatus(conn)
	if err != nil {
		t.Fatalf("MigrateStatus failed: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(statuses))
	}
	s := statuses[0]
	if s.ID != "001_initial_schema.sql" || !s.Applied {
		t.Errorf("unexpected status: %+v", s)
	}
	if s.AppliedAt == nil || s.AppliedAt.IsZero() {
		t.Errorf("expected applied_at timestamp, got %+v", s.AppliedAt)
	}
}

func TestStripCommentLines(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  string
	}{
		{"empty", "", ""},
		{"only comments", "-- a\n-- b\n", ""},
		{"comment header above statement", "-- header\n-- more\nCREATE TABLE t (id TEXT)", "CREATE TABLE t (id TEXT)"},
		{"plain statement", "\nCREATE TABLE t (id TEXT)\n", "CREATE TABLE t (id TEXT)"},
		{"interleaved", "CREATE TABLE t (\n  -- pk\n  id TEXT\n)", "CREATE TABLE t (\n  id TEXT\n)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCommentLines(tc.chunk); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
