package store

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), t.Name()+".db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		t.Fatalf("resolving migrations dir: %v", err)
	}
	if err := s.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	return s
}

func TestRecordAndReadAuditEntries(t *testing.T) {
	s := setupTestStore(t)

	entries := []AuditEntry{
		{ChildFrame: "base", ParentFrame: "world", Stamp: time.Unix(0, 0), Authority: "test", Accepted: true},
		{ChildFrame: "base", ParentFrame: "base", Stamp: time.Unix(1, 0), Authority: "test", Accepted: false, Reason: "self-parent"},
	}
	for _, e := range entries {
		if err := s.RecordSetTransform(e); err != nil {
			t.Fatalf("RecordSetTransform: %v", err)
		}
	}

	got, err := s.RecentAuditEntries(10)
	if err != nil {
		t.Fatalf("RecentAuditEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Reason != "self-parent" || got[0].Accepted {
		t.Fatalf("most recent entry = %+v, want the rejected one", got[0])
	}
}

func TestRecentAuditEntriesRespectsLimit(t *testing.T) {
	s := setupTestStore(t)
	for i := 0; i < 5; i++ {
		s.RecordSetTransform(AuditEntry{ChildFrame: "base", ParentFrame: "world", Stamp: time.Unix(int64(i), 0), Authority: "test", Accepted: true})
	}

	got, err := s.RecentAuditEntries(3)
	if err != nil {
		t.Fatalf("RecentAuditEntries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	s := setupTestStore(t)

	migrationsDir, _ := filepath.Abs("../../migrations")
	if err := s.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}

	version, dirty, err := s.MigrateVersion(migrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Fatal("database reported dirty after a clean migration")
	}
	if version != 2 {
		t.Fatalf("version = %d, want 2", version)
	}
}

func TestRecordSetTransformGeneratesRequestIDWhenEmpty(t *testing.T) {
	s := setupTestStore(t)
	if err := s.RecordSetTransform(AuditEntry{ChildFrame: "base", ParentFrame: "world", Stamp: time.Unix(0, 0), Authority: "test", Accepted: true}); err != nil {
		t.Fatalf("RecordSetTransform: %v", err)
	}
	got, err := s.RecentAuditEntries(1)
	if err != nil {
		t.Fatalf("RecentAuditEntries: %v", err)
	}
	if len(got) != 1 || got[0].RequestID == "" {
		t.Fatalf("got = %+v, want a generated RequestID", got)
	}
}

func TestRecordSetTransformPreservesSuppliedRequestID(t *testing.T) {
	s := setupTestStore(t)
	if err := s.RecordSetTransform(AuditEntry{RequestID: "req-123", ChildFrame: "base", ParentFrame: "world", Stamp: time.Unix(0, 0), Authority: "test", Accepted: true}); err != nil {
		t.Fatalf("RecordSetTransform: %v", err)
	}
	got, err := s.RecentAuditEntries(1)
	if err != nil {
		t.Fatalf("RecentAuditEntries: %v", err)
	}
	if len(got) != 1 || got[0].RequestID != "req-123" {
		t.Fatalf("got = %+v, want RequestID req-123", got)
	}
}
