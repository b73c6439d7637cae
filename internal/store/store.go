// Package store is the audit log for the transform graph: an append-only
// record of every SetTransform call, accepted or rejected, backed by
// SQLite. It is deliberately not the source of truth for the live graph
// (that lives entirely in memory in *tf.BufferCore) — it exists so a
// deployment can replay or inspect what was published, which is why it
// records the authority and rejection reason alongside each sample.
package store

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/tfgraph/internal/security"
	"github.com/banshee-data/tfgraph/internal/timeutil"
)

// Store wraps a *sql.DB opened against a SQLite file holding the audit log.
type Store struct {
	*sql.DB
	label string // sanitized from the database filename, used to name backups
	clock timeutil.Clock
}

// Open opens (creating if necessary) the SQLite database at path. Callers
// should follow Open with MigrateUp against a migrations directory before
// writing any audit entries.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{
		DB:    db,
		label: security.SanitizeFilename(filepath.Base(path)),
		clock: timeutil.RealClock{},
	}, nil
}

// AuditEntry is one recorded SetTransform call.
type AuditEntry struct {
	RequestID   string // generated by RecordSetTransform if left empty
	ChildFrame  string
	ParentFrame string
	Stamp       time.Time
	Authority   string
	Accepted    bool
	Reason      string // empty when Accepted is true
}

// RecordSetTransform appends one audit entry, generating a RequestID if
// the caller didn't supply one.
func (s *Store) RecordSetTransform(e AuditEntry) error {
	if e.RequestID == "" {
		e.RequestID = uuid.New().String()
	}
	_, err := s.Exec(
		`INSERT INTO audit_log (request_id, child_frame, parent_frame, stamp, authority, accepted, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.ChildFrame, e.ParentFrame, e.Stamp.UnixNano(), e.Authority, e.Accepted, e.Reason,
	)
	return err
}

// RecentAuditEntries returns the most recently recorded entries, newest
// first, bounded by limit.
func (s *Store) RecentAuditEntries(limit int) ([]AuditEntry, error) {
	rows, err := s.Query(
		`SELECT request_id, child_frame, parent_frame, stamp, authority, accepted, reason
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var stampNanos int64
		if err := rows.Scan(&e.RequestID, &e.ChildFrame, &e.ParentFrame, &stampNanos, &e.Authority, &e.Accepted, &e.Reason); err != nil {
			return nil, err
		}
		e.Stamp = time.Unix(0, stampNanos)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AttachAdminRoutes mounts a tailsql SQL browser over the audit log and a
// one-click gzip-compressed backup download under /debug/.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://tfgraph-audit.db", s.DB, &tailsql.DBOptions{
		Label: "tf audit log",
	})
	debug.Handle("tailsql/", "SQL live debugging of the tf audit log", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the audit log now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("%s-backup-%d.db", s.label, s.clock.Now().Unix())
		if _, err := s.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
