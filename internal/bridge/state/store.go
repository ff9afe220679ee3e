// Package state persists the bridge's reconciliation journal: which notes have
// been ingested into Paperless and which documents have been exported back to
// the device. A single-connection SQLite database keeps writes serialized and
// crash-safe.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paperbridge/paperbridge/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS ingested_notes (
    note_path    TEXT    NOT NULL PRIMARY KEY,
    mtime_ns     INTEGER NOT NULL,
    content_hash TEXT    NOT NULL DEFAULT '',
    doc_id       INTEGER,
    ingested_at  TEXT    NOT NULL -- RFC3339
);

CREATE TABLE IF NOT EXISTS exported_docs (
    doc_id      INTEGER NOT NULL PRIMARY KEY,
    local_path  TEXT    NOT NULL,
    checksum    TEXT    NOT NULL DEFAULT '',
    exported_at TEXT    NOT NULL -- RFC3339
);
`

// IngestionRecord tracks the last successful ingest of one note path.
type IngestionRecord struct {
	NotePath    string
	MtimeNanos  int64
	ContentHash string
	// DocumentID links to the remote document representing the note's latest
	// version, or nil before the first successful upload.
	DocumentID *int64
	IngestedAt time.Time
}

// ExportRecord tracks one document exported to the device.
type ExportRecord struct {
	DocumentID int64
	LocalPath  string
	Checksum   string
	ExportedAt time.Time
}

type dbIngestion struct {
	NotePath    string        `db:"note_path"`
	MtimeNanos  int64         `db:"mtime_ns"`
	ContentHash string        `db:"content_hash"`
	DocID       sql.NullInt64 `db:"doc_id"`
	IngestedAt  string        `db:"ingested_at"`
}

type dbExport struct {
	DocID      int64  `db:"doc_id"`
	LocalPath  string `db:"local_path"`
	Checksum   string `db:"checksum"`
	ExportedAt string `db:"exported_at"`
}

// Store is the durable journal behind both reconciliation engines. It is safe
// for concurrent use; the single pooled connection serializes writes.
type Store struct {
	db     *sqlx.DB
	dbPath string
}

// NewStore creates a Store backed by an SQLite database at dbPath.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Open the store and initialize the schema.
func (s *Store) Open() error {
	if s.db != nil {
		return errors.New("state store already open")
	}

	database, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return fmt.Errorf("initialize state schema: %w", err)
	}

	s.db = database
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return errors.New("state store not open")
	}
	if err := s.db.Close(); err != nil {
		slog.Error("close state store", "error", err)
		return err
	}
	slog.Debug("state store closed")
	return nil
}

// GetIngestion returns the record for a note path, or nil if the note has
// never been ingested.
func (s *Store) GetIngestion(notePath string) (*IngestionRecord, error) {
	var row dbIngestion
	err := s.db.Get(&row,
		"SELECT note_path, mtime_ns, content_hash, doc_id, ingested_at FROM ingested_notes WHERE note_path = ?",
		notePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query ingestion %s: %w", notePath, err)
	}

	rec := &IngestionRecord{
		NotePath:    row.NotePath,
		MtimeNanos:  row.MtimeNanos,
		ContentHash: row.ContentHash,
	}
	if row.DocID.Valid {
		id := row.DocID.Int64
		rec.DocumentID = &id
	}
	if t, err := time.Parse(time.RFC3339, row.IngestedAt); err == nil {
		rec.IngestedAt = t
	}
	return rec, nil
}

// UpsertIngestion inserts or overwrites the record for a note path.
func (s *Store) UpsertIngestion(rec *IngestionRecord) error {
	if rec == nil {
		return errors.New("cannot upsert nil ingestion record")
	}

	row := dbIngestion{
		NotePath:    rec.NotePath,
		MtimeNanos:  rec.MtimeNanos,
		ContentHash: rec.ContentHash,
		IngestedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if rec.DocumentID != nil {
		row.DocID = sql.NullInt64{Int64: *rec.DocumentID, Valid: true}
	}

	query := `INSERT INTO ingested_notes (note_path, mtime_ns, content_hash, doc_id, ingested_at)
	          VALUES (:note_path, :mtime_ns, :content_hash, :doc_id, :ingested_at)
	          ON CONFLICT(note_path) DO UPDATE SET
	              mtime_ns     = excluded.mtime_ns,
	              content_hash = excluded.content_hash,
	              doc_id       = excluded.doc_id,
	              ingested_at  = excluded.ingested_at`
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("upsert ingestion %s: %w", rec.NotePath, err)
	}
	slog.Debug("state upsert ingestion", "path", rec.NotePath, "mtime_ns", rec.MtimeNanos)
	return nil
}

// GetExportedIDs returns the ids of all documents with an export record.
func (s *Store) GetExportedIDs() ([]int64, error) {
	var ids []int64
	if err := s.db.Select(&ids, "SELECT doc_id FROM exported_docs"); err != nil {
		return nil, fmt.Errorf("query exported ids: %w", err)
	}
	return ids, nil
}

// GetExportPath returns the recorded local path for an exported document.
// The second return is false when no record exists or no path was recorded.
func (s *Store) GetExportPath(docID int64) (string, bool, error) {
	var path string
	err := s.db.Get(&path, "SELECT local_path FROM exported_docs WHERE doc_id = ?", docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query export path %d: %w", docID, err)
	}
	return path, path != "", nil
}

// UpsertExport inserts or overwrites the record for an exported document.
func (s *Store) UpsertExport(rec *ExportRecord) error {
	if rec == nil {
		return errors.New("cannot upsert nil export record")
	}

	row := dbExport{
		DocID:      rec.DocumentID,
		LocalPath:  rec.LocalPath,
		Checksum:   rec.Checksum,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}

	query := `INSERT INTO exported_docs (doc_id, local_path, checksum, exported_at)
	          VALUES (:doc_id, :local_path, :checksum, :exported_at)
	          ON CONFLICT(doc_id) DO UPDATE SET
	              local_path  = excluded.local_path,
	              checksum    = excluded.checksum,
	              exported_at = excluded.exported_at`
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("upsert export %d: %w", rec.DocumentID, err)
	}
	slog.Debug("state upsert export", "doc_id", rec.DocumentID, "path", rec.LocalPath)
	return nil
}

// DeleteExport removes the record for a document id. Deleting a missing record
// is not an error.
func (s *Store) DeleteExport(docID int64) error {
	if _, err := s.db.Exec("DELETE FROM exported_docs WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("delete export %d: %w", docID, err)
	}
	return nil
}
