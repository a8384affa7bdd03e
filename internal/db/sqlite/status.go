package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// UpsertIngestStatus records the latest indexing state of a document.
// The original created_at is kept across updates.
func (s *Store) UpsertIngestStatus(ctx context.Context, row *db.IngestStatusRow) error {
	scanned := 0
	if row.IsLikelyScanned {
		scanned = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_status
			(document_id, user_id, status, job_id, last_error, is_likely_scanned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET
			user_id = excluded.user_id,
			status = excluded.status,
			job_id = CASE WHEN excluded.job_id = '' THEN ingest_status.job_id ELSE excluded.job_id END,
			last_error = excluded.last_error,
			is_likely_scanned = excluded.is_likely_scanned,
			updated_at = excluded.updated_at`,
		row.DocumentID, row.UserID, row.Status, row.JobID, row.LastError, scanned,
		toMillis(row.CreatedAt), toMillis(row.UpdatedAt))
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	return nil
}

// GetIngestStatus returns the indexing state of a document.
func (s *Store) GetIngestStatus(ctx context.Context, documentID string) (db.IngestStatusRow, error) {
	var (
		r         db.IngestStatusRow
		scanned   int
		createdAt int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, user_id, status, job_id, last_error, is_likely_scanned, created_at, updated_at
		FROM ingest_status WHERE document_id = ?`, documentID).
		Scan(&r.DocumentID, &r.UserID, &r.Status, &r.JobID, &r.LastError, &scanned, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return db.IngestStatusRow{}, &db.Error{Op: db.OpSelect, Err: db.ErrNotFound}
	}
	if err != nil {
		return db.IngestStatusRow{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	r.IsLikelyScanned = scanned != 0
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

// ReleaseIngestStatus drops the status row a job recorded for documentID when
// the job ended up writing a different document. A row owned by a later job is
// left alone. When documentID names a stored document the row falls back to
// that document's status instead of being deleted.
func (s *Store) ReleaseIngestStatus(ctx context.Context, documentID, jobID string, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, "SELECT status FROM documents WHERE id = ?", documentID).Scan(&status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM ingest_status WHERE document_id = ? AND job_id = ?",
				documentID, jobID); err != nil {
				return &db.Error{Op: db.OpDelete, Err: err}
			}
			return nil
		case err != nil:
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE ingest_status SET status = ?, last_error = '', updated_at = ?
			WHERE document_id = ? AND job_id = ?`,
			status, toMillis(at), documentID, jobID); err != nil {
			return &db.Error{Op: db.OpUpdate, Err: err}
		}
		return nil
	})
}
