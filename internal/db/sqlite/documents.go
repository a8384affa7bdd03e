package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/db"
)

const documentColumns = "id, user_id, filename, mime_type, byte_size, sha256, status, created_at"

// UpsertDocument stores a document, keyed by (user, content hash).
// When the owner already has a document with the same hash, the existing row
// is returned unchanged and created is false. Reusing an id that belongs to a
// different owner fails with db.ErrConflict.
func (s *Store) UpsertDocument(ctx context.Context, row *db.DocumentRow) (db.DocumentRow, bool, error) {
	var (
		out     db.DocumentRow
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanDocument(tx.QueryRowContext(ctx,
			"SELECT "+documentColumns+" FROM documents WHERE user_id = ? AND sha256 = ?",
			row.UserID, row.SHA256))
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return err
		}

		byID, err := scanDocument(tx.QueryRowContext(ctx,
			"SELECT "+documentColumns+" FROM documents WHERE id = ?", row.ID))
		switch {
		case err == nil && byID.UserID != row.UserID:
			return &db.Error{Op: db.OpUpdate, Err: fmt.Errorf("document %s: %w", row.ID, db.ErrConflict)}
		case err == nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE documents
				SET filename = ?, mime_type = ?, byte_size = ?, sha256 = ?, status = ?
				WHERE id = ?`,
				row.Filename, row.MimeType, row.ByteSize, row.SHA256, row.Status, row.ID); err != nil {
				return &db.Error{Op: db.OpUpdate, Err: err}
			}
			out = *row
			out.CreatedAt = byID.CreatedAt
			return nil
		case !errors.Is(err, db.ErrNotFound):
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			row.ID, row.UserID, row.Filename, row.MimeType, row.ByteSize, row.SHA256,
			row.Status, toMillis(row.CreatedAt)); err != nil {
			return &db.Error{Op: db.OpInsert, Err: err}
		}
		out = *row
		out.CreatedAt = fromMillis(toMillis(row.CreatedAt))
		created = true
		return nil
	})
	if err != nil {
		return db.DocumentRow{}, false, err
	}
	return out, created, nil
}

// GetDocument returns one document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (db.DocumentRow, error) {
	return scanDocument(s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
}

// ListDocuments returns the owner's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]db.DocumentRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE user_id = ? ORDER BY created_at DESC, id",
		userID)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	var out []db.DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

// SetDocumentStatus updates the lifecycle status of a document.
func (s *Store) SetDocumentStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE documents SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &db.Error{Op: db.OpUpdate, Err: fmt.Errorf("document %s: %w", id, db.ErrNotFound)}
	}
	return nil
}

// DeleteDocument removes an owner's document with its chunks, vectors and
// ingest status. It returns the ids of the removed chunks.
func (s *Store) DeleteDocument(ctx context.Context, userID, id string) ([]string, error) {
	var removed []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM documents WHERE id = ? AND user_id = ?", id, userID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &db.Error{Op: db.OpDelete, Err: fmt.Errorf("document %s: %w", id, db.ErrNotFound)}
			}
			return &db.Error{Op: db.OpSelect, Err: err}
		}

		var err error
		removed, err = chunkIDsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := deleteChunksTx(ctx, tx, removed); err != nil {
			return err
		}
		for _, q := range []string{
			"DELETE FROM ingest_status WHERE document_id = ?",
			"DELETE FROM documents WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return &db.Error{Op: db.OpDelete, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (db.DocumentRow, error) {
	var (
		d         db.DocumentRow
		createdAt int64
	)
	err := r.Scan(&d.ID, &d.UserID, &d.Filename, &d.MimeType, &d.ByteSize, &d.SHA256, &d.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return db.DocumentRow{}, &db.Error{Op: db.OpSelect, Err: db.ErrNotFound}
	}
	if err != nil {
		return db.DocumentRow{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	d.CreatedAt = fromMillis(createdAt)
	return d, nil
}
