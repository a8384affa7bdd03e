package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/db"
)

const chunkColumns = "id, document_id, chunk_index, content, page_start, page_end, char_start, char_end, created_at"

// InsertChunks appends chunks without touching vectors.
func (s *Store) InsertChunks(ctx context.Context, chunks []db.ChunkRow) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertChunksTx(ctx, tx, chunks)
	})
}

// ReplaceChunks swaps every chunk and vector of a document for the given set
// in one transaction. Readers observe either the old set or the new one.
// It returns the ids of the chunks that were replaced.
func (s *Store) ReplaceChunks(
	ctx context.Context, documentID string, chunks []db.ChunkRow, vectors []db.VectorRecord,
) ([]string, error) {
	var removed []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = chunkIDsTx(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if err := deleteChunksTx(ctx, tx, removed); err != nil {
			return err
		}
		if err := insertChunksTx(ctx, tx, chunks); err != nil {
			return err
		}
		return upsertVectorsTx(ctx, tx, vectors)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ListChunks returns a document's chunks ordered by index.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]db.ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY chunk_index", documentID)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	var out []db.ChunkRow
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

// CountChunks returns the number of chunks stored for a document.
func (s *Store) CountChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE document_id = ?", documentID).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpSelect, Err: err}
	}
	return n, nil
}

// ChunkHits loads chunks with their owning document's user and filename.
// Unknown ids are skipped; the result is keyed by chunk id.
func (s *Store) ChunkHits(ctx context.Context, ids []string) (map[string]db.ChunkHit, error) {
	out := make(map[string]db.ChunkHit, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.page_start, c.page_end,
		       c.char_start, c.char_end, c.created_at, d.user_id, d.filename
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			h         db.ChunkHit
			pStart    sql.NullInt64
			pEnd      sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.Index, &h.Content, &pStart, &pEnd,
			&h.CharStart, &h.CharEnd, &createdAt, &h.UserID, &h.Filename); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		h.PageStart = nullIntPtr(pStart)
		h.PageEnd = nullIntPtr(pEnd)
		h.CreatedAt = fromMillis(createdAt)
		out[h.ID] = h
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

func insertChunksTx(ctx context.Context, tx *sql.Tx, chunks []db.ChunkRow) error {
	if len(chunks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Index, c.Content,
			intPtrValue(c.PageStart), intPtrValue(c.PageEnd), c.CharStart, c.CharEnd,
			toMillis(c.CreatedAt)); err != nil {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("chunk %s: %w", c.ID, err)}
		}
	}
	return nil
}

func chunkIDsTx(ctx context.Context, tx *sql.Tx, documentID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index", documentID)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return ids, nil
}

// deleteChunksTx removes chunks and their vectors explicitly so the result
// does not depend on foreign key enforcement being enabled.
func deleteChunksTx(ctx context.Context, tx *sql.Tx, ids []string) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_vectors WHERE chunk_id = ?", id); err != nil {
			return &db.Error{Op: db.OpDelete, Err: err}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id); err != nil {
			return &db.Error{Op: db.OpDelete, Err: err}
		}
	}
	return nil
}

func scanChunk(r rowScanner) (db.ChunkRow, error) {
	var (
		c         db.ChunkRow
		pStart    sql.NullInt64
		pEnd      sql.NullInt64
		createdAt int64
	)
	if err := r.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &pStart, &pEnd,
		&c.CharStart, &c.CharEnd, &createdAt); err != nil {
		return db.ChunkRow{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	c.PageStart = nullIntPtr(pStart)
	c.PageEnd = nullIntPtr(pEnd)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func intPtrValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
