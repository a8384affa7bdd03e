package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Upsert stores chunk vectors. The chunks must already exist.
func (s *Store) Upsert(ctx context.Context, records []db.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertVectorsTx(ctx, tx, records)
	})
}

// Delete removes vectors by chunk id. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM chunk_vectors WHERE chunk_id IN ("+placeholders(len(chunkIDs))+")", args...); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

// SearchKNN scans the owner's vectors exhaustively and returns the K nearest
// by Euclidean distance. Ties are broken by chunk id.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) ([]db.Neighbor, error) {
	if q.K <= 0 {
		return nil, nil
	}

	query := `
		SELECT v.chunk_id, v.embedding
		FROM chunk_vectors v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE d.user_id = ?`
	args := []any{q.UserID}
	if len(q.DocumentIDs) > 0 {
		query += " AND d.id IN (" + placeholders(len(q.DocumentIDs)) + ")"
		for _, id := range q.DocumentIDs {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	var out []db.Neighbor
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: fmt.Errorf("chunk %s: %w", id, err)}
		}
		if len(vec) != len(q.Vector) {
			continue
		}
		out = append(out, db.Neighbor{ChunkID: id, Distance: domain.L2Distance(q.Vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if len(out) > q.K {
		out = out[:q.K]
	}
	return out, nil
}

// CountVectors returns the number of stored vectors for a document.
func (s *Store) CountVectors(ctx context.Context, documentID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunk_vectors v JOIN chunks c ON c.id = v.chunk_id
		WHERE c.document_id = ?`, documentID).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpSelect, Err: err}
	}
	return n, nil
}

func upsertVectorsTx(ctx context.Context, tx *sql.Tx, records []db.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_vectors (chunk_id, dim, embedding) VALUES (?, ?, ?)
		ON CONFLICT (chunk_id) DO UPDATE SET dim = excluded.dim, embedding = excluded.embedding`)
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ChunkID, len(r.Vector), encodeVector(r.Vector)); err != nil {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("vector %s: %w", r.ChunkID, err)}
		}
	}
	return nil
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
