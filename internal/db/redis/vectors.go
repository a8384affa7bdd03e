package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragdex/internal/db"
)

const scoreField = "__vector_score"

// Upsert stores chunk vectors as hashes in a single DoMulti round-trip.
func (s *Store) Upsert(ctx context.Context, records []db.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(records))
	for i := range records {
		r := &records[i]
		cmds[i] = s.b().Hset().Key(s.key(r.ChunkID)).FieldValue().
			FieldValue(fieldUserID, r.UserID).
			FieldValue(fieldDocumentID, r.DocumentID).
			FieldValue(fieldVector, vectorToBytes(r.Vector)).
			Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("chunk %s: %w", records[i].ChunkID, err)}
		}
	}
	return nil
}

// Delete removes chunk hashes. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	keys := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		keys[i] = s.key(id)
	}
	cmd := s.b().Del().Key(keys...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// SearchKNN runs an owner-scoped KNN query via FT.SEARCH.
// The index uses the L2 metric, which reports squared distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) ([]db.Neighbor, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if q.K <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf("(%s)=>[KNN %d @%s $BLOB]", buildFilter(q), q.K, fieldVector)
	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		s.index, query,
		"RETURN", "1", scoreField,
		"SORTBY", scoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	).Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return s.parseKNNResult(raw)
}

func (s *Store) parseKNNResult(raw []rueidis.RedisMessage) ([]db.Neighbor, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	out := make([]db.Neighbor, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		squared, ok := parseScore(fields)
		if !ok {
			continue
		}
		out = append(out, db.Neighbor{
			ChunkID:  strings.TrimPrefix(key, s.prefix),
			Distance: math.Sqrt(max(0, squared)),
		})
	}
	return out, nil
}

func parseScore(fields []rueidis.RedisMessage) (float64, bool) {
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil || name != scoreField {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// buildFilter renders the TAG prefilter for owner and optional document scope.
func buildFilter(q *db.KNNQuery) string {
	parts := []string{fmt.Sprintf("@%s:{%s}", fieldUserID, tagEscaper.Replace(q.UserID))}
	if len(q.DocumentIDs) > 0 {
		ids := make([]string, len(q.DocumentIDs))
		for i, id := range q.DocumentIDs {
			ids[i] = tagEscaper.Replace(id)
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", fieldDocumentID, strings.Join(ids, " | ")))
	}
	return strings.Join(parts, " ")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
