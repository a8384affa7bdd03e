package document

import (
	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

func toRow(doc *domdoc.Document) db.DocumentRow {
	return db.DocumentRow{
		ID:        doc.ID(),
		UserID:    doc.UserID(),
		Filename:  doc.Filename(),
		MimeType:  doc.MimeType(),
		ByteSize:  doc.ByteSize(),
		SHA256:    doc.SHA256(),
		Status:    string(doc.Status()),
		CreatedAt: doc.CreatedAt(),
	}
}

func fromRow(row *db.DocumentRow) domdoc.Document {
	return domdoc.Reconstruct(
		row.ID, row.UserID, row.Filename, row.MimeType, row.ByteSize, row.SHA256,
		row.CreatedAt, domdoc.Status(row.Status),
	)
}

func chunkFromRow(row *db.ChunkRow) chunk.Chunk {
	return chunk.Chunk{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		Index:      row.Index,
		Content:    row.Content,
		PageStart:  row.PageStart,
		PageEnd:    row.PageEnd,
		CharStart:  row.CharStart,
		CharEnd:    row.CharEnd,
		CreatedAt:  row.CreatedAt,
	}
}
