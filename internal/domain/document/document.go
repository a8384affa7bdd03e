package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Status is the lifecycle state of a stored document.
type Status string

// Document status values.
const (
	StatusUploaded Status = "uploaded"
	StatusIndexed  Status = "indexed"
	StatusFailed   Status = "failed"
)

// Valid reports whether s is a known document status.
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusIndexed, StatusFailed:
		return true
	}
	return false
}

// Document is an uploaded source file owned by one user.
// Identity for deduplication is (userID, sha256).
type Document struct {
	id        string
	userID    string
	filename  string
	mimeType  string
	byteSize  int64
	sha256    string
	createdAt time.Time
	status    Status
}

// New validates input, hashes the content and creates a Document in the uploaded state.
// An empty id is replaced with a fresh UUID.
func New(id, userID, filename, mimeType string, content []byte) (Document, error) {
	if strings.TrimSpace(userID) == "" {
		return Document{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if len(content) == 0 {
		return Document{}, domain.ErrEmptyDocument
	}
	if id == "" {
		id = uuid.NewString()
	}
	if filename == "" {
		filename = id
	}

	return Document{
		id:        id,
		userID:    userID,
		filename:  filename,
		mimeType:  mimeType,
		byteSize:  int64(len(content)),
		sha256:    Checksum(content),
		createdAt: time.Now().UTC(),
		status:    StatusUploaded,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, userID, filename, mimeType string, byteSize int64, sha string,
	createdAt time.Time, status Status,
) Document {
	return Document{
		id: id, userID: userID, filename: filename, mimeType: mimeType,
		byteSize: byteSize, sha256: sha, createdAt: createdAt, status: status,
	}
}

// Checksum returns the hex-encoded SHA-256 of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// UserID returns the owner identifier.
func (d *Document) UserID() string { return d.userID }

// Filename returns the original file name.
func (d *Document) Filename() string { return d.filename }

// MimeType returns the declared media type.
func (d *Document) MimeType() string { return d.mimeType }

// ByteSize returns the size of the raw content.
func (d *Document) ByteSize() int64 { return d.byteSize }

// SHA256 returns the hex content hash.
func (d *Document) SHA256() string { return d.sha256 }

// CreatedAt returns the creation timestamp.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// Status returns the lifecycle status.
func (d *Document) Status() Status { return d.status }

// WithStatus returns a copy with the given status.
func (d *Document) WithStatus(s Status) Document {
	c := *d
	c.status = s
	return c
}
