package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// MaxQueryLength is the maximum allowed query length in bytes.
const MaxQueryLength = 4096

// Request is a validated retrieval query scoped to one owner.
type Request struct {
	userID      string
	text        string
	topK        int
	documentIDs []string
}

// New validates query parameters. A zero topK selects the service default.
func New(userID, text string, topK int, documentIDs []string) (Request, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Request{}, domain.ErrEmptyQuery
	}
	if len(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidInput, MaxQueryLength)
	}
	if strings.TrimSpace(userID) == "" {
		return Request{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidInput)
	}

	var ids []string
	seen := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return Request{userID: userID, text: text, topK: topK, documentIDs: ids}, nil
}

// UserID returns the owner scope.
func (r *Request) UserID() string { return r.userID }

// Text returns the trimmed query text.
func (r *Request) Text() string { return r.text }

// TopK returns the requested result count, 0 when unset.
func (r *Request) TopK() int { return r.topK }

// DocumentIDs returns the optional document filter.
func (r *Request) DocumentIDs() []string { return r.documentIDs }
