// Package extract turns uploaded bytes into plain text, page by page when the format has pages.
package extract

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// DefaultMaxBytes is the default upload size limit.
const DefaultMaxBytes = 50 << 20

// Kind is the detected document format.
type Kind string

// Supported formats.
const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindText Kind = "text"
)

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Page is the text of one page. Numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Result is the extracted content of one document.
// Pages is set only for page-structured formats.
type Result struct {
	Kind            Kind
	Text            string
	Pages           []Page
	IsLikelyScanned bool
}

// Extractor dispatches to a format-specific reader. Safe for concurrent use.
type Extractor struct {
	maxBytes int64
	scanned  ScannedPolicy
	logger   *zap.Logger
}

// New creates an extractor with default limits.
func New() *Extractor {
	return &Extractor{
		maxBytes: DefaultMaxBytes,
		scanned:  DefaultScannedPolicy(),
		logger:   zap.NewNop(),
	}
}

// WithMaxBytes sets the upload size limit.
func (e *Extractor) WithMaxBytes(n int64) *Extractor {
	if n > 0 {
		e.maxBytes = n
	}
	return e
}

// WithScannedPolicy sets the scanned-document thresholds.
func (e *Extractor) WithScannedPolicy(p ScannedPolicy) *Extractor {
	e.scanned = p
	return e
}

// WithLogger sets the logger.
func (e *Extractor) WithLogger(l *zap.Logger) *Extractor {
	if l != nil {
		e.logger = l
	}
	return e
}

// Extract reads data according to its media type, falling back to the file
// extension and content sniffing when the type is missing or generic.
func (e *Extractor) Extract(ctx context.Context, mimeType, filename string, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, domain.ErrEmptyDocument
	}
	if int64(len(data)) > e.maxBytes {
		return Result{}, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrDocumentTooLarge, len(data), e.maxBytes)
	}

	kind, err := Detect(mimeType, filename, data)
	if err != nil {
		return Result{}, err
	}

	switch kind {
	case KindPDF:
		pages, err := e.extractPDF(ctx, data)
		if err != nil {
			return Result{}, fmt.Errorf("extract pdf: %w", err)
		}
		texts := make([]string, len(pages))
		for i, p := range pages {
			texts[i] = p.Text
		}
		return Result{
			Kind:            KindPDF,
			Text:            strings.Join(texts, "\n\n"),
			Pages:           pages,
			IsLikelyScanned: e.scanned.IsLikelyScanned(pages),
		}, nil

	case KindDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return Result{}, fmt.Errorf("extract docx: %w", err)
		}
		return Result{Kind: KindDOCX, Text: text}, nil

	default:
		return Result{Kind: KindText, Text: strings.ToValidUTF8(string(data), "")}, nil
	}
}

// Detect resolves the document format from media type, extension and content.
func Detect(mimeType, filename string, data []byte) (Kind, error) {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(base); err == nil {
		base = parsed
	}

	switch {
	case base == "application/pdf":
		return KindPDF, nil
	case base == docxMime:
		return KindDOCX, nil
	case strings.HasPrefix(base, "text/"), isTextApplication(base):
		return KindText, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".docx":
		return KindDOCX, nil
	case ".txt", ".md", ".markdown", ".csv", ".json", ".log", ".yaml", ".yml", ".xml", ".html", ".htm", ".rst":
		return KindText, nil
	}

	if strings.HasPrefix(string(data[:min(len(data), 5)]), "%PDF-") {
		return KindPDF, nil
	}
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "text/") && utf8.Valid(data) {
		return KindText, nil
	}

	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, mimeType)
}

func isTextApplication(base string) bool {
	switch base {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml",
		"application/markdown", "application/x-ndjson":
		return true
	}
	return false
}
