package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{nil, ""},
		{ErrEmptyQuery, CodeInvalidInput},
		{fmt.Errorf("ingest: %w", ErrEmptyDocument), CodeInvalidInput},
		{NewDimensionError(3, 2), CodeInvalidInput},
		{ErrDocumentNotFound, CodeNotFound},
		{fmt.Errorf("open store: %w", ErrDBUnavailable), CodeDBUnavailable},
		{ErrRateLimited, CodeNetwork},
		{fmt.Errorf("embed: %w", ErrEmbeddingProviderError), CodeNetwork},
		{ErrUnsupportedModel, CodeUnsupportedModel},
		{ErrNotImplemented, CodeNotImplemented},
		{errors.New("boom"), CodeUnknown},
	}
	for _, tc := range tests {
		if got := CodeOf(tc.err); got != tc.want {
			t.Errorf("CodeOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestPublicMessage_SanitizesStorage(t *testing.T) {
	err := fmt.Errorf("%w: modernc.org/sqlite: unable to open database file", ErrDBUnavailable)
	msg := PublicMessage(err)
	if strings.Contains(msg, "sqlite") || strings.Contains(msg, "modernc") {
		t.Errorf("message leaks driver identifiers: %q", msg)
	}
	if msg == "" {
		t.Error("message should not be empty")
	}
}

func TestPublicMessage_PassesInvalidInput(t *testing.T) {
	if got := PublicMessage(ErrEmptyQuery); got != ErrEmptyQuery.Error() {
		t.Errorf("message = %q", got)
	}
	if got := PublicMessage(errors.New("sql: connection refused")); got != "internal error" {
		t.Errorf("unknown message = %q", got)
	}
}

func TestPublicMessage_KeepsQueueErrors(t *testing.T) {
	if got := PublicMessage(ErrQueueStopped); got != "ingest queue stopped" {
		t.Errorf("stopped message = %q", got)
	}
	full := fmt.Errorf("%w: 4 pending", ErrQueueFull)
	if got := PublicMessage(full); got != "ingest queue full: 4 pending" {
		t.Errorf("full message = %q", got)
	}
}
