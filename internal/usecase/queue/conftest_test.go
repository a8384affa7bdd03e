package queue

import (
	"context"
	"sync"
	"sync/atomic"

	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

// mockIngester records the order of calls and the peak concurrency.
type mockIngester struct {
	mu       sync.Mutex
	order    []string
	active   atomic.Int32
	peak     atomic.Int32
	gate     chan struct{}
	ingestFn func(ctx context.Context, req *ingest.Request) (ingest.Result, error)
}

func (m *mockIngester) Ingest(ctx context.Context, req *ingest.Request) (ingest.Result, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.order = append(m.order, req.DocumentID)
	m.mu.Unlock()

	if m.gate != nil {
		<-m.gate
	}
	if m.ingestFn != nil {
		return m.ingestFn(ctx, req)
	}
	return ingest.Result{DocumentID: req.DocumentID, ChunksInserted: 2}, nil
}

func (m *mockIngester) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

type mockRecorder struct {
	mu       sync.Mutex
	saved    []domdoc.IngestStatus
	released []string
}

func (m *mockRecorder) SaveIngestStatus(_ context.Context, st *domdoc.IngestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *st)
	return nil
}

func (m *mockRecorder) ReleaseIngestStatus(_ context.Context, documentID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, documentID+"/"+jobID)
	return nil
}

func (m *mockRecorder) statuses() []domdoc.IngestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domdoc.IngestStatus(nil), m.saved...)
}

func (m *mockRecorder) releases() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}
