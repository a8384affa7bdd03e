// Package queue runs ingestion jobs one at a time, in FIFO order, on a background worker.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/job"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

// Defaults for a new queue.
const (
	DefaultCapacity  = 256
	DefaultRetention = 1000
)

// Queue is an in-memory ingest job queue with a single worker.
// Jobs are not durable across restarts.
type Queue struct {
	ingester  Ingester
	statuses  StatusRecorder
	capacity  int
	retention int
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	jobs     map[string]*job.Job
	order    []string
	pending  []*job.Job
	busy     bool
	started  bool
	stopped  bool
	wake     chan struct{}
	idle     chan struct{}
	isIdle   bool
	cancel   context.CancelFunc
	finished chan struct{}
}

// New creates a stopped queue over ingester. Call Start to begin processing.
func New(ingester Ingester) *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		ingester:  ingester,
		capacity:  DefaultCapacity,
		retention: DefaultRetention,
		logger:    zap.NewNop(),
		now:       time.Now,
		jobs:      make(map[string]*job.Job),
		wake:      make(chan struct{}, 1),
		idle:      idle,
		isIdle:    true,
	}
}

// WithStatusRecorder records the queued and abandoned states of each job's document.
func (q *Queue) WithStatusRecorder(r StatusRecorder) *Queue {
	q.statuses = r
	return q
}

// WithCapacity bounds the number of pending jobs. Zero or less means unbounded.
func (q *Queue) WithCapacity(n int) *Queue {
	q.capacity = n
	return q
}

// WithRetention bounds how many finished jobs stay queryable.
func (q *Queue) WithRetention(n int) *Queue {
	if n > 0 {
		q.retention = n
	}
	return q
}

// WithLogger sets the logger.
func (q *Queue) WithLogger(l *zap.Logger) *Queue {
	q.logger = l
	return q
}

// Start launches the worker. Calling it again is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	q.finished = make(chan struct{})
	go q.run(ctx)
	q.logger.Info("Ingest queue started", zap.Int("pending", len(q.pending)))
}

// Running reports whether the worker is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.started && !q.stopped
}

// Enqueue validates req and appends a job. It never waits for ingestion.
// The queued status is recorded before the worker can see the job.
func (q *Queue) Enqueue(ctx context.Context, req job.Request) (string, error) {
	j, err := job.New(req, q.now())
	if err != nil {
		return "", err
	}

	q.mu.Lock()
	err = q.admitLocked()
	q.mu.Unlock()
	if err != nil {
		return "", err
	}

	q.recordQueued(ctx, j)

	q.mu.Lock()
	if err := q.admitLocked(); err != nil {
		q.mu.Unlock()
		q.recordFailed(ctx, j, err)
		return "", err
	}
	q.jobs[j.ID()] = j
	q.order = append(q.order, j.ID())
	q.pending = append(q.pending, j)
	q.markBusyLocked()
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.IngestQueueDepth.Set(float64(depth))

	select {
	case q.wake <- struct{}{}:
	default:
	}

	q.logger.Debug("Job enqueued",
		zap.String("job_id", j.ID()),
		zap.String("document_id", j.Request().DocumentID),
		zap.Int("depth", depth),
	)
	return j.ID(), nil
}

// admitLocked reports why a new job cannot be accepted.
func (q *Queue) admitLocked() error {
	if q.stopped {
		return domain.ErrQueueStopped
	}
	if q.capacity > 0 && len(q.pending) >= q.capacity {
		return fmt.Errorf("%w: %d pending", domain.ErrQueueFull, len(q.pending))
	}
	return nil
}

// Status returns a snapshot of one job.
func (q *Queue) Status(id string) (job.Status, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return job.Status{}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return j.Snapshot(), nil
}

// List returns snapshots of all retained jobs in enqueue order.
func (q *Queue) List() []job.Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]job.Status, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.jobs[id].Snapshot())
	}
	return out
}

// Drain blocks until no job is pending or running, or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain ingest queue: %w", ctx.Err())
	}
}

// Stop rejects new jobs, fails the pending ones and waits for the running job to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	pending := q.pending
	q.pending = nil
	cancel, finished := q.cancel, q.finished
	q.mu.Unlock()

	now := q.now()
	q.mu.Lock()
	abandoned := make([]*job.Job, 0, len(pending))
	for _, j := range pending {
		if err := j.Fail(now, domain.ErrQueueStopped); err == nil {
			metrics.IngestJobsTotal.WithLabelValues(string(job.StateFailed)).Inc()
			abandoned = append(abandoned, j)
		}
	}
	if !q.busy {
		q.markIdleLocked()
	}
	q.mu.Unlock()
	metrics.IngestQueueDepth.Set(0)

	for _, j := range abandoned {
		q.recordFailed(context.Background(), j, domain.ErrQueueStopped)
	}

	if cancel != nil {
		cancel()
		<-finished
	}
	q.logger.Info("Ingest queue stopped", zap.Int("abandoned", len(pending)))
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.finished)
	for {
		j := q.next()
		if j == nil {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}
		q.process(ctx, j)
	}
}

// next pops the head of the FIFO and marks the worker busy.
func (q *Queue) next() *job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 || q.stopped {
		return nil
	}
	j := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.busy = true
	metrics.IngestQueueDepth.Set(float64(len(q.pending)))
	return j
}

func (q *Queue) process(ctx context.Context, j *job.Job) {
	start := q.now()

	q.mu.Lock()
	err := j.Start(start)
	req := j.Request()
	q.mu.Unlock()
	if err != nil {
		q.logger.Error("Job cannot start", zap.String("job_id", j.ID()), zap.Error(err))
		q.finish()
		return
	}
	q.logger.Info("Job started",
		zap.String("job_id", j.ID()),
		zap.String("state", string(job.StateRunning)),
		zap.String("document_id", req.DocumentID),
	)

	// Stop lets the running job finish; only the wait for new work is cancelled.
	res, ingestErr := q.ingester.Ingest(context.WithoutCancel(ctx), &ingest.Request{
		UserID:     req.UserID,
		DocumentID: req.DocumentID,
		Filename:   req.Filename,
		MimeType:   req.MimeType,
		Data:       req.Data,
		JobID:      j.ID(),
	})

	now := q.now()
	q.mu.Lock()
	var state job.State
	if ingestErr != nil {
		j.Resolve(res.DocumentID)
		_ = j.Fail(now, ingestErr)
		state = job.StateFailed
	} else {
		_ = j.Complete(now, res.DocumentID, res.ChunksInserted)
		state = job.StateDone
	}
	q.mu.Unlock()

	q.reconcileStatus(context.WithoutCancel(ctx), j, &req, res.DocumentID, ingestErr)

	metrics.IngestJobsTotal.WithLabelValues(string(state)).Inc()
	fields := []zap.Field{
		zap.String("job_id", j.ID()),
		zap.String("state", string(state)),
		zap.String("document_id", req.DocumentID),
		zap.String("stored_document_id", res.DocumentID),
		zap.Duration("duration", now.Sub(start)),
	}
	if ingestErr != nil {
		q.logger.Warn("Job failed", append(fields, zap.Error(ingestErr))...)
	} else {
		q.logger.Info("Job done", append(fields, zap.Int("chunks", res.ChunksInserted))...)
	}
	q.finish()
}

// finish clears the busy flag, prunes old jobs and signals idleness.
func (q *Queue) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.busy = false
	q.pruneLocked()
	if len(q.pending) == 0 {
		q.markIdleLocked()
	}
}

// pruneLocked drops the oldest finished jobs beyond the retention limit.
func (q *Queue) pruneLocked() {
	finished := 0
	for _, id := range q.order {
		if q.jobs[id].State().Terminal() {
			finished++
		}
	}
	excess := finished - q.retention
	if excess <= 0 {
		return
	}
	kept := q.order[:0]
	for _, id := range q.order {
		if excess > 0 && q.jobs[id].State().Terminal() {
			delete(q.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}

func (q *Queue) markBusyLocked() {
	if q.isIdle {
		q.idle = make(chan struct{})
		q.isIdle = false
	}
}

func (q *Queue) markIdleLocked() {
	if !q.isIdle {
		close(q.idle)
		q.isIdle = true
	}
}

func (q *Queue) recordQueued(ctx context.Context, j *job.Job) {
	req := j.Request()
	q.saveStatus(ctx, j, &domdoc.IngestStatus{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		State:      domdoc.IngestQueued,
		JobID:      j.ID(),
	})
}

// recordFailed marks the job's document failed with the public form of cause.
func (q *Queue) recordFailed(ctx context.Context, j *job.Job, cause error) {
	req := j.Request()
	q.saveStatus(ctx, j, &domdoc.IngestStatus{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		State:      domdoc.IngestFailed,
		JobID:      j.ID(),
		LastError:  job.OneLine(cause),
	})
}

// reconcileStatus fixes up the queued row once a job has run. The ingester owns
// the row of the document it wrote; the queued row is released when that
// document is another one, and marked failed when nothing was written.
func (q *Queue) reconcileStatus(ctx context.Context, j *job.Job, req *job.Request, storedID string, ingestErr error) {
	if q.statuses == nil {
		return
	}
	switch {
	case storedID == "" && ingestErr != nil:
		q.recordFailed(ctx, j, ingestErr)
	case storedID != "" && storedID != req.DocumentID:
		if err := q.statuses.ReleaseIngestStatus(ctx, req.DocumentID, j.ID()); err != nil {
			q.logger.Warn("Failed to release queued status",
				zap.String("job_id", j.ID()),
				zap.String("document_id", req.DocumentID),
				zap.Error(err),
			)
		}
	}
}

func (q *Queue) saveStatus(ctx context.Context, j *job.Job, st *domdoc.IngestStatus) {
	if q.statuses == nil {
		return
	}
	if err := q.statuses.SaveIngestStatus(ctx, st); err != nil {
		q.logger.Warn("Failed to record job status",
			zap.String("job_id", j.ID()),
			zap.String("document_id", st.DocumentID),
			zap.String("state", string(st.State)),
			zap.Error(err),
		)
	}
}
