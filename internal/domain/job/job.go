package job

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// State is the lifecycle state of an ingest job.
type State string

// Job states. Done and Failed are terminal.
const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// ErrInvalidTransition signals a state change the job state machine forbids.
var ErrInvalidTransition = errors.New("invalid job state transition")

// Request is the payload of one ingest job.
type Request struct {
	UserID     string
	DocumentID string
	Filename   string
	MimeType   string
	Data       []byte
}

// Validate checks that the request carries an owner and content.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if len(r.Data) == 0 {
		return domain.ErrEmptyDocument
	}
	return nil
}

// Job is one queued ingestion. Not safe for concurrent use; the queue guards it.
type Job struct {
	id         string
	req        Request
	state      State
	enqueuedAt time.Time
	startedAt  time.Time
	finishedAt time.Time
	chunks     int
	errCode    domain.Code
	errMsg     string
}

// New validates req and creates a queued job with a fresh id.
func New(req Request, now time.Time) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}
	return &Job{
		id:         uuid.NewString(),
		req:        req,
		state:      StateQueued,
		enqueuedAt: now,
	}, nil
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Request returns the job payload.
func (j *Job) Request() Request { return j.req }

// State returns the current state.
func (j *Job) State() State { return j.state }

// Start moves a queued job to running.
func (j *Job) Start(now time.Time) error {
	if j.state != StateQueued {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.state, StateRunning)
	}
	j.state = StateRunning
	j.startedAt = now
	return nil
}

// Resolve records the document the ingestion wrote. An empty id is ignored.
func (j *Job) Resolve(documentID string) {
	if documentID != "" {
		j.req.DocumentID = documentID
	}
}

// Complete moves a running job to done with its result. documentID is the
// document the ingestion actually wrote, which differs from the requested id
// when the owner already stored the same content.
func (j *Job) Complete(now time.Time, documentID string, chunksInserted int) error {
	if j.state != StateRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.state, StateDone)
	}
	j.Resolve(documentID)
	j.state = StateDone
	j.finishedAt = now
	j.chunks = chunksInserted
	j.req.Data = nil
	return nil
}

// Fail moves a queued or running job to failed, keeping the error class and
// a one-line public message.
func (j *Job) Fail(now time.Time, cause error) error {
	if j.state.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.state, StateFailed)
	}
	j.state = StateFailed
	j.finishedAt = now
	j.errCode = domain.CodeOf(cause)
	j.errMsg = OneLine(cause)
	j.req.Data = nil
	return nil
}

// Snapshot returns an immutable copy of the job's externally visible state.
func (j *Job) Snapshot() Status {
	s := Status{
		ID:             j.id,
		State:          j.state,
		DocumentID:     j.req.DocumentID,
		UserID:         j.req.UserID,
		Filename:       j.req.Filename,
		EnqueuedAt:     j.enqueuedAt,
		ChunksInserted: j.chunks,
		ErrorCode:      j.errCode,
		Error:          j.errMsg,
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		s.StartedAt = &t
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// Status is a point-in-time view of a job.
type Status struct {
	ID             string
	State          State
	DocumentID     string
	UserID         string
	Filename       string
	EnqueuedAt     time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	ChunksInserted int
	ErrorCode      domain.Code
	Error          string
}

// OneLine flattens the public message of err to its first line.
// Storage and unclassified failures collapse to their generic message.
func OneLine(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(domain.PublicMessage(err))
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = strings.TrimSpace(msg[:i])
	}
	return msg
}
