package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one item in a bulk upsert or delete.
type Result struct {
	id     string
	status ItemStatus
	chunks int
	err    error
}

// NewOK creates a successful batch result carrying the number of chunks written or removed.
func NewOK(id string, chunks int) Result { return Result{id: id, status: StatusOK, chunks: chunks} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Chunks returns the number of chunks affected by the item.
func (r Result) Chunks() int { return r.chunks }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates a bulk operation.
type Summary struct {
	Succeeded int
	Failed    int
	Chunks    int
	FirstErr  error
}

// OK reports whether every item succeeded.
func (s Summary) OK() bool { return s.Failed == 0 }

// Summarize folds per-item results into a Summary.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.status == StatusOK {
			s.Succeeded++
			s.Chunks += r.chunks
			continue
		}
		s.Failed++
		if s.FirstErr == nil {
			s.FirstErr = r.err
		}
	}
	return s
}
