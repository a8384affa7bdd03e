package ragdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain/job"
)

// Enqueue schedules doc for background indexing and returns the job id.
// Jobs run one at a time in submission order.
func (c *Client) Enqueue(ctx context.Context, userID string, doc Document) (id string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("enqueue", userID, start, err) }()

	id, err = c.queue.Enqueue(ctx, job.Request{
		UserID:     userID,
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		MimeType:   doc.MimeType,
		Data:       doc.Content,
	})
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

// Job returns a snapshot of an ingest job.
func (c *Client) Job(id string) (Job, error) {
	st, err := c.queue.Status(id)
	if err != nil {
		return Job{}, fmt.Errorf("job status: %w", err)
	}
	return Job{
		ID:             st.ID,
		State:          JobState(st.State),
		DocumentID:     st.DocumentID,
		Filename:       st.Filename,
		EnqueuedAt:     st.EnqueuedAt,
		StartedAt:      st.StartedAt,
		FinishedAt:     st.FinishedAt,
		ChunksInserted: st.ChunksInserted,
		ErrorCode:      ErrorCode(st.ErrorCode),
		Error:          st.Error,
	}, nil
}

// Wait blocks until every enqueued job has finished or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	if err := c.queue.Drain(ctx); err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	return nil
}
