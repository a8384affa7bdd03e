package health

import (
	"context"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a failing optional component.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	CheckDatabase    = "database"
	CheckVectorIndex = "vector_index"
	CheckEmbedding   = "embedding"
	CheckQueue       = "ingest_queue"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        Pinger
	index     Pinger
	embedding EmbeddingChecker
	queue     QueueChecker
	logger    *zap.Logger
}

// New creates a Service. embedding can be nil.
func New(db Pinger, embedding EmbeddingChecker) *Service {
	return &Service{db: db, embedding: embedding, logger: zap.NewNop()}
}

// WithVectorIndex adds an external vector index check.
func (s *Service) WithVectorIndex(p Pinger) *Service {
	s.index = p
	return s
}

// WithQueue adds the ingest worker check.
func (s *Service) WithQueue(q QueueChecker) *Service {
	s.queue = q
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	s.logger = l
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[CheckDatabase] = s.result(CheckDatabase, s.db.Ping(ctx))
	if s.index != nil {
		checks[CheckVectorIndex] = s.result(CheckVectorIndex, s.index.Ping(ctx))
	}
	if s.embedding != nil {
		checks[CheckEmbedding] = s.result(CheckEmbedding, s.embedding.HealthCheck(ctx))
	}
	if s.queue != nil {
		if s.queue.Running() {
			checks[CheckQueue] = CheckOK
		} else {
			checks[CheckQueue] = CheckError
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[CheckDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) result(name string, err error) CheckResult {
	if err != nil {
		s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
