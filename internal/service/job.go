package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/events"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/internal/store/model"
	"github.com/tradewatt/designer/pkg/log"
	"github.com/tradewatt/designer/pkg/metrics"
)

// StallTimeoutMessage is the default message applied when a force-fail comes
// in with no message of its own.
const StallTimeoutMessage = api.StallTimeoutMessage

type JobService struct {
	store    store.Store
	producer *events.EventProducer
	logger   *log.StructuredLogger
}

func NewJobService(store store.Store, producer *events.EventProducer) *JobService {
	return &JobService{
		store:    store,
		producer: producer,
		logger:   log.NewDebugLogger("job_service"),
	}
}

// ListJobs returns jobs ordered by creation time, optionally narrowed to one
// status. A non-positive limit returns everything.
func (s *JobService) ListJobs(ctx context.Context, status string, limit int) (model.JobList, error) {
	filter := store.NewJobQueryFilter()
	if status != "" {
		filter = filter.ByStatus(status)
	}
	if limit > 0 {
		filter = filter.WithLimit(limit)
	}
	return s.store.Job().List(ctx, filter)
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

// CancelJob moves an active job to cancelled. Cancelling a job that already
// reached a terminal state is rejected rather than silently accepted.
func (s *JobService) CancelJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	tracer := s.logger.WithContext(ctx).Operation("cancel_job").WithUUID("job_id", id).Build()

	// read, guarded update and re-read share one transaction so the status
	// reported back is the one the cancel actually raced against
	ctx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		_, _ = store.Rollback(ctx)
		tracer.Error(err).Log()
		return nil, err
	}

	if err := s.store.Job().Cancel(ctx, id); err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, store.ErrNoRowsUpdated) {
			tracer.Error(err).WithString("status", job.Status).Log()
			return nil, NewErrJobAlreadyFinished(id, job.Status)
		}
		tracer.Error(err).Log()
		return nil, err
	}

	job, err = s.GetJob(ctx, id)
	if err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	if _, err := store.Commit(ctx); err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	emitJobEvent(ctx, s.producer, job)
	tracer.Success().Log()
	return job, nil
}

// ForceFailJob is the poller's liveness recovery. It is idempotent: once the
// job is terminal further calls are no-ops and return the job unchanged, so
// the worker completing and the poller force-failing can race safely.
func (s *JobService) ForceFailJob(ctx context.Context, id uuid.UUID, message string) (*model.Job, error) {
	tracer := s.logger.WithContext(ctx).Operation("force_fail_job").WithUUID("job_id", id).Build()

	if _, err := s.GetJob(ctx, id); err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	err := s.store.Job().Fail(ctx, id, message, api.FailureReasonStallTimeout)
	switch {
	case err == nil:
		metrics.IncreaseJobsForcedFailedTotalMetric()
	case errors.Is(err, store.ErrNoRowsUpdated):
		// already terminal, nothing to do
	default:
		tracer.Error(err).Log()
		return nil, err
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == string(api.JobStatusFailed) {
		emitJobEvent(ctx, s.producer, job)
	}
	tracer.Success().WithString("status", job.Status).Log()
	return job, nil
}
