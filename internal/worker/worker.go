// Package worker claims pending design jobs and runs the design engine on
// them. Many workers can run against the same store; the guarded claim makes
// sure each job has exactly one authoritative writer.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/designer"
	"github.com/tradewatt/designer/internal/service"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/internal/store/model"
	"github.com/tradewatt/designer/pkg/metrics"
)

type Worker struct {
	store     store.Store
	engine    *designer.Engine
	designSvc *service.DesignService
	stepDelay time.Duration
	interval  time.Duration
	log       *zap.SugaredLogger
}

func New(store store.Store, engine *designer.Engine, designSvc *service.DesignService, interval, stepDelay time.Duration) *Worker {
	return &Worker{
		store:     store,
		engine:    engine,
		designSvc: designSvc,
		stepDelay: stepDelay,
		interval:  interval,
		log:       zap.S().Named("worker"),
	}
}

// Run polls for pending jobs until the context is cancelled. The tick is
// jittered so multiple workers do not claim in lockstep.
func (w *Worker) Run(ctx context.Context) {
	ticker := jitterbug.New(w.interval, &jitterbug.Norm{Stdev: 100 * time.Millisecond, Mean: 0})
	defer ticker.Stop()

	w.log.Infof("worker started, poll interval %s", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
			w.updateStatusMetrics(ctx)
		}
	}
}

// drain processes pending jobs until the queue is empty.
func (w *Worker) drain(ctx context.Context) {
	for {
		if err := w.ProcessNext(ctx); err != nil {
			if !errors.Is(err, store.ErrRecordNotFound) {
				w.log.Errorw("failed to process job", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// ProcessNext claims the oldest pending job and runs it to a terminal state.
// store.ErrRecordNotFound means the queue is empty.
func (w *Worker) ProcessNext(ctx context.Context) error {
	job, err := w.store.Job().ClaimPending(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoRowsUpdated) {
			// another worker won the claim
			return nil
		}
		return err
	}

	w.process(ctx, job)
	return nil
}

func (w *Worker) process(ctx context.Context, job *model.Job) {
	w.log.Infow("processing job", "job_id", job.ID)

	if job.Request == nil {
		w.fail(ctx, job, "job has no request payload")
		return
	}
	req := job.Request.Data

	// lost writes mean the job was cancelled or force-failed under us;
	// cancel the computation instead of racing the terminal state
	runCtx, lostOwnership := context.WithCancel(ctx)
	defer lostOwnership()

	notify := func(progress int, step string) {
		if err := w.store.Job().UpdateProgress(ctx, job.ID, progress, step); err != nil {
			if errors.Is(err, store.ErrNoRowsUpdated) {
				lostOwnership()
				return
			}
			w.log.Warnw("failed to update progress", "job_id", job.ID, "error", err)
		}
		if w.stepDelay > 0 {
			select {
			case <-time.After(w.stepDelay):
			case <-runCtx.Done():
			}
		}
	}

	design, err := w.engine.Design(runCtx, req, notify)
	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			w.log.Infow("job lost ownership, abandoning", "job_id", job.ID)
			return
		}
		w.fail(ctx, job, err.Error())
		return
	}

	if err := w.store.Job().Complete(ctx, job.ID, model.MakeJSONField(*design)); err != nil {
		if errors.Is(err, store.ErrNoRowsUpdated) {
			w.log.Infow("job reached a terminal state before completion", "job_id", job.ID)
			return
		}
		w.log.Errorw("failed to complete job", "job_id", job.ID, "error", err)
		return
	}

	// populate the cache for future equivalent requests, best effort
	w.designSvc.StoreDesign(ctx, req, *design)
	w.log.Infow("job complete", "job_id", job.ID)
}

func (w *Worker) fail(ctx context.Context, job *model.Job, message string) {
	err := w.store.Job().Fail(ctx, job.ID, message, api.FailureReasonWorkerError)
	if err != nil && !errors.Is(err, store.ErrNoRowsUpdated) {
		w.log.Errorw("failed to mark job failed", "job_id", job.ID, "error", err)
		return
	}
	w.log.Warnw("job failed", "job_id", job.ID, "error", message)
}

func (w *Worker) updateStatusMetrics(ctx context.Context) {
	counts, err := w.store.Job().CountByStatus(ctx)
	if err != nil {
		w.log.Debugw("failed to count jobs", "error", err)
		return
	}
	for _, status := range []api.JobStatus{
		api.JobStatusPending,
		api.JobStatusProcessing,
		api.JobStatusComplete,
		api.JobStatusFailed,
		api.JobStatusCancelled,
	} {
		metrics.UpdateJobStatusCountMetric(string(status), counts[string(status)])
	}
}
