package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/cache"
	"github.com/tradewatt/designer/internal/events"
	"github.com/tradewatt/designer/internal/store"
	"github.com/tradewatt/designer/internal/store/model"
	"github.com/tradewatt/designer/pkg/log"
	"github.com/tradewatt/designer/pkg/metrics"
)

const (
	cacheOutcomeHit   = "hit"
	cacheOutcomeMiss  = "miss"
	cacheOutcomeError = "error"
)

// DesignService is the read-through front of the design cache. Lookup never
// fails on cache trouble: a store error on the read path degrades to a miss,
// and the hit bookkeeping is fire-and-forget.
type DesignService struct {
	store    store.Store
	producer *events.EventProducer
	cacheTTL time.Duration
	logger   *log.StructuredLogger
}

func NewDesignService(store store.Store, cacheTTL time.Duration, producer *events.EventProducer) *DesignService {
	return &DesignService{
		store:    store,
		producer: producer,
		cacheTTL: cacheTTL,
		logger:   log.NewDebugLogger("design_service"),
	}
}

// CreateDesign resolves a request against the cache. On a hit it returns the
// cached design; on a miss it returns a pending job for the caller to poll.
// A still-active job for the same canonical request is reused instead of
// queueing duplicate work.
func (s *DesignService) CreateDesign(ctx context.Context, req api.DesignRequest) (*api.DesignResponse, error) {
	if len(req.Circuits) == 0 {
		return nil, NewErrInvalidRequest("at least one circuit is required")
	}

	key := cache.Normalize(req)
	hash := cache.Hash(key)

	tracer := s.logger.WithContext(ctx).Operation("create_design").
		WithString("cache_hash", hash).
		WithInt("circuits", len(req.Circuits)).
		Build()

	entry, err := s.store.Cache().Get(ctx, hash, s.cacheTTL)
	switch {
	case err == nil:
		metrics.IncreaseCacheLookupsTotalMetric(cacheOutcomeHit)
		s.emitCacheEvent(ctx, hash, cacheOutcomeHit)

		// best effort, never blocks the response
		go func() {
			if err := s.store.Cache().RecordHit(context.Background(), hash); err != nil {
				zap.S().Named("design_service").Debugw("failed to record cache hit", "cache_hash", hash, "error", err)
			}
		}()

		design := entry.Design.Data
		tracer.Success().WithString("outcome", cacheOutcomeHit).Log()
		return &api.DesignResponse{Cached: true, Design: &design}, nil

	case errors.Is(err, store.ErrRecordNotFound):
		metrics.IncreaseCacheLookupsTotalMetric(cacheOutcomeMiss)
		s.emitCacheEvent(ctx, hash, cacheOutcomeMiss)

	default:
		// a broken cache degrades to a miss, it never fails the request
		metrics.IncreaseCacheLookupsTotalMetric(cacheOutcomeError)
		tracer.Error(err).WithString("outcome", cacheOutcomeError).Log()
	}

	// the active-job lookup and the enqueue have to be one atomic unit,
	// otherwise two equivalent requests can both miss and queue twice
	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	if job := s.findActiveJob(ctx, hash); job != nil {
		if _, err := store.Commit(ctx); err != nil {
			tracer.Error(err).Log()
			return nil, err
		}
		jobApi := job.ToApiResource()
		tracer.Success().WithString("outcome", "job_reused").Log()
		return &api.DesignResponse{Cached: false, Job: &jobApi}, nil
	}

	job, err := s.store.Job().Create(ctx, model.NewJob(uuid.New(), req, hash))
	if err != nil {
		_, _ = store.Rollback(ctx)
		tracer.Error(err).Log()
		return nil, err
	}

	if _, err := store.Commit(ctx); err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	emitJobEvent(ctx, s.producer, job)

	jobApi := job.ToApiResource()
	tracer.Success().WithString("outcome", "job_created").Log()
	return &api.DesignResponse{Cached: false, Job: &jobApi}, nil
}

// StoreDesign persists a computed design for future lookups. Failures are
// logged and swallowed: not caching a result must never fail the work that
// produced it.
func (s *DesignService) StoreDesign(ctx context.Context, req api.DesignRequest, design api.Design) {
	key := cache.Normalize(req)
	hash := cache.Hash(key)

	entry := model.NewCacheEntry(key, design, time.Now())
	if _, err := s.store.Cache().Upsert(ctx, entry); err != nil {
		zap.S().Named("design_service").Errorw("failed to store design", "cache_hash", hash, "error", err)
	}
}

// PurgeExpired drops cache rows older than the TTL window.
func (s *DesignService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.Cache().PurgeExpired(ctx, s.cacheTTL)
}

func (s *DesignService) findActiveJob(ctx context.Context, hash string) *model.Job {
	jobs, err := s.store.Job().List(ctx, store.NewJobQueryFilter().ByRequestHash(hash))
	if err != nil {
		zap.S().Named("design_service").Debugw("failed to list jobs by hash", "cache_hash", hash, "error", err)
		return nil
	}
	for i := range jobs {
		if !api.JobStatus(jobs[i].Status).IsTerminal() {
			return &jobs[i]
		}
	}
	return nil
}

func (s *DesignService) emitCacheEvent(ctx context.Context, hash, outcome string) {
	if s.producer == nil {
		return
	}
	body, err := json.Marshal(events.CacheEvent{RequestHash: hash, Outcome: outcome})
	if err != nil {
		return
	}
	if err := s.producer.Write(ctx, events.CacheMessageKind, bytes.NewReader(body)); err != nil {
		zap.S().Named("design_service").Debugw("failed to emit cache event", "error", err)
	}
}

func emitJobEvent(ctx context.Context, producer *events.EventProducer, job *model.Job) {
	if producer == nil {
		return
	}
	ev := events.JobEvent{JobID: job.ID.String(), Status: job.Status}
	if job.FailureReason != nil {
		ev.FailureReason = *job.FailureReason
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := producer.Write(ctx, events.JobMessageKind, bytes.NewReader(body)); err != nil {
		zap.S().Named("events").Debugw("failed to emit job event", "error", err)
	}
}
