package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/store/model"
)

var activeStatuses = []string{string(api.JobStatusPending), string(api.JobStatusProcessing)}

// Job is the design job store. All transition methods are guarded so terminal
// states stay absorbing: an update hitting a row already in a terminal state
// affects zero rows and returns ErrNoRowsUpdated.
type Job interface {
	Create(ctx context.Context, job *model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error)
	ClaimPending(ctx context.Context) (*model.Job, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, currentStep string) error
	Complete(ctx context.Context, id uuid.UUID, result *model.JSONField[api.Design]) error
	Fail(ctx context.Context, id uuid.UUID, message string, reason api.FailureReason) error
	Cancel(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[string]int, error)
	InitialMigration() error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Job{})
}

func (s *JobStore) Create(ctx context.Context, job *model.Job) (*model.Job, error) {
	result := s.getDB(ctx).Create(job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx)
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	result := tx.Order("created_at").Find(&jobs)
	if result.Error != nil {
		return nil, fmt.Errorf("listing jobs: %w", result.Error)
	}
	return jobs, nil
}

// ClaimPending atomically moves the oldest pending job to processing and
// returns it. At most one worker wins a given job.
func (s *JobStore) ClaimPending(ctx context.Context) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).Where("status = ?", string(api.JobStatusPending)).Order("created_at").First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying pending job: %w", result.Error)
	}

	now := time.Now()
	claim := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", job.ID, string(api.JobStatusPending)).
		Updates(map[string]any{
			"status":     string(api.JobStatusProcessing),
			"started_at": now,
		})
	if claim.Error != nil {
		return nil, fmt.Errorf("claiming job: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		// lost the race to another worker
		return nil, ErrNoRowsUpdated
	}

	job.Status = string(api.JobStatusProcessing)
	job.StartedAt = &now
	return &job, nil
}

func (s *JobStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, currentStep string) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", id, string(api.JobStatusProcessing)).
		Updates(map[string]any{
			"progress":     progress,
			"current_step": currentStep,
		})
	return s.transitionResult(result)
}

func (s *JobStore) Complete(ctx context.Context, id uuid.UUID, result *model.JSONField[api.Design]) error {
	res := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", id, string(api.JobStatusProcessing)).
		Updates(map[string]any{
			"status":       string(api.JobStatusComplete),
			"progress":     100,
			"result":       result,
			"completed_at": time.Now(),
		})
	return s.transitionResult(res)
}

// Fail moves an active job to failed. Calling it on a job that already
// reached a terminal state is a no-op signalled by ErrNoRowsUpdated, which
// makes the poller's force-fail idempotent.
func (s *JobStore) Fail(ctx context.Context, id uuid.UUID, message string, reason api.FailureReason) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]any{
			"status":         string(api.JobStatusFailed),
			"error_message":  message,
			"failure_reason": string(reason),
			"completed_at":   time.Now(),
		})
	return s.transitionResult(result)
}

func (s *JobStore) Cancel(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]any{
			"status":       string(api.JobStatusCancelled),
			"completed_at": time.Now(),
		})
	return s.transitionResult(result)
}

func (s *JobStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	result := s.getDB(ctx).Model(&model.Job{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("counting jobs: %w", result.Error)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *JobStore) transitionResult(result *gorm.DB) error {
	if result.Error != nil {
		return fmt.Errorf("updating job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsUpdated
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
