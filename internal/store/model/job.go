package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	api "github.com/tradewatt/designer/api/v1alpha1"
)

// Job is a design generation job. Status transitions are guarded in the job
// store so that terminal states are absorbing.
type Job struct {
	ID            uuid.UUID                     `gorm:"primaryKey"`
	Status        string                        `gorm:"index;not null"`
	Progress      int                           `gorm:"not null;default:0"`
	CurrentStep   *string                       `gorm:"column:current_step"`
	RequestHash   string                        `gorm:"column:request_hash;index"`
	Request       *JSONField[api.DesignRequest] `gorm:"column:request;type:jsonb"`
	Result        *JSONField[api.Design]        `gorm:"column:result;type:jsonb"`
	ErrorMessage  *string                       `gorm:"column:error_message"`
	FailureReason *string                       `gorm:"column:failure_reason"`
	CreatedAt     time.Time                     `gorm:"column:created_at"`
	StartedAt     *time.Time                    `gorm:"column:started_at"`
	CompletedAt   *time.Time                    `gorm:"column:completed_at"`
}

func (Job) TableName() string {
	return "design_jobs"
}

type JobList []Job

func (j Job) String() string {
	v, _ := json.Marshal(j)
	return string(v)
}

func NewJob(id uuid.UUID, request api.DesignRequest, requestHash string) *Job {
	return &Job{
		ID:          id,
		Status:      string(api.JobStatusPending),
		RequestHash: requestHash,
		Request:     MakeJSONField(request),
	}
}

// ToApiResource maps the row to its wire representation.
func (j *Job) ToApiResource() api.Job {
	out := api.Job{
		ID:           j.ID,
		Status:       api.JobStatus(j.Status),
		Progress:     j.Progress,
		CurrentStep:  j.CurrentStep,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
	if j.Result != nil {
		design := j.Result.Data
		out.Result = &design
	}
	if j.FailureReason != nil {
		reason := api.FailureReason(*j.FailureReason)
		out.FailureReason = &reason
	}
	return out
}
