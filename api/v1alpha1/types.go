// Package v1alpha1 contains the wire types of the designer API.
package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a design generation job.
// Complete, Failed and Cancelled are terminal.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether the status is absorbing.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusComplete, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid reports whether the status names a known lifecycle state.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusComplete, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// FailureReason discriminates how a job reached JobStatusFailed.
type FailureReason string

const (
	FailureReasonWorkerError  FailureReason = "worker_error"
	FailureReasonStallTimeout FailureReason = "stall_timeout"
)

// StallTimeoutMessage is the fixed error recorded when a poller force-fails a
// job for showing no activity. Part of the wire contract: workers never write
// it, pollers always do.
const StallTimeoutMessage = "timed out - no activity detected"

// CircuitInput describes one final circuit of the requested installation.
type CircuitInput struct {
	LoadType string  `json:"loadType" validate:"required,load_type"`
	PowerW   float64 `json:"powerW" validate:"gt=0,lte=200000"`
	LengthM  float64 `json:"lengthM" validate:"gt=0,lte=1000"`
	VoltageV int     `json:"voltageV" validate:"oneof=230 400"`
	Phases   string  `json:"phases" validate:"phases"`
}

// SupplySpec is the shared supply context of a design request.
type SupplySpec struct {
	VoltageV int     `json:"voltageV" validate:"oneof=230 400"`
	Phases   string  `json:"phases" validate:"phases"`
	Ze       float64 `json:"ze" validate:"gt=0,lte=10"`
	Earthing string  `json:"earthing" validate:"earthing"`
}

// DesignRequest is the caller's description of the installation to design.
type DesignRequest struct {
	Circuits []CircuitInput `json:"circuits" validate:"required,min=1,max=50,dive"`
	Supply   SupplySpec     `json:"supply" validate:"required"`
}

// CircuitDesign is the computed design for a single circuit.
type CircuitDesign struct {
	LoadType       string   `json:"loadType"`
	DesignCurrentA float64  `json:"designCurrentA"`
	DeviceRatingA  int      `json:"deviceRatingA"`
	DeviceType     string   `json:"deviceType"`
	CableCSAmm2    float64  `json:"cableCsaMm2"`
	CpcCSAmm2      float64  `json:"cpcCsaMm2"`
	VoltageDropV   float64  `json:"voltageDropV"`
	VoltageDropPct float64  `json:"voltageDropPct"`
	ZsOhms         float64  `json:"zsOhms"`
	MaxZsOhms      float64  `json:"maxZsOhms"`
	Compliant      bool     `json:"compliant"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Design is the full result of a design computation.
type Design struct {
	Circuits      []CircuitDesign `json:"circuits"`
	TotalDemandA  float64         `json:"totalDemandA"`
	SupplyComment string          `json:"supplyComment,omitempty"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// Job is the status document of an asynchronous design generation job.
type Job struct {
	ID            uuid.UUID      `json:"id"`
	Status        JobStatus      `json:"status"`
	Progress      int            `json:"progress"`
	CurrentStep   *string        `json:"currentStep,omitempty"`
	Result        *Design        `json:"result,omitempty"`
	ErrorMessage  *string        `json:"errorMessage,omitempty"`
	FailureReason *FailureReason `json:"failureReason,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	StartedAt     *time.Time     `json:"startedAt,omitempty"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}

// DesignResponse is returned by POST /api/v1/designs. Exactly one of Design
// and Job is set: Design on a cache hit, Job on a miss.
type DesignResponse struct {
	Cached bool    `json:"cached"`
	Design *Design `json:"design,omitempty"`
	Job    *Job    `json:"job,omitempty"`
}

// Error is the generic error body.
type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}
