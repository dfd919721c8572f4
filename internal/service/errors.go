package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

type ErrJobAlreadyFinished struct {
	error
}

func NewErrJobAlreadyFinished(id uuid.UUID, status string) *ErrJobAlreadyFinished {
	return &ErrJobAlreadyFinished{fmt.Errorf("job %s already reached terminal status %s", id, status)}
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}
