package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrNoRowsUpdated is returned by guarded job transitions when the row is
	// already in a state the transition does not apply to.
	ErrNoRowsUpdated = errors.New("no rows updated")
)
