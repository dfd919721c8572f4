package events

// CacheEvent is emitted on every design cache lookup.
type CacheEvent struct {
	RequestHash string `json:"request_hash"`
	Outcome     string `json:"outcome"`
	RequestID   string `json:"request_id,omitempty"`
}

// JobEvent is emitted on job lifecycle transitions.
type JobEvent struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}
