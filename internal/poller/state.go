package poller

import (
	"time"

	api "github.com/tradewatt/designer/api/v1alpha1"
)

// Adaptive cadence: poll fast while a result is likely imminent, then back
// off for long-running jobs.
const (
	fastInterval   = 1 * time.Second
	mediumInterval = 5 * time.Second
	slowInterval   = 10 * time.Second

	fastTicks   = 20
	mediumTicks = 40

	// DefaultLivenessTimeout is how long a processing job may show no
	// progress or step change before the poller force-fails it.
	DefaultLivenessTimeout = 6 * time.Minute
)

type action int

const (
	actionContinue action = iota
	actionStop
	actionForceFail
)

// tickState is the poller's explicit state machine: a cumulative tick count
// driving the backoff schedule, plus the last observed activity for stall
// detection. It has no timers of its own so the schedule is testable with
// plain values.
type tickState struct {
	tick            int
	lastProgress    int
	lastStep        string
	lastActivity    time.Time
	livenessTimeout time.Duration
}

func newTickState(now time.Time, livenessTimeout time.Duration) *tickState {
	return &tickState{
		lastActivity:    now,
		livenessTimeout: livenessTimeout,
	}
}

// interval returns the wait before the next tick.
func (s *tickState) interval() time.Duration {
	switch {
	case s.tick < fastTicks:
		return fastInterval
	case s.tick < mediumTicks:
		return mediumInterval
	default:
		return slowInterval
	}
}

// observeError counts a failed read. The next tick is the retry.
func (s *tickState) observeError() action {
	s.tick++
	return actionContinue
}

// observe folds one successful read into the state and decides what happens
// next.
func (s *tickState) observe(job *api.Job, now time.Time) action {
	s.tick++

	if job.Status.IsTerminal() {
		return actionStop
	}

	step := ""
	if job.CurrentStep != nil {
		step = *job.CurrentStep
	}
	if job.Progress != s.lastProgress || step != s.lastStep {
		s.lastProgress = job.Progress
		s.lastStep = step
		s.lastActivity = now
		return actionContinue
	}

	if job.Status == api.JobStatusProcessing && now.Sub(s.lastActivity) > s.livenessTimeout {
		return actionForceFail
	}

	return actionContinue
}
