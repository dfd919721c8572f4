// Package poller observes a design job from the client side. It never drives
// the job forward; its only write is force-failing a job whose worker went
// silent.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/tradewatt/designer/api/v1alpha1"
	"github.com/tradewatt/designer/internal/client"
)

// Clock abstracts timers so the backoff schedule and stall detection are
// testable without waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Option func(p *Poller)

func WithClock(c Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

func WithLivenessTimeout(d time.Duration) Option {
	return func(p *Poller) {
		p.livenessTimeout = d
	}
}

// WithOnUpdate registers a callback invoked with every successfully read job
// document, terminal ones included.
func WithOnUpdate(fn func(job api.Job)) Option {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// Poller polls one job at an adaptive cadence until it observes a terminal
// state or detects a stall. Stopping the poller only stops observation; it
// does not cancel the job.
type Poller struct {
	client          client.Designer
	clock           Clock
	livenessTimeout time.Duration
	onUpdate        func(job api.Job)
	log             *zap.SugaredLogger

	mu      sync.Mutex
	jobID   uuid.UUID
	state   *tickState
	running bool
	stopCh  chan struct{}
}

func New(c client.Designer, opts ...Option) *Poller {
	p := &Poller{
		client:          c,
		clock:           realClock{},
		livenessTimeout: DefaultLivenessTimeout,
		log:             zap.S().Named("poller"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Attach binds the poller to a job and starts polling. Attaching the zero
// uuid is a no-op: there is nothing to observe.
func (p *Poller) Attach(ctx context.Context, jobID uuid.UUID) {
	if jobID == uuid.Nil {
		return
	}

	p.mu.Lock()
	p.stopLocked()
	p.jobID = jobID
	p.state = newTickState(p.clock.Now(), p.livenessTimeout)
	p.mu.Unlock()

	p.Start(ctx)
}

// Start enables polling of the attached job. Callers can pause and resume
// observation without losing the job id. No-op when already running or when
// no job is attached.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.jobID == uuid.Nil {
		return
	}

	p.running = true
	p.stopCh = make(chan struct{})
	go p.loop(ctx, p.jobID, p.stopCh)
}

// Stop disables polling. Idempotent; the job id stays attached so Start can
// resume.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) stopLocked() {
	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

func (p *Poller) loop(ctx context.Context, jobID uuid.UUID, stopCh chan struct{}) {
	for {
		p.mu.Lock()
		interval := p.state.interval()
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-p.clock.After(interval):
		}

		if done := p.poll(ctx, jobID); done {
			p.mu.Lock()
			if p.stopCh == stopCh {
				p.stopLocked()
			}
			p.mu.Unlock()
			return
		}
	}
}

// poll performs one tick and reports whether polling is finished.
func (p *Poller) poll(ctx context.Context, jobID uuid.UUID) bool {
	job, err := p.client.GetJob(ctx, jobID)
	now := p.clock.Now()

	p.mu.Lock()
	var act action
	if err != nil {
		act = p.state.observeError()
	} else {
		act = p.state.observe(job, now)
	}
	p.mu.Unlock()

	if err != nil {
		// the next tick is the retry
		p.log.Debugw("failed to read job", "job_id", jobID, "error", err)
		return false
	}

	if p.onUpdate != nil {
		p.onUpdate(*job)
	}

	switch act {
	case actionStop:
		p.log.Infow("job reached terminal state", "job_id", jobID, "status", job.Status)
		return true
	case actionForceFail:
		p.log.Warnw("no activity past liveness threshold, force-failing job", "job_id", jobID)
		failed, err := p.client.FailJob(ctx, jobID, api.StallTimeoutMessage)
		if err != nil {
			// watchers still get a terminal document, otherwise anyone
			// waiting on the job would block forever
			p.log.Errorw("failed to force-fail job", "job_id", jobID, "error", err)
			msg := api.StallTimeoutMessage
			reason := api.FailureReasonStallTimeout
			failed = &api.Job{ID: jobID, Status: api.JobStatusFailed, ErrorMessage: &msg, FailureReason: &reason}
		}
		if p.onUpdate != nil {
			p.onUpdate(*failed)
		}
		return true
	default:
		return false
	}
}
