package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradewatt/designer/pkg/requestid"
)

// StructuredLogger is a thin builder over zap used by the service layer to
// trace operations. A typical flow is:
//
//	tracer := logger.WithContext(ctx).Operation("lookup_design").WithString("hash", h).Build()
//	...
//	tracer.Success().WithInt("hit_count", n).Log()
type StructuredLogger struct {
	logger    *zap.SugaredLogger
	requestID string
}

// NewDebugLogger returns a structured logger named after the component.
func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{logger: zap.S().Named(name)}
}

// WithContext attaches the request id found in ctx, if any.
func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	return &StructuredLogger{logger: l.logger, requestID: requestid.FromContext(ctx)}
}

// Operation starts building a tracer for a named operation.
func (l *StructuredLogger) Operation(op string) *OperationBuilder {
	b := &OperationBuilder{logger: l.logger, op: op}
	if l.requestID != "" {
		b.params = append(b.params, "request_id", l.requestID)
	}
	return b
}

// OperationBuilder accumulates the parameters logged with every event of the
// operation.
type OperationBuilder struct {
	logger *zap.SugaredLogger
	op     string
	params []any
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.params = append(b.params, key, value)
	return b
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	return b.WithParam(key, value)
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	return b.WithParam(key, value)
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	return b.WithParam(key, value)
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	return b.WithParam(key, value.String())
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger: b.logger,
		op:     b.op,
		params: b.params,
		start:  time.Now(),
	}
}

// OperationTracer emits events scoped to one operation.
type OperationTracer struct {
	logger *zap.SugaredLogger
	op     string
	params []any
	start  time.Time
}

func (t *OperationTracer) Step(name string) *Event {
	return t.event("debug", "step", "step", name)
}

func (t *OperationTracer) Success() *Event {
	return t.event("info", "success", "duration_ms", time.Since(t.start).Milliseconds())
}

func (t *OperationTracer) Error(err error) *Event {
	return t.event("error", "error", "error", err.Error())
}

func (t *OperationTracer) event(level, outcome string, extra ...any) *Event {
	kv := make([]any, 0, len(t.params)+len(extra)+4)
	kv = append(kv, "operation", t.op, "outcome", outcome)
	kv = append(kv, t.params...)
	kv = append(kv, extra...)
	return &Event{logger: t.logger, level: level, msg: t.op, params: kv}
}

// Event is a single log entry ready to be written.
type Event struct {
	logger *zap.SugaredLogger
	level  string
	msg    string
	params []any
}

func (e *Event) WithParam(key string, value any) *Event {
	e.params = append(e.params, key, value)
	return e
}

func (e *Event) WithString(key, value string) *Event {
	return e.WithParam(key, value)
}

func (e *Event) WithInt(key string, value int) *Event {
	return e.WithParam(key, value)
}

func (e *Event) Log() {
	switch e.level {
	case "debug":
		e.logger.Debugw(e.msg, e.params...)
	case "error":
		e.logger.Errorw(e.msg, e.params...)
	default:
		e.logger.Infow(e.msg, e.params...)
	}
}
