package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Lifecycle phase names.
const (
	PhaseBuild    = "build"
	PhaseGenerate = "generate"
	PhaseBody     = "body"
	PhaseCleanup  = "cleanup"
	PhaseRestore  = "restore"
)

// Phase outcomes.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// PhaseContext holds observability state for one lifecycle phase of a run.
type PhaseContext struct {
	Run       string
	Phase     string
	StartTime time.Time
	Metrics   *Metrics
}

// NewPhaseContext creates a phase context. If metrics is nil, metric
// recording is skipped.
func NewPhaseContext(run, phase string, metrics *Metrics) *PhaseContext {
	return &PhaseContext{
		Run:       run,
		Phase:     phase,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type phaseContextKey struct{}

// WithPhaseContext stores a PhaseContext in the context.
func WithPhaseContext(ctx context.Context, pc *PhaseContext) context.Context {
	return context.WithValue(ctx, phaseContextKey{}, pc)
}

// PhaseContextFromContext retrieves the PhaseContext from context, or nil.
func PhaseContextFromContext(ctx context.Context) *PhaseContext {
	if pc, ok := ctx.Value(phaseContextKey{}).(*PhaseContext); ok {
		return pc
	}
	return nil
}

// Start opens the phase span and stores the phase context in the returned context.
func (pc *PhaseContext) Start(ctx context.Context) (context.Context, trace.Span) {
	pc.StartTime = time.Now()
	ctx, span := StartSpan(ctx, SpanPhase+"."+pc.Phase, trace.WithAttributes(
		attribute.String(AttrRun, pc.Run),
		attribute.String(AttrPhase, pc.Phase),
	))
	return WithPhaseContext(ctx, pc), span
}

// End closes the span and records the phase duration. A non-nil err marks
// the phase failed.
func (pc *PhaseContext) End(ctx context.Context, span trace.Span, err error) string {
	status := StatusOK
	if err != nil {
		status = StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	duration := pc.Duration()
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	pc.Metrics.RecordPhase(ctx, pc.Phase, status, duration)
	return status
}

// Duration returns the elapsed time since the phase started.
func (pc *PhaseContext) Duration() time.Duration {
	return time.Since(pc.StartTime)
}
