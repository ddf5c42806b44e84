package core

import (
	"context"
	"time"
)

// Logger is the minimal structured logging surface the service emits to.
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock abstracts time measurement for operation instrumentation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder receives one observation per completed service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span with the operation outcome.
type TraceSpan interface {
	End(err error)
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger attaches a structured logger to the service.
func WithLogger(logger Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the clock used for duration measurement.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetricsRecorder attaches a metrics sink to the service.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithTracer attaches a tracer to the service.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithAuthorizer replaces the authorization gate evaluated on update and
// delete operations.
func WithAuthorizer(authorizer Authorizer) Option {
	return func(s *Service) {
		if authorizer != nil {
			s.authz = authorizer
		}
	}
}
