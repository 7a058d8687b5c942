package core

import (
	"time"

	"hatchery/internal/entropy"
	"hatchery/pkg/domain"
)

// Clock supplies the current time to the service.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock. A nil ClockFunc reports UTC wall time.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	events  EventRecorder
	entropy domain.EntropySource
	escrow  domain.EscrowLedger
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(nil),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		events:  noopEventRecorder{},
		entropy: entropy.NewBlock(domain.Seed{}),
	}
}

// WithClock overrides the time source used for audit timestamps and durations.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger routes service logging to logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder records an AuditEntry for every mutating operation.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder observes every mutating operation.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer wraps every mutating operation in a span.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithEventRecorder receives Created, Transferred and funds events.
func WithEventRecorder(recorder EventRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.events = recorder
		}
	}
}

// WithEntropySource sets the seed and operation index source. When the source
// has an Advance method the service calls it after every mutating call.
func WithEntropySource(source domain.EntropySource) ServiceOption {
	return func(o *serviceOptions) {
		if source != nil {
			o.entropy = source
		}
	}
}

// WithEscrowLedger enables the funded operations.
func WithEscrowLedger(ledger domain.EscrowLedger) ServiceOption {
	return func(o *serviceOptions) {
		if ledger != nil {
			o.escrow = ledger
		}
	}
}
