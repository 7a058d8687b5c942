package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq atomic.Uint64

// OperationStats aggregates the outcomes of one operation name.
type OperationStats struct {
	Success       int64   `json:"success"`
	Error         int64   `json:"error"`
	TotalMillis   float64 `json:"total_ms"`
	LastSucceeded bool    `json:"last_succeeded"`
}

// ExpvarMetricsRecorder keeps per-operation counters and publishes them as a
// single expvar variable, visible on /debug/vars when the host serves it.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated hatchery_service_metrics_N name when name is empty. expvar names
// are process-global, so publishing the same name twice panics.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("hatchery_service_metrics_%d", expvarSeq.Add(1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Stats() }))
	return rec
}

// Name returns the expvar variable name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Stats returns a copy of the per-operation aggregates.
func (r *ExpvarMetricsRecorder) Stats() map[string]OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.ops)
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.ops[operation]
	if success {
		stats.Success++
	} else {
		stats.Error++
	}
	stats.TotalMillis += float64(duration) / float64(time.Millisecond)
	stats.LastSucceeded = success
	r.ops[operation] = stats
}

// SpanRecord is one finished span as written by JSONTracer.
type SpanRecord struct {
	Operation string    `json:"operation"`
	Error     string    `json:"error,omitempty"`
	Started   time.Time `json:"started"`
	Ended     time.Time `json:"ended"`
}

// Failed reports whether the span ended with an error.
func (r SpanRecord) Failed() bool { return r.Error != "" }

// JSONTracer writes finished spans as JSON lines and keeps them in memory.
type JSONTracer struct {
	mu    sync.Mutex
	spans []SpanRecord
	enc   *json.Encoder
	now   func() time.Time
}

// NewJSONTracer returns a tracer writing to w. A nil writer only retains spans.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{now: func() time.Time { return time.Now().UTC() }}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Spans returns the finished spans in completion order.
func (t *JSONTracer) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.spans...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, record: SpanRecord{Operation: operation, Started: t.now()}}
}

type jsonSpan struct {
	tracer *JSONTracer
	record SpanRecord
	once   sync.Once
}

func (s *jsonSpan) End(err error) {
	s.once.Do(func() {
		s.record.Ended = s.tracer.now()
		if err != nil {
			s.record.Error = err.Error()
		}
		s.tracer.mu.Lock()
		defer s.tracer.mu.Unlock()
		s.tracer.spans = append(s.tracer.spans, s.record)
		if s.tracer.enc != nil {
			_ = s.tracer.enc.Encode(s.record)
		}
	})
}

// MemoryAuditRecorder retains audit entries in memory.
type MemoryAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record implements AuditRecorder.
func (r *MemoryAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

// Entries returns the recorded entries in order.
func (r *MemoryAuditRecorder) Entries() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEntry(nil), r.entries...)
}

// MemoryEventRecorder retains emitted events in memory.
type MemoryEventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements EventRecorder.
func (r *MemoryEventRecorder) Emit(_ context.Context, event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns the emitted events in order.
func (r *MemoryEventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
