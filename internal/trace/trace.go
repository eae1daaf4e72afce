// Package trace defines the Jaeger-shaped trace model and the pure analysis
// over a single captured trace.
package trace

import "time"

// Trace is one complete distributed trace: a bag of spans plus the process
// records that map spans to service names. It is read-only input to analysis.
type Trace struct {
	TraceID   string             `json:"traceID"`
	Spans     []Span             `json:"spans"`
	Processes map[string]Process `json:"processes"`
}

// Process identifies the service that emitted a group of spans.
type Process struct {
	ServiceName string `json:"serviceName"`
}

// Span is a single timed operation within a trace. StartTime and Duration
// are microseconds, as delivered by the Jaeger API.
type Span struct {
	SpanID        string      `json:"spanID"`
	TraceID       string      `json:"traceID"`
	OperationName string      `json:"operationName"`
	ProcessID     string      `json:"processID"`
	StartTime     int64       `json:"startTime"`
	Duration      int64       `json:"duration"`
	Tags          []Tag       `json:"tags"`
	Logs          []LogRecord `json:"logs"`
}

// Tag is a key/value annotation on a span.
type Tag struct {
	Key   string `json:"key"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

// LogRecord is a timestamped set of fields attached to a span.
type LogRecord struct {
	Timestamp int64 `json:"timestamp"`
	Fields    []Tag `json:"fields"`
}

// unknownService is the sentinel used when a span's process cannot be
// resolved; partial traces degrade rather than failing analysis.
const unknownService = "unknown"

// IsError reports whether the span carries the Jaeger error tag. The match
// is exact and case-sensitive: key "error" with the string value "true".
func (s *Span) IsError() bool {
	for _, tag := range s.Tags {
		if tag.Key != "error" {
			continue
		}
		if v, ok := tag.Value.(string); ok && v == "true" {
			return true
		}
	}
	return false
}

// DurationTime returns the span duration as a time.Duration.
func (s *Span) DurationTime() time.Duration {
	return time.Duration(s.Duration) * time.Microsecond
}

// ServiceOf resolves a span to its owning service name, or "unknown" when
// the process record is missing.
func (t *Trace) ServiceOf(s *Span) string {
	if s.ProcessID == "" {
		return unknownService
	}
	p, ok := t.Processes[s.ProcessID]
	if !ok || p.ServiceName == "" {
		return unknownService
	}
	return p.ServiceName
}
