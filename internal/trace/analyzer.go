package trace

import (
	"sort"
	"time"
)

// longOpThreshold is the fixed cutoff above which a span counts as a long
// operation. Making this per-call is a possible extension; the analysis
// deliberately keeps it constant.
const longOpThreshold = 100 * time.Millisecond

// Analysis is the derived view of one trace. Produced fresh per call; it has
// no persistent identity of its own.
type Analysis struct {
	TraceID       string        `json:"trace_id"`
	SpanCount     int           `json:"span_count"`
	TotalDuration time.Duration `json:"total_duration"`

	Services         []string                 `json:"services"`
	ServiceDurations map[string]time.Duration `json:"service_durations"`

	CriticalPath   []PathSegment   `json:"critical_path"`
	Errors         []ErrorSpan     `json:"errors"`
	LongOperations []LongOperation `json:"long_operations"`
}

// PathSegment is one entry of the approximate critical path. Start and End
// are microsecond timestamps from the underlying spans.
type PathSegment struct {
	Service   string        `json:"service"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Start     int64         `json:"start"`
	End       int64         `json:"end"`
}

// ErrorSpan describes a span that carried the error tag.
type ErrorSpan struct {
	Service   string        `json:"service"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Logs      []LogRecord   `json:"logs,omitempty"`
}

// LongOperation describes a span exceeding the long-operation threshold.
type LongOperation struct {
	Service   string        `json:"service"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
}

// Analyze computes the full analysis for one trace. It is a pure function:
// no I/O, no mutation of the input, safe to run concurrently across traces.
//
// Two approximations are inherited from the tooling this replaces and are
// kept for output compatibility:
//   - TotalDuration is the single longest span's duration, not the span of
//     the trace's full time range.
//   - ServiceDurations sums span durations per service, so overlapping spans
//     (parallel children) can push the sum past real wall-clock time.
func Analyze(t Trace) Analysis {
	a := Analysis{
		TraceID:          t.TraceID,
		SpanCount:        len(t.Spans),
		ServiceDurations: make(map[string]time.Duration),
	}

	for i := range t.Spans {
		span := &t.Spans[i]
		if d := span.DurationTime(); d > a.TotalDuration {
			a.TotalDuration = d
		}
		a.ServiceDurations[t.ServiceOf(span)] += span.DurationTime()
	}

	a.Services = make([]string, 0, len(a.ServiceDurations))
	for svc := range a.ServiceDurations {
		a.Services = append(a.Services, svc)
	}
	sort.Strings(a.Services)

	a.CriticalPath = criticalPath(t)
	a.Errors = errorSpans(t)
	a.LongOperations = longOperations(t)

	return a
}

// criticalPath builds a maximal non-overlapping chain of spans in start-time
// order. Greedy over wall-clock times only: parent/child edges are ignored,
// so this approximates the dominant latency contributors rather than a true
// dependency-graph critical path. Spans with equal start times keep their
// input order (stable sort).
func criticalPath(t Trace) []PathSegment {
	if len(t.Spans) == 0 {
		return nil
	}

	order := make([]*Span, len(t.Spans))
	for i := range t.Spans {
		order[i] = &t.Spans[i]
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].StartTime < order[j].StartTime
	})

	var path []PathSegment
	var currentEnd int64
	for _, span := range order {
		if span.StartTime < currentEnd {
			continue
		}
		end := span.StartTime + span.Duration
		path = append(path, PathSegment{
			Service:   t.ServiceOf(span),
			Operation: span.OperationName,
			Duration:  span.DurationTime(),
			Start:     span.StartTime,
			End:       end,
		})
		currentEnd = end
	}
	return path
}

func errorSpans(t Trace) []ErrorSpan {
	var errs []ErrorSpan
	for i := range t.Spans {
		span := &t.Spans[i]
		if !span.IsError() {
			continue
		}
		errs = append(errs, ErrorSpan{
			Service:   t.ServiceOf(span),
			Operation: span.OperationName,
			Duration:  span.DurationTime(),
			Logs:      span.Logs,
		})
	}
	return errs
}

func longOperations(t Trace) []LongOperation {
	var ops []LongOperation
	for i := range t.Spans {
		span := &t.Spans[i]
		if span.DurationTime() <= longOpThreshold {
			continue
		}
		ops = append(ops, LongOperation{
			Service:   t.ServiceOf(span),
			Operation: span.OperationName,
			Duration:  span.DurationTime(),
		})
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Duration > ops[j].Duration
	})
	return ops
}

// SortField selects the ordering for multi-trace result sets.
type SortField string

const (
	SortByDuration SortField = "duration"
	SortBySpans    SortField = "spans"
	SortByServices SortField = "services"
)

// SortAnalyses orders analyses descending by the given field. Unrecognized
// fields fall back to duration.
func SortAnalyses(analyses []Analysis, field SortField) {
	sort.SliceStable(analyses, func(i, j int) bool {
		switch field {
		case SortBySpans:
			return analyses[i].SpanCount > analyses[j].SpanCount
		case SortByServices:
			return len(analyses[i].Services) > len(analyses[j].Services)
		default:
			return analyses[i].TotalDuration > analyses[j].TotalDuration
		}
	})
}
