// Package tracing times the phases of an index build or a ranking run. A run
// opens a root span, each phase hangs a child span off it, and the finished
// tree is logged through slog.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

// Span is one timed phase. Name, TraceID and Start are fixed at creation;
// Duration and Err are valid once End has been called.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration
	Err      error

	mu       sync.Mutex
	ended    bool
	children []*Span
	attrs    []slog.Attr
}

// StartSpan opens a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, spanKey{}, span), span
}

// StartChildSpan opens a span under the one in ctx. Without a parent the
// child is a detached root with an empty trace id.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, child), child
}

// FromContext returns the innermost span of ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// End fixes the duration. Only the first call counts.
func (s *Span) End() {
	s.EndErr(nil)
}

// EndErr ends the span and records the error that ended the phase, if any.
func (s *Span) EndErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.Start)
	s.Err = err
}

// SetAttr sets key to value, replacing an earlier value of key.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i] = slog.Any(key, value)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, value))
}

func (s *Span) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.Any(), true
		}
	}
	return nil, false
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Find returns the first span named name in the tree rooted at s, depth
// first.
func (s *Span) Find(name string) *Span {
	if s.Name == name {
		return s
	}
	for _, child := range s.Children() {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Durations maps every ended descendant of s to its duration. Names are
// slash-joined paths below s, e.g. "sort/merge".
func (s *Span) Durations() map[string]time.Duration {
	out := make(map[string]time.Duration)
	s.collect("", out)
	return out
}

func (s *Span) collect(prefix string, out map[string]time.Duration) {
	for _, child := range s.Children() {
		path := child.Name
		if prefix != "" {
			path = prefix + "/" + child.Name
		}
		child.mu.Lock()
		ended, d := child.ended, child.Duration
		child.mu.Unlock()
		if ended {
			out[path] = d
		}
		child.collect(path, out)
	}
}

// Log writes one record per span of the tree, to slog.Default when logger is
// nil. Spans that ended with an error are logged at warn level.
func (s *Span) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.log(logger, 0)
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]slog.Attr{
		slog.String("trace_id", s.TraceID),
		slog.String("span", s.Name),
		slog.Int64("duration_ms", s.Duration.Milliseconds()),
		slog.Int("depth", depth),
	}, s.attrs...)
	level := slog.LevelInfo
	if s.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", s.Err.Error()))
	}
	s.mu.Unlock()
	logger.LogAttrs(context.Background(), level, "span", attrs...)

	for _, child := range s.Children() {
		child.log(logger, depth+1)
	}
}
