// Package tracing records timed spans of a run as a tree carried through the
// context, and logs the tree when the run ends.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed operation of a trace.
type Span struct {
	Name    string
	TraceID string
	Start   time.Time
	End     time.Time

	mu       sync.Mutex
	attrs    []any
	children []*Span
}

// StartTrace starts a root span and stores it in the returned context.
func StartTrace(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, contextKey{}, span), span
}

// Start starts a child of the span in ctx. Without a parent the span is a
// root with an empty trace id.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// Finish records the end time. Finishing twice keeps the first time.
func (s *Span) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.End.IsZero() {
		s.End = time.Now()
	}
}

func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// SetAttrs appends slog-style key/value pairs.
func (s *Span) SetAttrs(kv ...any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, kv...)
	s.mu.Unlock()
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes one record per span, depth first.
func (s *Span) Log(ctx context.Context, logger *slog.Logger, level slog.Level) {
	s.log(ctx, logger, level, 0)
}

func (s *Span) log(ctx context.Context, logger *slog.Logger, level slog.Level, depth int) {
	s.mu.Lock()
	args := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"depth", depth,
	}
	args = append(args, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()
	args = append(args, "duration_ms", s.Duration().Milliseconds())
	logger.Log(ctx, level, "span", args...)
	for _, child := range children {
		child.log(ctx, logger, level, depth+1)
	}
}
