// Package slogobs implements observability.Provider on top of log/slog.
// Spans become paired start/end log records, metrics become leveled log
// lines, and the Logger methods map directly to slog levels. It is the
// implementation the gateway uses when telemetry is enabled without an
// external tracing stack.
package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leofalp/aigw/providers/observability"
)

// New wraps logger into an observability.Provider. A nil logger uses
// slog.Default().
func New(logger *slog.Logger) observability.Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &provider{logger: logger}
}

type provider struct {
	logger *slog.Logger
}

func toSlogAttrs(attrs []observability.Attribute) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, slog.Any(attr.Key, attr.Value))
	}
	return out
}

// --- Tracer ---

func (p *provider) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	p.logger.DebugContext(ctx, "span start", append([]any{slog.String("span", name)}, toSlogAttrs(attrs)...)...)

	s := &span{
		name:    name,
		logger:  p.logger,
		started: time.Now(),
		ctx:     ctx,
	}
	return observability.ContextWithSpan(ctx, s), s
}

type span struct {
	name    string
	logger  *slog.Logger
	started time.Time
	ctx     context.Context

	mu     sync.Mutex
	attrs  []observability.Attribute
	status observability.StatusCode
	desc   string
}

func (s *span) End() {
	s.mu.Lock()
	attrs := append([]observability.Attribute{
		observability.Duration(observability.AttrDuration, time.Since(s.started)),
	}, s.attrs...)
	status := s.status
	desc := s.desc
	s.mu.Unlock()

	record := s.logger.DebugContext
	if status == observability.StatusError {
		record = s.logger.WarnContext
		if desc != "" {
			attrs = append(attrs, observability.String("status_description", desc))
		}
	}
	record(s.ctx, "span end", append([]any{slog.String("span", s.name)}, toSlogAttrs(attrs)...)...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	s.attrs = append(s.attrs, attrs...)
	s.mu.Unlock()
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	s.status = code
	s.desc = description
	s.mu.Unlock()
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, observability.Error(err))
	s.status = observability.StatusError
	s.mu.Unlock()
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.logger.DebugContext(s.ctx, "span event",
		append([]any{slog.String("span", s.name), slog.String("event", name)}, toSlogAttrs(attrs)...)...)
}

// --- Metrics ---

func (p *provider) Counter(name string) observability.Counter {
	return counter{name: name, logger: p.logger}
}

type counter struct {
	name   string
	logger *slog.Logger
}

func (c counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.logger.DebugContext(ctx, "counter",
		append([]any{slog.String("metric", c.name), slog.Int64("value", value)}, toSlogAttrs(attrs)...)...)
}

func (p *provider) Histogram(name string) observability.Histogram {
	return histogram{name: name, logger: p.logger}
}

type histogram struct {
	name   string
	logger *slog.Logger
}

func (h histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.logger.DebugContext(ctx, "histogram",
		append([]any{slog.String("metric", h.name), slog.Float64("value", value)}, toSlogAttrs(attrs)...)...)
}

// --- Logger ---

func (p *provider) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.DebugContext(ctx, msg, toSlogAttrs(attrs)...)
}

func (p *provider) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.InfoContext(ctx, msg, toSlogAttrs(attrs)...)
}

func (p *provider) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.WarnContext(ctx, msg, toSlogAttrs(attrs)...)
}

func (p *provider) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	p.logger.ErrorContext(ctx, msg, toSlogAttrs(attrs)...)
}
