package snapcdc

import (
	"context"
	"log/slog"
)

// metaKey is an unexported context key type.
type metaKey struct{}

// meta carries operational context for replay logs.
type meta struct {
	operator string
	traceID  string
	reason   string
}

// WithOperator attaches an operator identifier to the context.
func WithOperator(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.operator = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithTraceID attaches a trace identifier.
func WithTraceID(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.traceID = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithReason attaches a human-readable reason for the operation.
func WithReason(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.reason = v
	return context.WithValue(ctx, metaKey{}, m)
}

// extractMeta extracts metadata from context.
func extractMeta(ctx context.Context) meta {
	if v := ctx.Value(metaKey{}); v != nil {
		if m, ok := v.(meta); ok {
			return m
		}
	}
	return meta{}
}

// attrs renders the non-empty fields as log attributes.
func (m meta) attrs() []any {
	var out []any
	if m.operator != "" {
		out = append(out, slog.String("operator", m.operator))
	}
	if m.traceID != "" {
		out = append(out, slog.String("trace_id", m.traceID))
	}
	if m.reason != "" {
		out = append(out, slog.String("reason", m.reason))
	}
	return out
}
