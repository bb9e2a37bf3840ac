// Package logging carries correlation identifiers through contexts and
// injects them into slog records.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	accountKey ctxKey = iota
	templateIDKey
	actorKey
)

// WithAccount returns a context with the account set.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// WithTemplateID returns a context with the template ID set.
func WithTemplateID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, templateIDKey, id)
}

// WithActor returns a context with the acting user set.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Account extracts the account from the context, or "" if absent.
func Account(ctx context.Context) string {
	v, _ := ctx.Value(accountKey).(string)
	return v
}

// TemplateID extracts the template ID from the context, or "" if absent.
func TemplateID(ctx context.Context) string {
	v, _ := ctx.Value(templateIDKey).(string)
	return v
}

// Actor extracts the acting user from the context, or "" if absent.
func Actor(ctx context.Context) string {
	v, _ := ctx.Value(actorKey).(string)
	return v
}

// WithIDs sets all three correlation IDs on the context at once.
func WithIDs(ctx context.Context, account, templateID, actor string) context.Context {
	ctx = WithAccount(ctx, account)
	ctx = WithTemplateID(ctx, templateID)
	ctx = WithActor(ctx, actor)
	return ctx
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if acct := Account(ctx); acct != "" {
		logger = logger.With(slog.String("account", acct))
	}
	if tid := TemplateID(ctx); tid != "" {
		logger = logger.With(slog.String("template_id", tid))
	}
	if actor := Actor(ctx); actor != "" {
		logger = logger.With(slog.String("actor", actor))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := Account(ctx); v != "" {
		r.AddAttrs(slog.String("account", v))
	}
	if v := TemplateID(ctx); v != "" {
		r.AddAttrs(slog.String("template_id", v))
	}
	if v := Actor(ctx); v != "" {
		r.AddAttrs(slog.String("actor", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
