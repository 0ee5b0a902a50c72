package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// DefaultSecretKeys are attribute keys whose values never reach the output
// in full. Values are cut down with Redact.
var DefaultSecretKeys = []string{
	"access_token",
	"auth_token",
	"api_key",
	"webhook_secret",
	"storage_key",
	"signature",
}

// contextHandler adds context attributes to every record and masks values
// logged under secret keys, including inside groups.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
	secrets    map[string]struct{}
}

func newContextHandler(next slog.Handler, extractors []ContextExtractor, secretKeys []string) slog.Handler {
	if len(extractors) == 0 && len(secretKeys) == 0 {
		return next
	}
	h := &contextHandler{next: next, extractors: extractors}
	if len(secretKeys) > 0 {
		h.secrets = make(map[string]struct{}, len(secretKeys))
		for _, k := range secretKeys {
			h.secrets[k] = struct{}{}
		}
	}
	return h
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if len(h.secrets) > 0 {
		out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
		rec.Attrs(func(a slog.Attr) bool {
			out.AddAttrs(h.scrub(a))
			return true
		})
		rec = out
	}
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = h.scrub(a)
	}
	return &contextHandler{
		next:       h.next.WithAttrs(scrubbed),
		extractors: h.extractors,
		secrets:    h.secrets,
	}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{
		next:       h.next.WithGroup(name),
		extractors: h.extractors,
		secrets:    h.secrets,
	}
}

func (h *contextHandler) scrub(a slog.Attr) slog.Attr {
	if len(h.secrets) == 0 {
		return a
	}
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		scrubbed := make([]slog.Attr, len(group))
		for i, ga := range group {
			scrubbed[i] = h.scrub(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(scrubbed...)}
	}

	if _, secret := h.secrets[a.Key]; !secret {
		return a
	}
	if a.Value.Kind() == slog.KindString {
		if a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, Redact(a.Value.String()))
	}
	return slog.String(a.Key, Redact(""))
}
