// internal/pkg/logger/handlers.go
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// ContextHandler copies request-scoped values (request id, user, route,
// timing) from the context onto every record.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a handler that enriches logs with context values
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return h.handler.Handle(ctx, record)
	}

	enriched := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		enriched.AddAttrs(a)
		return true
	})
	enriched.AddAttrs(attrs...)

	return h.handler.Handle(ctx, enriched)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}

// RedactionHandler masks credentials and customer contact details before
// records reach any output. Sale logging carries customer names and phone
// numbers, so those are treated the same as secrets.
type RedactionHandler struct {
	handler      slog.Handler
	secretInline *regexp.Regexp
	secretKeys   []string
	phoneKeys    []string
}

// NewRedactionHandler creates a handler that masks sensitive attributes
func NewRedactionHandler(handler slog.Handler) *RedactionHandler {
	return &RedactionHandler{
		handler: handler,
		secretInline: regexp.MustCompile(
			`(?i)(password|secret|token|jwt|bearer|api[-_]?key)\s*[:=]\s*["']?([^"'\s]+)`),
		secretKeys: []string{
			"password", "password_hash", "secret", "token", "jwt",
			"authorization", "api_key",
		},
		phoneKeys: []string{"phone", "customer_phone"},
	}
}

func (h *RedactionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactionHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level,
		h.secretInline.ReplaceAllString(record.Message, "$1=***"), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, clean)
}

func (h *RedactionHandler) redactAttr(attr slog.Attr) slog.Attr {
	key := strings.ToLower(attr.Key)

	for _, secret := range h.secretKeys {
		if strings.Contains(key, secret) {
			attr.Value = slog.StringValue("***")
			return attr
		}
	}

	for _, phone := range h.phoneKeys {
		if key == phone {
			if s, ok := attr.Value.Any().(string); ok {
				attr.Value = slog.StringValue(maskPhone(s))
			}
			return attr
		}
	}

	if s, ok := attr.Value.Any().(string); ok {
		attr.Value = slog.StringValue(h.secretInline.ReplaceAllString(s, "$1=***"))
	}

	return attr
}

// maskPhone keeps the last two digits so support can still correlate a
// customer complaint with a log line.
func maskPhone(s string) string {
	if len(s) <= 2 {
		return "***"
	}
	return strings.Repeat("*", len(s)-2) + s[len(s)-2:]
}

func (h *RedactionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactionHandler{
		handler:      h.handler.WithAttrs(redacted),
		secretInline: h.secretInline,
		secretKeys:   h.secretKeys,
		phoneKeys:    h.phoneKeys,
	}
}

func (h *RedactionHandler) WithGroup(name string) slog.Handler {
	return &RedactionHandler{
		handler:      h.handler.WithGroup(name),
		secretInline: h.secretInline,
		secretKeys:   h.secretKeys,
		phoneKeys:    h.phoneKeys,
	}
}

// MultiHandler fans records out to every configured output.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that sends to multiple destinations
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multi-handler errors: %v", errs)
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}

// PrettyTextHandler provides human-readable colored output for development
type PrettyTextHandler struct {
	*slog.TextHandler
	mu sync.Mutex
	w  io.Writer
}

// NewPrettyTextHandler creates a pretty text handler
func NewPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyTextHandler {
	return &PrettyTextHandler{
		TextHandler: slog.NewTextHandler(w, opts),
		w:           w,
	}
}

func (h *PrettyTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timestamp := r.Time.Format("2006-01-02 15:04:05.000")
	level := r.Level.String()
	reset := "\033[0m"

	fmt.Fprintf(h.w, "%s%s %s%s%s %s",
		levelColor(r.Level),
		timestamp,
		strings.ToUpper(level),
		reset,
		strings.Repeat(" ", 7-len(level)),
		r.Message,
	)

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, " \033[36m%s=%v%s", a.Key, a.Value, reset)
		return true
	})

	fmt.Fprintln(h.w)

	return nil
}

func levelColor(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "\033[37m"
	case slog.LevelInfo:
		return "\033[34m"
	case slog.LevelWarn:
		return "\033[33m"
	case slog.LevelError:
		return "\033[31m"
	default:
		return "\033[0m"
	}
}
