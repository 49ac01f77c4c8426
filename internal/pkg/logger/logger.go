// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey represents keys for context values
type ContextKey string

const (
	ContextKeyRequestID  ContextKey = "request_id"
	ContextKeyUserID     ContextKey = "user_id"
	ContextKeyTraceID    ContextKey = "trace_id"
	ContextKeyClientIP   ContextKey = "client_ip"
	ContextKeyUserAgent  ContextKey = "user_agent"
	ContextKeyMethod     ContextKey = "method"
	ContextKeyPath       ContextKey = "path"
	ContextKeyStatusCode ContextKey = "status_code"
	ContextKeyDuration   ContextKey = "duration_ms"
)

// OutputConfig defines an additional logging destination.
type OutputConfig struct {
	Type    string         `json:"type"` // file, elasticsearch
	Level   string         `json:"level"`
	Options map[string]any `json:"options"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level          string         `json:"level"`
	Format         string         `json:"format"`
	AddSource      bool           `json:"add_source"`
	ServiceName    string         `json:"service_name"`
	ServiceVersion string         `json:"service_version"`
	Environment    string         `json:"environment"`
	Outputs        []OutputConfig `json:"outputs"`
}

// SetupLogger builds the process-wide slog logger: a console handler in the
// requested format, wrapped so every record is enriched from the request
// context and scrubbed of credentials and customer contact details. Extra
// outputs (file, Elasticsearch) come from LOG_OUTPUTS as a JSON list of
// OutputConfig objects.
func SetupLogger(level string, format string) *slog.Logger {
	config := &LogConfig{
		Level:          level,
		Format:         format,
		AddSource:      true,
		ServiceName:    os.Getenv("SERVICE_NAME"),
		ServiceVersion: os.Getenv("SERVICE_VERSION"),
		Environment:    os.Getenv("APP_ENV"),
	}

	if raw := os.Getenv("LOG_OUTPUTS"); raw != "" {
		var outputs []OutputConfig
		if err := json.Unmarshal([]byte(raw), &outputs); err == nil {
			config.Outputs = outputs
		}
	}

	logger := New(config)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger from an explicit config.
func New(config *LogConfig) *slog.Logger {
	if config == nil {
		config = &LogConfig{Level: "info", Format: "json"}
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(config.Level),
		AddSource: config.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return replaceAttr(config, a)
		},
	}

	var console slog.Handler
	switch config.Format {
	case "text":
		console = NewPrettyTextHandler(os.Stdout, opts)
	default:
		console = slog.NewJSONHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{console}
	for _, output := range config.Outputs {
		if h := outputHandler(output); h != nil {
			handlers = append(handlers, h)
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = NewMultiHandler(handlers...)
	} else {
		handler = console
	}

	handler = NewRedactionHandler(NewContextHandler(handler))

	var attrs []slog.Attr
	if config.ServiceName != "" {
		attrs = append(attrs, slog.String("service", config.ServiceName))
	}
	if config.ServiceVersion != "" {
		attrs = append(attrs, slog.String("version", config.ServiceVersion))
	}
	if config.Environment != "" {
		attrs = append(attrs, slog.String("env", config.Environment))
	}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func requestContextKeys() []ContextKey {
	return []ContextKey{
		ContextKeyRequestID,
		ContextKeyUserID,
		ContextKeyTraceID,
		ContextKeyClientIP,
		ContextKeyUserAgent,
		ContextKeyMethod,
		ContextKeyPath,
		ContextKeyStatusCode,
		ContextKeyDuration,
	}
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	for _, key := range requestContextKeys() {
		val := ctx.Value(key)
		if val == nil {
			continue
		}

		name := string(key)
		switch v := val.(type) {
		case string:
			if v != "" {
				attrs = append(attrs, slog.String(name, v))
			}
		case int:
			attrs = append(attrs, slog.Int(name, v))
		case int64:
			attrs = append(attrs, slog.Int64(name, v))
		case time.Duration:
			attrs = append(attrs, slog.Duration(name, v))
		default:
			attrs = append(attrs, slog.Any(name, v))
		}
	}

	return attrs
}

func replaceAttr(config *LogConfig, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
		}
	}

	// Log aggregators key on "severity"
	if a.Key == slog.LevelKey && config.Format == "json" {
		a.Key = "severity"
	}

	if strings.HasSuffix(a.Key, "_ms") {
		if d, ok := a.Value.Any().(time.Duration); ok {
			a.Value = slog.Float64Value(float64(d.Milliseconds()))
		}
	}

	return a
}

func outputHandler(output OutputConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(output.Level),
		AddSource: true,
	}

	switch output.Type {
	case "elasticsearch":
		elkCfg, err := elkConfigFromOptions(output.Options)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: bad elasticsearch output options, skipping output: %v\n", err)
			return nil
		}
		return NewELKHandler(elkCfg, slog.NewJSONHandler(io.Discard, opts))

	case "file":
		filename, ok := output.Options["filename"].(string)
		if !ok {
			fmt.Fprintln(os.Stderr, "logger: file output needs a filename option, skipping output")
			return nil
		}
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: cannot open log file %s, skipping output: %v\n", filename, err)
			return nil
		}
		return slog.NewJSONHandler(file, opts)
	}

	return nil
}

// elkConfigFromOptions maps the loosely typed output options onto ELKConfig
// via a JSON round trip, rejecting options that do not fit.
func elkConfigFromOptions(options map[string]interface{}) (ELKConfig, error) {
	var cfg ELKConfig

	raw, err := json.Marshal(options)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.ElasticsearchURL == "" {
		return cfg, errors.New("elasticsearch_url is required")
	}
	return cfg, nil
}
