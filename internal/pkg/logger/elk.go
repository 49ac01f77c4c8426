// internal/pkg/logger/elk.go
package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// ELKConfig holds configuration for shipping logs to Elasticsearch.
type ELKConfig struct {
	ElasticsearchURL string        `json:"elasticsearch_url"`
	IndexPattern     string        `json:"index_pattern"`
	BatchSize        int           `json:"batch_size"`
	FlushInterval    time.Duration `json:"flush_interval"`
	Username         string        `json:"username"`
	Password         string        `json:"password"`
	EnableBatching   bool          `json:"enable_batching"`
}

// ELKHandler mirrors records to an Elasticsearch bulk endpoint so pharmacy
// audit trails (sales, stock changes, imports) are searchable outside the
// process logs.
type ELKHandler struct {
	client      *http.Client
	config      ELKConfig
	buffer      []logDocument
	mu          sync.Mutex
	baseHandler slog.Handler
}

type logDocument struct {
	Timestamp  time.Time      `json:"@timestamp"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	RequestID  string         `json:"request_id,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	ClientIP   string         `json:"client_ip,omitempty"`
	Method     string         `json:"method,omitempty"`
	Path       string         `json:"path,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
	Duration   float64        `json:"duration_ms,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	Error      *errorInfo     `json:"error,omitempty"`
}

type errorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewELKHandler creates a new ELK handler
func NewELKHandler(cfg ELKConfig, baseHandler slog.Handler) *ELKHandler {
	handler := &ELKHandler{
		client:      &http.Client{Timeout: 10 * time.Second},
		config:      cfg,
		buffer:      make([]logDocument, 0, cfg.BatchSize),
		baseHandler: baseHandler,
	}

	if cfg.EnableBatching {
		handler.startFlusher()
	}

	return handler
}

func (h *ELKHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.baseHandler.Enabled(ctx, level)
}

func (h *ELKHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.baseHandler.Handle(ctx, record); err != nil {
		return err
	}

	doc := h.buildDocument(ctx, record)

	if h.config.EnableBatching {
		h.mu.Lock()
		h.buffer = append(h.buffer, doc)
		shouldFlush := len(h.buffer) >= h.config.BatchSize
		h.mu.Unlock()

		if shouldFlush {
			go h.flush()
		}
	} else {
		go h.ship([]logDocument{doc})
	}

	return nil
}

func (h *ELKHandler) buildDocument(ctx context.Context, record slog.Record) logDocument {
	doc := logDocument{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		RequestID: contextString(ctx, ContextKeyRequestID),
		TraceID:   contextString(ctx, ContextKeyTraceID),
		UserID:    contextString(ctx, ContextKeyUserID),
		ClientIP:  contextString(ctx, ContextKeyClientIP),
		Method:    contextString(ctx, ContextKeyMethod),
		Path:      contextString(ctx, ContextKeyPath),
		Fields:    make(map[string]any),
	}

	if statusCode, ok := ctx.Value(ContextKeyStatusCode).(int); ok {
		doc.StatusCode = statusCode
	}
	if duration, ok := ctx.Value(ContextKeyDuration).(time.Duration); ok {
		doc.Duration = float64(duration.Milliseconds())
	}

	record.Attrs(func(a slog.Attr) bool {
		doc.Fields[a.Key] = a.Value.Any()

		if a.Key == "error" || a.Key == "err" {
			if err, ok := a.Value.Any().(error); ok {
				doc.Error = &errorInfo{
					Type:    fmt.Sprintf("%T", err),
					Message: err.Error(),
				}
			}
		}

		return true
	})

	return doc
}

func (h *ELKHandler) ship(docs []logDocument) {
	if len(docs) == 0 {
		return
	}

	var buf bytes.Buffer
	indexName := fmt.Sprintf("%s-%s", h.config.IndexPattern, time.Now().Format("2006.01.02"))
	for _, doc := range docs {
		meta := map[string]any{
			"index": map[string]string{"_index": indexName},
		}

		metaJSON, _ := json.Marshal(meta)
		buf.Write(metaJSON)
		buf.WriteByte('\n')

		docJSON, _ := json.Marshal(doc)
		buf.Write(docJSON)
		buf.WriteByte('\n')
	}

	req, err := http.NewRequest(http.MethodPost, h.config.ElasticsearchURL+"/_bulk", &buf)
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if h.config.Username != "" && h.config.Password != "" {
		req.SetBasicAuth(h.config.Username, h.config.Password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		// The console handler already has the record; dropping the copy is
		// better than blocking the caller.
		fmt.Fprintf(os.Stderr, "failed to ship logs to elasticsearch: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "elasticsearch bulk returned status %d\n", resp.StatusCode)
	}
}

func (h *ELKHandler) flush() {
	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return
	}

	docs := make([]logDocument, len(h.buffer))
	copy(docs, h.buffer)
	h.buffer = h.buffer[:0]
	h.mu.Unlock()

	h.ship(docs)
}

func (h *ELKHandler) startFlusher() {
	go func() {
		interval := h.config.FlushInterval
		if interval <= 0 {
			interval = 5 * time.Second
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			h.flush()
		}
	}()
}

func (h *ELKHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ELKHandler{
		client:      h.client,
		config:      h.config,
		baseHandler: h.baseHandler.WithAttrs(attrs),
	}
}

func (h *ELKHandler) WithGroup(name string) slog.Handler {
	return &ELKHandler{
		client:      h.client,
		config:      h.config,
		baseHandler: h.baseHandler.WithGroup(name),
	}
}

func contextString(ctx context.Context, key ContextKey) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}
