// internal/pkg/logger/logger_test.go
package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElkConfigFromOptions(t *testing.T) {
	t.Run("maps_options_onto_config", func(t *testing.T) {
		cfg, err := elkConfigFromOptions(map[string]interface{}{
			"elasticsearch_url": "http://elk:9200",
			"index_pattern":     "medtrack-logs",
			"batch_size":        50,
		})

		require.NoError(t, err)
		assert.Equal(t, "http://elk:9200", cfg.ElasticsearchURL)
		assert.Equal(t, "medtrack-logs", cfg.IndexPattern)
		assert.Equal(t, 50, cfg.BatchSize)
	})

	t.Run("rejects_missing_url", func(t *testing.T) {
		_, err := elkConfigFromOptions(map[string]interface{}{
			"index_pattern": "medtrack-logs",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "elasticsearch_url")
	})

	t.Run("rejects_mistyped_options", func(t *testing.T) {
		_, err := elkConfigFromOptions(map[string]interface{}{
			"elasticsearch_url": "http://elk:9200",
			"batch_size":        "fifty",
		})

		require.Error(t, err)
	})
}

func TestOutputHandlerSkipsBadConfig(t *testing.T) {
	assert.Nil(t, outputHandler(OutputConfig{
		Type:    "elasticsearch",
		Level:   "info",
		Options: map[string]interface{}{"index_pattern": "no-url"},
	}))

	assert.Nil(t, outputHandler(OutputConfig{
		Type:    "file",
		Level:   "info",
		Options: map[string]interface{}{},
	}))
}

func TestFileOutputHandler(t *testing.T) {
	path := t.TempDir() + "/app.log"

	h := outputHandler(OutputConfig{
		Type:    "file",
		Level:   "info",
		Options: map[string]interface{}{"filename": path},
	})
	require.NotNil(t, h)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug").Level())
	assert.Equal(t, slog.LevelWarn, parseLevel("warn").Level())
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown").Level())
}
