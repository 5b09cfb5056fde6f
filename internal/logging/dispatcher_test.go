package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venuemap/explorer/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		out = append(out, entry)
	}
	return out
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		min   slog.Level
		log   func(*DispatcherLogger)
		level string
		msg   string
		attrs map[string]any
	}{
		{
			name:  "debug",
			min:   slog.LevelDebug,
			log:   func(l *DispatcherLogger) { l.Debug("handling intent", "intent", "click", "args", 1) },
			level: "DEBUG",
			msg:   "handling intent",
			attrs: map[string]any{"intent": "click", "args": float64(1)},
		},
		{
			name:  "info",
			min:   slog.LevelInfo,
			log:   func(l *DispatcherLogger) { l.Info("query queued", "source", "ws") },
			level: "INFO",
			msg:   "query queued",
			attrs: map[string]any{"source": "ws"},
		},
		{
			name:  "error",
			min:   slog.LevelError,
			log:   func(l *DispatcherLogger) { l.Error("intent failed", "intent", "resize", "status", 400) },
			level: "ERROR",
			msg:   "intent failed",
			attrs: map[string]any{"intent": "resize", "status": float64(400)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: tt.min}))))

			entries := decodeLines(t, &buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.Equal(t, tt.msg, entries[0]["msg"])
			for k, v := range tt.attrs {
				assert.Equal(t, v, entries[0][k], k)
			}
		})
	}
}

func TestDispatcherLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	dl.Debug("intent complete")
	dl.Info("venue cache initialized")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "venue cache initialized", entries[0]["msg"])
}

func TestDispatcherLogger_LogsFromDispatcher(t *testing.T) {
	var buf bytes.Buffer
	d, err := dispatcher.New(NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	require.NoError(t, err)
	d.Register("filter", func(dispatcher.Event) (any, error) { return nil, nil }, dispatcher.Logged())

	_, err = d.Dispatch(dispatcher.Event{Name: "filter", Args: []string{"pizza"}, Source: "panel"})
	require.NoError(t, err)

	entries := decodeLines(t, &buf)
	require.NotEmpty(t, entries)
	assert.Equal(t, "filter", entries[0]["intent"])
	assert.Equal(t, "panel", entries[0]["source"])
}
