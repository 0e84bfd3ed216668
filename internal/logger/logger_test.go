package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopLogger(t *testing.T) {
	var l Logger = &NoopLogger{}

	assert.NotPanics(t, func() {
		l.Debug("statement built", "kind", "upsert")
		l.Error("bulk statement failed", "error", nil)
	})
}

func TestNewTextLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		want  []string
		skip  []string
	}{
		{
			name:  "debug shows build records",
			level: slog.LevelDebug,
			want:  []string{"statement built", "bulk statement executed", "bulk statement failed"},
		},
		{
			name:  "info hides build records",
			level: slog.LevelInfo,
			want:  []string{"bulk statement executed", "bulk statement failed"},
			skip:  []string{"statement built"},
		},
		{
			name:  "error keeps failures only",
			level: slog.LevelError,
			want:  []string{"bulk statement failed"},
			skip:  []string{"statement built", "bulk statement executed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewTextLogger(&buf, tt.level, "bulkupsert")

			l.Debug("statement built", "kind", "upsert", "rows", 3)
			l.Info("bulk statement executed", "kind", "upsert", "rows_affected", 3)
			l.Error("bulk statement failed", "kind", "replace", "error", "Error 1146")

			out := buf.String()
			for _, msg := range tt.want {
				assert.Contains(t, out, msg)
			}
			for _, msg := range tt.skip {
				assert.NotContains(t, out, msg)
			}
			assert.Contains(t, out, "component=bulkupsert")
		})
	}
}

func TestSlogAdapter_ExecutionRecord(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))
	s := NewSanitizer(nil)

	columns := []string{"id", "password_hash", "id", "password_hash"}
	params := []any{1, "secret-1", 2, "secret-2"}

	l.Info("bulk statement executed",
		"kind", "upsert",
		"table", "users",
		"params", s.FormatParams(s.MaskColumns(columns, params)),
		"rows", 2,
		"rows_affected", 4,
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "bulk statement executed", record["msg"])
	assert.Equal(t, "users", record["table"])
	assert.Equal(t, "[1, ***REDACTED***, 2, ***REDACTED***]", record["params"])
	assert.EqualValues(t, 4, record["rows_affected"])
	assert.NotContains(t, buf.String(), "secret-")
}
