package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/earshot/internal/studio"
)

func TestDebugLogger_LevelsAndCategories(t *testing.T) {
	tests := []struct {
		flags    studio.DebugFlags
		level    string
		category string
	}{
		{studio.DebugError, "ERROR", ""},
		{studio.DebugWarning | studio.DebugFile, "WARN", "FILE"},
		{studio.DebugLog | studio.DebugMemory, "INFO", "MEMORY"},
		{studio.DebugCodec, "DEBUG", "CODEC"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			DebugLogger(logger)(tt.flags, "Studio::System::update", "something happened\n")

			var rec map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
			assert.Equal(t, tt.level, rec["level"])
			assert.Equal(t, "engine debug", rec["msg"])
			assert.Equal(t, tt.category, rec["category"])
			assert.Equal(t, "Studio::System::update", rec["func"])
			assert.Equal(t, "something happened", rec["message"])
		})
	}
}

type panicHandler struct{ slog.Handler }

func (panicHandler) Enabled(context.Context, slog.Level) bool { return true }

func (panicHandler) Handle(context.Context, slog.Record) error { panic("handler exploded") }

func TestDebugLogger_RecoversHandlerPanic(t *testing.T) {
	fn := DebugLogger(slog.New(panicHandler{}))
	assert.NotPanics(t, func() {
		fn(studio.DebugError, "fn", "msg")
	})
}
