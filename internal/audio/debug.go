package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/earshot/internal/studio"
)

// DebugLogger bridges engine debug output into slog. Error, warning, and
// log flags map to Error, Warn, and Info; anything else logs at Debug.
//
// A panicking handler must not unwind into the engine, so panics are
// recovered and the message goes to stderr instead.
func DebugLogger(logger *slog.Logger) studio.DebugFunc {
	return func(flags studio.DebugFlags, fn, message string) {
		category := debugCategory(flags)
		message = strings.TrimRight(message, "\r\n")

		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "engine: %s%s: %s (logging handler panicked: %v)\n", category, fn, message, r)
			}
		}()

		logger.Log(context.Background(), debugLevel(flags), "engine debug",
			"category", strings.TrimSuffix(category, ": "),
			"func", fn,
			"message", message,
		)
	}
}

func debugLevel(flags studio.DebugFlags) slog.Level {
	switch {
	case flags.Has(studio.DebugError):
		return slog.LevelError
	case flags.Has(studio.DebugWarning):
		return slog.LevelWarn
	case flags.Has(studio.DebugLog):
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func debugCategory(flags studio.DebugFlags) string {
	switch {
	case flags.Has(studio.DebugMemory):
		return "MEMORY: "
	case flags.Has(studio.DebugFile):
		return "FILE: "
	case flags.Has(studio.DebugCodec):
		return "CODEC: "
	default:
		return ""
	}
}
