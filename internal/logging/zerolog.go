package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog builds a timestamped zerolog logger writing to every w.
func NewZerolog(level string, w ...io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var out io.Writer = io.Discard
	switch len(w) {
	case 0:
	case 1:
		out = w[0]
	default:
		out = zerolog.MultiLevelWriter(w...)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// WorkerLogger adapts zerolog.Logger to the worker.Logger interface.
type WorkerLogger struct {
	logger zerolog.Logger
}

// NewWorkerLogger creates a new WorkerLogger wrapping a zerolog.Logger.
func NewWorkerLogger(logger zerolog.Logger) *WorkerLogger {
	return &WorkerLogger{logger: logger}
}

// Debug logs a debug message with optional key-value pairs.
func (l *WorkerLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

// Info logs an info message with optional key-value pairs.
func (l *WorkerLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

// Error logs an error message with optional key-value pairs.
func (l *WorkerLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields converts key-value pairs to a map for zerolog. Durations are
// written in milliseconds.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if d, ok := keysAndValues[i+1].(time.Duration); ok {
			fields[key] = float64(d) / float64(time.Millisecond)
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
