// Package logging adapts zerolog to the service Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes key/value service logs through zerolog.
type Logger struct {
	zl zerolog.Logger
}

// New returns a logger writing to w at level. Format "json" writes one JSON
// object per line; anything else writes human-readable console output.
func New(w io.Writer, level, format string) (*Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}, nil
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

func (l *Logger) Debug(msg string, args ...any) { l.zl.Debug().Fields(args).Msg(msg) }
func (l *Logger) Info(msg string, args ...any)  { l.zl.Info().Fields(args).Msg(msg) }
func (l *Logger) Warn(msg string, args ...any)  { l.zl.Warn().Fields(args).Msg(msg) }
func (l *Logger) Error(msg string, args ...any) { l.zl.Error().Fields(args).Msg(msg) }
