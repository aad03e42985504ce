package logger

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink receives structured events from business code. It is injected rather
// than reached through package-level state so tests can capture events.
type Sink interface {
	// Event records msg at level with optional alternating key/value context.
	Event(level slog.Level, msg string, kv ...any)
}

type slogSink struct {
	l *slog.Logger
}

// NewSlogSink adapts a slog logger. A nil logger uses slog.Default.
func NewSlogSink(l *slog.Logger) Sink {
	if l == nil {
		l = slog.Default()
	}
	return &slogSink{l: l}
}

func (s *slogSink) Event(level slog.Level, msg string, kv ...any) {
	s.l.Log(context.Background(), level, msg, kv...)
}

type zapSink struct {
	l *zap.SugaredLogger
}

// NewZapSink adapts a zap logger.
func NewZapSink(l *zap.Logger) Sink {
	return &zapSink{l: l.Sugar()}
}

func (s *zapSink) Event(level slog.Level, msg string, kv ...any) {
	s.l.Logw(zapLevel(level), msg, kv...)
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

type nopSink struct{}

// Nop returns a Sink that discards every event.
func Nop() Sink { return nopSink{} }

func (nopSink) Event(slog.Level, string, ...any) {}
