// Package loggertest captures logger.Sink events for assertions.
package loggertest

import (
	"log/slog"
	"sync"
)

// Event is one captured sink call.
type Event struct {
	Level   slog.Level
	Message string
	Fields  map[string]any
}

// Recorder is a logger.Sink that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Event(level slog.Level, msg string, kv ...any) {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Message: msg, Fields: fields})
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// AtLevel returns the captured events logged at level.
func (r *Recorder) AtLevel(level slog.Level) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
