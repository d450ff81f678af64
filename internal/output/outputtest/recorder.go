// Package outputtest provides a recording output.Sink for tests.
package outputtest

import (
	"fmt"
	"strings"
	"sync"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelFYI     Level = "fyi"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every message it receives.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func New() *Recorder { return &Recorder{} }

func (r *Recorder) Info(format string, args ...any)    { r.add(LevelInfo, format, args...) }
func (r *Recorder) FYI(format string, args ...any)     { r.add(LevelFYI, format, args...) }
func (r *Recorder) Warn(format string, args ...any)    { r.add(LevelWarn, format, args...) }
func (r *Recorder) Error(format string, args ...any)   { r.add(LevelError, format, args...) }
func (r *Recorder) Success(format string, args ...any) { r.add(LevelSuccess, format, args...) }

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Lines returns the texts recorded at level.
func (r *Recorder) Lines(level Level) []string {
	var lines []string
	for _, m := range r.Messages() {
		if m.Level == level {
			lines = append(lines, m.Text)
		}
	}
	return lines
}

// Contains reports whether any message at level contains substr.
func (r *Recorder) Contains(level Level, substr string) bool {
	for _, line := range r.Lines(level) {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func (r *Recorder) add(level Level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}
