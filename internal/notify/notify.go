// Package notify is the terminal-client counterpart of the web app's toast
// layer: user-visible success and error notifications, decoupled from the
// components that raise them.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Notifier receives user-visible notifications. Implementations must be safe
// for concurrent use; the realtime goroutine and mutation paths both notify.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Logger emits notifications through a zerolog logger.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Success(msg string) {
	l.log.Info().Str("kind", "success").Msg(msg)
}

func (l *Logger) Error(msg string) {
	l.log.Error().Str("kind", "error").Msg(msg)
}

// Recorder keeps notifications in memory so a view can render them as
// banners and tests can assert on them.
type Recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *Recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Tee fans a notification out to several notifiers, e.g. a Logger for the
// console and a Recorder for the view.
type Tee []Notifier

func (t Tee) Success(msg string) {
	for _, n := range t {
		n.Success(msg)
	}
}

func (t Tee) Error(msg string) {
	for _, n := range t {
		n.Error(msg)
	}
}
