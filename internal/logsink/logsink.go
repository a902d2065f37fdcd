// Package logsink owns the two durable logs the supervisor writes: the
// activity log (classified events, health-annotated) and the error log
// (shell failures and anomaly declarations). Both are append-only and
// line-buffered, so an interrupt mid-session cannot corrupt lines that
// were already written.
package logsink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/time/rate"
)

// Health is the three-tier indicator stamped on activity lines,
// derived from estimated tokens as a percentage of the rotate
// threshold.
type Health string

const (
	HealthOK   Health = "OK"
	HealthWarn Health = "WARN"
	HealthCrit Health = "CRIT"
)

// HealthFor maps a percentage of the rotate threshold to a tier.
func HealthFor(pctOfRotate float64) Health {
	switch {
	case pctOfRotate >= 100:
		return HealthCrit
	case pctOfRotate >= 70:
		return HealthWarn
	default:
		return HealthOK
	}
}

const timestampLayout = "2006-01-02 15:04:05"

// Sink appends to activity.log and error.log under one directory and
// echoes activity to the console. File writes are never throttled;
// console echo is, so a chatty backend cannot flood the terminal.
type Sink struct {
	mu       sync.Mutex
	activity *os.File
	errors   *os.File
	console  io.Writer
	echo     *rate.Limiter
	now      func() time.Time
}

// New opens (creating if needed) the log files under dir.
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	activity, err := os.OpenFile(filepath.Join(dir, "activity.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	errs, err := os.OpenFile(filepath.Join(dir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		activity.Close()
		return nil, fmt.Errorf("open error log: %w", err)
	}
	return &Sink{
		activity: activity,
		errors:   errs,
		console:  os.Stdout,
		echo:     rate.NewLimiter(rate.Limit(20), 40),
		now:      time.Now,
	}, nil
}

// Activity appends one health-annotated line to the activity log and
// echoes it to the console when the limiter allows.
func (s *Sink) Activity(health Health, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(s.activity, "%s [%s] %s\n", s.now().Format(timestampLayout), health, msg)

	if s.console != nil && s.echo.Allow() {
		fmt.Fprintf(s.console, "%s %s\n", healthColor(health).Sprintf("[%s]", health), msg)
	}
}

// Error appends one line to the error log. Errors are rare and always
// echoed.
func (s *Sink) Error(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(s.errors, "%s %s\n", s.now().Format(timestampLayout), msg)
	if s.console != nil {
		fmt.Fprintf(s.console, "%s %s\n", color.New(color.FgRed).Sprint("[ERROR]"), msg)
	}
}

// Transition records a controller state transition in the activity
// log. Transitions are written before the next iteration starts.
func (s *Sink) Transition(iteration int, outcome string) {
	s.Activity(HealthOK, "iteration %d -> %s", iteration, outcome)
}

// ActivityPath and ErrorPath point operators at the logs.
func (s *Sink) ActivityPath() string { return s.activity.Name() }
func (s *Sink) ErrorPath() string    { return s.errors.Name() }

// Close flushes and closes both logs.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activity.Close(); err != nil {
		s.errors.Close()
		return err
	}
	return s.errors.Close()
}

func healthColor(h Health) *color.Color {
	switch h {
	case HealthCrit:
		return color.New(color.FgRed)
	case HealthWarn:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
