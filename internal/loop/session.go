package loop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/adapter"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/budget"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/config"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/detector"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/events"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/logsink"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/storage"
)

// maxLineBytes bounds a single stdout line. Structured streams can
// carry whole file contents in one JSON object.
const maxLineBytes = 10 * 1024 * 1024

// session is the per-iteration pipeline state: one estimator, one
// detector, one backend process. All of it is discarded when the
// iteration ends.
type session struct {
	cfg       *config.Config
	desc      *adapter.Descriptor
	est       *budget.Estimator
	det       *detector.Detector
	sink      *logsink.Sink
	store     *storage.Store // optional
	runID     string
	iteration int

	result sessionResult
}

// sessionResult is what one backend invocation produced.
type sessionResult struct {
	signal       events.Signal
	resumeHandle string
	exitCode     int
	durationMs   int64
	estTokens    int
	toolCalls    int
}

// run launches the backend and consumes its stdout synchronously, one
// line at a time, in arrival order. It returns when the process exits.
// A nonzero exit status is recorded, not returned as an error; only a
// failure to launch or a canceled context is.
func (s *session) run(ctx context.Context, argv []string) (*sessionResult, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	var g errgroup.Group
	g.Go(func() error {
		s.consume(stdout)
		return nil
	})
	g.Go(func() error {
		// stderr is diagnostics only; surface it in the error log so a
		// misbehaving backend leaves a trace.
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			s.sink.Error("backend stderr: %s", scanner.Text())
		}
		return nil
	})
	_ = g.Wait()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			s.result.exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("wait for %s: %w", argv[0], waitErr)
		}
	}

	s.result.estTokens = s.est.EstimatedTokens()
	s.result.toolCalls = s.est.Counters().ToolCalls
	return &s.result, nil
}

// consume processes stdout lines strictly in arrival order. This is
// the only goroutine that touches the estimator and detector.
func (s *session) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if s.desc.Format == adapter.FormatPlain {
			s.consumePlainLine(scanner.Text())
		} else {
			s.consumeStreamLine(scanner.Text())
		}
	}
}

// consumeStreamLine runs one NDJSON line through classify → estimate →
// detect. Unparseable lines are skipped silently.
func (s *session) consumeStreamLine(line string) {
	ev, ok := events.Classify(line)
	if !ok {
		return
	}

	switch ev.Type {
	case events.EventTypeSessionStart:
		if ev.SessionID != "" {
			s.result.resumeHandle = ev.SessionID
		}
		s.logEvent(ev, fmt.Sprintf("session started model=%s", ev.Model))

	case events.EventTypeAssistantText:
		s.est.Observe(ev)
		s.raise(s.detect(ev))
		s.logEvent(ev, "assistant: "+truncate(ev.Text, 80))

	case events.EventTypeToolCallStart:
		// announcement only; accounting happens on the result

	case events.EventTypeToolCallResult:
		s.raise(s.est.Observe(ev))
		s.raise(s.detect(ev))
		s.logEvent(ev, describeToolCall(ev))

	case events.EventTypeSessionEnd:
		s.result.durationMs = ev.DurationMs
		s.logEvent(ev, fmt.Sprintf("session ended (%d ms)", ev.DurationMs))
	}
}

// consumePlainLine is the degraded path for plain-text backends: total
// byte accounting plus sentinel scanning, no per-tool-call breakdown.
func (s *session) consumePlainLine(line string) {
	s.raise(s.est.ObserveRaw(line))
	s.raise(s.detect(events.Event{Type: events.EventTypeAssistantText, Text: line}))
}

// detect routes one event through the anomaly detector and writes its
// incidents to the error log.
func (s *session) detect(ev events.Event) events.Signal {
	sig, inc := s.det.Observe(ev)
	if inc != nil {
		switch inc.Rule {
		case "repeated-failure":
			s.sink.Error("command %q exited %d (attempt %d): %s", inc.Command, ev.ExitCode, inc.Attempt, inc.Detail)
		case "thrashing":
			s.sink.Error("thrashing on %s: %d writes within %s", inc.Path, s.det.WritesInWindow(inc.Path), s.cfg.ThrashWindow)
		case "self-report":
			s.sink.Error("agent self-report: %s", inc.Detail)
		}
	}
	return sig
}

// raise folds a pipeline signal into the session outcome, keeping the
// highest-priority signal observed, and logs the crossing.
func (s *session) raise(sig events.Signal) {
	if sig == events.SignalNone {
		return
	}
	s.result.signal = events.Max(s.result.signal, sig)

	health := logsink.HealthFor(s.est.PercentOfRotate())
	switch sig {
	case events.SignalWarn:
		s.sink.Activity(health, "budget warning: ~%d estimated tokens", s.est.EstimatedTokens())
	case events.SignalRotate:
		s.sink.Activity(health, "budget exceeded: ~%d estimated tokens, rotation pending", s.est.EstimatedTokens())
	case events.SignalGutter:
		s.sink.Activity(logsink.HealthCrit, "gutter signal raised")
	case events.SignalComplete:
		s.sink.Activity(health, "completion signal raised")
	}
}

// logEvent writes the activity line and mirrors it to the event store
// when one is attached. Store failures never fail the pipeline.
func (s *session) logEvent(ev events.Event, msg string) {
	health := logsink.HealthFor(s.est.PercentOfRotate())
	s.sink.Activity(health, "%s", msg)

	if s.store == nil {
		return
	}
	rec := &storage.Record{
		RunID:     s.runID,
		Iteration: s.iteration,
		Type:      string(ev.Type),
		Health:    string(health),
		Message:   msg,
		EstTokens: s.est.EstimatedTokens(),
	}
	if err := s.store.Append(context.Background(), rec); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to store agent event: %v\n", err)
	}
}

func describeToolCall(ev events.Event) string {
	switch ev.Tool {
	case events.ToolRead:
		if ev.Bytes > 0 {
			return fmt.Sprintf("read %s (%d bytes)", ev.Path, ev.Bytes)
		}
		return fmt.Sprintf("read %s (%d lines)", ev.Path, ev.Lines)
	case events.ToolWrite:
		return fmt.Sprintf("write %s (%d bytes)", ev.Path, ev.Bytes)
	case events.ToolShell:
		return fmt.Sprintf("shell %q exit=%d", ev.Command, ev.ExitCode)
	default:
		return "tool call"
	}
}

// truncate shortens s to at most n bytes plus an ellipsis, backing up
// to a rune boundary so log lines stay valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
