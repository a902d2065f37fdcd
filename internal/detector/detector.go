// Package detector recognizes stuck and failure patterns in one
// backend session: repeated failures of the same command, write
// thrashing on a single path, and the agent's own done/stuck
// self-reports.
package detector

import (
	"strings"
	"time"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/config"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/events"
)

// Incident describes what tripped a detector rule, for the error log.
type Incident struct {
	Rule    string // "repeated-failure", "thrashing", "self-report"
	Command string
	Path    string
	Attempt int
	Detail  string
}

// Detector tracks failure and thrashing state for one session. Like
// the estimator it is a value owned by the controller; a rotation
// discards it wholesale.
type Detector struct {
	cfg *config.Config
	// nonzero exits per exact command string since session start;
	// unbounded horizon, no time window
	failures map[string]int
	// write timestamps per exact path, pruned to the trailing window
	writes map[string][]time.Time
	now    func() time.Time
}

// New creates a detector with a fresh failure and write history.
func New(cfg *config.Config) *Detector {
	return &Detector{
		cfg:      cfg,
		failures: make(map[string]int),
		writes:   make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Observe folds one classified event into the trackers and returns the
// signal it raises, if any, plus the incident for logging.
func (d *Detector) Observe(ev events.Event) (events.Signal, *Incident) {
	switch ev.Type {
	case events.EventTypeAssistantText:
		return d.observeText(ev.Text)

	case events.EventTypeToolCallResult:
		switch ev.Tool {
		case events.ToolShell:
			return d.observeShell(ev)
		case events.ToolWrite:
			return d.observeWrite(ev)
		}
	}
	return events.SignalNone, nil
}

// observeShell applies the repeated-failure rule. The counter for a
// command is keyed on the exact string and unaffected by results of
// any other command.
func (d *Detector) observeShell(ev events.Event) (events.Signal, *Incident) {
	if ev.Command == "" || ev.ExitCode == 0 {
		return events.SignalNone, nil
	}

	d.failures[ev.Command]++
	inc := &Incident{
		Rule:    "repeated-failure",
		Command: ev.Command,
		Attempt: d.failures[ev.Command],
		Detail:  firstLine(ev.Stderr),
	}
	// GUTTER exactly at the limit transition, not on every failure
	// after it.
	if d.failures[ev.Command] == d.cfg.FailureLimit {
		return events.SignalGutter, inc
	}
	return events.SignalNone, inc
}

// observeWrite applies the thrashing rule: writes to one exact path
// within the trailing window.
func (d *Detector) observeWrite(ev events.Event) (events.Signal, *Incident) {
	if ev.Path == "" {
		return events.SignalNone, nil
	}
	now := d.now()
	cutoff := now.Add(-d.cfg.ThrashWindow)

	kept := d.writes[ev.Path][:0]
	for _, ts := range d.writes[ev.Path] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	d.writes[ev.Path] = kept

	if len(kept) == d.cfg.ThrashLimit {
		return events.SignalGutter, &Incident{
			Rule:   "thrashing",
			Path:   ev.Path,
			Detail: "repeated writes inside the thrash window",
		}
	}
	return events.SignalNone, nil
}

// observeText applies the self-report rule. Sentinels are trusted
// verbatim at this layer; there is no corroboration against the task
// document here.
func (d *Detector) observeText(text string) (events.Signal, *Incident) {
	if strings.Contains(text, d.cfg.StuckSentinel) {
		return events.SignalGutter, &Incident{
			Rule:   "self-report",
			Detail: "agent reported it is stuck",
		}
	}
	if strings.Contains(text, d.cfg.DoneSentinel) {
		return events.SignalComplete, &Incident{
			Rule:   "self-report",
			Detail: "agent reported completion",
		}
	}
	return events.SignalNone, nil
}

// FailureCount returns the nonzero-exit count for an exact command
// string since session start.
func (d *Detector) FailureCount(command string) int {
	return d.failures[command]
}

// WritesInWindow returns the pruned write count for an exact path as
// of the last write observed to it.
func (d *Detector) WritesInWindow(path string) int {
	return len(d.writes[path])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
