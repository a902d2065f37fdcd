// Package loop is the outer state machine: it re-reads the task
// checklist at every iteration boundary, spawns one backend process at
// a time, streams its output through the classify → estimate → detect
// pipeline, and turns the observed signals into lifecycle decisions.
package loop

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/adapter"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/budget"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/config"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/detector"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/events"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/logsink"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/storage"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/tasklist"
)

// Outcome is a terminal state of the controller.
type Outcome string

const (
	// OutcomeComplete means the checklist is done (or the agent
	// declared completion).
	OutcomeComplete Outcome = "COMPLETE"
	// OutcomeGutter means an anomaly halted the loop; an operator has
	// to intervene. No auto-remediation.
	OutcomeGutter Outcome = "GUTTER"
	// OutcomeExhausted means the iteration ceiling was reached with
	// work remaining. Unfinished, not anomalous.
	OutcomeExhausted Outcome = "EXHAUSTED"
)

// runFunc runs one backend invocation; swapped out in tests.
type runFunc func(ctx context.Context, s *session, argv []string) (*sessionResult, error)

// Controller drives iterations until a terminal outcome.
type Controller struct {
	Cfg      *config.Config
	Adapter  *adapter.Descriptor
	Model    string
	TaskPath string
	Sink     *logsink.Sink
	Store    *storage.Store // optional event store

	runID      string
	run        runFunc
	est        *budget.Estimator
	iterations int
	estTokens  int
}

// New creates a controller. model may be empty; the adapter's default
// is used.
func New(cfg *config.Config, desc *adapter.Descriptor, model, taskPath string, sink *logsink.Sink, store *storage.Store) *Controller {
	if model == "" {
		model = desc.DefaultModel
	}
	return &Controller{
		Cfg:      cfg,
		Adapter:  desc,
		Model:    model,
		TaskPath: taskPath,
		Sink:     sink,
		Store:    store,
		runID:    uuid.New().String(),
		run: func(ctx context.Context, s *session, argv []string) (*sessionResult, error) {
			return s.run(ctx, argv)
		},
	}
}

// Iterations returns how many backend invocations ran (or were about
// to run when a pre-spawn decision fired).
func (c *Controller) Iterations() int { return c.iterations }

// EstimatedTokens returns the token proxy summed across every session
// of the run.
func (c *Controller) EstimatedTokens() int { return c.estTokens }

// PreviewArgs resolves the argv for a first, fresh-context iteration
// without spawning anything. Used by dry runs.
func PreviewArgs(cfg *config.Config, desc *adapter.Descriptor, model, taskPath string) ([]string, error) {
	doc, err := tasklist.Load(taskPath)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = desc.DefaultModel
	}
	return desc.BuildArgs(model, "", buildPrompt(cfg, doc)), nil
}

// Run executes iterations until the task completes, an anomaly halts
// the loop, the iteration ceiling is hit, or the context is canceled.
// Errors are fatal/configuration failures (missing task document,
// unlaunchable backend); every other condition maps to an Outcome.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	resume := ""

	for i := 1; ; i++ {
		// The durable task document is the sole authority; re-read it
		// at every boundary, never cache across iterations.
		doc, err := tasklist.Load(c.TaskPath)
		if err != nil {
			return "", err
		}
		ceiling := c.Cfg.MaxIterations
		if doc.Header.MaxIterations > 0 {
			ceiling = doc.Header.MaxIterations
		}

		if doc.Total() > 0 && doc.Remaining() == 0 {
			c.Sink.Transition(i, string(OutcomeComplete))
			return OutcomeComplete, nil
		}
		if i > ceiling {
			c.Sink.Transition(i, string(OutcomeExhausted))
			return OutcomeExhausted, nil
		}

		prompt := buildPrompt(c.Cfg, doc)
		argv := c.Adapter.BuildArgs(c.Model, resume, prompt)

		// The estimator tracks one context window, not one invocation:
		// a resumed backend keeps its context, so the counters carry
		// across CONTINUE and reset only when the next invocation
		// starts fresh. The failure tracker is per invocation.
		base := 0
		if resume != "" && c.est != nil {
			base = c.est.EstimatedTokens()
			c.est.AddPromptChars(len(prompt))
		} else {
			c.est = budget.New(c.Cfg, len(prompt))
		}

		s := &session{
			cfg:       c.Cfg,
			desc:      c.Adapter,
			est:       c.est,
			det:       detector.New(c.Cfg),
			sink:      c.Sink,
			store:     c.Store,
			runID:     c.runID,
			iteration: i,
		}
		c.Sink.Activity(logsink.HealthOK,
			"iteration %d/%d: %s model=%s resume=%v remaining=%d",
			i, ceiling, c.Adapter.ID, c.Model, resume != "", doc.Remaining())

		c.iterations = i
		res, err := c.run(ctx, s, argv)
		if err != nil {
			// Interrupt or launch failure; the logs are already
			// consistent because they are append-only.
			return "", fmt.Errorf("iteration %d: %w", i, err)
		}
		if res.estTokens >= base {
			c.estTokens += res.estTokens - base
		}
		if res.exitCode != 0 {
			// A terminating print-mode invocation is expected; record
			// it and keep going.
			c.Sink.Activity(logsink.HealthOK, "backend exited %d", res.exitCode)
		}

		// Re-read after the run: the backend may have checked off the
		// last item. A gutter observed during the run still wins; an
		// anomaly invalidates trust in an apparently complete result.
		doc, err = tasklist.Load(c.TaskPath)
		if err != nil {
			return "", err
		}
		if doc.Total() > 0 && doc.Remaining() == 0 && res.signal != events.SignalGutter {
			res.signal = events.SignalComplete
		}

		switch res.signal {
		case events.SignalGutter:
			c.Sink.Transition(i, string(OutcomeGutter))
			c.Sink.Error("halted in iteration %d; see %s", i, c.Sink.ErrorPath())
			return OutcomeGutter, nil

		case events.SignalComplete:
			c.Sink.Transition(i, string(OutcomeComplete))
			return OutcomeComplete, nil

		case events.SignalRotate:
			// Fresh context next iteration: no resume handle, new
			// counters, new failure tracker.
			resume = ""
			c.Sink.Transition(i, "ROTATE")

		default:
			// NONE or WARN: the context continues.
			if res.resumeHandle != "" {
				resume = res.resumeHandle
			}
			c.Sink.Transition(i, "CONTINUE")
		}
	}
}
