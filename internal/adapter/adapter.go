// Package adapter holds the static capability descriptors for the
// supported backend coding agents. Descriptors are registered once at
// init time and immutable afterwards; everything the controller needs
// to know about a backend lives here.
package adapter

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// OutputFormat declares how a backend writes its stdout.
type OutputFormat string

const (
	// FormatStream is newline-delimited JSON events.
	FormatStream OutputFormat = "structured-stream"
	// FormatPlain is raw text. The pipeline degrades gracefully: no
	// per-tool-call breakdown, byte-count-only budget tracking.
	FormatPlain OutputFormat = "plain-text"
)

// Descriptor describes one backend agent CLI. BuildArgs must return a
// full argument vector (argv[0] included); models and resume handles
// are never interpolated into a shell string.
type Descriptor struct {
	ID          string
	DisplayName string
	// Command is the executable probed for on PATH and used as argv[0].
	Command string
	// MinVersion, when non-empty, is the lowest acceptable CLI version
	// (bare "1.2.3" form).
	MinVersion   string
	Models       []string
	DefaultModel string
	Format       OutputFormat
	// BuildArgs builds the invocation for one iteration. resumeHandle
	// is empty for a fresh context. The returned vector must include an
	// unattended/auto-approve flag: the supervisor cannot answer
	// interactive prompts.
	BuildArgs func(model, resumeHandle, prompt string) []string
}

var registry = map[string]*Descriptor{}

// Register adds a descriptor to the registry. It panics on duplicate
// IDs; registration happens only from init functions.
func Register(d *Descriptor) {
	if _, dup := registry[d.ID]; dup {
		panic(fmt.Sprintf("adapter %q registered twice", d.ID))
	}
	registry[d.ID] = d
}

// Get returns the descriptor with the given ID.
func Get(id string) (*Descriptor, error) {
	d, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (known: %s)", id, strings.Join(ids(), ", "))
	}
	return d, nil
}

// All returns every registered descriptor, sorted by ID.
func All() []*Descriptor {
	out := make([]*Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func ids() []string {
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// Available probes whether the backend CLI is installed and, when a
// minimum version is declared, new enough. The probe is bounded by the
// timeout and must not hang regardless of what the CLI does.
func (d *Descriptor) Available(ctx context.Context, timeout time.Duration) error {
	if _, err := exec.LookPath(d.Command); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", d.Command, err)
	}
	if d.MinVersion == "" {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, d.Command, "--version").Output()
	if err != nil {
		return fmt.Errorf("%s --version failed: %w", d.Command, err)
	}

	got := versionPattern.FindString(string(out))
	if got == "" {
		return fmt.Errorf("%s --version produced no recognizable version: %q", d.Command, strings.TrimSpace(string(out)))
	}
	if semver.Compare("v"+got, "v"+d.MinVersion) < 0 {
		return fmt.Errorf("%s version %s is below minimum %s", d.Command, got, d.MinVersion)
	}
	return nil
}

// ValidModel reports whether model is in the descriptor's model list.
// An empty model always validates; the default is substituted later.
func (d *Descriptor) ValidModel(model string) bool {
	if model == "" {
		return true
	}
	for _, m := range d.Models {
		if m == model {
			return true
		}
	}
	return false
}
