// Package tasklist reads the persisted task document that drives the
// supervision loop. The document is the sole authority on completion:
// callers re-read it at every iteration boundary and never cache it.
package tasklist

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Header is the optional YAML front matter at the top of a task
// document, delimited by "---" lines.
type Header struct {
	// Description is free text handed to the agent in its prompt.
	Description string `yaml:"description"`
	// TestCommand, when set, is suggested to the agent as the way to
	// verify its work. The supervisor never runs it itself.
	TestCommand string `yaml:"test_command"`
	// MaxIterations overrides the configured iteration ceiling.
	MaxIterations int `yaml:"max_iterations"`
}

// Item is one checklist entry.
type Item struct {
	Text string
	Done bool
}

// Document is one parsed task document. The supervisor only ever reads
// it; the backend agent is the one that toggles checkboxes.
type Document struct {
	Path   string
	Header Header
	Items  []Item
}

// checklistPattern matches GitHub-style task list entries. Anything in
// the body that is not a checklist entry is opaque and ignored.
var checklistPattern = regexp.MustCompile(`^\s*[-*]\s+\[( |x|X)\]\s+(.*\S)\s*$`)

// Load reads and parses the task document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task document: %w", err)
	}
	doc, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse task document %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse parses a task document from its raw contents.
func Parse(raw string) (*Document, error) {
	doc := &Document{}
	body := raw

	if strings.HasPrefix(raw, "---\n") || strings.HasPrefix(raw, "---\r\n") {
		rest := raw[strings.Index(raw, "\n")+1:]
		end := strings.Index(rest, "\n---")
		if end == -1 {
			return nil, fmt.Errorf("unterminated front matter")
		}
		if err := yaml.Unmarshal([]byte(rest[:end]), &doc.Header); err != nil {
			return nil, fmt.Errorf("parse front matter: %w", err)
		}
		body = rest[end+len("\n---"):]
	}

	for _, line := range strings.Split(body, "\n") {
		m := checklistPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		doc.Items = append(doc.Items, Item{
			Text: m[2],
			Done: m[1] == "x" || m[1] == "X",
		})
	}

	return doc, nil
}

// Total returns the number of checklist items.
func (d *Document) Total() int { return len(d.Items) }

// Done returns the number of completed items.
func (d *Document) Done() int {
	n := 0
	for _, it := range d.Items {
		if it.Done {
			n++
		}
	}
	return n
}

// Remaining returns the number of incomplete items.
func (d *Document) Remaining() int { return d.Total() - d.Done() }
