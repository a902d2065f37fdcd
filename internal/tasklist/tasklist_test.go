package tasklist

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDoc = `---
description: Port the parser to the new API
test_command: npm test
max_iterations: 8
---

# Plan

Some prose the supervisor must ignore.

- [x] Update imports
- [ ] Rewrite tokenizer
- [x] Fix type errors
- [ ] Delete old shims
- [x] Update tests

> - [not a checkbox] decoy
`

func TestParseHeaderAndCounts(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if doc.Header.Description != "Port the parser to the new API" {
		t.Errorf("description = %q", doc.Header.Description)
	}
	if doc.Header.TestCommand != "npm test" {
		t.Errorf("test_command = %q", doc.Header.TestCommand)
	}
	if doc.Header.MaxIterations != 8 {
		t.Errorf("max_iterations = %d", doc.Header.MaxIterations)
	}

	if doc.Total() != 5 {
		t.Fatalf("total = %d, want 5", doc.Total())
	}
	if doc.Done() != 3 {
		t.Errorf("done = %d, want 3", doc.Done())
	}
	if doc.Remaining() != 2 {
		t.Errorf("remaining = %d, want 2", doc.Remaining())
	}
}

func TestParseNoFrontMatter(t *testing.T) {
	doc, err := Parse("- [ ] only item\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Total() != 1 || doc.Remaining() != 1 {
		t.Errorf("total=%d remaining=%d", doc.Total(), doc.Remaining())
	}
	if doc.Header.Description != "" {
		t.Errorf("unexpected header: %+v", doc.Header)
	}
}

func TestParseMarkerVariants(t *testing.T) {
	doc, err := Parse("* [X] star upper\n  - [x] indented\n- [ ]   spaced text  \n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Total() != 3 || doc.Done() != 2 {
		t.Fatalf("total=%d done=%d, want 3/2", doc.Total(), doc.Done())
	}
	if doc.Items[2].Text != "spaced text" {
		t.Errorf("text = %q, want trimmed", doc.Items[2].Text)
	}
}

func TestParseUnterminatedFrontMatter(t *testing.T) {
	if _, err := Parse("---\ndescription: x\n- [ ] a\n"); err == nil {
		t.Error("expected error for unterminated front matter")
	}
}

func TestLoadRereadSeesExternalToggle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TASKS.md")
	if err := os.WriteFile(path, []byte("- [x] a\n- [ ] b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Remaining() != 1 {
		t.Fatalf("remaining = %d, want 1", doc.Remaining())
	}

	// The backend toggles the last open item between iterations.
	if err := os.WriteFile(path, []byte("- [x] a\n- [x] b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err = Load(path)
	if err != nil {
		t.Fatalf("Load after toggle: %v", err)
	}
	if doc.Remaining() != 0 {
		t.Errorf("remaining = %d after external toggle, want 0", doc.Remaining())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.md")); err == nil {
		t.Error("expected error for missing task document")
	}
}
