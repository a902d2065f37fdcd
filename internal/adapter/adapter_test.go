package adapter

import (
	"strings"
	"testing"
)

func TestRegistryContents(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("registered adapters = %d, want 3", len(all))
	}
	// All() is sorted by ID
	wantOrder := []string{"aider", "claude", "codex"}
	for i, d := range all {
		if d.ID != wantOrder[i] {
			t.Errorf("All()[%d] = %s, want %s", i, d.ID, wantOrder[i])
		}
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("cursor")
	if err == nil {
		t.Fatal("expected error for unknown adapter")
	}
	if !strings.Contains(err.Error(), "claude") {
		t.Errorf("error should list known adapters, got: %v", err)
	}
}

func TestClaudeArgs(t *testing.T) {
	d, err := Get("claude")
	if err != nil {
		t.Fatal(err)
	}
	if d.Format != FormatStream {
		t.Errorf("format = %s, want %s", d.Format, FormatStream)
	}

	args := d.BuildArgs("claude-sonnet-4-5", "", "do the thing")
	joined := strings.Join(args, " ")
	for _, want := range []string{"--output-format stream-json", "--dangerously-skip-permissions", "--model claude-sonnet-4-5"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
	if strings.Contains(joined, "--resume") {
		t.Errorf("fresh session must not carry --resume: %v", args)
	}
	if args[len(args)-1] != "do the thing" {
		t.Errorf("prompt must be the final argument: %v", args)
	}

	resumed := d.BuildArgs("claude-sonnet-4-5", "sess-42", "continue")
	if !strings.Contains(strings.Join(resumed, " "), "--resume sess-42") {
		t.Errorf("resume handle not threaded: %v", resumed)
	}
}

func TestArgsAreVectorsNotShellStrings(t *testing.T) {
	// A hostile model name or handle must stay a single argv element.
	hostile := `x"; rm -rf /; echo "`
	for _, d := range All() {
		args := d.BuildArgs(hostile, "", "p")
		found := false
		for _, a := range args {
			if a == hostile {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: hostile model name was not preserved verbatim as one element: %v", d.ID, args)
		}
	}
}

func TestAiderIsPlainText(t *testing.T) {
	d, err := Get("aider")
	if err != nil {
		t.Fatal(err)
	}
	if d.Format != FormatPlain {
		t.Errorf("format = %s, want %s", d.Format, FormatPlain)
	}
	args := d.BuildArgs("sonnet", "", "fix it")
	if !strings.Contains(strings.Join(args, " "), "--yes-always") {
		t.Errorf("plain adapter still needs an unattended flag: %v", args)
	}
}

func TestValidModel(t *testing.T) {
	d, _ := Get("codex")
	if !d.ValidModel("gpt-5-codex") {
		t.Error("listed model should validate")
	}
	if !d.ValidModel("") {
		t.Error("empty model should validate (default substituted later)")
	}
	if d.ValidModel("gpt-3") {
		t.Error("unlisted model should not validate")
	}
}
