package loop

import (
	"fmt"
	"strings"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/config"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/tasklist"
)

// buildPrompt assembles the per-iteration prompt handed to the backend
// agent. The agent owns the working tree and the task document; the
// prompt tells it where the checklist lives and how to self-report.
func buildPrompt(cfg *config.Config, doc *tasklist.Document) string {
	var b strings.Builder

	if doc.Header.Description != "" {
		b.WriteString(doc.Header.Description)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Work through the checklist in %s, one item at a time.\n", doc.Path)
	b.WriteString("After finishing an item, mark its checkbox done ([ ] -> [x]) and commit your changes.\n")
	fmt.Fprintf(&b, "%d of %d items remain.\n", doc.Remaining(), doc.Total())

	if doc.Header.TestCommand != "" {
		fmt.Fprintf(&b, "Verify your work with: %s\n", doc.Header.TestCommand)
	}

	b.WriteString("\n# STATUS PROTOCOL\n")
	fmt.Fprintf(&b, "When every checklist item is done, print the exact string %s on its own line.\n", cfg.DoneSentinel)
	fmt.Fprintf(&b, "If you cannot make progress, print the exact string %s and explain why.\n", cfg.StuckSentinel)

	return b.String()
}
