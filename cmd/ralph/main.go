package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Supervise a coding agent through a persisted task checklist",
	Long: `Ralph drives a black-box coding agent CLI (claude, codex, aider)
through a markdown task checklist, one fresh invocation at a time.

The agent does the work; ralph watches its output stream, estimates
context consumption, detects failure loops and file thrashing, and
decides after every iteration whether to continue, rotate to a fresh
context, or halt for an operator.

The checklist file is the only source of truth: ralph re-reads it at
every iteration boundary and stops when every checkbox is checked.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".ralph.yaml", "Path to the ralph config file")
}

// loadConfig builds the effective config from defaults, the config file,
// and RALPH_* environment variables.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
