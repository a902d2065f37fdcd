package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/adapter"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/loop"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/logsink"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run <task-file>",
	Short: "Run the supervision loop against a task checklist",
	Long: `Run backend agent iterations until the checklist in <task-file> is
fully checked, an anomaly halts the loop, or the iteration ceiling is
reached.

Exit codes:
  0  - checklist complete
  1  - configuration or launch failure
  3  - iteration ceiling reached with work remaining
  42 - anomaly halted the loop (operator intervention required)

Examples:
  ralph run TASKS.md
  ralph run TASKS.md --agent codex --model gpt-5-codex
  ralph run TASKS.md --max-iterations 5 --dry-run`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskPath := args[0]
		agentID, _ := cmd.Flags().GetString("agent")
		model, _ := cmd.Flags().GetString("model")
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")
		logDir, _ := cmd.Flags().GetString("log-dir")
		dbPath, _ := cmd.Flags().GetString("db")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		skipProbe, _ := cmd.Flags().GetBool("skip-probe")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if maxIterations > 0 {
			cfg.MaxIterations = maxIterations
		}
		if logDir != "" {
			cfg.LogDir = logDir
		}
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPath
		}

		desc, err := adapter.Get(agentID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !desc.ValidModel(model) {
			fmt.Fprintf(os.Stderr, "Error: model %q is not supported by %s (known: %s)\n",
				model, desc.ID, strings.Join(desc.Models, ", "))
			os.Exit(1)
		}

		if dryRun {
			argv, err := loop.PreviewArgs(cfg, desc, model, taskPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Would run (iteration 1, fresh context):\n")
			for i, a := range argv {
				fmt.Printf("  argv[%d] = %s\n", i, a)
			}
			return
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !skipProbe {
			if err := desc.Available(ctx, cfg.ProbeTimeout); err != nil {
				fmt.Fprintf(os.Stderr, "Error: agent %s is not usable: %v\n", desc.ID, err)
				os.Exit(1)
			}
		}

		sink, err := logsink.New(cfg.LogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer sink.Close()

		var store *storage.Store
		if cfg.DBPath != "" {
			store, err = storage.Open(cfg.DBPath)
			if err != nil {
				// The store is an index over the logs, not the record of
				// truth; run without it rather than refusing to start.
				fmt.Fprintf(os.Stderr, "warning: event store unavailable: %v\n", err)
			} else {
				defer store.Close()
			}
		}

		ctrl := loop.New(cfg, desc, model, taskPath, sink, store)
		outcome, err := ctrl.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printSummary(outcome, ctrl, sink)
		switch outcome {
		case loop.OutcomeComplete:
			os.Exit(0)
		case loop.OutcomeExhausted:
			os.Exit(3)
		case loop.OutcomeGutter:
			os.Exit(42)
		}
	},
}

func printSummary(outcome loop.Outcome, ctrl *loop.Controller, sink *logsink.Sink) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch outcome {
	case loop.OutcomeComplete:
		fmt.Printf("\n%s Checklist complete\n", green("✓"))
	case loop.OutcomeExhausted:
		fmt.Printf("\n%s Iteration ceiling reached with work remaining\n", yellow("⚠"))
	case loop.OutcomeGutter:
		fmt.Printf("\n%s Halted on anomaly; see %s\n", red("✗"), sink.ErrorPath())
	}
	fmt.Printf("  %d iteration(s), ~%d estimated tokens\n", ctrl.Iterations(), ctrl.EstimatedTokens())
	fmt.Printf("  activity log: %s\n", sink.ActivityPath())
}

func init() {
	runCmd.Flags().StringP("agent", "a", "claude", "Backend agent to drive (claude, codex, aider)")
	runCmd.Flags().StringP("model", "m", "", "Model to request (agent default when empty)")
	runCmd.Flags().IntP("max-iterations", "n", 0, "Override the iteration ceiling")
	runCmd.Flags().String("log-dir", "", "Override the log directory")
	runCmd.Flags().String("db", "", "Override the event store path (empty disables it)")
	runCmd.Flags().Bool("dry-run", false, "Print the first-iteration invocation and exit")
	runCmd.Flags().Bool("skip-probe", false, "Skip the agent availability probe")
	rootCmd.AddCommand(runCmd)
}
