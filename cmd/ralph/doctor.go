package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/adapter"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/storage"
	"github.com/gabrypavanello/ralph-wiggum-cli/internal/tasklist"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [task-file]",
	Short: "Check ralph configuration and agent availability",
	Long: `Run health checks against the environment ralph depends on.

This command checks for:
- Config file validity
- Installed backend agent CLIs and their versions
- Task document parseability (when a task file is given)
- Log directory writability
- Event store accessibility

Exit codes:
  0 - ralph can run with at least one agent
  1 - no usable agent, or the environment is broken`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running ralph health checks...\n\n")
		var failures []string

		// Check 1: config
		fmt.Printf("%s Configuration\n", cyan("→"))
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("  %s %v\n", red("✗"), err)
			fmt.Printf("\n%s Fix the config before anything else.\n", red("✗"))
			os.Exit(1)
		}
		fmt.Printf("  %s Config loaded (warn at ~%d tokens, rotate at ~%d)\n",
			green("✓"), cfg.WarnTokens, cfg.RotateTokens)

		// Check 2: agents
		fmt.Printf("%s Backend agents\n", cyan("→"))
		usable := 0
		ctx := context.Background()
		for _, desc := range adapter.All() {
			if err := desc.Available(ctx, cfg.ProbeTimeout); err != nil {
				fmt.Printf("  %s %s (%s): %v\n", yellow("⚠"), desc.ID, desc.DisplayName, err)
				continue
			}
			usable++
			fmt.Printf("  %s %s (%s) is installed\n", green("✓"), desc.ID, desc.DisplayName)
			if verbose {
				fmt.Printf("    default model: %s, output: %s\n", desc.DefaultModel, desc.Format)
			}
		}
		if usable == 0 {
			failures = append(failures, "no backend agent CLI found on PATH")
			fmt.Printf("  %s No usable agent\n", red("✗"))
		}

		// Check 3: task document
		if len(args) == 1 {
			fmt.Printf("%s Task document\n", cyan("→"))
			doc, err := tasklist.Load(args[0])
			if err != nil {
				failures = append(failures, fmt.Sprintf("task document: %v", err))
				fmt.Printf("  %s %v\n", red("✗"), err)
			} else if doc.Total() == 0 {
				failures = append(failures, "task document has no checklist items")
				fmt.Printf("  %s No checklist items found (need \"- [ ] ...\" lines)\n", red("✗"))
			} else {
				fmt.Printf("  %s %d items, %d remaining\n", green("✓"), doc.Total(), doc.Remaining())
			}
		}

		// Check 4: log directory
		fmt.Printf("%s Log directory\n", cyan("→"))
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			failures = append(failures, fmt.Sprintf("log dir: %v", err))
			fmt.Printf("  %s Cannot create %s: %v\n", red("✗"), cfg.LogDir, err)
		} else {
			probe := filepath.Join(cfg.LogDir, ".doctor-probe")
			if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
				failures = append(failures, fmt.Sprintf("log dir not writable: %v", err))
				fmt.Printf("  %s %s is not writable\n", red("✗"), cfg.LogDir)
			} else {
				os.Remove(probe)
				fmt.Printf("  %s %s is writable\n", green("✓"), cfg.LogDir)
			}
		}

		// Check 5: event store
		fmt.Printf("%s Event store\n", cyan("→"))
		if cfg.DBPath == "" {
			fmt.Printf("  %s Disabled by config\n", green("✓"))
		} else if store, err := storage.Open(cfg.DBPath); err != nil {
			fmt.Printf("  %s Cannot open %s: %v\n", yellow("⚠"), cfg.DBPath, err)
			fmt.Printf("    Runs will continue without the store\n")
		} else {
			store.Close()
			fmt.Printf("  %s %s is accessible\n", green("✓"), cfg.DBPath)
		}

		fmt.Println()
		if len(failures) > 0 {
			fmt.Printf("%s Failures (%d):\n", red("✗"), len(failures))
			for _, f := range failures {
				fmt.Printf("  • %s\n", f)
			}
			os.Exit(1)
		}
		fmt.Printf("%s All checks passed! ralph is ready to run.\n", green("✓"))
	},
}

func init() {
	doctorCmd.Flags().BoolP("verbose", "v", false, "Show detailed diagnostic information")
	rootCmd.AddCommand(doctorCmd)
}
