package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/storage"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent supervision events from the event store",
	Long: `Display recent events recorded while supervising agent runs.

Shows classified backend events including assistant messages, tool
calls, budget warnings, and anomaly reports, each annotated with the
health tier at the time it was observed.

Examples:
  ralph activity                        # Show last 20 events
  ralph activity -n 50                  # Show last 50 events
  ralph activity --run 7f3a…            # Show events for one run
  ralph activity --type tool_call_result`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		runID, _ := cmd.Flags().GetString("run")
		eventType, _ := cmd.Flags().GetString("type")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cfg.DBPath == "" {
			fmt.Fprintf(os.Stderr, "Error: event store is disabled (db_path is empty)\n")
			os.Exit(1)
		}

		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot open event store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		recs, err := store.Recent(context.Background(), storage.Filter{
			RunID: runID,
			Type:  eventType,
			Limit: limit,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching events: %v\n", err)
			os.Exit(1)
		}
		if len(recs) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No events found matching the criteria\n\n", yellow("✨"))
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Recent activity (%d events):\n\n", cyan("📋"), len(recs))

		// Newest last, so the output reads top to bottom.
		for i := len(recs) - 1; i >= 0; i-- {
			displayRecord(recs[i])
		}
		fmt.Println()
	},
}

func displayRecord(rec *storage.Record) {
	var tier string
	switch rec.Health {
	case "CRIT":
		tier = color.New(color.FgRed).Sprint(rec.Health)
	case "WARN":
		tier = color.New(color.FgYellow).Sprint(rec.Health)
	default:
		tier = color.New(color.FgGreen).Sprint(rec.Health)
	}
	fmt.Printf("%s [%s] iter=%d %-18s %s (~%d tok)\n",
		rec.CreatedAt.Format("15:04:05"), tier, rec.Iteration, rec.Type, rec.Message, rec.EstTokens)
}

func init() {
	activityCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show")
	activityCmd.Flags().StringP("run", "r", "", "Filter events by run ID")
	activityCmd.Flags().StringP("type", "t", "", "Filter by event type (e.g., tool_call_result)")
	rootCmd.AddCommand(activityCmd)
}
