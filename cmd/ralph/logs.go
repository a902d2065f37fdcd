package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the tail of the durable activity or error log",
	Long: `Print the last lines of ralph's append-only logs.

Examples:
  ralph logs                 # last 20 activity lines
  ralph logs -n 100          # last 100 activity lines
  ralph logs --errors        # last 20 error lines`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		errors, _ := cmd.Flags().GetBool("errors")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		name := "activity.log"
		if errors {
			name = "error.log"
		}
		path := filepath.Join(cfg.LogDir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Printf("No log at %s yet\n", path)
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if len(lines) > limit {
			lines = lines[len(lines)-limit:]
		}
		for _, line := range lines {
			fmt.Println(line)
		}
	},
}

func init() {
	logsCmd.Flags().IntP("limit", "n", 20, "Number of trailing lines to show")
	logsCmd.Flags().Bool("errors", false, "Show the error log instead of the activity log")
	rootCmd.AddCommand(logsCmd)
}
