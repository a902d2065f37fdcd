package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gabrypavanello/ralph-wiggum-cli/internal/tasklist"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-file>",
	Short: "Show checklist progress for a task document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := tasklist.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		if doc.Header.Description != "" {
			fmt.Printf("%s %s\n\n", cyan("»"), doc.Header.Description)
		}
		for _, item := range doc.Items {
			if item.Done {
				fmt.Printf("  %s %s\n", green("✓"), item.Text)
			} else {
				fmt.Printf("  ☐ %s\n", item.Text)
			}
		}

		fmt.Println()
		if doc.Total() == 0 {
			fmt.Printf("No checklist items found in %s\n", args[0])
			return
		}
		fmt.Printf("%d/%d done", doc.Done(), doc.Total())
		if doc.Remaining() == 0 {
			fmt.Printf(" %s", green("— complete"))
		}
		fmt.Println()
		if doc.Header.TestCommand != "" {
			fmt.Printf("test command: %s\n", doc.Header.TestCommand)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
