package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyzeFile string

// analyzeCmd submits an event for diagnosis.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze an operational event",
	Long: `Submit an event to the diagnosis engine and print the resulting
analysis. Critical events also get a ticket created automatically.

Example:
  nocctl analyze --file event.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFile == "" {
			return fmt.Errorf("--file is required")
		}
		data, err := os.ReadFile(analyzeFile)
		if err != nil {
			return fmt.Errorf("read event file: %w", err)
		}
		var event map[string]any
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("parse event file: %w", err)
		}

		result, err := callAPI("POST", "/api/v1/analyses", event)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// analysisCmd fetches a stored analysis by event ID.
var analysisCmd = &cobra.Command{
	Use:   "analysis <event-id>",
	Short: "Show the stored analysis for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := callAPI("GET", "/api/v1/analyses/"+args[0], nil)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "JSON file describing the event")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(analysisCmd)
}
