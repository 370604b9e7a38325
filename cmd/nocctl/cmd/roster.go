package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// rosterCmd groups responder-pool operations.
var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Responder roster commands",
	Long: `Commands for inspecting the responder pool and its workload.

Examples:
  # Show every responder
  nocctl roster list

  # Show aggregate workload statistics
  nocctl roster stats

  # Move one ticket off an overloaded responder
  nocctl roster rebalance`,
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List responders",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI("GET", "/api/v1/roster", nil)
		if err != nil {
			return err
		}

		var members []struct {
			Name         string `json:"name"`
			Email        string `json:"email"`
			Group        string `json:"group"`
			Availability string `json:"availability"`
			CurrentLoad  int    `json:"currentLoad"`
			MaxLoad      int    `json:"maxLoad"`
		}
		if err := json.Unmarshal(data, &members); err != nil {
			return printJSON(data)
		}

		fmt.Printf("%-18s  %-30s  %-15s  %-10s  %s\n",
			"NAME", "EMAIL", "GROUP", "STATUS", "LOAD")
		for _, m := range members {
			fmt.Printf("%-18s  %-30s  %-15s  %-10s  %d/%d\n",
				m.Name, m.Email, m.Group, m.Availability, m.CurrentLoad, m.MaxLoad)
		}
		return nil
	},
}

var rosterStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate workload statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI("GET", "/api/v1/roster/stats", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var rosterRebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Rebalance ticket load across responders",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI("POST", "/api/v1/roster/rebalance", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

func init() {
	rosterCmd.AddCommand(rosterListCmd)
	rosterCmd.AddCommand(rosterStatsCmd)
	rosterCmd.AddCommand(rosterRebalanceCmd)
	rootCmd.AddCommand(rosterCmd)
}
