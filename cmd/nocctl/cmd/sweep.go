package cmd

import (
	"github.com/spf13/cobra"
)

// sweepCmd triggers an escalation sweep on the server.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Trigger an escalation sweep",
	Long: `Run one escalation pass over open tickets. Tickets past their
priority's age threshold are bumped and reassigned to the target tier.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI("POST", "/api/v1/escalations/sweep", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
