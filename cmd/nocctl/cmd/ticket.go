package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	noteAuthor string
	noteText   string
)

// ticketCmd groups ticket operations.
var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Ticket management commands",
	Long: `Commands for inspecting and annotating tickets.

Examples:
  # List all tickets
  nocctl ticket list

  # Show one ticket with its work notes
  nocctl ticket get INC0001000

  # Append a work note
  nocctl ticket note INC0001000 --text "Reboot scheduled" --author "jane"

  # Check a ticket's SLA standing
  nocctl ticket sla INC0001000`,
}

var ticketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI("GET", "/api/v1/tickets", nil)
		if err != nil {
			return err
		}

		var tickets []struct {
			Number           string    `json:"number"`
			Priority         string    `json:"priority"`
			State            string    `json:"state"`
			AssignedTo       string    `json:"assignedTo"`
			ShortDescription string    `json:"shortDescription"`
			CreatedAt        time.Time `json:"createdAt"`
		}
		if err := json.Unmarshal(data, &tickets); err != nil {
			return printJSON(data)
		}
		if len(tickets) == 0 {
			fmt.Println("No tickets found.")
			return nil
		}

		fmt.Printf("%-12s  %-11s  %-12s  %-28s  %s\n",
			"NUMBER", "PRIORITY", "STATE", "ASSIGNED TO", "DESCRIPTION")
		for _, t := range tickets {
			assignee := t.AssignedTo
			if assignee == "" {
				assignee = "-"
			}
			fmt.Printf("%-12s  %-11s  %-12s  %-28s  %s\n",
				t.Number, t.Priority, t.State, assignee, t.ShortDescription)
		}
		return nil
	},
}

var ticketGetCmd = &cobra.Command{
	Use:   "get <number>",
	Short: "Show one ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI("GET", "/api/v1/tickets/"+args[0], nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var ticketNoteCmd = &cobra.Command{
	Use:   "note <number>",
	Short: "Append a work note to a ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if noteText == "" {
			return fmt.Errorf("--text is required")
		}
		payload := map[string]string{"author": noteAuthor, "text": noteText}
		data, err := callAPI("POST", "/api/v1/tickets/"+args[0]+"/worknotes", payload)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var ticketSLACmd = &cobra.Command{
	Use:   "sla <number>",
	Short: "Show a ticket's SLA standing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := callAPI("GET", "/api/v1/tickets/"+args[0]+"/sla", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

func init() {
	ticketNoteCmd.Flags().StringVar(&noteAuthor, "author", "", "note author (defaults to the service author)")
	ticketNoteCmd.Flags().StringVar(&noteText, "text", "", "note text")

	ticketCmd.AddCommand(ticketListCmd)
	ticketCmd.AddCommand(ticketGetCmd)
	ticketCmd.AddCommand(ticketNoteCmd)
	ticketCmd.AddCommand(ticketSLACmd)
	rootCmd.AddCommand(ticketCmd)
}
