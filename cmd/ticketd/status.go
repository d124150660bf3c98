package main

import (
	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/config"
)

func newStatusCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a ticket to another status",
		Long: "Move a ticket to Backlog, Ongoing, Blocked, QA or Done.\n" +
			"Moving into Ongoing, Blocked or QA is refused while a dependency is unfinished.",
		Args: requireExactlyArgs(2, "ticket id and status are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				ticket, err := client.UpdateStatus(cmd.Context(), args[0], api.StatusUpdateRequest{
					Status: args[1],
					Author: author,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(ticket)
				}
				return writePlain("%s %s\n", ticket.ID, ticket.Status)
			})
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "name recorded in the activity trail")
	return cmd
}
