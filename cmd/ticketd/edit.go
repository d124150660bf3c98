package main

import (
	"errors"

	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/config"
)

func newEditCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		ticketType  string
		assignee    string
		points      int
		archive     bool
		unarchive   bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit ticket fields",
		Args:  requireExactlyArgs(1, "ticket id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if archive && unarchive {
				return errors.New("--archive and --unarchive are mutually exclusive")
			}

			req := api.TicketUpdateRequest{}
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("priority") {
				req.Priority = &priority
			}
			if flags.Changed("type") {
				req.TicketType = &ticketType
			}
			if flags.Changed("assignee") {
				req.Assignee = &assignee
			}
			if flags.Changed("points") {
				req.Points = &points
			}
			if archive || unarchive {
				archived := archive
				req.Archived = &archived
			}
			if req == (api.TicketUpdateRequest{}) {
				return errors.New("nothing to change")
			}

			return withClient(cfg, func(client *api.Client) error {
				ticket, err := client.UpdateTicket(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(ticket)
				}
				return writePlain("%s\n", ticket.ID)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority")
	cmd.Flags().StringVarP(&ticketType, "type", "t", "", "type")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee (empty to clear)")
	cmd.Flags().IntVar(&points, "points", 0, "story points")
	cmd.Flags().BoolVar(&archive, "archive", false, "archive the ticket")
	cmd.Flags().BoolVar(&unarchive, "unarchive", false, "unarchive the ticket")
	return cmd
}

func newDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id> [<id>...]",
		Short: "Delete tickets",
		Long:  "Delete tickets. Dependents stop waiting on a deleted ticket.",
		Args:  requireAtLeastArgs(1, "ticket id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range args {
					if err := client.DeleteTicket(cmd.Context(), id); err != nil {
						return err
					}
				}
				if *jsonOutput {
					return writeJSON(map[string][]string{"deleted": args})
				}
				for _, id := range args {
					if err := writePlain("deleted %s\n", id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
