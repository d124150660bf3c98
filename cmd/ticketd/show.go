package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/config"
)

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a ticket with its dependents and recent activity",
		Args:  requireExactlyArgs(1, "ticket id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				detail, err := client.GetTicket(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(detail)
				}
				return writeTicketDetail(detail)
			})
		},
	}
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		project  string
		status   string
		assignee string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "projectId", project)
			setIfNotEmpty(query, "status", status)
			setIfNotEmpty(query, "assignee", assignee)
			if limit > 0 {
				query.Set("limit", itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", itoa(offset))
			}

			return withClient(cfg, func(client *api.Client) error {
				tickets, err := client.ListTickets(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(tickets)
				}
				return writeTicketList(tickets)
			})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project id filter")
	cmd.Flags().StringVar(&status, "status", "", "comma separated status filter")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "limit results")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset results")
	return cmd
}

func newActivityCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "activity <id>",
		Short: "Show the activity trail of a ticket",
		Args:  requireExactlyArgs(1, "ticket id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				entries, err := client.ListActivity(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(entries)
				}
				return writeActivity(entries)
			})
		},
	}
}
