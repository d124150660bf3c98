package main

import (
	"context"
	"slices"

	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/config"
	"ticketd/internal/models"
)

func newDepCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	depCmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage ticket dependencies",
	}

	addCmd := &cobra.Command{
		Use:   "add <ticket> <dependency>...",
		Short: "Make a ticket depend on other tickets",
		Args:  requireAtLeastArgs(2, "ticket and dependency ids are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				ticket, err := editDependencies(cmd.Context(), client, args[0], func(deps []string) []string {
					for _, id := range args[1:] {
						if !slices.Contains(deps, id) {
							deps = append(deps, id)
						}
					}
					return deps
				})
				if err != nil {
					return err
				}
				return writeDependencies(ticket, *jsonOutput)
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <ticket> <dependency>...",
		Short: "Remove dependencies from a ticket",
		Args:  requireAtLeastArgs(2, "ticket and dependency ids are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				ticket, err := editDependencies(cmd.Context(), client, args[0], func(deps []string) []string {
					return slices.DeleteFunc(deps, func(id string) bool {
						return slices.Contains(args[1:], id)
					})
				})
				if err != nil {
					return err
				}
				return writeDependencies(ticket, *jsonOutput)
			})
		},
	}

	depCmd.AddCommand(addCmd, rmCmd)
	return depCmd
}

// editDependencies replaces the dependency list with edit(current). The
// server validates the result and recomputes blockedBy.
func editDependencies(ctx context.Context, client *api.Client, ticketID string, edit func([]string) []string) (models.Ticket, error) {
	detail, err := client.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	deps := edit(slices.Clone(detail.DependsOn))
	if deps == nil {
		deps = []string{}
	}
	return client.UpdateTicket(ctx, ticketID, api.TicketUpdateRequest{DependsOn: &deps})
}

func writeDependencies(ticket models.Ticket, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(ticket)
	}
	if len(ticket.DependsOn) == 0 {
		return writePlain("%s has no dependencies\n", ticket.ID)
	}
	state := "ready"
	if ticket.BlockedBy {
		state = "blocked"
	}
	for _, dep := range ticket.DependsOn {
		if err := writePlain("%s -> %s\n", ticket.ID, dep); err != nil {
			return err
		}
	}
	return writePlain("%s is %s\n", ticket.ID, state)
}
