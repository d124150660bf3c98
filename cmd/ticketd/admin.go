package main

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/auth"
	"ticketd/internal/config"
)

func newAdminCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}
	cmd.AddCommand(newAdminReconcileCmd(cfg, jsonOutput), newAdminHashTokenCmd())
	return cmd
}

func newAdminReconcileCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute blockedBy for every ticket (needs TICKETD_ADMIN_TOKEN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				if err := writePlain("checked %d tickets, corrected %d\n", resp.Checked, len(resp.Corrected)); err != nil {
					return err
				}
				for _, c := range resp.Corrected {
					if err := writePlain("  %s blockedBy=%t\n", c.ID, c.BlockedBy); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAdminHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token",
		Short: "Hash an admin token read from stdin for auth.admin_token_hash",
		Args:  requireExactlyArgs(0, "the token is read from stdin"),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no token on stdin")
			}
			hash, err := auth.HashToken(strings.TrimRight(line, "\r\n"))
			if err != nil {
				return err
			}
			return writePlain("%s\n", hash)
		},
	}
}

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server, schema and ticket count information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				info, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(info)
				}
				if err := writePlain("db: %s\nschema_version: %d\ntickets: %d\n", info.DBPath, info.SchemaVersion, info.TotalTickets); err != nil {
					return err
				}
				for _, status := range info.Statuses {
					if err := writePlain("  %s: %d\n", status, info.TicketCounts[status]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
