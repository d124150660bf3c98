package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ticketd/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "ticketd",
		Short:         "Ticketd tracks tickets whose status depends on other tickets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newCreateCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newEditCmd(cfg, &jsonOutput),
		newStatusCmd(cfg, &jsonOutput),
		newDeleteCmd(cfg, &jsonOutput),
		newDepCmd(cfg, &jsonOutput),
		newSubtasksCmd(cfg, &jsonOutput),
		newActivityCmd(cfg, &jsonOutput),
		newProjectCmd(cfg, &jsonOutput),
		newMemberCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newAdminCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
	)

	return cmd
}
