package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"ticketd/internal/config"
	"ticketd/internal/models"
	"ticketd/internal/server"
	"ticketd/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the ticketd API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			opts, err := serverOptions(cfg)
			if err != nil {
				return err
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if opts.JWTSecret == "" {
				logger.Warn("auth.jwt_secret not set; bearer tokens are trusted without verification")
			}

			srv := server.New(addr, st, opts, logger)
			return srv.ListenAndServe()
		},
	}
}

func serverOptions(cfg *config.Config) (server.Options, error) {
	roles := make([]models.MemberRole, 0, len(cfg.Workflow.DoneRoles))
	for _, raw := range cfg.Workflow.DoneRoles {
		role, err := models.ParseMemberRole(raw)
		if err != nil {
			return server.Options{}, fmt.Errorf("workflow.done_roles: %w", err)
		}
		roles = append(roles, role)
	}
	// Roles only mean something when the caller identity is verified.
	if len(roles) > 0 && strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return server.Options{}, fmt.Errorf("workflow.done_roles requires auth.jwt_secret")
	}

	return server.Options{
		DBPath:          cfg.DBPath,
		JWTSecret:       cfg.Auth.JWTSecret,
		RequireAuth:     cfg.Auth.RequireAuth,
		AdminTokenHash:  cfg.Auth.AdminTokenHash,
		DoneRoles:       roles,
		DowngradeDenied: cfg.Workflow.DoneDenied == config.DoneDeniedDowngrade,
	}, nil
}
