package main

import (
	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/config"
)

func newProjectCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var description string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project; the caller becomes its admin",
		Args:  requireExactlyArgs(1, "project name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				project, err := client.CreateProject(cmd.Context(), api.ProjectCreateRequest{
					Name:        args[0],
					Description: description,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(project)
				}
				return writePlain("%s %s\n", project.ID, project.KeyPrefix)
			})
		},
	}
	createCmd.Flags().StringVarP(&description, "description", "d", "", "description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				projects, err := client.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(projects)
				}
				return writeProjectList(projects)
			})
		},
	}

	cmd.AddCommand(createCmd, listCmd)
	return cmd
}

func newMemberCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage project members and roles",
	}

	var role string
	addCmd := &cobra.Command{
		Use:   "add <project> <user>",
		Short: "Add a member to a project",
		Args:  requireExactlyArgs(2, "project id and user id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				member, err := client.AddMember(cmd.Context(), args[0], api.MemberAddRequest{
					UserID: args[1],
					Role:   role,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(member)
				}
				return writePlain("%s %s %s\n", member.ProjectID, member.UserID, member.Role)
			})
		},
	}
	addCmd.Flags().StringVar(&role, "role", "", "role (ADMIN, MANAGER, QA, MEMBER)")

	listCmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List project members",
		Args:  requireExactlyArgs(1, "project id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				members, err := client.ListMembers(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(members)
				}
				return writeMemberList(members)
			})
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}
