package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/config"
)

type createCmdOptions struct {
	project     string
	description string
	status      string
	priority    string
	ticketType  string
	assignee    string
	points      int
	dependsOn   string
	subtasks    []string
	filePath    string
}

func newCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &createCmdOptions{}
	cmd := &cobra.Command{
		Use:   "create [<title>]",
		Short: "Create a ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildCreateRequest(cmd, opts, args)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				ticket, err := client.CreateTicket(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(ticket)
				}
				if ticket.TicketKey != "" {
					return writePlain("%s %s\n", ticket.ID, ticket.TicketKey)
				}
				return writePlain("%s\n", ticket.ID)
			})
		},
	}

	bindCreateFlags(cmd, opts)
	return cmd
}

func bindCreateFlags(cmd *cobra.Command, opts *createCmdOptions) {
	cmd.Flags().StringVar(&opts.project, "project", "", "project id")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "description")
	cmd.Flags().StringVarP(&opts.status, "status", "s", "", "initial status (default Backlog)")
	cmd.Flags().StringVarP(&opts.priority, "priority", "p", "", "priority (low, medium, high, urgent)")
	cmd.Flags().StringVarP(&opts.ticketType, "type", "t", "", "type (bug, feature, enhancement, task)")
	cmd.Flags().StringVar(&opts.assignee, "assignee", "", "assignee")
	cmd.Flags().IntVar(&opts.points, "points", 0, "story points")
	cmd.Flags().StringVar(&opts.dependsOn, "depends-on", "", "comma separated ticket ids this ticket depends on")
	cmd.Flags().StringArrayVar(&opts.subtasks, "subtask", nil, "subtask title (repeatable)")
	cmd.Flags().StringVarP(&opts.filePath, "file", "f", "", "markdown file with front matter; list items become subtasks")
}

func buildCreateRequest(cmd *cobra.Command, opts *createCmdOptions, args []string) (api.TicketCreateRequest, error) {
	var req api.TicketCreateRequest
	if opts.filePath != "" {
		data, err := os.ReadFile(opts.filePath)
		if err != nil {
			return req, err
		}
		if req, err = parseTicketMarkdown(string(data)); err != nil {
			return req, err
		}
	}

	// Flags and arguments override the file.
	if len(args) > 0 {
		req.Title = strings.Join(args, " ")
	}
	if req.Title == "" {
		return req, errors.New("title is required")
	}
	if opts.project != "" {
		req.ProjectID = opts.project
	}
	if opts.description != "" {
		req.Description = opts.description
	}
	if opts.status != "" {
		req.Status = opts.status
	}
	if opts.priority != "" {
		req.Priority = opts.priority
	}
	if opts.ticketType != "" {
		req.TicketType = opts.ticketType
	}
	if opts.assignee != "" {
		req.Assignee = opts.assignee
	}
	if cmd.Flags().Changed("points") {
		points := opts.points
		req.Points = &points
	}
	if deps := splitCommaList(opts.dependsOn); len(deps) > 0 {
		req.DependsOn = deps
	}
	for _, title := range opts.subtasks {
		if title = strings.TrimSpace(title); title != "" {
			req.Subtasks = append(req.Subtasks, api.SubtaskInput{Title: title})
		}
	}
	return req, nil
}
