package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"ticketd/internal/api"
	"ticketd/internal/config"
	"ticketd/internal/models"
)

func newSubtasksCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtasks",
		Short: "Manage the subtask checklist of a ticket",
		Long: "Manage the subtask checklist of a ticket.\n" +
			"The ticket status follows its subtasks whenever the list changes.",
	}
	cmd.AddCommand(newSubtasksSetCmd(cfg, jsonOutput), newSubtaskStatusCmd(cfg, jsonOutput))
	return cmd
}

func newSubtasksSetCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		items    []string
		filePath string
	)

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Replace all subtasks",
		Args:  requireExactlyArgs(1, "ticket id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			subtasks := []api.SubtaskInput{}
			if filePath != "" {
				data, err := os.ReadFile(filePath)
				if err != nil {
					return err
				}
				for _, line := range splitLines(string(data)) {
					match := listItemRegex.FindStringSubmatch(line)
					if len(match) != 2 {
						continue
					}
					if st, ok := parseSubtaskItem(match[1]); ok {
						subtasks = append(subtasks, st)
					}
				}
			}
			for _, item := range items {
				if st, ok := parseSubtaskItem(item); ok {
					subtasks = append(subtasks, st)
				}
			}

			return withClient(cfg, func(client *api.Client) error {
				ticket, err := client.SetSubtasks(cmd.Context(), args[0], api.SubtasksRequest{Subtasks: subtasks})
				if err != nil {
					return err
				}
				return writeSubtaskResult(ticket, *jsonOutput)
			})
		},
	}

	cmd.Flags().StringArrayVar(&items, "item", nil, `subtask, optionally with a box: "[x] title" (repeatable)`)
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "markdown file whose list items are the subtasks")
	return cmd
}

func newSubtaskStatusCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <index> <status>",
		Short: "Set the status of one subtask (1-based index)",
		Args:  requireExactlyArgs(3, "ticket id, subtask index and status are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil || index < 1 {
				return fmt.Errorf("invalid subtask index %q", args[1])
			}
			status, err := models.ParseStatus(args[2])
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				detail, err := client.GetTicket(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if index > len(detail.Subtasks) {
					return errors.New("subtask index out of range")
				}
				inputs := subtaskInputs(detail.Subtasks)
				inputs[index-1].Status = string(status)

				ticket, err := client.SetSubtasks(cmd.Context(), args[0], api.SubtasksRequest{Subtasks: inputs})
				if err != nil {
					return err
				}
				return writeSubtaskResult(ticket, *jsonOutput)
			})
		},
	}
}

// subtaskInputs converts stored subtasks back to inputs, keeping ids so
// the server preserves their identity.
func subtaskInputs(subtasks []models.Subtask) []api.SubtaskInput {
	out := make([]api.SubtaskInput, 0, len(subtasks))
	for _, st := range subtasks {
		out = append(out, api.SubtaskInput{
			ID:       st.ID,
			Title:    st.Title,
			Status:   string(st.Status),
			Assignee: st.Assignee,
			DueDate:  st.DueDate,
		})
	}
	return out
}

func writeSubtaskResult(ticket models.Ticket, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(ticket)
	}
	return writePlain("%s %s (%d subtasks)\n", ticket.ID, ticket.Status, len(ticket.Subtasks))
}
