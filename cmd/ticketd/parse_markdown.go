package main

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"ticketd/internal/api"
	"ticketd/internal/models"
)

var (
	listItemRegex = regexp.MustCompile(`^\s*[-*]\s+(.*)$`)
	checkboxRegex = regexp.MustCompile(`^\[([ xX~!])\]\s+(.*)$`)
)

// ticketFrontMatter is the YAML header of a ticket markdown file.
type ticketFrontMatter struct {
	Title       string   `yaml:"title"`
	Project     string   `yaml:"project"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	Priority    string   `yaml:"priority"`
	Type        string   `yaml:"type"`
	Assignee    string   `yaml:"assignee"`
	Points      *int     `yaml:"points"`
	DependsOn   []string `yaml:"depends_on"`
}

// parseTicketMarkdown reads an optional front matter block followed by a
// body. List items in the body become subtasks; other body text becomes
// the description when the front matter has none.
func parseTicketMarkdown(input string) (api.TicketCreateRequest, error) {
	var fm ticketFrontMatter
	content := input

	lines := splitLines(input)
	if len(lines) >= 2 && strings.TrimSpace(lines[0]) == "---" {
		end := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				end = i
				break
			}
		}
		if end == -1 {
			return api.TicketCreateRequest{}, fmt.Errorf("front matter not closed")
		}
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &fm); err != nil {
			return api.TicketCreateRequest{}, fmt.Errorf("front matter: %w", err)
		}
		content = strings.Join(lines[end+1:], "\n")
	}

	req := api.TicketCreateRequest{
		ProjectID:   strings.TrimSpace(fm.Project),
		Title:       strings.TrimSpace(fm.Title),
		Description: strings.TrimSpace(fm.Description),
		Status:      strings.TrimSpace(fm.Status),
		Priority:    strings.TrimSpace(fm.Priority),
		TicketType:  strings.TrimSpace(fm.Type),
		Assignee:    strings.TrimSpace(fm.Assignee),
		Points:      fm.Points,
		DependsOn:   fm.DependsOn,
	}

	var body []string
	for _, line := range strings.Split(content, "\n") {
		match := listItemRegex.FindStringSubmatch(line)
		if len(match) != 2 {
			if heading, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok && req.Title == "" {
				req.Title = strings.TrimSpace(heading)
				continue
			}
			body = append(body, line)
			continue
		}
		if subtask, ok := parseSubtaskItem(match[1]); ok {
			req.Subtasks = append(req.Subtasks, subtask)
		}
	}

	if req.Description == "" {
		req.Description = strings.TrimSpace(strings.Join(body, "\n"))
	}
	if req.Title == "" {
		return api.TicketCreateRequest{}, fmt.Errorf("title is required (front matter title or a '# ' heading)")
	}
	return req, nil
}

// parseSubtaskItem turns "[x] title" style items into subtasks. The box
// marks the status: ' ' Backlog, '~' Ongoing, '!' Blocked, 'x' Done.
func parseSubtaskItem(raw string) (api.SubtaskInput, bool) {
	item := strings.TrimSpace(raw)
	if item == "" {
		return api.SubtaskInput{}, false
	}
	match := checkboxRegex.FindStringSubmatch(item)
	if len(match) != 3 {
		return api.SubtaskInput{Title: item}, true
	}
	title := strings.TrimSpace(match[2])
	if title == "" {
		return api.SubtaskInput{}, false
	}
	var status models.Status
	switch match[1] {
	case "x", "X":
		status = models.StatusDone
	case "~":
		status = models.StatusOngoing
	case "!":
		status = models.StatusBlocked
	default:
		status = models.StatusBacklog
	}
	return api.SubtaskInput{Title: title, Status: string(status)}, true
}
