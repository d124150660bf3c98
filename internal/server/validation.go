package server

import (
	"fmt"
	"regexp"
	"strings"

	"ticketd/internal/models"
)

var (
	ticketIDRegex  = regexp.MustCompile(`^tk-[0-9a-z]{4}(?:[0-9a-z]{2})?$`)
	projectIDRegex = regexp.MustCompile(`^pj-[0-9a-z]{4}(?:[0-9a-z]{2})?$`)
)

func validateTicketID(id string) bool {
	return ticketIDRegex.MatchString(id)
}

func validateProjectID(id string) bool {
	return projectIDRegex.MatchString(id)
}

func normalizeStatus(value string) (models.Status, error) {
	if strings.TrimSpace(value) == "" {
		return "", badRequestCode(fmt.Errorf("status is required"), ErrCodeMissingRequired)
	}
	status, err := models.ParseStatus(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidStatus)
	}
	return status, nil
}

func normalizePriority(value string) (models.Priority, error) {
	priority, err := models.ParsePriority(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidPriority)
	}
	return priority, nil
}

func normalizeTicketType(value string) (models.TicketType, error) {
	ticketType, err := models.ParseTicketType(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidType)
	}
	return ticketType, nil
}

func normalizeTitle(value string) (string, error) {
	title := strings.TrimSpace(value)
	if title == "" {
		return "", badRequestCode(fmt.Errorf("title is required"), ErrCodeMissingRequired)
	}
	if len([]rune(title)) > models.TitleMaxLength {
		return "", badRequestCode(fmt.Errorf("title must be at most %d characters", models.TitleMaxLength), ErrCodeTitleTooLong)
	}
	return title, nil
}

func normalizePoints(value int) (int, error) {
	if value < 0 {
		return 0, badRequestCode(fmt.Errorf("points must be >= 0"), ErrCodeInvalidPoints)
	}
	return value, nil
}

// normalizeDependsOn trims, validates and dedupes ids, keeping first-seen order.
func normalizeDependsOn(ticketID string, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		id := strings.TrimSpace(value)
		if !validateTicketID(id) {
			return nil, badRequestCode(fmt.Errorf("invalid dependency id %q", value), ErrCodeInvalidDependency)
		}
		if id == ticketID {
			return nil, badRequestCode(fmt.Errorf("ticket cannot depend on itself"), ErrCodeInvalidDependency)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
