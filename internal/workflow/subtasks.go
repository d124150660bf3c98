package workflow

import "ticketd/internal/models"

// DeriveStatus aggregates subtask statuses into the parent status. The
// boolean is false for an empty list, in which case the parent keeps its
// own status. A subtask without a status counts as Backlog.
//
// Precedence, first match wins:
//
//	any Blocked                      -> Blocked
//	all Done                         -> QA
//	all Done or QA, at least one QA  -> QA
//	any Ongoing                      -> Ongoing
//	all Backlog                      -> Backlog
//	otherwise                        -> Ongoing
func DeriveStatus(subtasks []models.Subtask) (models.Status, bool) {
	if len(subtasks) == 0 {
		return "", false
	}

	var backlog, ongoing, blocked, qa, done int
	for _, st := range subtasks {
		status := st.Status.Canonical()
		if status == "" {
			status = models.StatusBacklog
		}
		switch status {
		case models.StatusBacklog:
			backlog++
		case models.StatusOngoing:
			ongoing++
		case models.StatusBlocked:
			blocked++
		case models.StatusQA:
			qa++
		case models.StatusDone:
			done++
		}
	}

	total := len(subtasks)
	switch {
	case blocked > 0:
		return models.StatusBlocked, true
	case done == total:
		return models.StatusQA, true
	case done+qa == total && qa > 0:
		return models.StatusQA, true
	case ongoing > 0:
		return models.StatusOngoing, true
	case backlog == total:
		return models.StatusBacklog, true
	default:
		return models.StatusOngoing, true
	}
}
