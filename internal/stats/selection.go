package stats

import (
	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
)

// ResolveSelection fills the gaps of sel against the current project list.
// A project that no longer exists falls back to the first listed project,
// and with no projects at all the selection is empty. A zero date becomes
// today and a zero month becomes the month of the date.
func ResolveSelection(sel core.Selection, projects []core.Project, today calendar.Date) core.Selection {
	out := sel
	if !containsProject(projects, sel.ProjectID) {
		out.ProjectID = core.NoProject
		if len(projects) > 0 {
			out.ProjectID = projects[0].ID
		}
	}
	if out.Date.IsZero() {
		out.Date = today
	}
	if out.Month == (calendar.YearMonth{}) {
		out.Month = out.Date.YearMonth()
	}
	return out
}

// SelectDate moves the selection to d and to the month containing d.
func SelectDate(sel core.Selection, d calendar.Date) core.Selection {
	sel.Date = d
	sel.Month = d.YearMonth()
	return sel
}

func containsProject(projects []core.Project, id int64) bool {
	if id == core.NoProject {
		return false
	}
	for _, p := range projects {
		if p.ID == id {
			return true
		}
	}
	return false
}
