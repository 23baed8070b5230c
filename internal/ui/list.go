package ui

import (
	"fmt"

	"github.com/Makepad-fr/tada/internal/model"
)

const dateLayout = "2006-01-02"

// Header renders the title line with live counts.
func (p *Printer) Header(c model.Counts) string {
	t := p.Theme
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		p.C(t.Title, "Todos"),
		p.C(t.Success, t.SymDone), c.Completed,
		p.C(t.Pending, t.SymPending), c.Pending,
		p.C(t.Accent, "Total"), c.Total,
	)
}

// TodoLines renders one todo: the checkbox line, then the optional
// description and the dates, indented under it. index is 1-based.
func (p *Printer) TodoLines(index int, td model.Todo) []string {
	t := p.Theme
	box, title := p.C(t.Muted, t.BoxUnchecked), td.Title
	if td.Completed {
		box = p.C(t.Success, t.BoxChecked)
		title = p.C(t.Muted, title)
	}
	lines := []string{fmt.Sprintf("%2d. %s %s", index, box, title)}
	if td.Description != "" {
		lines = append(lines, "       "+p.C(t.Muted, td.Description))
	}
	dates := "Created: " + td.CreatedAt.Local().Format(dateLayout)
	if td.Edited() {
		dates += "  Updated: " + td.UpdatedAt.Local().Format(dateLayout)
	}
	return append(lines, "       "+p.C(t.Muted, dates))
}

// ListLines renders a whole collection for a Panel. With group set, pending
// items are listed before completed ones; indexes always follow todos.
func (p *Printer) ListLines(todos []model.Todo, group bool) []string {
	c := model.Tally(todos)
	lines := []string{p.Header(c), ProgressBar(c.Completed, c.Total, 28)}
	if len(todos) == 0 {
		return append(lines, "", p.C(p.Theme.Muted, "No todos yet. Add one with `tada add <title>`."))
	}
	if !group {
		lines = append(lines, "")
		for i, td := range todos {
			lines = append(lines, p.TodoLines(i+1, td)...)
		}
		return lines
	}
	for _, section := range []struct {
		name string
		done bool
	}{{"Pending", false}, {"Done", true}} {
		lines = append(lines, "", p.C(p.Theme.Accent, section.name))
		for i, td := range todos {
			if td.Completed == section.done {
				lines = append(lines, p.TodoLines(i+1, td)...)
			}
		}
	}
	return lines
}
