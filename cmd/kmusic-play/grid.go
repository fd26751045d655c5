package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kmusic/kmusic"
)

var (
	labelStyle   = lipgloss.NewStyle().Width(9).Bold(true)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	pageNumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).PaddingLeft(1)
)

// renderPage draws one page of a sequencer as a row of 16 cells. Cells
// where a note starts are filled, cells a note holds through are dashed and
// the playhead is shown reversed.
func renderPage(role kmusic.Role, page, pages int, notes []kmusic.Note, step int) string {
	start := (page - 1) * kmusic.StepsPerPage
	var cells [kmusic.StepsPerPage]string
	for i := range cells {
		cells[i] = emptyStyle.Render("·")
	}
	for _, n := range notes {
		for s := max(n.Start, start); s < min(n.End, start+kmusic.StepsPerPage); s++ {
			if s == n.Start {
				cells[s-start] = noteStyle.Render("■")
			} else if cells[s-start] == emptyStyle.Render("·") {
				cells[s-start] = noteStyle.Render("-")
			}
		}
	}
	if step >= start && step < start+kmusic.StepsPerPage {
		cells[step-start] = cursorStyle.Render(cells[step-start])
	}
	var b strings.Builder
	for i, c := range cells {
		if i > 0 && i%4 == 0 {
			b.WriteString(" ")
		}
		b.WriteString(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render(role.Title()),
		b.String(),
		pageNumStyle.Render(fmt.Sprintf("%d/%d", page, pages)),
	)
}
