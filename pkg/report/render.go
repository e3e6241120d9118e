package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// Render draws a boxed summary of r for the terminal.
func Render(r *Run) string {
	s := r.Summary()

	rule := string(s.Rule)
	if s.Switched {
		rule += fmt.Sprintf(" (switched from %s)", r.Decision.Previous)
	}

	flagged := okStyle.Render("0")
	if s.OverThreshold > 0 {
		flagged = alertStyle.Render(fmt.Sprintf("%d", s.OverThreshold))
	}

	lines := []string{
		titleStyle.Render("RUN · " + s.ID),
		"",
		row("rule", rule),
		row("features", fmt.Sprintf("backlog %.2f  load %.2f  efficiency %.2f",
			r.Decision.Features.Backlog, r.Decision.Features.Load, r.Decision.Features.Efficiency)),
		row("orders", fmt.Sprintf("%d", s.Orders)),
		row("operations", fmt.Sprintf("%d", s.Operations)),
		row("commands", fmt.Sprintf("%d", s.Commands)),
		row("fallbacks", fmt.Sprintf("%d", s.Fallbacks)),
		lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("over threshold"), flagged),
		row("calibrated", fmt.Sprintf("%d", s.Calibrated)),
		row("duration", s.Duration.String()),
	}
	if len(r.Stages) > 0 {
		lines = append(lines, "", titleStyle.Render("STAGES"))
		for _, st := range r.Stages {
			lines = append(lines, row(st.Stage, st.Duration.String()))
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// RenderList draws one line per summary, newest first as given.
func RenderList(summaries []Summary) string {
	if len(summaries) == 0 {
		return valueStyle.Render("no runs recorded")
	}
	lines := make([]string, 0, len(summaries)+1)
	lines = append(lines, titleStyle.Render(fmt.Sprintf("%-36s  %-19s  %-18s  %6s  %6s", "RUN", "STARTED", "RULE", "CMDS", "FLAGS")))
	for _, s := range summaries {
		lines = append(lines, valueStyle.Render(fmt.Sprintf("%-36s  %-19s  %-18s  %6d  %6d",
			s.ID, s.StartedAt.Format(timeLayout), s.Rule, s.Commands, s.OverThreshold)))
	}
	return strings.Join(lines, "\n")
}
