package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Width(14)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
)

// RenderIndexSummary formats res for a terminal.
func RenderIndexSummary(res IndexResult) string {
	rows := []string{titleStyle.Render("nscope index")}
	add := func(label, value string) {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
	}
	if res.RunID != "" {
		add("run", res.RunID)
	}
	add("files", fmt.Sprint(res.Files))
	add("contexts", fmt.Sprint(res.Contexts))
	add("declarations", fmt.Sprint(res.Declarations))
	add("duration", res.Duration.Round(time.Microsecond).String())

	if len(res.Failed) == 0 {
		add("status", successStyle.Render("ok"))
	} else {
		add("status", failureStyle.Render(fmt.Sprintf("%d failed", len(res.Failed))))
		paths := make([]string, 0, len(res.Failed))
		for path := range res.Failed {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			rows = append(rows, failureStyle.Render("  "+path)+": "+res.Failed[path].Error())
		}
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

// WriteIndexSummary writes the rendered summary followed by a newline.
func WriteIndexSummary(w io.Writer, res IndexResult) error {
	_, err := fmt.Fprintln(w, RenderIndexSummary(res))
	return err
}
