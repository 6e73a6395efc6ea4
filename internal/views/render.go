// Package views renders a dashboard snapshot for the terminal.
package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/rpgify/internal/progression"
)

const panelWidth = 58

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// RenderDashboard lays out quests on the left and class levels on the right.
func RenderDashboard(d *progression.Dashboard) string {
	if d == nil {
		return dimStyle.Render("no dashboard rendered yet")
	}

	header := d.Name + "'s Character Sheet"
	if d.Age != nil {
		header += " (age " + strconv.Itoa(*d.Age) + ")"
	}

	left := panelStyle.Width(panelWidth).Render(renderTypes(d.Types))
	right := panelStyle.Width(panelWidth).Render(renderClasses(d.Classes))
	lines := []string{
		headerStyle.Render(header),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
	}
	if len(d.Problems) > 0 {
		var b strings.Builder
		for i, p := range d.Problems {
			if i > 0 {
				b.WriteByte('\n')
			}
			if p.Path == "" {
				b.WriteString(p.Error)
				continue
			}
			fmt.Fprintf(&b, "%s: %s", p.Path, p.Error)
		}
		lines = append(lines, errorStyle.Render(b.String()))
	}
	lines = append(lines, dimStyle.Render("rendered "+d.RenderedAt.Format("2006-01-02 15:04:05")))
	return strings.Join(lines, "\n")
}

func renderTypes(types []progression.TypeSection) string {
	if len(types) == 0 {
		return dimStyle.Render("no types configured")
	}
	var blocks []string
	for _, t := range types {
		var b strings.Builder
		b.WriteString(sectionStyle.Render("Uncompleted " + t.Type + "s"))
		if len(t.Uncompleted) == 0 {
			b.WriteString("\n" + dimStyle.Render("  none"))
		}
		for _, e := range t.Uncompleted {
			b.WriteString("\n" + entryLine(e))
			for _, task := range e.Tasks {
				b.WriteString("\n    " + taskLine(task))
			}
		}
		b.WriteString("\n" + sectionStyle.Render("Completed "+t.Type+"s"))
		if len(t.Completed) == 0 {
			b.WriteString("\n" + dimStyle.Render("  none"))
		}
		for _, e := range t.Completed {
			b.WriteString("\n" + doneStyle.Render(entryLine(e)))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func entryLine(e progression.Entry) string {
	line := "  " + e.Title
	var meta []string
	if e.Class != "" {
		meta = append(meta, e.Class)
	}
	if e.Exp != nil {
		meta = append(meta, formatExp(*e.Exp)+" exp")
	}
	if e.CompleteBy != "" {
		meta = append(meta, "by "+e.CompleteBy)
	}
	if len(meta) > 0 {
		line += dimStyle.Render(" [" + strings.Join(meta, ", ") + "]")
	}
	return line
}

func taskLine(t progression.TaskItem) string {
	if t.Checked {
		return doneStyle.Render("[x] " + t.Text)
	}
	return "[ ] " + t.Text
}

func renderClasses(classes []progression.ClassProgress) string {
	if len(classes) == 0 {
		return dimStyle.Render("no classes configured")
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(panelWidth-4))
	var blocks []string
	for _, c := range classes {
		blocks = append(blocks, fmt.Sprintf("%s\nLevel %d: %s/%s exp (total %s)\n%s",
			sectionStyle.Render(c.Class),
			c.Level, formatExp(c.Progress), formatExp(c.NextThreshold), formatExp(c.TotalExp),
			bar.ViewAs(c.Percent())))
	}
	return strings.Join(blocks, "\n\n")
}

func formatExp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
