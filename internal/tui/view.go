package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/wizard"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	v := wizard.Render(m.w)

	sections := []string{
		m.styles.Title.Render("Pre-contract"),
		m.renderSteps(v.Steps),
		"",
		m.renderBody(v),
	}
	if v.Step >= wizard.StepModules && v.Step < wizard.StepReview {
		sections = append(sections, "", m.renderSelection(v.Selection))
	}
	if len(m.notices) > 0 {
		sections = append(sections, "", m.renderNotices())
	}
	sections = append(sections, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderSteps(steps []wizard.StepIndicator) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		label := fmt.Sprintf("%d %s", s.Number, s.Title)
		switch s.State {
		case wizard.IndicatorCompleted:
			parts = append(parts, m.styles.Completed.Render("✓ "+label))
		case wizard.IndicatorActive:
			parts = append(parts, m.styles.Active.Render("● "+label))
		default:
			parts = append(parts, m.styles.Pending.Render("○ "+label))
		}
	}
	return strings.Join(parts, m.styles.Muted.Render(" ─ "))
}

func (m *Model) renderBody(v wizard.View) string {
	switch v.Step {
	case wizard.StepTeacher:
		selected := ""
		if v.Teacher != nil {
			selected = v.Teacher.ID
		}
		body := m.renderOptions("teachers", m.teachers, selected, func(o models.OptionItem) string {
			if o.Email == "" {
				return o.Label
			}
			return o.Label + m.styles.Muted.Render("  "+o.Email)
		})
		if v.Teacher != nil {
			body += "\n\n" + m.styles.Box.Render(fmt.Sprintf("[%s] %s\n%s", v.Teacher.Initials, v.Teacher.Name, v.Teacher.Email))
		}
		return body

	case wizard.StepClass:
		selected := ""
		if v.Class != nil {
			selected = v.Class.ID
		}
		body := m.renderOptions("classes", m.classes, selected, func(o models.OptionItem) string {
			details := strings.Trim(o.Level+" - "+o.Track, " -")
			if details == "" {
				return o.Label
			}
			return o.Label + m.styles.Muted.Render("  "+details)
		})
		if v.Class != nil {
			body += "\n\n" + m.styles.Box.Render(v.Class.Name+"\n"+v.Class.Details)
		}
		return body

	case wizard.StepModules:
		return m.renderCatalog(v)

	case wizard.StepReview:
		return m.renderReview(v)
	}
	return ""
}

func (m *Model) renderOptions(what string, items []models.OptionItem, selectedID string, label func(models.OptionItem) string) string {
	switch {
	case m.optionsLoading:
		return m.spinner.View() + " loading " + what + "…"
	case len(items) == 0:
		return m.styles.Empty.Render("no " + what + " available")
	}
	var b strings.Builder
	for i, it := range items {
		b.WriteString(m.cursorMark(i))
		if it.ID == selectedID {
			b.WriteString(m.styles.Selected.Render("● " + label(it)))
		} else {
			b.WriteString(m.styles.Normal.Render("  " + label(it)))
		}
		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m *Model) renderCatalog(v wizard.View) string {
	className := v.Catalog.ClassID
	if v.Class != nil {
		className = v.Class.Name
	}
	switch v.Catalog.State {
	case wizard.CatalogLoading:
		return m.spinner.View() + " loading modules of " + className + "…"
	case wizard.CatalogEmpty:
		return m.styles.Empty.Render("no modules to show, press r to reload")
	}

	var b strings.Builder
	i := 0
	for gi, g := range v.Catalog.Groups {
		if gi > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.styles.Unit.Render(g.Unit))
		for _, card := range g.Modules {
			box := "[ ]"
			style := m.styles.Normal
			if card.Selected {
				box = "[x]"
				style = m.styles.Selected
			}
			line := fmt.Sprintf("%s %s %s", box, card.Code, card.Name)
			hours := fmt.Sprintf("  %sh CM / %sh TD", wizard.FormatHours(card.LectureHours), wizard.FormatHours(card.TutorialHours))
			b.WriteString("\n" + m.cursorMark(i) + style.Render(line) + m.styles.Muted.Render(hours))
			i++
		}
	}
	return b.String()
}

func (m *Model) renderSelection(sel wizard.SelectionSummary) string {
	return m.styles.Muted.Render(fmt.Sprintf("%d module(s) selected · %s h · %s", sel.Count, sel.TotalHours, sel.TotalCost))
}

func (m *Model) renderReview(v wizard.View) string {
	r := v.Review
	if r == nil {
		return ""
	}
	header := fmt.Sprintf("Teacher  %s (%s)\nClass    %s  %s", r.Teacher.Name, r.Teacher.Email, r.Class.Name, r.Class.Details)

	rows := []string{m.styles.Muted.Render(fmt.Sprintf("%-10s %-32s %8s %8s %16s", "Code", "Module", "CM", "TD", "Cost"))}
	for _, row := range r.Rows {
		rows = append(rows, fmt.Sprintf("%-10s %-32s %8s %8s %16s",
			row.Code, truncate(row.Name, 32), wizard.FormatHours(row.LectureHours), wizard.FormatHours(row.TutorialHours), row.CostText))
	}
	rows = append(rows, m.styles.Title.Render(fmt.Sprintf("%-10s %-32s %8s %8s %16s", "Total", "", r.LectureHours, r.TutorialHours, r.TotalCost)))

	body := header + "\n\n" + strings.Join(rows, "\n")
	switch {
	case v.Controls.CanSubmit:
		body += "\n\n" + m.styles.Muted.Render("press s to submit")
	case m.w.Submitted():
		done := "pre-contract submitted"
		if m.result != nil && m.result.Location != "" {
			done += " → " + m.result.Location
		}
		body += "\n\n" + m.styles.Completed.Render(done)
	default:
		body += "\n\n" + m.spinner.View() + " submitting…"
	}
	return m.styles.Box.Render(body)
}

func (m *Model) renderNotices() string {
	lines := make([]string, 0, len(m.notices))
	for _, n := range m.notices {
		lines = append(lines, m.styles.Notice(n.Level).Render(n.Message))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) cursorMark(i int) string {
	if i == m.cursor {
		return m.styles.Cursor.Render("> ")
	}
	return "  "
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
