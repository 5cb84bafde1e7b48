package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/pedago-admin/internal/preference"
	"github.com/noah-isme/pedago-admin/internal/wizard"
)

type palette struct {
	Text      string
	Accent    string
	Highlight string
	Muted     string
	Success   string
	Warning   string
	Danger    string
}

var (
	darkPalette = palette{
		Text:      "252",
		Accent:    "86",
		Highlight: "205",
		Muted:     "241",
		Success:   "42",
		Warning:   "208",
		Danger:    "196",
	}
	lightPalette = palette{
		Text:      "235",
		Accent:    "25",
		Highlight: "125",
		Muted:     "245",
		Success:   "28",
		Warning:   "130",
		Danger:    "160",
	}
)

type styles struct {
	Title     lipgloss.Style
	Active    lipgloss.Style
	Completed lipgloss.Style
	Pending   lipgloss.Style
	Cursor    lipgloss.Style
	Selected  lipgloss.Style
	Normal    lipgloss.Style
	Muted     lipgloss.Style
	Unit      lipgloss.Style
	Box       lipgloss.Style
	Empty     lipgloss.Style
	notice    map[wizard.NoticeLevel]lipgloss.Style
}

func newStyles(t preference.Theme) styles {
	p := lightPalette
	if t == preference.ThemeDark {
		p = darkPalette
	}
	color := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return styles{
		Title:     color(p.Accent).Bold(true),
		Active:    color(p.Highlight).Bold(true),
		Completed: color(p.Success),
		Pending:   color(p.Muted),
		Cursor:    color(p.Highlight).Bold(true),
		Selected:  color(p.Accent),
		Normal:    color(p.Text),
		Muted:     color(p.Muted),
		Unit:      color(p.Highlight).Underline(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Accent)).
			Padding(0, 1),
		Empty: color(p.Muted).Italic(true),
		notice: map[wizard.NoticeLevel]lipgloss.Style{
			wizard.NoticeSuccess: color(p.Success),
			wizard.NoticeInfo:    color(p.Accent),
			wizard.NoticeWarning: color(p.Warning),
			wizard.NoticeDanger:  color(p.Danger).Bold(true),
		},
	}
}

func (s styles) Notice(level wizard.NoticeLevel) lipgloss.Style {
	if st, ok := s.notice[level]; ok {
		return st
	}
	return s.Normal
}
