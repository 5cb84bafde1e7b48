package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/noah-isme/pedago-admin/internal/preference"
	"github.com/noah-isme/pedago-admin/internal/wizard"
)

var errNoDirectory = errors.New("option directory is not configured")

func (m *Model) loadOptionsCmd() tea.Cmd {
	dir := m.deps.Directory
	timeout := m.opts.Timeout
	return func() tea.Msg {
		if dir == nil {
			return optionsLoadedMsg{err: errNoDirectory}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		teachers, err := dir.Teachers(ctx)
		if err != nil {
			return optionsLoadedMsg{err: fmt.Errorf("load teachers: %w", err)}
		}
		classes, err := dir.Classes(ctx)
		if err != nil {
			return optionsLoadedMsg{teachers: teachers, err: fmt.Errorf("load classes: %w", err)}
		}
		return optionsLoadedMsg{teachers: teachers, classes: classes}
	}
}

func (m *Model) fetchModulesCmd(ticket wizard.Ticket) tea.Cmd {
	catalog := m.deps.Catalog
	timeout := m.opts.Timeout
	return func() tea.Msg {
		if catalog == nil {
			return modulesLoadedMsg{ticket: ticket, err: errors.New("module catalog is not configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		modules, err := catalog.Modules(ctx, ticket.ClassID)
		return modulesLoadedMsg{ticket: ticket, modules: modules, err: err}
	}
}

func (m *Model) submitCmd(sub wizard.Submission) tea.Cmd {
	submitter := m.deps.Submitter
	timeout := m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := submitter.Post(ctx, sub)
		return submitDoneMsg{result: result, err: err}
	}
}

func (m *Model) saveThemeCmd(t preference.Theme) tea.Cmd {
	store := m.deps.Themes
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return themeSavedMsg{err: store.SaveTheme(t)}
	}
}
