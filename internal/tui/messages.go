package tui

import (
	"github.com/noah-isme/pedago-admin/internal/client"
	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/wizard"
)

// optionsLoadedMsg carries the teacher and class option lists.
type optionsLoadedMsg struct {
	teachers []models.OptionItem
	classes  []models.OptionItem
	err      error
}

// modulesLoadedMsg carries a catalog result with the ticket it was requested under.
type modulesLoadedMsg struct {
	ticket  wizard.Ticket
	modules []wizard.Module
	err     error
}

type submitDoneMsg struct {
	result *client.SubmitResult
	err    error
}

type themeSavedMsg struct {
	err error
}
