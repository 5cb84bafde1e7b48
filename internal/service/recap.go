package service

import (
	"fmt"

	"github.com/noah-isme/pedago-admin/internal/wizard"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
	"github.com/noah-isme/pedago-admin/pkg/export"
)

// Recap column headers.
const (
	recapCode     = "Code"
	recapModule   = "Module"
	recapUnit     = "Unit"
	recapLecture  = "Lecture hours"
	recapTutorial = "Tutorial hours"
	recapCost     = "Cost"
)

// recapDataset tabulates the selected modules with their costs. It needs a
// teacher, a class and at least one module.
func recapDataset(w *wizard.Wizard, currency string) (export.Dataset, string, error) {
	teacher, class := w.Teacher(), w.Class()
	modules := w.SelectedModules()
	switch {
	case teacher == nil:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrWizardStep, wizard.ErrTeacherRequired.Error())
	case class == nil:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrWizardStep, wizard.ErrClassRequired.Error())
	case len(modules) == 0:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrWizardStep, wizard.ErrModulesRequired.Error())
	}

	rates := w.Rates()
	money := wizard.NewMoney(currency)
	rows := make([]map[string]string, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, map[string]string{
			recapCode:     m.Code,
			recapModule:   m.Name,
			recapUnit:     m.UnitName,
			recapLecture:  wizard.FormatHours(m.LectureHours),
			recapTutorial: wizard.FormatHours(m.TutorialHours),
			recapCost:     money.Format(rates.Cost(m)),
		})
	}
	totals := rates.Sum(modules)

	return export.Dataset{
		Title:   fmt.Sprintf("Pre-contract recap: %s, %s", teacher.DisplayName, class.DisplayName),
		Headers: []string{recapCode, recapModule, recapUnit, recapLecture, recapTutorial, recapCost},
		Rows:    rows,
		Totals: map[string]string{
			recapCode:     "Total",
			recapModule:   fmt.Sprintf("%d module(s)", totals.Count),
			recapLecture:  wizard.FormatHours(totals.LectureHours),
			recapTutorial: wizard.FormatHours(totals.TutorialHours),
			recapCost:     money.Format(totals.Cost),
		},
	}, class.ID, nil
}
