package wizard

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnassignedUnit labels modules that arrive without a teaching unit.
const UnassignedUnit = "Unassigned"

// IndicatorState marks a step in the progress bar.
type IndicatorState string

const (
	IndicatorCompleted IndicatorState = "completed"
	IndicatorActive    IndicatorState = "active"
	IndicatorPending   IndicatorState = "pending"
)

// View is everything a host needs to draw the wizard.
type View struct {
	Step      Step             `json:"step"`
	Steps     []StepIndicator  `json:"steps"`
	Teacher   *TeacherPanel    `json:"teacher,omitempty"`
	Class     *ClassPanel      `json:"class,omitempty"`
	Catalog   CatalogPanel     `json:"catalog"`
	Selection SelectionSummary `json:"selection"`
	Controls  Controls         `json:"controls"`
	Review    *Review          `json:"review,omitempty"`
}

type StepIndicator struct {
	Number Step           `json:"number"`
	Title  string         `json:"title"`
	State  IndicatorState `json:"state"`
}

type TeacherPanel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Initials string `json:"initials"`
}

type ClassPanel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Level   string `json:"level"`
	Track   string `json:"track"`
	Details string `json:"details"`
}

type CatalogPanel struct {
	State   CatalogState  `json:"state"`
	ClassID string        `json:"classId,omitempty"`
	Groups  []ModuleGroup `json:"groups"`
}

type ModuleGroup struct {
	Unit    string       `json:"unit"`
	Modules []ModuleCard `json:"modules"`
}

type ModuleCard struct {
	Module
	Hours    float64 `json:"hours"`
	Selected bool    `json:"selected"`
}

type SelectionSummary struct {
	Count      int      `json:"count"`
	Modules    []Module `json:"modules"`
	TotalHours string   `json:"totalHours"`
	TotalCost  string   `json:"totalCost"`
	Totals     Totals   `json:"totals"`
}

// Controls mirrors the enablement of the navigation buttons.
type Controls struct {
	CanRetreat bool `json:"canRetreat"`
	CanAdvance bool `json:"canAdvance"`
	CanSubmit  bool `json:"canSubmit"`
}

type Review struct {
	Teacher       TeacherPanel `json:"teacher"`
	Class         ClassPanel   `json:"class"`
	Rows          []ReviewRow  `json:"rows"`
	LectureHours  string       `json:"lectureHours"`
	TutorialHours string       `json:"tutorialHours"`
	TotalCost     string       `json:"totalCost"`
	Totals        Totals       `json:"totals"`
}

type ReviewRow struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	LectureHours  float64 `json:"lectureHours"`
	TutorialHours float64 `json:"tutorialHours"`
	Cost          float64 `json:"cost"`
	CostText      string  `json:"costText"`
}

// Render derives the view from the wizard state without mutating it.
func Render(w *Wizard) View {
	selected := w.SelectedModules()
	totals := w.rates.Sum(selected)

	v := View{
		Step:  w.step,
		Steps: indicators(w.step),
		Catalog: CatalogPanel{
			State:  w.catalogState,
			Groups: []ModuleGroup{},
		},
		Selection: SelectionSummary{
			Count:      len(selected),
			Modules:    selected,
			TotalHours: FormatHours(totals.Hours),
			TotalCost:  w.money.Amount(totals.Cost),
			Totals:     totals,
		},
		Controls: Controls{
			CanRetreat: w.step > StepTeacher && !w.submitting,
			CanAdvance: w.CanAdvance(),
			CanSubmit:  w.step == StepReview && !w.submitting && w.catalogState != CatalogLoading,
		},
	}

	if w.teacher != nil {
		p := teacherPanel(*w.teacher)
		v.Teacher = &p
	}
	if w.class != nil {
		p := classPanel(*w.class)
		v.Class = &p
		v.Catalog.ClassID = w.class.ID
	}
	if w.catalogState == CatalogReady {
		v.Catalog.Groups = groupModules(w.catalog, w.selected)
	}
	if w.step == StepReview {
		v.Review = w.review(selected, totals)
	}
	return v
}

func indicators(current Step) []StepIndicator {
	out := make([]StepIndicator, 0, StepReview)
	for s := StepTeacher; s <= StepReview; s++ {
		state := IndicatorPending
		switch {
		case s < current:
			state = IndicatorCompleted
		case s == current:
			state = IndicatorActive
		}
		out = append(out, StepIndicator{Number: s, Title: s.Title(), State: state})
	}
	return out
}

func teacherPanel(t TeacherRef) TeacherPanel {
	return TeacherPanel{ID: t.ID, Name: t.DisplayName, Email: t.Email, Initials: Initials(t.DisplayName)}
}

func classPanel(c ClassRef) ClassPanel {
	details := c.Level
	if c.Track != "" {
		if details != "" {
			details += " - "
		}
		details += c.Track
	}
	return ClassPanel{ID: c.ID, Name: c.DisplayName, Level: c.Level, Track: c.Track, Details: details}
}

// Initials takes the first letter of up to the first two words, upper-cased.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		if utf8.RuneCountInString(b.String()) == 2 {
			break
		}
	}
	return b.String()
}

// groupModules buckets modules by unit, keeping the order in which units
// first appear and the catalog order inside each unit.
func groupModules(catalog []Module, selected []string) []ModuleGroup {
	isSelected := make(map[string]bool, len(selected))
	for _, id := range selected {
		isSelected[id] = true
	}

	index := make(map[string]int)
	var groups []ModuleGroup
	for _, m := range catalog {
		unit := strings.TrimSpace(m.UnitName)
		if unit == "" {
			unit = UnassignedUnit
		}
		i, ok := index[unit]
		if !ok {
			i = len(groups)
			index[unit] = i
			groups = append(groups, ModuleGroup{Unit: unit})
		}
		groups[i].Modules = append(groups[i].Modules, ModuleCard{
			Module:   m,
			Hours:    m.Hours(),
			Selected: isSelected[m.ID],
		})
	}
	return groups
}

func (w *Wizard) review(selected []Module, totals Totals) *Review {
	r := &Review{
		Rows:          make([]ReviewRow, 0, len(selected)),
		LectureHours:  FormatHours(totals.LectureHours),
		TutorialHours: FormatHours(totals.TutorialHours),
		TotalCost:     w.money.Format(totals.Cost),
		Totals:        totals,
	}
	if w.teacher != nil {
		r.Teacher = teacherPanel(*w.teacher)
	}
	if w.class != nil {
		r.Class = classPanel(*w.class)
	}
	for _, m := range selected {
		cost := w.rates.Cost(m)
		r.Rows = append(r.Rows, ReviewRow{
			Code:          m.Code,
			Name:          m.Name,
			LectureHours:  m.LectureHours,
			TutorialHours: m.TutorialHours,
			Cost:          cost,
			CostText:      w.money.Format(cost),
		})
	}
	return r
}
