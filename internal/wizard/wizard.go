package wizard

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Form field names expected by the persistence backend.
const (
	FieldTeacher   = "professeur"
	FieldClass     = "classe"
	FieldModules   = "selected_modules"
	FieldCSRFToken = "csrfmiddlewaretoken"
)

// Config tunes pricing and display.
type Config struct {
	Rates    Rates
	Currency string
}

// Wizard holds the whole selection state of one pre-contract flow.
type Wizard struct {
	rates Rates
	money Money

	step    Step
	teacher *TeacherRef
	class   *ClassRef

	catalog      []Module
	catalogState CatalogState
	// generation is bumped by every load and every class change; a ticket
	// carrying an older generation is stale.
	generation uint64
	pending    *Ticket

	selected   []string
	submitting bool
	submitted  bool
	notices    []Notice
}

// New creates a wizard on the teacher step.
func New(cfg Config) *Wizard {
	if cfg.Rates == (Rates{}) {
		cfg.Rates = DefaultRates()
	}
	return &Wizard{
		rates:        cfg.Rates,
		money:        NewMoney(cfg.Currency),
		step:         StepTeacher,
		catalogState: CatalogEmpty,
	}
}

func (w *Wizard) Step() Step                 { return w.step }
func (w *Wizard) CatalogState() CatalogState { return w.catalogState }
func (w *Wizard) Rates() Rates               { return w.rates }
func (w *Wizard) Submitting() bool           { return w.submitting }

// Teacher returns a copy of the selected teacher, or nil.
func (w *Wizard) Teacher() *TeacherRef {
	if w.teacher == nil {
		return nil
	}
	t := *w.teacher
	return &t
}

// Class returns a copy of the selected class, or nil.
func (w *Wizard) Class() *ClassRef {
	if w.class == nil {
		return nil
	}
	c := *w.class
	return &c
}

// Catalog returns the most recently loaded modules in server order.
func (w *Wizard) Catalog() []Module {
	return append([]Module(nil), w.catalog...)
}

// ModuleIDs returns the selected module ids in selection order.
func (w *Wizard) ModuleIDs() []string {
	return append([]string(nil), w.selected...)
}

// SelectedModules resolves the selection against the catalog, in selection order.
func (w *Wizard) SelectedModules() []Module {
	out := make([]Module, 0, len(w.selected))
	for _, id := range w.selected {
		if m, ok := w.module(id); ok {
			out = append(out, m)
		}
	}
	return out
}

// Totals recomputes hours and cost over the selection.
func (w *Wizard) Totals() Totals {
	return w.rates.Sum(w.SelectedModules())
}

// SelectTeacher replaces the teacher selection; nil clears it.
func (w *Wizard) SelectTeacher(t *TeacherRef) error {
	if w.submitting {
		return ErrLocked
	}
	if t == nil {
		w.teacher = nil
		return nil
	}
	cp := *t
	w.teacher = &cp
	return nil
}

// SelectClass replaces the class selection; nil clears it. A different class
// discards the catalog and the module selection and invalidates any in-flight
// load.
func (w *Wizard) SelectClass(c *ClassRef) error {
	if w.submitting {
		return ErrLocked
	}
	changed := (w.class == nil) != (c == nil) || (c != nil && w.class.ID != c.ID)
	if c == nil {
		w.class = nil
	} else {
		cp := *c
		w.class = &cp
	}
	if !changed {
		return nil
	}

	w.generation++
	w.pending = nil
	w.catalog = nil
	w.selected = nil
	w.catalogState = CatalogEmpty

	if w.step == StepModules && w.class != nil {
		w.startLoad()
	}
	return nil
}

// Advance moves to the next step when the current step validates. A failed
// validation leaves the step unchanged and queues a warning notice.
func (w *Wizard) Advance() error {
	if w.step >= StepReview {
		return ErrLastStep
	}
	if w.submitting {
		return ErrLocked
	}
	if err := w.validate(w.step); err != nil {
		w.notify(NoticeWarning, err.Error())
		return err
	}
	w.enter(w.step + 1)
	return nil
}

// Retreat moves back one step without validation.
func (w *Wizard) Retreat() error {
	if w.step <= StepTeacher {
		return ErrFirstStep
	}
	if w.submitting {
		return ErrLocked
	}
	w.enter(w.step - 1)
	return nil
}

// CanAdvance reports whether the current step's predicate holds.
func (w *Wizard) CanAdvance() bool {
	return w.step < StepReview && w.validate(w.step) == nil
}

func (w *Wizard) validate(step Step) error {
	switch step {
	case StepTeacher:
		if w.teacher == nil {
			return ErrTeacherRequired
		}
	case StepClass:
		if w.class == nil {
			return ErrClassRequired
		}
	case StepModules:
		if len(w.selected) == 0 {
			return ErrModulesRequired
		}
	}
	return nil
}

func (w *Wizard) enter(step Step) {
	w.step = step
	if step == StepModules && w.class != nil {
		w.startLoad()
	}
}

// LoadModules starts a catalog load for classID and returns the ticket the
// result must be completed with. Any earlier ticket becomes stale.
func (w *Wizard) LoadModules(classID string) (*Ticket, error) {
	if classID == "" {
		return nil, ErrEmptyClassID
	}
	w.generation++
	w.catalogState = CatalogLoading
	return &Ticket{Generation: w.generation, ClassID: classID}, nil
}

// ReloadModules re-triggers the load for the selected class, the manual retry
// path after a failure.
func (w *Wizard) ReloadModules() error {
	if w.submitting {
		return ErrLocked
	}
	if w.class == nil {
		return ErrClassRequired
	}
	w.startLoad()
	return nil
}

func (w *Wizard) startLoad() {
	t, err := w.LoadModules(w.class.ID)
	if err != nil {
		w.notify(NoticeDanger, err.Error())
		return
	}
	w.pending = t
}

// TakeLoad returns the load the last operation started, if any, and clears it.
// Hosts call it after every mutation and run the fetch asynchronously.
func (w *Wizard) TakeLoad() *Ticket {
	t := w.pending
	w.pending = nil
	return t
}

// IsCurrent reports whether a result for t may still be applied.
func (w *Wizard) IsCurrent(t *Ticket) bool {
	return t != nil &&
		w.catalogState == CatalogLoading &&
		t.Generation == w.generation &&
		w.class != nil && w.class.ID == t.ClassID
}

// CompleteLoad applies a catalog result. It returns false and changes nothing
// when the ticket is stale.
func (w *Wizard) CompleteLoad(t *Ticket, modules []Module, err error) bool {
	if !w.IsCurrent(t) {
		return false
	}

	if err != nil {
		w.catalog = nil
		w.selected = nil
		w.catalogState = CatalogEmpty
		w.notify(NoticeDanger, fmt.Sprintf("failed to load modules: %v", err))
		return true
	}

	w.catalog = append([]Module(nil), modules...)
	w.retainSelection()
	if len(w.catalog) == 0 {
		w.catalogState = CatalogEmpty
		w.notify(NoticeWarning, "no modules found for this class")
		return true
	}
	w.catalogState = CatalogReady
	w.notify(NoticeSuccess, fmt.Sprintf("%d module(s) loaded", len(w.catalog)))
	return true
}

func (w *Wizard) retainSelection() {
	kept := w.selected[:0]
	for _, id := range w.selected {
		if _, ok := w.module(id); ok {
			kept = append(kept, id)
		}
	}
	w.selected = kept
}

// ToggleModule adds or removes a catalog module from the selection. Adding a
// present id or removing an absent one is a no-op.
func (w *Wizard) ToggleModule(id string, selected bool) error {
	if w.submitting {
		return ErrLocked
	}
	if _, ok := w.module(id); !ok {
		return ErrUnknownModule
	}
	idx := w.indexOf(id)
	switch {
	case selected && idx < 0:
		w.selected = append(w.selected, id)
	case !selected && idx >= 0:
		w.selected = append(w.selected[:idx], w.selected[idx+1:]...)
	}
	return nil
}

func (w *Wizard) module(id string) (Module, bool) {
	for _, m := range w.catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

func (w *Wizard) indexOf(id string) int {
	for i, s := range w.selected {
		if s == id {
			return i
		}
	}
	return -1
}

// Submission is the outgoing form payload.
type Submission struct {
	TeacherID string   `json:"teacherId"`
	ClassID   string   `json:"classId"`
	ModuleIDs []string `json:"moduleIds"`
	CSRFToken string   `json:"-"`
}

// Form encodes the submission as the backend's form fields.
func (s Submission) Form() (url.Values, error) {
	ids := s.ModuleIDs
	if ids == nil {
		ids = []string{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode module ids: %w", err)
	}
	form := url.Values{}
	form.Set(FieldTeacher, s.TeacherID)
	form.Set(FieldClass, s.ClassID)
	form.Set(FieldModules, string(encoded))
	form.Set(FieldCSRFToken, s.CSRFToken)
	return form, nil
}

// Submit is the exit action of the review step. It re-checks every guard and,
// when they hold, locks the selection and returns the payload. On a failed
// guard the user is sent back to the first incomplete step.
func (w *Wizard) Submit(csrfToken string) (*Submission, error) {
	if w.submitting {
		return nil, ErrSubmitInProgress
	}
	if w.step != StepReview {
		return nil, ErrNotOnReview
	}
	if w.catalogState == CatalogLoading {
		return nil, ErrCatalogLoading
	}
	for _, step := range []Step{StepTeacher, StepClass, StepModules} {
		if err := w.validate(step); err != nil {
			w.notify(NoticeDanger, err.Error())
			w.enter(step)
			return nil, err
		}
	}

	w.submitting = true
	w.notify(NoticeInfo, "submitting pre-contract")
	return &Submission{
		TeacherID: w.teacher.ID,
		ClassID:   w.class.ID,
		ModuleIDs: w.ModuleIDs(),
		CSRFToken: csrfToken,
	}, nil
}

// AbortSubmit re-enables submission after the backend rejected or never
// received the payload.
func (w *Wizard) AbortSubmit(err error) {
	if !w.submitting {
		return
	}
	w.submitting = false
	if err != nil {
		w.notify(NoticeDanger, fmt.Sprintf("submission failed: %v", err))
	}
}

// ConfirmSubmit records that the backend accepted the submission. The
// selection and the submit control stay locked.
func (w *Wizard) ConfirmSubmit() {
	if !w.submitting {
		return
	}
	w.submitted = true
	w.notify(NoticeSuccess, "pre-contract submitted")
}

// Submitted reports whether a submission was accepted.
func (w *Wizard) Submitted() bool { return w.submitted }

func (w *Wizard) notify(level NoticeLevel, msg string) {
	w.notices = append(w.notices, Notice{Level: level, Message: msg})
}

// DrainNotices returns and clears pending notices.
func (w *Wizard) DrainNotices() []Notice {
	out := w.notices
	w.notices = nil
	return out
}
