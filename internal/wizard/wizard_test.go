package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teacherT1 = &TeacherRef{ID: "T1", DisplayName: "Awa Ndiaye", Email: "awa@example.org"}
	classC1   = &ClassRef{ID: "C1", DisplayName: "L1 Info", Level: "L1", Track: "Informatique"}
	classC2   = &ClassRef{ID: "C2", DisplayName: "L2 Info", Level: "L2", Track: "Informatique"}

	moduleM1 = Module{ID: "M1", Code: "ALG1", Name: "Algo I", UnitName: "UE1", LectureHours: 20, TutorialHours: 10}
	moduleM2 = Module{ID: "M2", Code: "PRG1", Name: "Programmation", UnitName: "UE1", LectureHours: 15, TutorialHours: 15}
	moduleM3 = Module{ID: "M3", Code: "MTH1", Name: "Analyse", UnitName: "UE2", LectureHours: 12.5, TutorialHours: 0}
)

// onModules drives a fresh wizard to the modules step and returns the load
// ticket it queued.
func onModules(t *testing.T, class *ClassRef) (*Wizard, *Ticket) {
	t.Helper()
	w := New(Config{Currency: DefaultCurrency})
	w.SelectTeacher(teacherT1)
	require.NoError(t, w.Advance())
	w.SelectClass(class)
	require.NoError(t, w.Advance())
	require.Equal(t, StepModules, w.Step())
	ticket := w.TakeLoad()
	require.NotNil(t, ticket)
	assert.Equal(t, class.ID, ticket.ClassID)
	assert.Equal(t, CatalogLoading, w.CatalogState())
	w.DrainNotices()
	return w, ticket
}

func loaded(t *testing.T, modules ...Module) *Wizard {
	t.Helper()
	w, ticket := onModules(t, classC1)
	require.True(t, w.CompleteLoad(ticket, modules, nil))
	w.DrainNotices()
	return w
}

func TestNewStartsOnTeacherStep(t *testing.T) {
	w := New(Config{})
	assert.Equal(t, StepTeacher, w.Step())
	assert.Equal(t, CatalogEmpty, w.CatalogState())
	assert.Equal(t, DefaultRates(), w.Rates())
	assert.Nil(t, w.TakeLoad())
	assert.Empty(t, w.ModuleIDs())
}

func TestAdvanceBlockedWithoutSelection(t *testing.T) {
	w := New(Config{})

	for i := 0; i < 3; i++ {
		err := w.Advance()
		require.ErrorIs(t, err, ErrTeacherRequired)
		assert.True(t, IsValidation(err))
		assert.Equal(t, StepTeacher, w.Step())
	}
	notices := w.DrainNotices()
	require.Len(t, notices, 3)
	assert.Equal(t, NoticeWarning, notices[0].Level)
	assert.Equal(t, "select a teacher", notices[0].Message)

	w.SelectTeacher(teacherT1)
	require.NoError(t, w.Advance())
	require.ErrorIs(t, w.Advance(), ErrClassRequired)
	assert.Equal(t, StepClass, w.Step())
}

func TestAdvanceNeverSkipsSteps(t *testing.T) {
	w := New(Config{})
	w.SelectTeacher(teacherT1)
	w.SelectClass(classC1)

	require.NoError(t, w.Advance())
	assert.Equal(t, StepClass, w.Step())
	require.NoError(t, w.Advance())
	assert.Equal(t, StepModules, w.Step())

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, w.Advance(), ErrModulesRequired)
		assert.Equal(t, StepModules, w.Step())
	}
}

func TestStepStaysInRange(t *testing.T) {
	w := loaded(t, moduleM1)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())
	assert.Equal(t, StepReview, w.Step())
	assert.ErrorIs(t, w.Advance(), ErrLastStep)
	assert.Equal(t, StepReview, w.Step())
	assert.False(t, w.CanAdvance())

	for s := StepReview; s > StepTeacher; s-- {
		require.NoError(t, w.Retreat())
		assert.Equal(t, s-1, w.Step())
	}
	assert.ErrorIs(t, w.Retreat(), ErrFirstStep)
	assert.Equal(t, StepTeacher, w.Step())
}

func TestEnteringModulesStepQueuesLoad(t *testing.T) {
	w, ticket := onModules(t, classC1)
	assert.Nil(t, w.TakeLoad(), "ticket is handed out once")
	assert.True(t, w.IsCurrent(ticket))

	require.NoError(t, w.Retreat())
	require.NoError(t, w.Advance())
	again := w.TakeLoad()
	require.NotNil(t, again)
	assert.Greater(t, again.Generation, ticket.Generation)
	assert.False(t, w.IsCurrent(ticket))
}

func TestLoadModulesRejectsEmptyClass(t *testing.T) {
	w := New(Config{})
	_, err := w.LoadModules("")
	assert.ErrorIs(t, err, ErrEmptyClassID)
	assert.Equal(t, CatalogEmpty, w.CatalogState())
}

func TestReloadRequiresClass(t *testing.T) {
	w := New(Config{})
	assert.ErrorIs(t, w.ReloadModules(), ErrClassRequired)

	w.SelectClass(classC1)
	require.NoError(t, w.ReloadModules())
	ticket := w.TakeLoad()
	require.NotNil(t, ticket)
	assert.Equal(t, "C1", ticket.ClassID)
}

func TestToggleIdempotentAndOrderIndependent(t *testing.T) {
	a := loaded(t, moduleM1, moduleM2, moduleM3)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.ToggleModule("M1", true))
	}
	require.NoError(t, a.ToggleModule("M2", true))
	require.NoError(t, a.ToggleModule("M3", false))
	require.NoError(t, a.ToggleModule("M3", false))

	b := loaded(t, moduleM1, moduleM2, moduleM3)
	require.NoError(t, b.ToggleModule("M3", false))
	require.NoError(t, b.ToggleModule("M2", true))
	require.NoError(t, b.ToggleModule("M1", true))
	require.NoError(t, b.ToggleModule("M2", true))

	assert.ElementsMatch(t, a.ModuleIDs(), b.ModuleIDs())
	assert.Len(t, a.ModuleIDs(), 2)
	assert.Equal(t, a.Totals(), b.Totals())
}

func TestToggleUnknownModule(t *testing.T) {
	w := loaded(t, moduleM1)
	assert.ErrorIs(t, w.ToggleModule("nope", true), ErrUnknownModule)
	assert.Empty(t, w.ModuleIDs())
}

func TestToggleRoundTripRestoresTotals(t *testing.T) {
	w := loaded(t, moduleM1, moduleM2, moduleM3)
	require.NoError(t, w.ToggleModule("M2", true))
	before := w.Totals()

	require.NoError(t, w.ToggleModule("M3", true))
	assert.NotEqual(t, before, w.Totals())
	require.NoError(t, w.ToggleModule("M3", false))

	assert.Equal(t, before, w.Totals())
	assert.Equal(t, []string{"M2"}, w.ModuleIDs())
}

func TestClassChangeClearsSelectionBeforeFetchResolves(t *testing.T) {
	w := loaded(t, moduleM1, moduleM2)
	require.NoError(t, w.ToggleModule("M1", true))

	w.SelectClass(classC2)

	assert.Empty(t, w.ModuleIDs())
	assert.Empty(t, w.Catalog())
	ticket := w.TakeLoad()
	require.NotNil(t, ticket)
	assert.Equal(t, "C2", ticket.ClassID)
	assert.Equal(t, CatalogLoading, w.CatalogState())
}

func TestReselectingSameClassKeepsSelection(t *testing.T) {
	w := loaded(t, moduleM1)
	require.NoError(t, w.ToggleModule("M1", true))

	w.SelectClass(&ClassRef{ID: "C1", DisplayName: "renamed"})

	assert.Equal(t, []string{"M1"}, w.ModuleIDs())
	assert.Nil(t, w.TakeLoad())
	assert.Equal(t, "renamed", w.Class().DisplayName)
}

func TestStaleResponseDiscarded(t *testing.T) {
	w, first := onModules(t, classC1)

	w.SelectClass(classC2)
	second := w.TakeLoad()
	require.NotNil(t, second)

	assert.False(t, w.CompleteLoad(first, []Module{moduleM1}, nil))
	assert.Empty(t, w.Catalog())
	assert.Equal(t, CatalogLoading, w.CatalogState())
	assert.Empty(t, w.DrainNotices())

	require.True(t, w.CompleteLoad(second, []Module{moduleM3}, nil))
	assert.Equal(t, []Module{moduleM3}, w.Catalog())
	assert.Equal(t, CatalogReady, w.CatalogState())
}

func TestStaleResponseAfterSwitchingBack(t *testing.T) {
	w, first := onModules(t, classC1)
	w.SelectClass(classC2)
	w.TakeLoad()
	w.SelectClass(classC1)
	latest := w.TakeLoad()

	// Same class id as the first request, but an older generation.
	assert.False(t, w.CompleteLoad(first, []Module{moduleM2}, nil))
	require.True(t, w.CompleteLoad(latest, []Module{moduleM1}, nil))
	assert.Equal(t, []Module{moduleM1}, w.Catalog())
}

func TestCompletedTicketCannotApplyTwice(t *testing.T) {
	w, ticket := onModules(t, classC1)
	require.True(t, w.CompleteLoad(ticket, []Module{moduleM1}, nil))
	assert.False(t, w.CompleteLoad(ticket, nil, errors.New("late")))
	assert.Equal(t, CatalogReady, w.CatalogState())
}

func TestReloadPrunesVanishedModules(t *testing.T) {
	w := loaded(t, moduleM1, moduleM2)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.ToggleModule("M2", true))

	require.NoError(t, w.ReloadModules())
	ticket := w.TakeLoad()
	require.True(t, w.CompleteLoad(ticket, []Module{moduleM2, moduleM3}, nil))

	assert.Equal(t, []string{"M2"}, w.ModuleIDs())
}

func TestScenarioSingleModuleTotals(t *testing.T) {
	w, ticket := onModules(t, classC1)
	require.True(t, w.CompleteLoad(ticket, []Module{moduleM1}, nil))

	notices := w.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeSuccess, notices[0].Level)
	assert.Equal(t, "1 module(s) loaded", notices[0].Message)

	view := Render(w)
	require.Len(t, view.Catalog.Groups, 1)
	assert.Equal(t, "UE1", view.Catalog.Groups[0].Unit)
	require.Len(t, view.Catalog.Groups[0].Modules, 1)
	assert.False(t, view.Catalog.Groups[0].Modules[0].Selected)

	require.NoError(t, w.ToggleModule("M1", true))
	totals := w.Totals()
	assert.Equal(t, 1, totals.Count)
	assert.Equal(t, 30.0, totals.Hours)
	assert.Equal(t, float64(20*DefaultLectureRate+10*DefaultTutorialRate), totals.Cost)
}

func TestScenarioFailedFetch(t *testing.T) {
	w, ticket := onModules(t, classC1)
	require.True(t, w.CompleteLoad(ticket, nil, errors.New("not found")))

	assert.Equal(t, CatalogEmpty, w.CatalogState())
	assert.Empty(t, w.ModuleIDs())
	notices := w.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeDanger, notices[0].Level)
	assert.Contains(t, notices[0].Message, "not found")

	assert.False(t, w.CanAdvance())
	assert.False(t, Render(w).Controls.CanAdvance)
	assert.ErrorIs(t, w.Advance(), ErrModulesRequired)
	assert.Equal(t, StepModules, w.Step())
}

func TestScenarioEmptyCatalog(t *testing.T) {
	w, ticket := onModules(t, classC1)
	require.True(t, w.CompleteLoad(ticket, []Module{}, nil))

	assert.Equal(t, CatalogEmpty, w.CatalogState())
	notices := w.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeWarning, notices[0].Level)
}

func TestScenarioBlockedAdvanceOnModules(t *testing.T) {
	w := loaded(t, moduleM1)

	err := w.Advance()
	require.ErrorIs(t, err, ErrModulesRequired)
	assert.Equal(t, StepModules, w.Step())

	notices := w.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, "select at least one module", notices[0].Message)
}

func TestSubmitBuildsForm(t *testing.T) {
	w := loaded(t, moduleM1, moduleM2)
	require.NoError(t, w.ToggleModule("M2", true))
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())

	sub, err := w.Submit("csrf-123")
	require.NoError(t, err)
	assert.True(t, w.Submitting())
	assert.False(t, Render(w).Controls.CanSubmit)

	form, err := sub.Form()
	require.NoError(t, err)
	assert.Equal(t, "T1", form.Get(FieldTeacher))
	assert.Equal(t, "C1", form.Get(FieldClass))
	assert.Equal(t, `["M2","M1"]`, form.Get(FieldModules))
	assert.Equal(t, "csrf-123", form.Get(FieldCSRFToken))

	_, err = w.Submit("csrf-123")
	assert.ErrorIs(t, err, ErrSubmitInProgress)
}

func TestAbortSubmitReEnables(t *testing.T) {
	w := loaded(t, moduleM1)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())
	_, err := w.Submit("")
	require.NoError(t, err)
	w.DrainNotices()

	w.AbortSubmit(errors.New("backend down"))

	assert.False(t, w.Submitting())
	assert.True(t, Render(w).Controls.CanSubmit)
	notices := w.DrainNotices()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Message, "backend down")
}

func TestSubmitReturnsToIncompleteStep(t *testing.T) {
	w := loaded(t, moduleM1)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())
	require.NoError(t, w.SelectTeacher(nil))

	_, err := w.Submit("")
	require.ErrorIs(t, err, ErrTeacherRequired)
	assert.Equal(t, StepTeacher, w.Step())
	assert.False(t, w.Submitting())
}

func TestEmptySubmissionFormEncodesArray(t *testing.T) {
	form, err := Submission{TeacherID: "T1", ClassID: "C1"}.Form()
	require.NoError(t, err)
	assert.Equal(t, "[]", form.Get(FieldModules))
}

func TestConfirmSubmitKeepsControlLocked(t *testing.T) {
	w := loaded(t, moduleM1)
	w.ConfirmSubmit()
	assert.False(t, w.Submitted(), "nothing in flight")

	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())
	_, err := w.Submit("")
	require.NoError(t, err)
	w.DrainNotices()

	w.ConfirmSubmit()
	assert.True(t, w.Submitted())
	assert.True(t, w.Submitting())
	assert.False(t, Render(w).Controls.CanSubmit)
	notices := w.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeSuccess, notices[0].Level)
}

func TestSubmitOnlyFromReview(t *testing.T) {
	w := loaded(t, moduleM1)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())
	for w.Step() > StepTeacher {
		require.NoError(t, w.Retreat())
	}
	assert.False(t, Render(w).Controls.CanSubmit)

	sub, err := w.Submit("")
	require.ErrorIs(t, err, ErrNotOnReview)
	assert.Nil(t, sub)
	assert.False(t, w.Submitting())
	assert.Equal(t, StepTeacher, w.Step())
}

func TestSubmitWaitsForCatalogLoad(t *testing.T) {
	w := loaded(t, moduleM1)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.ReloadModules())
	require.NoError(t, w.Advance())
	require.Equal(t, StepReview, w.Step())
	assert.False(t, Render(w).Controls.CanSubmit)

	_, err := w.Submit("")
	require.ErrorIs(t, err, ErrCatalogLoading)
	assert.False(t, w.Submitting())

	require.True(t, w.CompleteLoad(w.TakeLoad(), []Module{moduleM1}, nil))
	_, err = w.Submit("")
	assert.NoError(t, err)
}

func TestSelectionLockedWhileSubmitting(t *testing.T) {
	w := loaded(t, moduleM1, moduleM2)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())
	_, err := w.Submit("")
	require.NoError(t, err)

	assert.ErrorIs(t, w.SelectTeacher(nil), ErrLocked)
	assert.ErrorIs(t, w.SelectClass(classC2), ErrLocked)
	assert.ErrorIs(t, w.ToggleModule("M2", true), ErrLocked)
	assert.ErrorIs(t, w.Retreat(), ErrLocked)
	assert.ErrorIs(t, w.ReloadModules(), ErrLocked)
	assert.False(t, Render(w).Controls.CanRetreat)

	w.ConfirmSubmit()
	assert.ErrorIs(t, w.SelectClass(classC2), ErrLocked)
	assert.Equal(t, "T1", w.Teacher().ID)
	assert.Equal(t, "C1", w.Class().ID)
	assert.Equal(t, []string{"M1"}, w.ModuleIDs())
	assert.Equal(t, StepReview, w.Step())
	assert.Nil(t, w.TakeLoad())
}

func TestAbortSubmitUnlocksSelection(t *testing.T) {
	w := loaded(t, moduleM1, moduleM2)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())
	_, err := w.Submit("")
	require.NoError(t, err)

	w.AbortSubmit(errors.New("timeout"))
	require.NoError(t, w.Retreat())
	assert.NoError(t, w.ToggleModule("M2", true))
}
