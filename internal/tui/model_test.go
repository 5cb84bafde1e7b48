package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedago-admin/internal/client"
	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/preference"
	"github.com/noah-isme/pedago-admin/internal/wizard"
)

type directoryStub struct {
	err error
}

func (d directoryStub) Teachers(context.Context) ([]models.OptionItem, error) {
	if d.err != nil {
		return nil, d.err
	}
	return []models.OptionItem{
		{ID: "T1", Label: "Awa Ndiaye", Email: "awa@example.org"},
		{ID: "T2", Label: "Jean Diop"},
	}, nil
}

func (d directoryStub) Classes(context.Context) ([]models.OptionItem, error) {
	return []models.OptionItem{
		{ID: "C1", Label: "L1 Informatique", Level: "L1", Track: "Informatique"},
		{ID: "C2", Label: "L2 Réseaux", Level: "L2", Track: "Réseaux"},
	}, nil
}

type catalogStub map[string][]wizard.Module

func (c catalogStub) Modules(_ context.Context, classID string) ([]wizard.Module, error) {
	mods, ok := c[classID]
	if !ok {
		return nil, errors.New("class not found")
	}
	return mods, nil
}

type submitterStub struct {
	got *wizard.Submission
	err error
}

func (s *submitterStub) Post(_ context.Context, sub wizard.Submission) (*client.SubmitResult, error) {
	s.got = &sub
	if s.err != nil {
		return nil, s.err
	}
	return &client.SubmitResult{StatusCode: 302, Location: "/precontrats/7/"}, nil
}

type themeStoreStub struct {
	saved []preference.Theme
}

func (s *themeStoreStub) LoadTheme(hint string) (preference.Theme, string) {
	return preference.Resolve("", hint)
}

func (s *themeStoreStub) SaveTheme(t preference.Theme) error {
	s.saved = append(s.saved, t)
	return nil
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// run executes cmd and every command batched into it, returning the messages
// of this package. Spinner ticks are skipped.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	var out []tea.Msg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, run(c)...)
		}
	case optionsLoadedMsg, modulesLoadedMsg, submitDoneMsg, themeSavedMsg:
		out = append(out, msg)
	}
	return out
}

func feed(m *Model, msgs []tea.Msg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

var (
	tuiM1 = wizard.Module{ID: "M1", Code: "ALG1", Name: "Algo I", UnitName: "UE1", LectureHours: 20, TutorialHours: 10}
	tuiM2 = wizard.Module{ID: "M2", Code: "NET1", Name: "Réseaux", UnitName: "UE2", LectureHours: 10, TutorialHours: 10}
)

func newTestModel(t *testing.T, sub *submitterStub) (*Model, *themeStoreStub) {
	t.Helper()
	themes := &themeStoreStub{}
	deps := Deps{
		Directory: directoryStub{},
		Catalog:   catalogStub{"C1": {tuiM1}, "C2": {tuiM2}},
		Themes:    themes,
	}
	if sub != nil {
		deps.Submitter = sub
	}
	m := New(deps, Options{Wizard: wizard.Config{Currency: "FCFA"}, CSRFToken: "tok"})
	feed(m, run(m.Init()))
	require.False(t, m.optionsLoading)
	return m, themes
}

func press(m *Model, keys ...string) tea.Cmd {
	var last tea.Cmd
	for _, k := range keys {
		_, last = m.Update(keyMsg(k))
	}
	return last
}

func TestModelWalksToReviewAndSubmits(t *testing.T) {
	sub := &submitterStub{}
	m, _ := newTestModel(t, sub)

	assert.Nil(t, press(m, "enter"), "no load starts while no teacher is selected")
	assert.Equal(t, wizard.StepTeacher, m.w.Step())
	require.NotEmpty(t, m.notices)
	assert.Equal(t, "select a teacher", m.notices[len(m.notices)-1].Message)

	press(m, " ", "enter")
	require.Equal(t, wizard.StepClass, m.w.Step())
	assert.Equal(t, "T1", m.w.Teacher().ID)

	press(m, " ")
	cmd := press(m, "enter")
	require.Equal(t, wizard.StepModules, m.w.Step())
	assert.Equal(t, wizard.CatalogLoading, m.w.CatalogState())
	assert.Contains(t, m.View(), "loading modules of L1 Informatique")

	feed(m, run(cmd))
	require.Equal(t, wizard.CatalogReady, m.w.CatalogState())
	assert.Contains(t, m.View(), "ALG1")

	press(m, " ", "enter")
	require.Equal(t, wizard.StepReview, m.w.Step())
	assert.Contains(t, m.View(), "press s to submit")

	cmd = press(m, "s")
	assert.True(t, m.w.Submitting())
	feed(m, run(cmd))

	require.NotNil(t, sub.got)
	assert.Equal(t, wizard.Submission{TeacherID: "T1", ClassID: "C1", ModuleIDs: []string{"M1"}, CSRFToken: "tok"}, *sub.got)
	assert.True(t, m.w.Submitted())
	assert.Contains(t, m.View(), "pre-contract submitted → /precontrats/7/")
}

func TestModelBlockedAdvanceWarns(t *testing.T) {
	m := New(Deps{
		Directory: directoryStub{},
		Catalog:   catalogStub{"C1": nil},
	}, Options{Wizard: wizard.Config{Currency: "FCFA"}})
	feed(m, run(m.Init()))

	press(m, " ", "enter", " ")
	feed(m, run(press(m, "enter")))
	require.Equal(t, wizard.StepModules, m.w.Step())
	require.Equal(t, wizard.CatalogEmpty, m.w.CatalogState())

	assert.Nil(t, press(m, "enter"))
	assert.Equal(t, wizard.StepModules, m.w.Step())
	require.NotEmpty(t, m.notices)
	last := m.notices[len(m.notices)-1]
	assert.Equal(t, wizard.NoticeWarning, last.Level)
	assert.Equal(t, "select at least one module", last.Message)
	assert.Contains(t, m.View(), "select at least one module")
}

func TestModelSelectionLockedAfterSubmit(t *testing.T) {
	sub := &submitterStub{}
	m, _ := newTestModel(t, sub)
	press(m, " ", "enter", " ")
	feed(m, run(press(m, "enter")))
	press(m, " ", "enter")
	require.Equal(t, wizard.StepReview, m.w.Step())

	feed(m, run(press(m, "s")))
	require.True(t, m.w.Submitted())

	press(m, "esc")
	assert.Equal(t, wizard.StepReview, m.w.Step())
	assert.Equal(t, []string{"M1"}, m.w.ModuleIDs())
}

func TestModelDropsStaleCatalog(t *testing.T) {
	m, _ := newTestModel(t, nil)
	press(m, " ", "enter", " ")
	first := press(m, "enter")
	require.Equal(t, wizard.StepModules, m.w.Step())

	press(m, "esc", "down", " ")
	require.Equal(t, "C2", m.w.Class().ID)
	second := press(m, "enter")

	feed(m, run(first))
	assert.Equal(t, wizard.CatalogLoading, m.w.CatalogState(), "result for the old class is ignored")

	feed(m, run(second))
	require.Equal(t, wizard.CatalogReady, m.w.CatalogState())
	catalog := m.w.Catalog()
	require.Len(t, catalog, 1)
	assert.Equal(t, "M2", catalog[0].ID)
}

func TestModelCatalogFailureAndReload(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m.deps.Catalog = catalogStub{}
	press(m, " ", "enter", " ")
	feed(m, run(press(m, "enter")))

	assert.Equal(t, wizard.CatalogEmpty, m.w.CatalogState())
	view := m.View()
	assert.Contains(t, view, "failed to load modules: class not found")
	assert.Contains(t, view, "press r to reload")

	m.deps.Catalog = catalogStub{"C1": {tuiM1}}
	feed(m, run(press(m, "r")))
	assert.Equal(t, wizard.CatalogReady, m.w.CatalogState())
}

func TestModelSubmitFailureReEnables(t *testing.T) {
	sub := &submitterStub{err: errors.New("403 Forbidden")}
	m, _ := newTestModel(t, sub)
	press(m, " ", "enter", " ")
	feed(m, run(press(m, "enter")))
	press(m, " ", "enter")

	feed(m, run(press(m, "s")))

	assert.False(t, m.w.Submitting())
	assert.False(t, m.w.Submitted())
	view := m.View()
	assert.Contains(t, view, "submission failed: 403 Forbidden")
	assert.Contains(t, view, "press s to submit")
}

func TestModelWithoutSubmitter(t *testing.T) {
	m, _ := newTestModel(t, nil)
	press(m, " ", "enter", " ")
	feed(m, run(press(m, "enter")))
	press(m, " ", "enter")

	assert.Nil(t, run(press(m, "s")))
	assert.False(t, m.w.Submitting())
	assert.Contains(t, m.View(), "submission is not configured")
}

func TestModelThemeToggle(t *testing.T) {
	m, themes := newTestModel(t, nil)
	require.Equal(t, preference.ThemeLight, m.Theme())

	feed(m, run(press(m, "t")))
	assert.Equal(t, preference.ThemeDark, m.Theme())
	assert.Equal(t, []preference.Theme{preference.ThemeDark}, themes.saved)
}

func TestModelOptionsFailure(t *testing.T) {
	m := New(Deps{Directory: directoryStub{err: errors.New("connection refused")}}, Options{ThemeHint: "dark"})
	assert.Equal(t, preference.ThemeDark, m.Theme())
	feed(m, run(m.Init()))

	view := m.View()
	assert.Contains(t, view, "load teachers: connection refused")
	assert.Contains(t, view, "no teachers available")
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(t, nil)
	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}
