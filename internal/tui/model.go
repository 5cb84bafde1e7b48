package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/client"
	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/preference"
	"github.com/noah-isme/pedago-admin/internal/wizard"
)

const maxNotices = 4

// Directory lists the selectable teachers and classes.
type Directory interface {
	Teachers(ctx context.Context) ([]models.OptionItem, error)
	Classes(ctx context.Context) ([]models.OptionItem, error)
}

// Catalog loads the modules of a class.
type Catalog interface {
	Modules(ctx context.Context, classID string) ([]wizard.Module, error)
}

// Submitter posts the completed wizard.
type Submitter interface {
	Post(ctx context.Context, sub wizard.Submission) (*client.SubmitResult, error)
}

// ThemeStore persists the local theme choice.
type ThemeStore interface {
	LoadTheme(hint string) (preference.Theme, string)
	SaveTheme(t preference.Theme) error
}

// Deps are the collaborators of the terminal host. Submitter and Themes may be nil.
type Deps struct {
	Directory Directory
	Catalog   Catalog
	Submitter Submitter
	Themes    ThemeStore
	Logger    *zap.Logger
}

// Options tune the terminal host.
type Options struct {
	Wizard    wizard.Config
	CSRFToken string
	Timeout   time.Duration
	// ThemeHint is the terminal background ("light" or "dark"), used when no
	// theme is stored.
	ThemeHint string
}

// Model is the Bubble Tea model hosting one wizard.
type Model struct {
	deps Deps
	opts Options
	w    *wizard.Wizard

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	theme   preference.Theme
	styles  styles

	teachers       []models.OptionItem
	classes        []models.OptionItem
	optionsLoading bool
	optionsErr     error

	cursor   int
	notices  []wizard.Notice
	result   *client.SubmitResult
	width    int
	quitting bool
}

var _ tea.Model = (*Model)(nil)

// New builds the model. Option lists are loaded by Init.
func New(deps Deps, opts Options) *Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	var theme preference.Theme
	if deps.Themes != nil {
		theme, _ = deps.Themes.LoadTheme(opts.ThemeHint)
	} else {
		theme, _ = preference.Resolve("", opts.ThemeHint)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &Model{
		deps:           deps,
		opts:           opts,
		w:              wizard.New(opts.Wizard),
		keys:           defaultKeyMap(),
		help:           help.New(),
		spinner:        s,
		optionsLoading: true,
	}
	m.applyTheme(theme)
	return m
}

// Wizard exposes the hosted wizard, read-only use only.
func (m *Model) Wizard() *wizard.Wizard { return m.w }

// Theme returns the active theme.
func (m *Model) Theme() preference.Theme { return m.theme }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadOptionsCmd(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case optionsLoadedMsg:
		m.optionsLoading = false
		m.teachers, m.classes, m.optionsErr = msg.teachers, msg.classes, msg.err
		if msg.err != nil {
			m.deps.Logger.Warn("option lists unavailable", zap.Error(msg.err))
			m.push(wizard.Notice{Level: wizard.NoticeDanger, Message: msg.err.Error()})
		}
		return m, nil

	case modulesLoadedMsg:
		if !m.w.CompleteLoad(&msg.ticket, msg.modules, msg.err) {
			m.deps.Logger.Debug("stale catalog result dropped", zap.String("class_id", msg.ticket.ClassID))
		}
		m.clampCursor()
		return m, m.sync()

	case submitDoneMsg:
		if msg.err != nil {
			m.deps.Logger.Warn("submission failed", zap.Error(msg.err))
			m.w.AbortSubmit(msg.err)
		} else {
			m.result = msg.result
			m.w.ConfirmSubmit()
		}
		return m, m.sync()

	case themeSavedMsg:
		if msg.err != nil {
			m.push(wizard.Notice{Level: wizard.NoticeWarning, Message: "theme not saved: " + msg.err.Error()})
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.move(1)
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.pick()

	case key.Matches(msg, m.keys.Advance):
		// A blocked advance queues its warning, picked up by sync.
		if m.w.Advance() == nil {
			m.cursor = m.selectedIndex()
		}

	case key.Matches(msg, m.keys.Back):
		if m.w.Retreat() == nil {
			m.cursor = m.selectedIndex()
		}

	case key.Matches(msg, m.keys.Reload):
		if m.w.Step() == wizard.StepModules {
			_ = m.w.ReloadModules()
		}

	case key.Matches(msg, m.keys.Submit):
		if m.w.Step() == wizard.StepReview {
			return m, m.submit()
		}

	case key.Matches(msg, m.keys.Theme):
		m.applyTheme(m.theme.Toggle())
		return m, m.saveThemeCmd(m.theme)
	}
	return m, m.sync()
}

// pick selects the option under the cursor, or toggles the module under it.
func (m *Model) pick() {
	switch m.w.Step() {
	case wizard.StepTeacher:
		if m.cursor < len(m.teachers) {
			t := m.teachers[m.cursor]
			_ = m.w.SelectTeacher(&wizard.TeacherRef{ID: t.ID, DisplayName: t.Label, Email: t.Email})
		}
	case wizard.StepClass:
		if m.cursor < len(m.classes) {
			c := m.classes[m.cursor]
			_ = m.w.SelectClass(&wizard.ClassRef{ID: c.ID, DisplayName: c.Label, Level: c.Level, Track: c.Track})
		}
	case wizard.StepModules:
		cards := m.moduleCards()
		if m.cursor < len(cards) {
			_ = m.w.ToggleModule(cards[m.cursor].ID, !cards[m.cursor].Selected)
		}
	}
}

func (m *Model) submit() tea.Cmd {
	sub, err := m.w.Submit(m.opts.CSRFToken)
	if err != nil {
		switch {
		case errors.Is(err, wizard.ErrCatalogLoading):
			m.push(wizard.Notice{Level: wizard.NoticeWarning, Message: err.Error()})
		case !errors.Is(err, wizard.ErrSubmitInProgress):
			m.cursor = m.selectedIndex()
		}
		return m.sync()
	}
	if m.deps.Submitter == nil {
		m.w.AbortSubmit(errors.New("submission is not configured"))
		return m.sync()
	}
	return tea.Batch(m.submitCmd(*sub), m.sync(), m.spinner.Tick)
}

// sync collects wizard notices and starts the catalog load the last
// operation asked for.
func (m *Model) sync() tea.Cmd {
	for _, n := range m.w.DrainNotices() {
		m.push(n)
	}
	ticket := m.w.TakeLoad()
	if ticket == nil {
		return nil
	}
	return tea.Batch(m.fetchModulesCmd(*ticket), m.spinner.Tick)
}

func (m *Model) push(n wizard.Notice) {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m *Model) busy() bool {
	return m.optionsLoading || m.w.CatalogState() == wizard.CatalogLoading || (m.w.Submitting() && !m.w.Submitted())
}

func (m *Model) applyTheme(t preference.Theme) {
	m.theme = t
	m.styles = newStyles(t)
	m.spinner.Style = m.styles.Title
}

func (m *Model) listLen() int {
	switch m.w.Step() {
	case wizard.StepTeacher:
		return len(m.teachers)
	case wizard.StepClass:
		return len(m.classes)
	case wizard.StepModules:
		return len(m.moduleCards())
	}
	return 0
}

func (m *Model) move(delta int) {
	n := m.listLen()
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = (m.cursor + delta + n) % n
}

func (m *Model) clampCursor() {
	if n := m.listLen(); m.cursor >= n {
		m.cursor = 0
	}
}

// selectedIndex puts the cursor on the current selection of the step.
func (m *Model) selectedIndex() int {
	switch m.w.Step() {
	case wizard.StepTeacher:
		if t := m.w.Teacher(); t != nil {
			return indexOf(m.teachers, t.ID)
		}
	case wizard.StepClass:
		if c := m.w.Class(); c != nil {
			return indexOf(m.classes, c.ID)
		}
	}
	return 0
}

// moduleCards flattens the catalog in display order.
func (m *Model) moduleCards() []wizard.ModuleCard {
	var cards []wizard.ModuleCard
	for _, g := range wizard.Render(m.w).Catalog.Groups {
		cards = append(cards, g.Modules...)
	}
	return cards
}

func indexOf(items []models.OptionItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return 0
}
