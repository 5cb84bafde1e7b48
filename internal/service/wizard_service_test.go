package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedago-admin/internal/client"
	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/wizard"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
)

type teacherFinderStub struct {
	teachers map[string]models.Teacher
}

func (s *teacherFinderStub) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	t, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

type fetcherStub struct {
	mu      sync.Mutex
	modules map[string][]wizard.Module
	errs    map[string]error
	gates   map[string]chan struct{}
	calls   []string
}

func (f *fetcherStub) Modules(ctx context.Context, classID string) ([]wizard.Module, error) {
	f.mu.Lock()
	gate := f.gates[classID]
	mods := f.modules[classID]
	err := f.errs[classID]
	f.calls = append(f.calls, classID)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return mods, err
}

type submitterStub struct {
	mu   sync.Mutex
	subs []wizard.Submission
	err  error
}

func (s *submitterStub) Post(_ context.Context, sub wizard.Submission) (*client.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	if s.err != nil {
		return nil, s.err
	}
	return &client.SubmitResult{StatusCode: 302, Location: "/gestion/precontrats/1/"}, nil
}

var (
	svcModuleM1 = wizard.Module{ID: "M1", Code: "ALG1", Name: "Algo I", UnitName: "UE1", LectureHours: 20, TutorialHours: 10}
	svcModuleM2 = wizard.Module{ID: "M2", Code: "NET1", Name: "Réseaux", UnitName: "UE2", LectureHours: 10, TutorialHours: 10}
)

type wizardFixture struct {
	svc       *WizardService
	fetcher   *fetcherStub
	submitter *submitterStub
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	fetcher := &fetcherStub{
		modules: map[string][]wizard.Module{
			"C1": {svcModuleM1},
			"C2": {svcModuleM2},
		},
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
	submitter := &submitterStub{}
	teachers := &teacherFinderStub{teachers: map[string]models.Teacher{
		"T1": {ID: "T1", FullName: "Awa Ndiaye", Email: "awa@example.org", Active: true},
		"T9": {ID: "T9", FullName: "Retired", Active: false},
	}}
	classes := &classReaderStub{classes: map[string]models.Class{
		"C1": {ID: "C1", Name: "L1 Informatique", Level: "L1", Track: "Informatique", Active: true},
		"C2": {ID: "C2", Name: "L2 Réseaux", Level: "L2", Track: "Réseaux", Active: true},
		"C3": {ID: "C3", Name: "Empty", Active: true},
	}}
	svc := NewWizardService(teachers, classes, fetcher, submitter, nil, WizardSessionConfig{
		Wizard:        wizard.Config{Currency: "FCFA"},
		LoaderWorkers: 2,
		FetchTimeout:  time.Second,
	}, nil)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return &wizardFixture{svc: svc, fetcher: fetcher, submitter: submitter}
}

// settle polls the session until no catalog load is pending and returns the
// last snapshot with every notice seen meanwhile.
func (f *wizardFixture) settle(t *testing.T, id string) *WizardSnapshot {
	t.Helper()
	var (
		last    *WizardSnapshot
		notices []wizard.Notice
	)
	require.Eventually(t, func() bool {
		snap, err := f.svc.Get(context.Background(), id)
		if err != nil {
			return false
		}
		notices = append(notices, snap.Notices...)
		last = snap
		return snap.View.Catalog.State != wizard.CatalogLoading
	}, 2*time.Second, 5*time.Millisecond)
	last.Notices = notices
	return last
}

func (f *wizardFixture) toModules(t *testing.T, classID string) string {
	t.Helper()
	ctx := context.Background()
	snap, err := f.svc.Create(ctx, "csrf-1")
	require.NoError(t, err)
	id := snap.SessionID

	_, err = f.svc.SelectTeacher(ctx, id, "T1")
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.SelectClass(ctx, id, classID)
	require.NoError(t, err)
	snap, err = f.svc.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepModules, snap.View.Step)
	return id
}

func TestWizardServiceFullFlow(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	id := f.toModules(t, "C1")

	snap := f.settle(t, id)
	assert.Equal(t, wizard.CatalogReady, snap.View.Catalog.State)
	require.Len(t, snap.View.Catalog.Groups, 1)
	assert.Equal(t, "UE1", snap.View.Catalog.Groups[0].Unit)
	require.NotEmpty(t, snap.Notices)
	assert.Equal(t, "1 module(s) loaded", snap.Notices[len(snap.Notices)-1].Message)

	snap, err := f.svc.ToggleModule(ctx, id, "M1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.View.Selection.Count)
	assert.Equal(t, 30.0, snap.View.Selection.Totals.Hours)
	assert.Equal(t, 280000.0, snap.View.Selection.Totals.Cost)

	snap, err = f.svc.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReview, snap.View.Step)
	require.NotNil(t, snap.View.Review)

	snap, err = f.svc.Submit(ctx, id)
	require.NoError(t, err)
	assert.True(t, snap.Submitted)
	assert.False(t, snap.View.Controls.CanSubmit)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "/gestion/precontrats/1/", snap.Result.Location)

	require.Len(t, f.submitter.subs, 1)
	assert.Equal(t, wizard.Submission{TeacherID: "T1", ClassID: "C1", ModuleIDs: []string{"M1"}, CSRFToken: "csrf-1"}, f.submitter.subs[0])

	_, err = f.svc.Submit(ctx, id)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestWizardServiceBlockedAdvance(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	id := f.toModules(t, "C1")
	f.settle(t, id)

	snap, err := f.svc.Advance(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrWizardStep)
	assert.Equal(t, "select at least one module", appErrors.FromError(err).Message)
	require.NotNil(t, snap)
	assert.Equal(t, wizard.StepModules, snap.View.Step)
	require.Len(t, snap.Notices, 1)
	assert.Equal(t, wizard.NoticeWarning, snap.Notices[0].Level)
}

func TestWizardServiceDiscardsStaleLoad(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	gate := make(chan struct{})
	f.fetcher.mu.Lock()
	f.fetcher.gates["C1"] = gate
	f.fetcher.mu.Unlock()

	id := f.toModules(t, "C1")
	snap, err := f.svc.SelectClass(ctx, id, "C2")
	require.NoError(t, err)
	assert.Empty(t, snap.View.Selection.Modules)

	snap = f.settle(t, id)
	require.Len(t, snap.View.Catalog.Groups, 1)
	assert.Equal(t, "UE2", snap.View.Catalog.Groups[0].Unit)

	close(gate)
	assert.Never(t, func() bool {
		s, err := f.svc.Get(ctx, id)
		if err != nil {
			return true
		}
		return s.View.Catalog.ClassID != "C2" || len(s.View.Catalog.Groups) != 1 || s.View.Catalog.Groups[0].Unit != "UE2"
	}, 150*time.Millisecond, 10*time.Millisecond)
}

func TestWizardServiceFetchFailure(t *testing.T) {
	f := newWizardFixture(t)
	f.fetcher.mu.Lock()
	f.fetcher.errs["C1"] = errors.New("not found")
	f.fetcher.mu.Unlock()

	id := f.toModules(t, "C1")
	snap := f.settle(t, id)

	assert.Equal(t, wizard.CatalogEmpty, snap.View.Catalog.State)
	assert.False(t, snap.View.Controls.CanAdvance)
	found := false
	for _, n := range snap.Notices {
		if n.Level == wizard.NoticeDanger && strings.Contains(n.Message, "not found") {
			found = true
		}
	}
	assert.True(t, found, "danger notice mentioning the reason")

	f.fetcher.mu.Lock()
	delete(f.fetcher.errs, "C1")
	f.fetcher.mu.Unlock()
	_, err := f.svc.Reload(context.Background(), id)
	require.NoError(t, err)
	snap = f.settle(t, id)
	assert.Equal(t, wizard.CatalogReady, snap.View.Catalog.State)
}

func TestWizardServiceSubmitFailureReEnables(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	f.submitter.err = errors.New("connection refused")

	id := f.toModules(t, "C1")
	f.settle(t, id)
	_, err := f.svc.ToggleModule(ctx, id, "M1", true)
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, id)
	require.NoError(t, err)

	snap, err := f.svc.Submit(ctx, id)
	assert.ErrorIs(t, err, appErrors.ErrUpstream)
	require.NotNil(t, snap)
	assert.False(t, snap.Submitted)
	assert.True(t, snap.View.Controls.CanSubmit)
}

func TestWizardServiceSubmitOnlyFromReview(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	id := f.toModules(t, "C1")
	f.settle(t, id)
	_, err := f.svc.ToggleModule(ctx, id, "M1", true)
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.Retreat(ctx, id)
	require.NoError(t, err)
	f.settle(t, id)
	_, err = f.svc.Retreat(ctx, id)
	require.NoError(t, err)

	snap, err := f.svc.Submit(ctx, id)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	require.NotNil(t, snap)
	assert.Equal(t, wizard.StepClass, snap.View.Step)
	assert.False(t, snap.View.Controls.CanSubmit)
	assert.Empty(t, f.submitter.subs)
}

func TestWizardServiceLockedAfterSubmit(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	id := f.toModules(t, "C1")
	f.settle(t, id)
	_, err := f.svc.ToggleModule(ctx, id, "M1", true)
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, id)
	require.NoError(t, err)
	snap, err := f.svc.Submit(ctx, id)
	require.NoError(t, err)
	require.True(t, snap.Submitted)

	_, err = f.svc.Retreat(ctx, id)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	_, err = f.svc.SelectClass(ctx, id, "C2")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	_, err = f.svc.ToggleModule(ctx, id, "M1", false)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	snap, err = f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReview, snap.View.Step)
	require.NotNil(t, snap.View.Class)
	assert.Equal(t, "C1", snap.View.Class.ID)
	assert.False(t, snap.View.Controls.CanRetreat)
	assert.Len(t, f.submitter.subs, 1)
}

func TestWizardServiceSelectionLookups(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	snap, err := f.svc.Create(ctx, "")
	require.NoError(t, err)

	_, err = f.svc.SelectTeacher(ctx, snap.SessionID, "nobody")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.SelectTeacher(ctx, snap.SessionID, "T9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	snap, err = f.svc.SelectTeacher(ctx, snap.SessionID, "T1")
	require.NoError(t, err)
	require.NotNil(t, snap.View.Teacher)
	assert.Equal(t, "AN", snap.View.Teacher.Initials)

	snap, err = f.svc.SelectTeacher(ctx, snap.SessionID, "")
	require.NoError(t, err)
	assert.Nil(t, snap.View.Teacher)

	_, err = f.svc.ToggleModule(ctx, snap.SessionID, "M1", true)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestWizardServiceSessionLifecycle(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	a, err := f.svc.Create(ctx, "")
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour), a.ExpiresAt)

	now = now.Add(90 * time.Minute)
	_, err = f.svc.Get(ctx, b.SessionID)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, f.svc.Sweep())
	_, err = f.svc.Get(ctx, a.SessionID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	now = now.Add(3 * time.Hour)
	_, err = f.svc.Get(ctx, b.SessionID)
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)

	c, err := f.svc.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, c.SessionID))
	assert.ErrorIs(t, f.svc.Delete(ctx, c.SessionID), appErrors.ErrNotFound)
}

func TestWizardServiceExport(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()
	id := f.toModules(t, "C1")
	f.settle(t, id)

	_, err := f.svc.Export(ctx, id, "csv")
	assert.ErrorIs(t, err, appErrors.ErrWizardStep)

	_, err = f.svc.ToggleModule(ctx, id, "M1", true)
	require.NoError(t, err)

	file, err := f.svc.Export(ctx, id, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "precontrat-C1-"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	content := string(file.Content)
	assert.Contains(t, content, "ALG1")
	assert.Contains(t, content, "Total")

	_, err = f.svc.Export(ctx, id, "docx")
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedFormat)
}

func TestWizardServiceWithoutSubmitter(t *testing.T) {
	svc := NewWizardService(&teacherFinderStub{}, &classReaderStub{}, nil, nil, nil, WizardSessionConfig{}, nil)
	_, err := svc.Submit(context.Background(), "x")
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
}

func TestLocalModuleFetcher(t *testing.T) {
	catalog, _, _ := sampleCatalogService()
	fetcher := LocalModuleFetcher{Catalog: catalog}

	modules, err := fetcher.Modules(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "M1", modules[0].ID)

	_, err = fetcher.Modules(context.Background(), "C2")
	require.Error(t, err)
	assert.Equal(t, MsgNoCurriculumFound, err.Error())

	_, err = fetcher.Modules(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
