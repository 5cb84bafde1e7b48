package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/client"
	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/wizard"
	appErrors "github.com/noah-isme/pedago-admin/pkg/errors"
	"github.com/noah-isme/pedago-admin/pkg/export"
	"github.com/noah-isme/pedago-admin/pkg/jobs"
)

// ModuleFetcher loads the module catalog of a class.
type ModuleFetcher interface {
	Modules(ctx context.Context, classID string) ([]wizard.Module, error)
}

// FormSubmitter forwards a completed wizard to the persistence backend.
type FormSubmitter interface {
	Post(ctx context.Context, sub wizard.Submission) (*client.SubmitResult, error)
}

type teacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// WizardSessionConfig tunes the session host.
type WizardSessionConfig struct {
	Wizard        wizard.Config
	SessionTTL    time.Duration
	SweepInterval time.Duration
	LoaderWorkers int
	FetchTimeout  time.Duration
}

// WizardSnapshot is what clients see of a session after each operation.
// Notices are delivered once.
type WizardSnapshot struct {
	SessionID string               `json:"sessionId"`
	View      wizard.View          `json:"view"`
	Notices   []wizard.Notice      `json:"notices"`
	Submitted bool                 `json:"submitted"`
	Result    *client.SubmitResult `json:"result,omitempty"`
	ExpiresAt time.Time            `json:"expiresAt"`
}

// ExportFile is a rendered recap document.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

type wizardSession struct {
	id        string
	csrfToken string
	createdAt time.Time
	lastSeen  atomic.Int64

	mu      sync.Mutex
	w       *wizard.Wizard
	notices []wizard.Notice
	result  *client.SubmitResult
}

type loadRequest struct {
	SessionID string
	Ticket    wizard.Ticket
}

// WizardService hosts one wizard per session. Every session has its own lock;
// catalog loads run on a worker queue and are applied under that lock, where
// the wizard drops results of superseded requests.
type WizardService struct {
	teachers  teacherFinder
	classes   classFinder
	fetcher   ModuleFetcher
	submitter FormSubmitter
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       WizardSessionConfig
	queue     *jobs.Queue[loadRequest]
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*wizardSession

	stopSweep context.CancelFunc
	sweepDone chan struct{}
}

// NewWizardService constructs the session host. submitter may be nil, which
// disables submission.
func NewWizardService(teachers teacherFinder, classes classFinder, fetcher ModuleFetcher, submitter FormSubmitter, metrics *MetricsService, cfg WizardSessionConfig, logger *zap.Logger) *WizardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	s := &WizardService{
		teachers:  teachers,
		classes:   classes,
		fetcher:   fetcher,
		submitter: submitter,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*wizardSession),
	}
	superseded := func(jobs.Job[loadRequest]) {
		metrics.ObserveCatalogFetch(CatalogOutcomeStale, 0)
	}
	s.queue = jobs.New("wizard-catalog", s.handleLoad, jobs.Config[loadRequest]{
		Workers: cfg.LoaderWorkers,
		OnSkip:  superseded,
		Logger:  logger,
	})
	return s
}

// Start launches the catalog loaders and the expiry sweeper.
func (s *WizardService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	sweepCtx, cancel := context.WithCancel(ctx)
	s.stopSweep = cancel
	s.sweepDone = make(chan struct{})
	go func() {
		defer close(s.sweepDone)
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("expired wizard sessions removed", zap.Int("count", n))
				}
			}
		}
	}()
}

// Stop halts the loaders and the sweeper.
func (s *WizardService) Stop() {
	if s.stopSweep != nil {
		s.stopSweep()
		<-s.sweepDone
		s.stopSweep = nil
	}
	s.queue.Stop()
}

// Create opens a session. csrfToken is forwarded untouched on submission.
func (s *WizardService) Create(_ context.Context, csrfToken string) (*WizardSnapshot, error) {
	sess := &wizardSession{
		id:        uuid.NewString(),
		csrfToken: csrfToken,
		createdAt: s.now(),
		w:         wizard.New(s.cfg.Wizard),
	}
	sess.lastSeen.Store(sess.createdAt.UnixNano())

	s.mu.Lock()
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(count)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.snapshot(sess), nil
}

// Get returns the current state and pending notices of a session.
func (s *WizardService) Get(_ context.Context, id string) (*WizardSnapshot, error) {
	return s.withSession(id, func(*wizardSession) error { return nil })
}

// Delete drops a session. In-flight loads for it are discarded.
func (s *WizardService) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return sessionNotFound()
	}
	s.metrics.SetActiveSessions(count)
	return nil
}

// SelectTeacher selects the teacher with teacherID, or clears the selection
// when it is empty.
func (s *WizardService) SelectTeacher(ctx context.Context, id, teacherID string) (*WizardSnapshot, error) {
	var ref *wizard.TeacherRef
	if teacherID = strings.TrimSpace(teacherID); teacherID != "" {
		teacher, err := s.teachers.FindByID(ctx, teacherID)
		if err != nil {
			return nil, lookupError(err, "teacher")
		}
		if !teacher.Active {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		ref = &wizard.TeacherRef{ID: teacher.ID, DisplayName: teacher.FullName, Email: teacher.Email}
	}
	return s.withSession(id, func(sess *wizardSession) error {
		return wizardError(sess.w.SelectTeacher(ref))
	})
}

// SelectClass selects the class with classID, or clears the selection when it
// is empty. Changing the class drops the module selection.
func (s *WizardService) SelectClass(ctx context.Context, id, classID string) (*WizardSnapshot, error) {
	var ref *wizard.ClassRef
	if classID = strings.TrimSpace(classID); classID != "" {
		class, err := s.classes.FindByID(ctx, classID)
		if err != nil {
			return nil, lookupError(err, "class")
		}
		if !class.Active {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		ref = &wizard.ClassRef{ID: class.ID, DisplayName: class.Name, Level: class.Level, Track: class.Track}
	}
	return s.withSession(id, func(sess *wizardSession) error {
		return wizardError(sess.w.SelectClass(ref))
	})
}

// Advance moves the session to the next step when the current one is complete.
func (s *WizardService) Advance(_ context.Context, id string) (*WizardSnapshot, error) {
	return s.withSession(id, func(sess *wizardSession) error {
		err := sess.w.Advance()
		s.metrics.RecordTransition("advance", err)
		return wizardError(err)
	})
}

// Retreat moves the session back one step.
func (s *WizardService) Retreat(_ context.Context, id string) (*WizardSnapshot, error) {
	return s.withSession(id, func(sess *wizardSession) error {
		err := sess.w.Retreat()
		s.metrics.RecordTransition("retreat", err)
		return wizardError(err)
	})
}

// Reload refetches the catalog of the selected class.
func (s *WizardService) Reload(_ context.Context, id string) (*WizardSnapshot, error) {
	return s.withSession(id, func(sess *wizardSession) error {
		return wizardError(sess.w.ReloadModules())
	})
}

// ToggleModule adds or removes a module of the loaded catalog.
func (s *WizardService) ToggleModule(_ context.Context, id, moduleID string, selected bool) (*WizardSnapshot, error) {
	return s.withSession(id, func(sess *wizardSession) error {
		return wizardError(sess.w.ToggleModule(moduleID, selected))
	})
}

// Submit re-validates the session and forwards it to the backend. The session
// lock is released while the post is in flight; the wizard itself rejects a
// second submission meanwhile.
func (s *WizardService) Submit(ctx context.Context, id string) (*WizardSnapshot, error) {
	if s.submitter == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "submission is not configured")
	}
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sub, err := sess.w.Submit(sess.csrfToken)
	if err != nil {
		ticket := sess.w.TakeLoad()
		snap := s.snapshot(sess)
		sess.mu.Unlock()
		s.enqueueLoad(sess, ticket)
		s.metrics.RecordTransition("submit", err)
		return snap, wizardError(err)
	}
	sess.mu.Unlock()

	result, postErr := s.submitter.Post(ctx, *sub)
	s.metrics.RecordSubmission(postErr)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())
	if postErr != nil {
		sess.w.AbortSubmit(postErr)
		return s.snapshot(sess), appErrors.Wrap(postErr, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "submission failed")
	}
	sess.w.ConfirmSubmit()
	sess.result = result
	s.logger.Info("pre-contract submitted",
		zap.String("session_id", sess.id),
		zap.String("teacher_id", sub.TeacherID),
		zap.String("class_id", sub.ClassID),
		zap.Int("modules", len(sub.ModuleIDs)),
	)
	return s.snapshot(sess), nil
}

// Export renders the recap of the current selection.
func (s *WizardService) Export(_ context.Context, id, format string) (*ExportFile, error) {
	exporter, ok := export.ForFormat(strings.ToLower(strings.TrimSpace(format)))
	if !ok {
		return nil, appErrors.ErrUnsupportedFormat
	}
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	dataset, classID, err := recapDataset(sess.w, s.cfg.Wizard.Currency)
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}

	content, err := exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render recap")
	}
	return &ExportFile{
		Content:     content,
		ContentType: exporter.ContentType(),
		Filename:    fmt.Sprintf("precontrat-%s-%s.%s", classID, s.now().Format("20060102"), exporter.Extension()),
	}, nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *WizardService) Sweep() int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.cfg.SessionTTL) {
			delete(s.sessions, id)
			removed++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(count)
	return removed
}

func (s *WizardService) session(id string) (*wizardSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sessionNotFound()
	}
	if sess.expired(s.now(), s.cfg.SessionTTL) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, appErrors.ErrSessionExpired
	}
	return sess, nil
}

func (s *WizardService) withSession(id string, fn func(*wizardSession) error) (*WizardSnapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	opErr := fn(sess)
	ticket := sess.w.TakeLoad()
	sess.touch(s.now())
	snap := s.snapshot(sess)
	sess.mu.Unlock()

	s.enqueueLoad(sess, ticket)
	return snap, opErr
}

// enqueueLoad hands a load the wizard started to the queue. It runs without
// the session lock because workers need that lock to apply results.
func (s *WizardService) enqueueLoad(sess *wizardSession, ticket *wizard.Ticket) {
	if ticket == nil {
		return
	}
	var err error
	if s.fetcher == nil {
		err = errors.New("module catalog is not configured")
	} else {
		// Keyed by session so a queued load of the same session is dropped
		// once a newer one arrives.
		err = s.queue.TryEnqueue(jobs.Job[loadRequest]{
			Key:     sess.id,
			Payload: loadRequest{SessionID: sess.id, Ticket: *ticket},
		})
	}
	if err == nil {
		return
	}
	s.logger.Warn("catalog load not queued", zap.String("session_id", sess.id), zap.Error(err))
	sess.mu.Lock()
	sess.w.CompleteLoad(ticket, nil, err)
	sess.notices = append(sess.notices, sess.w.DrainNotices()...)
	sess.mu.Unlock()
}

func (s *WizardService) handleLoad(ctx context.Context, job jobs.Job[loadRequest]) error {
	req := job.Payload

	s.mu.RLock()
	sess, ok := s.sessions[req.SessionID]
	s.mu.RUnlock()
	if !ok {
		s.metrics.ObserveCatalogFetch(CatalogOutcomeStale, 0)
		return nil
	}

	sess.mu.Lock()
	current := sess.w.IsCurrent(&req.Ticket)
	sess.mu.Unlock()
	if !current {
		s.metrics.ObserveCatalogFetch(CatalogOutcomeStale, 0)
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	start := time.Now()
	modules, fetchErr := s.fetcher.Modules(fetchCtx, req.Ticket.ClassID)
	elapsed := time.Since(start)
	cancel()

	sess.mu.Lock()
	applied := sess.w.CompleteLoad(&req.Ticket, modules, fetchErr)
	sess.notices = append(sess.notices, sess.w.DrainNotices()...)
	sess.mu.Unlock()

	outcome := CatalogOutcomeOK
	switch {
	case !applied:
		outcome = CatalogOutcomeStale
	case fetchErr != nil:
		outcome = CatalogOutcomeError
	case len(modules) == 0:
		outcome = CatalogOutcomeEmpty
	}
	s.metrics.ObserveCatalogFetch(outcome, elapsed)
	s.logger.Debug("catalog load finished",
		zap.String("session_id", req.SessionID),
		zap.String("class_id", req.Ticket.ClassID),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// snapshot is called with the session lock held.
func (s *WizardService) snapshot(sess *wizardSession) *WizardSnapshot {
	notices := append(sess.notices, sess.w.DrainNotices()...)
	sess.notices = nil
	if notices == nil {
		notices = []wizard.Notice{}
	}
	lastSeen := time.Unix(0, sess.lastSeen.Load())
	return &WizardSnapshot{
		SessionID: sess.id,
		View:      wizard.Render(sess.w),
		Notices:   notices,
		Submitted: sess.w.Submitted(),
		Result:    sess.result,
		ExpiresAt: lastSeen.Add(s.cfg.SessionTTL).UTC(),
	}
}

func (sess *wizardSession) touch(now time.Time) {
	sess.lastSeen.Store(now.UnixNano())
}

func (sess *wizardSession) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(time.Unix(0, sess.lastSeen.Load())) > ttl
}

func sessionNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "wizard session not found")
}

func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

// wizardError maps wizard sentinels onto API errors.
func wizardError(err error) error {
	switch {
	case err == nil:
		return nil
	case wizard.IsValidation(err):
		return appErrors.Clone(appErrors.ErrWizardStep, err.Error())
	case errors.Is(err, wizard.ErrFirstStep), errors.Is(err, wizard.ErrLastStep),
		errors.Is(err, wizard.ErrSubmitInProgress), errors.Is(err, wizard.ErrNotOnReview),
		errors.Is(err, wizard.ErrCatalogLoading), errors.Is(err, wizard.ErrLocked):
		return appErrors.Clone(appErrors.ErrConflict, err.Error())
	case errors.Is(err, wizard.ErrUnknownModule):
		return appErrors.Clone(appErrors.ErrNotFound, err.Error())
	case errors.Is(err, wizard.ErrEmptyClassID):
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	default:
		return appErrors.FromError(err)
	}
}

// LocalModuleFetcher feeds wizard loads straight from the catalog service,
// skipping the HTTP round trip when both live in one process.
type LocalModuleFetcher struct {
	Catalog *CatalogService
}

// Modules implements the wizard loader's fetch.
func (f LocalModuleFetcher) Modules(ctx context.Context, classID string) ([]wizard.Module, error) {
	resp, _, err := f.Catalog.ModulesByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(resp.Error)
	}
	return client.ToWizardModules(resp.Modules), nil
}
