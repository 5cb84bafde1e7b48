// Package wizard implements the four-step pre-contract selection flow:
// teacher, then class, then the class modules, then review and submission.
//
// A Wizard is a single owned state object. Its methods never block and it is
// not safe for concurrent use; the host (an HTTP session or a terminal event
// loop) serialises calls and performs module catalog fetches on its own,
// handing results back through CompleteLoad with the Ticket it was given.
package wizard

import "errors"

// Step is the wizard cursor, always within [StepTeacher, StepReview].
type Step int

const (
	StepTeacher Step = iota + 1
	StepClass
	StepModules
	StepReview
)

// Title names the step for indicators.
func (s Step) Title() string {
	switch s {
	case StepTeacher:
		return "Teacher"
	case StepClass:
		return "Class"
	case StepModules:
		return "Modules"
	case StepReview:
		return "Review"
	default:
		return ""
	}
}

// TeacherRef identifies the selected teacher.
type TeacherRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// ClassRef identifies the selected class.
type ClassRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Level       string `json:"level"`
	Track       string `json:"track"`
}

// Module is one entry of a class module catalog.
type Module struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	UnitName      string  `json:"unitName"`
	LectureHours  float64 `json:"lectureHours"`
	TutorialHours float64 `json:"tutorialHours"`
}

// Hours is the module's lecture plus tutorial volume.
func (m Module) Hours() float64 {
	return m.LectureHours + m.TutorialHours
}

// CatalogState is the module panel state; exactly one is visible at a time.
type CatalogState string

const (
	CatalogEmpty   CatalogState = "empty"
	CatalogLoading CatalogState = "loading"
	CatalogReady   CatalogState = "ready"
)

// NoticeLevel classifies a transient user message.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeDanger  NoticeLevel = "danger"
)

// Notice is a non-blocking message for the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Ticket tags a catalog request with the selection it was issued for.
type Ticket struct {
	Generation uint64 `json:"generation"`
	ClassID    string `json:"classId"`
}

var (
	ErrTeacherRequired  = errors.New("select a teacher")
	ErrClassRequired    = errors.New("select a class")
	ErrModulesRequired  = errors.New("select at least one module")
	ErrFirstStep        = errors.New("already at the first step")
	ErrLastStep         = errors.New("already at the last step")
	ErrUnknownModule    = errors.New("module is not in the loaded catalog")
	ErrEmptyClassID     = errors.New("class id is required")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrNotOnReview      = errors.New("submission is only possible from the review step")
	ErrCatalogLoading   = errors.New("module catalog is still loading")
	// ErrLocked rejects changes once a submission is in flight or accepted.
	ErrLocked = errors.New("selection is locked by the submission")
)

// IsValidation reports whether err is a missing-selection failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTeacherRequired) ||
		errors.Is(err, ErrClassRequired) ||
		errors.Is(err, ErrModulesRequired)
}
