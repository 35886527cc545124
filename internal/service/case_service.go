package service

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
)

type draftStore interface {
	CreateDraft(ctx context.Context, draft *models.EnrollmentCase) error
	UpdateDraft(ctx context.Context, draft *models.EnrollmentCase) error
	FindDraft(ctx context.Context, id string) (*models.EnrollmentCase, error)
	ConfirmCase(ctx context.Context, id string) (*models.ConfirmationSummary, error)
	RemoveStudent(ctx context.Context, caseID, enrollmentStudentID string) error
}

// UpdateCaseFieldsRequest patches case-level fields. Nil fields are left
// untouched.
type UpdateCaseFieldsRequest struct {
	CycleID    *string `json:"cycle_id"`
	CampusCode *string `json:"campus_code"`
	FamilyID   *string `json:"family_id"`
}

// AddStudentRequest appends a student slot to the case.
type AddStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// SetClassroomRequest points a student slot at a classroom. An empty id
// clears the selection.
type SetClassroomRequest struct {
	ClassroomID string `json:"classroom_id"`
}

// SetGeneralPensionRequest replaces the flat monthly pension amount.
type SetGeneralPensionRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

// SetStartMonthRequest moves the student's first billable month.
type SetStartMonthRequest struct {
	StartMonthIndex int `json:"start_month_index" validate:"gte=0,lte=9"`
}

// SetMonthAmountRequest prices a single month in the custom editor.
type SetMonthAmountRequest struct {
	MonthIndex int     `json:"month_index" validate:"gte=0,lte=9"`
	Amount     float64 `json:"amount" validate:"gte=0"`
}

// SetPreviousSchoolRequest records where the student comes from.
type SetPreviousSchoolRequest struct {
	Type models.PreviousSchoolType `json:"type" validate:"required,oneof=CIMAS CIENCIAS CIENCIAS_APLICADAS OTHER"`
	Name string                    `json:"name"`
}

// SetFeesRequest patches enrollment/admission fee terms. Nil fields are left
// untouched.
type SetFeesRequest struct {
	EnrollmentFeeAmount *float64 `json:"enrollment_fee_amount" validate:"omitempty,gte=0"`
	EnrollmentFeeExempt *bool    `json:"enrollment_fee_exempt"`
	AdmissionFeeAmount  *float64 `json:"admission_fee_amount" validate:"omitempty,gte=0"`
	AdmissionFeeExempt  *bool    `json:"admission_fee_exempt"`
}

// CaseSnapshot is the read model handed to the API layer: the draft, the
// live capacity states, the validation result and the confirm gate.
type CaseSnapshot struct {
	SessionID  string                          `json:"session_id"`
	Draft      models.EnrollmentCase           `json:"draft"`
	Capacity   map[string]models.CapacityState `json:"capacity"`
	Validation models.ValidationResult         `json:"validation"`
	CanConfirm bool                            `json:"can_confirm"`
}

// caseSession owns the mutable working state of one enrollment case draft.
// All mutation goes through CaseService methods under the session mutex; the
// capacity tracker is the only concurrent writer and it owns its own state.
type caseSession struct {
	mu             sync.Mutex
	draft          models.EnrollmentCase
	tracker        *CapacityTracker
	savePending    bool
	confirmPending bool
}

// CaseService orchestrates enrollment case drafts: it owns the in-memory
// sessions and wires the schedule builder, the capacity tracker and the
// validator into the save/confirm workflow.
type CaseService struct {
	store         draftStore
	capacity      capacityProvider
	lookupTimeout time.Duration
	validator     *validator.Validate
	logger        *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*caseSession
}

// NewCaseService constructs CaseService.
func NewCaseService(store draftStore, capacity capacityProvider, lookupTimeout time.Duration, validate *validator.Validate, logger *zap.Logger) *CaseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseService{
		store:         store,
		capacity:      capacity,
		lookupTimeout: lookupTimeout,
		validator:     validate,
		logger:        logger,
		sessions:      make(map[string]*caseSession),
	}
}

// OpenCase starts a new empty draft session and returns its snapshot.
func (s *CaseService) OpenCase() *CaseSnapshot {
	session := &caseSession{
		draft:   models.EnrollmentCase{Status: models.CaseStatusDraft},
		tracker: NewCapacityTracker(s.capacity, s.lookupTimeout, s.logger),
	}
	sessionID := uuid.NewString()

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	session.mu.Lock()
	defer session.mu.Unlock()
	return s.snapshotLocked(sessionID, session)
}

// ResumeCase loads a persisted case into a new session, re-running the
// capacity lookup for every slot whose classroom is selected.
func (s *CaseService) ResumeCase(ctx context.Context, caseID string) (*CaseSnapshot, error) {
	draft, err := s.store.FindDraft(ctx, caseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment case")
	}
	session := &caseSession{
		draft:   *draft,
		tracker: NewCapacityTracker(s.capacity, s.lookupTimeout, s.logger),
	}
	sessionID := uuid.NewString()

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	session.mu.Lock()
	defer session.mu.Unlock()
	for i := range session.draft.Students {
		student := &session.draft.Students[i]
		if student.ClassroomID != "" {
			session.tracker.Refresh(student.LocalID, student.ClassroomID)
		}
	}
	return s.snapshotLocked(sessionID, session), nil
}

// CloseCase discards a session and its capacity state.
func (s *CaseService) CloseCase(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Snapshot returns the current read model for a session.
func (s *CaseService) Snapshot(sessionID string) (*CaseSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.snapshotLocked(sessionID, session), nil
}

// UpdateCaseFields patches cycle/campus/family on the draft.
func (s *CaseService) UpdateCaseFields(sessionID string, req UpdateCaseFieldsRequest) (*CaseSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	if req.CycleID != nil {
		session.draft.CycleID = strings.TrimSpace(*req.CycleID)
	}
	if req.CampusCode != nil {
		session.draft.CampusCode = strings.TrimSpace(*req.CampusCode)
	}
	if req.FamilyID != nil {
		session.draft.FamilyID = strings.TrimSpace(*req.FamilyID)
	}
	return s.snapshotLocked(sessionID, session), nil
}

// AddStudent appends a slot with the default agreement terms. Adding the
// same underlying student twice is rejected.
func (s *CaseService) AddStudent(sessionID string, req AddStudentRequest) (*models.StudentAgreement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid add-student payload")
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	if session.draft.HasStudent(req.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already added to this case")
	}
	agreement := models.StudentAgreement{
		LocalID:            uuid.NewString(),
		StudentID:          req.StudentID,
		PreviousSchoolType: models.SchoolTypeCimas,
		StartMonthIndex:    0,
		PensionGeneral:     0,
		PensionMonths:      BuildScheduleFromGeneralAmount(0, 0),
	}
	session.draft.Students = append(session.draft.Students, agreement)
	out := agreement
	out.PensionMonths = agreement.PensionMonths.Clone()
	return &out, nil
}

// RemoveStudent drops a slot and its capacity state. When both the case and
// the student are already persisted the removal is forwarded to the store;
// a purely local slot is removed silently with no network effect.
func (s *CaseService) RemoveStudent(ctx context.Context, sessionID, localID string) (*CaseSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	student := session.draft.StudentByLocalID(localID)
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student slot not found")
	}
	if student.EnrollmentStudentID != nil && session.draft.ID != "" {
		if err := s.store.RemoveStudent(ctx, session.draft.ID, *student.EnrollmentStudentID); err != nil {
			return nil, classifyStoreError(err, "failed to remove student from case")
		}
	}
	students := session.draft.Students[:0]
	for i := range session.draft.Students {
		if session.draft.Students[i].LocalID != localID {
			students = append(students, session.draft.Students[i])
		}
	}
	session.draft.Students = students
	session.tracker.Forget(localID)
	return s.snapshotLocked(sessionID, session), nil
}

// SetClassroom points a slot at a classroom and kicks off the capacity
// lookup for it.
func (s *CaseService) SetClassroom(sessionID, localID string, req SetClassroomRequest) (*CaseSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	student := session.draft.StudentByLocalID(localID)
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student slot not found")
	}
	student.ClassroomID = strings.TrimSpace(req.ClassroomID)
	session.tracker.Refresh(localID, student.ClassroomID)
	return s.snapshotLocked(sessionID, session), nil
}

// SetGeneralPension replaces the flat amount and regenerates the schedule
// from it, dropping any per-month customization.
func (s *CaseService) SetGeneralPension(sessionID, localID string, req SetGeneralPensionRequest) (*CaseSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pension payload")
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	student := session.draft.StudentByLocalID(localID)
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student slot not found")
	}
	student.PensionGeneral = req.Amount
	student.PensionMonths = BuildScheduleFromGeneralAmount(req.Amount, student.StartMonthIndex)
	student.PensionCustomized = false
	return s.snapshotLocked(sessionID, session), nil
}

// SetStartMonth moves the first billable month. A non-customized schedule is
// rebuilt from the general amount; a customized one only has its leading
// not-charged run re-derived, preserving user-entered amounts.
func (s *CaseService) SetStartMonth(sessionID, localID string, req SetStartMonthRequest) (*CaseSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start-month payload")
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	student := session.draft.StudentByLocalID(localID)
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student slot not found")
	}
	student.StartMonthIndex = clampStartIndex(req.StartMonthIndex)
	if student.PensionCustomized {
		student.PensionMonths = ApplyStartIndexToSchedule(student.PensionMonths, student.StartMonthIndex)
	} else {
		student.PensionMonths = BuildScheduleFromGeneralAmount(student.PensionGeneral, student.StartMonthIndex)
	}
	return s.snapshotLocked(sessionID, session), nil
}

// SetMonthAmount prices one month individually and marks the schedule
// customized. A not-charged month cannot be priced this way; move the start
// month first.
func (s *CaseService) SetMonthAmount(sessionID, localID string, req SetMonthAmountRequest) (*CaseSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid month-amount payload")
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	student := session.draft.StudentByLocalID(localID)
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student slot not found")
	}
	schedule := NormalizeSchedule(student.PensionMonths, models.NotCharged)
	if schedule[req.MonthIndex] == models.NotCharged {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "month is not billable for this student")
	}
	schedule[req.MonthIndex] = req.Amount
	student.PensionMonths = schedule
	student.PensionCustomized = true
	return s.snapshotLocked(sessionID, session), nil
}

// SetPreviousSchool records the student's previous school. Admission fee
// terms are cleared when the student comes from inside the network.
func (s *CaseService) SetPreviousSchool(sessionID, localID string, req SetPreviousSchoolRequest) (*CaseSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid previous-school payload")
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	student := session.draft.StudentByLocalID(localID)
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student slot not found")
	}
	student.PreviousSchoolType = req.Type
	student.PreviousSchoolName = strings.TrimSpace(req.Name)
	if req.Type != models.SchoolTypeOther {
		student.PreviousSchoolName = ""
		student.AdmissionFeeAmount = 0
		student.AdmissionFeeExempt = false
	}
	return s.snapshotLocked(sessionID, session), nil
}

// SetFees patches the fee terms for one student slot.
func (s *CaseService) SetFees(sessionID, localID string, req SetFeesRequest) (*CaseSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fees payload")
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	student := session.draft.StudentByLocalID(localID)
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student slot not found")
	}
	if req.EnrollmentFeeAmount != nil {
		student.EnrollmentFeeAmount = *req.EnrollmentFeeAmount
	}
	if req.EnrollmentFeeExempt != nil {
		student.EnrollmentFeeExempt = *req.EnrollmentFeeExempt
	}
	if req.AdmissionFeeAmount != nil {
		student.AdmissionFeeAmount = *req.AdmissionFeeAmount
	}
	if req.AdmissionFeeExempt != nil {
		student.AdmissionFeeExempt = *req.AdmissionFeeExempt
	}
	return s.snapshotLocked(sessionID, session), nil
}

// SaveDraft persists the working draft, creating it on first save and
// upserting afterwards. Safe to call repeatedly; only one save runs at a
// time per session.
func (s *CaseService) SaveDraft(ctx context.Context, sessionID string) (*CaseSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	if session.savePending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "draft save already in progress")
	}
	session.savePending = true
	defer func() { session.savePending = false }()

	if err := s.persistDraftLocked(ctx, session); err != nil {
		return nil, err
	}
	return s.snapshotLocked(sessionID, session), nil
}

// Confirm finalizes the case. It refuses while validation fails, while any
// capacity state is still loading or failed, or while another confirmation
// is in flight. A never-saved draft is persisted first so confirmation is
// always issued with a server-assigned id.
func (s *CaseService) Confirm(ctx context.Context, sessionID string) (*models.ConfirmationSummary, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := mutableLocked(session); err != nil {
		return nil, err
	}
	if session.confirmPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "confirmation already in progress")
	}
	validation := ValidateCase(&session.draft, session.tracker.Snapshot())
	if !validation.IsValid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, validation.BlockingReason)
	}
	if session.tracker.AnyPendingOrFailed() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, MsgCapacityLoading)
	}
	session.confirmPending = true
	defer func() { session.confirmPending = false }()

	if session.draft.ID == "" {
		if err := s.persistDraftLocked(ctx, session); err != nil {
			return nil, err
		}
	}
	summary, err := s.store.ConfirmCase(ctx, session.draft.ID)
	if err != nil {
		return nil, classifyStoreError(err, "failed to confirm enrollment case")
	}
	now := time.Now().UTC()
	session.draft.Status = models.CaseStatusConfirmed
	session.draft.ConfirmedAt = &now
	s.logger.Info("enrollment case confirmed",
		zap.String("case_id", session.draft.ID),
		zap.Int("students", summary.StudentsConfirmed),
		zap.Int("charges", summary.ChargesCreated))
	return summary, nil
}

// persistDraftLocked normalizes every schedule and upserts the draft,
// capturing server-assigned ids back into the session.
func (s *CaseService) persistDraftLocked(ctx context.Context, session *caseSession) error {
	for i := range session.draft.Students {
		session.draft.Students[i].PensionMonths = NormalizeSchedule(session.draft.Students[i].PensionMonths, models.NotCharged)
	}
	if session.draft.ID == "" {
		if err := s.store.CreateDraft(ctx, &session.draft); err != nil {
			return classifyStoreError(err, "failed to create enrollment draft")
		}
		return nil
	}
	if err := s.store.UpdateDraft(ctx, &session.draft); err != nil {
		return classifyStoreError(err, "failed to update enrollment draft")
	}
	return nil
}

func (s *CaseService) session(sessionID string) (*caseSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment case session not found")
	}
	return session, nil
}

func (s *CaseService) snapshotLocked(sessionID string, session *caseSession) *CaseSnapshot {
	capacity := session.tracker.Snapshot()
	validation := ValidateCase(&session.draft, capacity)
	return &CaseSnapshot{
		SessionID:  sessionID,
		Draft:      session.draft.Clone(),
		Capacity:   capacity,
		Validation: validation,
		CanConfirm: validation.IsValid && !session.tracker.AnyPendingOrFailed() && !session.confirmPending && session.draft.Status == models.CaseStatusDraft,
	}
}

// mutableLocked rejects mutation of a finalized case.
func mutableLocked(session *caseSession) error {
	if session.draft.Status == models.CaseStatusConfirmed {
		return appErrors.Clone(appErrors.ErrFinalized, "enrollment case already confirmed")
	}
	return nil
}

// classifyStoreError distinguishes "the backend does not implement this yet"
// from genuine failures so the UI can report the former softly.
func classifyStoreError(err error, message string) error {
	appErr := appErrors.FromError(err)
	if appErr.Status == http.StatusNotFound || appErr.Status == http.StatusNotImplemented {
		return appErrors.Clone(appErrors.ErrNotImplemented, "this step is not available on the server yet")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
