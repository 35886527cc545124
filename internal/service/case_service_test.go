package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
)

type mockDraftStore struct {
	mu           sync.Mutex
	created      *models.EnrollmentCase
	createErr    error
	updateCalls  int
	updateErr    error
	drafts       map[string]*models.EnrollmentCase
	confirmCalls []string
	confirmErr   error
	summary      *models.ConfirmationSummary
	removeCalls  [][2]string
	removeErr    error
}

func (m *mockDraftStore) CreateDraft(ctx context.Context, draft *models.EnrollmentCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	draft.ID = "case-1"
	for i := range draft.Students {
		id := "es-" + draft.Students[i].StudentID
		draft.Students[i].EnrollmentStudentID = &id
	}
	clone := draft.Clone()
	m.created = &clone
	return nil
}

func (m *mockDraftStore) UpdateDraft(ctx context.Context, draft *models.EnrollmentCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	return m.updateErr
}

func (m *mockDraftStore) FindDraft(ctx context.Context, id string) (*models.EnrollmentCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if draft, ok := m.drafts[id]; ok {
		clone := draft.Clone()
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDraftStore) ConfirmCase(ctx context.Context, id string) (*models.ConfirmationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmCalls = append(m.confirmCalls, id)
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.ConfirmationSummary{StudentsConfirmed: 1, ChargesCreated: 10}, nil
}

func (m *mockDraftStore) RemoveStudent(ctx context.Context, caseID, enrollmentStudentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalls = append(m.removeCalls, [2]string{caseID, enrollmentStudentID})
	return m.removeErr
}

// stubProvider resolves capacity lookups immediately.
type stubProvider struct {
	mu        sync.Mutex
	available map[string]int
	errs      map[string]error
}

func (p *stubProvider) ClassroomCapacity(ctx context.Context, classroomID string) (*models.ClassroomCapacity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.errs[classroomID]; err != nil {
		return nil, err
	}
	return &models.ClassroomCapacity{ClassroomID: classroomID, Available: p.available[classroomID]}, nil
}

func strPtr(s string) *string { return &s }

func newCaseService(store draftStore, provider capacityProvider) *CaseService {
	return NewCaseService(store, provider, time.Second, nil, zap.NewNop())
}

// filledSession opens a session, fills the case-level fields, adds one
// student with a classroom and a general pension, and waits for the capacity
// lookup to settle.
func filledSession(t *testing.T, svc *CaseService) (sessionID, localID string) {
	t.Helper()
	snap := svc.OpenCase()
	sessionID = snap.SessionID

	_, err := svc.UpdateCaseFields(sessionID, UpdateCaseFieldsRequest{
		CycleID:    strPtr("2026"),
		CampusCode: strPtr("SUR"),
		FamilyID:   strPtr("f1"),
	})
	require.NoError(t, err)

	agreement, err := svc.AddStudent(sessionID, AddStudentRequest{StudentID: "s1"})
	require.NoError(t, err)
	localID = agreement.LocalID

	_, err = svc.SetClassroom(sessionID, localID, SetClassroomRequest{ClassroomID: "c1"})
	require.NoError(t, err)
	_, err = svc.SetGeneralPension(sessionID, localID, SetGeneralPensionRequest{Amount: 120})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := svc.Snapshot(sessionID)
		return err == nil && snap.Capacity[localID].Available != nil
	}, time.Second, 5*time.Millisecond)
	return sessionID, localID
}

func TestCaseServiceOpenCase(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{})
	snap := svc.OpenCase()

	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, models.CaseStatusDraft, snap.Draft.Status)
	assert.Empty(t, snap.Draft.ID)
	assert.False(t, snap.CanConfirm)
	assert.False(t, snap.Validation.IsValid)
}

func TestCaseServiceAddStudentDefaults(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{})
	snap := svc.OpenCase()

	agreement, err := svc.AddStudent(snap.SessionID, AddStudentRequest{StudentID: "s1"})
	require.NoError(t, err)
	assert.NotEmpty(t, agreement.LocalID)
	assert.Equal(t, models.SchoolTypeCimas, agreement.PreviousSchoolType)
	assert.Equal(t, 0, agreement.StartMonthIndex)
	assert.False(t, agreement.PensionCustomized)
	require.Len(t, agreement.PensionMonths, models.ScheduleMonths)
	for _, v := range agreement.PensionMonths {
		assert.Equal(t, 0.0, v)
	}
}

func TestCaseServiceAddStudentRejectsDuplicate(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{})
	snap := svc.OpenCase()

	_, err := svc.AddStudent(snap.SessionID, AddStudentRequest{StudentID: "s1"})
	require.NoError(t, err)
	_, err = svc.AddStudent(snap.SessionID, AddStudentRequest{StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceRemoveLocalStudentSkipsStore(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, localID := filledSession(t, svc)

	snap, err := svc.RemoveStudent(context.Background(), sessionID, localID)
	require.NoError(t, err)
	assert.Empty(t, snap.Draft.Students)
	assert.Empty(t, store.removeCalls)
	assert.NotContains(t, snap.Capacity, localID)
}

func TestCaseServiceRemovePersistedStudentForwardsToStore(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, localID := filledSession(t, svc)

	_, err := svc.SaveDraft(context.Background(), sessionID)
	require.NoError(t, err)

	_, err = svc.RemoveStudent(context.Background(), sessionID, localID)
	require.NoError(t, err)
	require.Len(t, store.removeCalls, 1)
	assert.Equal(t, [2]string{"case-1", "es-s1"}, store.removeCalls[0])
}

func TestCaseServiceSetGeneralPensionRebuildsSchedule(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, localID := filledSession(t, svc)

	_, err := svc.SetStartMonth(sessionID, localID, SetStartMonthRequest{StartMonthIndex: 3})
	require.NoError(t, err)
	snap, err := svc.SetGeneralPension(sessionID, localID, SetGeneralPensionRequest{Amount: 200})
	require.NoError(t, err)

	student := snap.Draft.StudentByLocalID(localID)
	require.NotNil(t, student)
	assert.False(t, student.PensionCustomized)
	assert.Equal(t, models.MonthlySchedule{-1, -1, -1, 200, 200, 200, 200, 200, 200, 200}, student.PensionMonths)
}

func TestCaseServiceSetStartMonthPreservesCustomizedAmounts(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, localID := filledSession(t, svc)

	_, err := svc.SetMonthAmount(sessionID, localID, SetMonthAmountRequest{MonthIndex: 5, Amount: 175})
	require.NoError(t, err)
	snap, err := svc.SetStartMonth(sessionID, localID, SetStartMonthRequest{StartMonthIndex: 3})
	require.NoError(t, err)

	student := snap.Draft.StudentByLocalID(localID)
	require.NotNil(t, student)
	assert.True(t, student.PensionCustomized)
	assert.Equal(t, models.MonthlySchedule{-1, -1, -1, 120, 120, 175, 120, 120, 120, 120}, student.PensionMonths)
}

func TestCaseServiceSetMonthAmountRejectsNotChargedMonth(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, localID := filledSession(t, svc)

	_, err := svc.SetStartMonth(sessionID, localID, SetStartMonthRequest{StartMonthIndex: 4})
	require.NoError(t, err)

	_, err = svc.SetMonthAmount(sessionID, localID, SetMonthAmountRequest{MonthIndex: 2, Amount: 90})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceSetPreviousSchoolClearsAdmissionTerms(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, localID := filledSession(t, svc)

	_, err := svc.SetPreviousSchool(sessionID, localID, SetPreviousSchoolRequest{Type: models.SchoolTypeOther, Name: "San Marcos"})
	require.NoError(t, err)
	fee := 500.0
	_, err = svc.SetFees(sessionID, localID, SetFeesRequest{AdmissionFeeAmount: &fee})
	require.NoError(t, err)

	snap, err := svc.SetPreviousSchool(sessionID, localID, SetPreviousSchoolRequest{Type: models.SchoolTypeCiencias})
	require.NoError(t, err)
	student := snap.Draft.StudentByLocalID(localID)
	require.NotNil(t, student)
	assert.Empty(t, student.PreviousSchoolName)
	assert.Zero(t, student.AdmissionFeeAmount)
	assert.False(t, student.AdmissionFeeExempt)
}

func TestCaseServiceSaveDraftCreatesThenUpdates(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, _ := filledSession(t, svc)

	snap, err := svc.SaveDraft(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, "case-1", snap.Draft.ID)
	require.NotNil(t, store.created)
	assert.Zero(t, store.updateCalls)

	_, err = svc.SaveDraft(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.updateCalls)
}

func TestCaseServiceConfirmPersistsUnsavedDraftFirst(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, _ := filledSession(t, svc)

	summary, err := svc.Confirm(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.StudentsConfirmed)
	assert.Equal(t, 10, summary.ChargesCreated)

	// Confirmation is never issued without a server-assigned id.
	require.NotNil(t, store.created)
	assert.Equal(t, []string{"case-1"}, store.confirmCalls)

	snap, err := svc.Snapshot(sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusConfirmed, snap.Draft.Status)
	assert.NotNil(t, snap.Draft.ConfirmedAt)
	assert.False(t, snap.CanConfirm)
}

func TestCaseServiceConfirmedCaseRejectsMutation(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, localID := filledSession(t, svc)

	_, err := svc.Confirm(context.Background(), sessionID)
	require.NoError(t, err)

	_, err = svc.SetGeneralPension(sessionID, localID, SetGeneralPensionRequest{Amount: 300})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)

	_, err = svc.Confirm(context.Background(), sessionID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceConfirmBlockedWhileInvalid(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, _ := filledSession(t, svc)

	_, err := svc.UpdateCaseFields(sessionID, UpdateCaseFieldsRequest{FamilyID: strPtr("")})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), sessionID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, MsgFamilyRequired, appErr.Message)
	assert.Empty(t, store.confirmCalls)
}

func TestCaseServiceConfirmBlockedWhileCapacityPending(t *testing.T) {
	store := &mockDraftStore{}
	provider := newBlockingProvider()
	provider.expect("c1", 5, nil) // never released
	svc := newCaseService(store, provider)

	snap := svc.OpenCase()
	sessionID := snap.SessionID
	_, err := svc.UpdateCaseFields(sessionID, UpdateCaseFieldsRequest{
		CycleID:    strPtr("2026"),
		CampusCode: strPtr("SUR"),
		FamilyID:   strPtr("f1"),
	})
	require.NoError(t, err)
	agreement, err := svc.AddStudent(sessionID, AddStudentRequest{StudentID: "s1"})
	require.NoError(t, err)
	_, err = svc.SetClassroom(sessionID, agreement.LocalID, SetClassroomRequest{ClassroomID: "c1"})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), sessionID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, MsgCapacityLoading, appErr.Message)
	assert.Empty(t, store.confirmCalls)
}

func TestCaseServiceConfirmBlockedWithNoSeats(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 0}})
	sessionID, _ := filledSession(t, svc)

	_, err := svc.Confirm(context.Background(), sessionID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, MsgNoSeats, appErr.Message)
}

func TestCaseServiceResumeCase(t *testing.T) {
	id := "es-s1"
	store := &mockDraftStore{drafts: map[string]*models.EnrollmentCase{
		"case-1": {
			ID:         "case-1",
			CycleID:    "2026",
			CampusCode: "SUR",
			FamilyID:   "f1",
			Status:     models.CaseStatusDraft,
			Students: []models.StudentAgreement{{
				LocalID:             "slot-1",
				EnrollmentStudentID: &id,
				StudentID:           "s1",
				ClassroomID:         "c1",
				PreviousSchoolType:  models.SchoolTypeCimas,
				PensionMonths:       BuildScheduleFromGeneralAmount(120, 0),
			}},
		},
	}}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})

	snap, err := svc.ResumeCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, "case-1", snap.Draft.ID)

	// The capacity lookup restarted for the persisted slot.
	require.Eventually(t, func() bool {
		s, err := svc.Snapshot(snap.SessionID)
		return err == nil && s.Capacity["slot-1"].Available != nil
	}, time.Second, 5*time.Millisecond)
}

func TestCaseServiceResumeCaseNotFound(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{})

	_, err := svc.ResumeCase(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceSnapshotUnknownSession(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{})
	_, err := svc.Snapshot("nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceCloseCaseDropsSession(t *testing.T) {
	svc := newCaseService(&mockDraftStore{}, &stubProvider{})
	snap := svc.OpenCase()
	svc.CloseCase(snap.SessionID)

	_, err := svc.Snapshot(snap.SessionID)
	require.Error(t, err)
}

func TestCaseServiceSaveDraftSoftensUnimplementedBackend(t *testing.T) {
	store := &mockDraftStore{createErr: appErrors.Clone(appErrors.ErrNotFound, "no such route")}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, _ := filledSession(t, svc)

	_, err := svc.SaveDraft(context.Background(), sessionID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotImplemented.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceSaveDraftNormalizesSchedules(t *testing.T) {
	store := &mockDraftStore{}
	svc := newCaseService(store, &stubProvider{available: map[string]int{"c1": 5}})
	sessionID, _ := filledSession(t, svc)

	_, err := svc.SaveDraft(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, store.created)
	for _, student := range store.created.Students {
		assert.Len(t, student.PensionMonths, models.ScheduleMonths)
	}
}
