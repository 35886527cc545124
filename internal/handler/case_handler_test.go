package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
	"github.com/cimas-digital/matricula-api/internal/service"
)

type caseStoreStub struct {
	created bool
}

func (s *caseStoreStub) CreateDraft(ctx context.Context, draft *models.EnrollmentCase) error {
	draft.ID = "case-1"
	for i := range draft.Students {
		id := "es-" + draft.Students[i].StudentID
		draft.Students[i].EnrollmentStudentID = &id
	}
	s.created = true
	return nil
}

func (s *caseStoreStub) UpdateDraft(ctx context.Context, draft *models.EnrollmentCase) error {
	return nil
}

func (s *caseStoreStub) FindDraft(ctx context.Context, id string) (*models.EnrollmentCase, error) {
	return nil, sql.ErrNoRows
}

func (s *caseStoreStub) ConfirmCase(ctx context.Context, id string) (*models.ConfirmationSummary, error) {
	return &models.ConfirmationSummary{StudentsConfirmed: 1, ChargesCreated: 8}, nil
}

func (s *caseStoreStub) RemoveStudent(ctx context.Context, caseID, enrollmentStudentID string) error {
	return nil
}

type capacityStub struct{}

func (c *capacityStub) ClassroomCapacity(ctx context.Context, classroomID string) (*models.ClassroomCapacity, error) {
	return &models.ClassroomCapacity{ClassroomID: classroomID, Available: 5}, nil
}

func newCaseRouter(t *testing.T) (*gin.Engine, *service.CaseService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	caseSvc := service.NewCaseService(&caseStoreStub{}, &capacityStub{}, time.Second, nil, zap.NewNop())
	exportSvc := service.NewExportService(nil, nil, zap.NewNop())
	h := NewCaseHandler(caseSvc, exportSvc, nil, nil)

	r := gin.New()
	cases := r.Group("/enrollment-cases")
	cases.POST("", h.Open)
	cases.POST("/resume", h.Resume)
	cases.GET("/:id", h.Snapshot)
	cases.PATCH("/:id", h.UpdateFields)
	cases.POST("/:id/students", h.AddStudent)
	cases.POST("/:id/confirm", h.Confirm)
	cases.GET("/:id/export", h.Export)
	return r, caseSvc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func openSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/enrollment-cases", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.SessionID)
	return envelope.Data.SessionID
}

func TestCaseHandlerOpenAndSnapshot(t *testing.T) {
	r, _ := newCaseRouter(t)
	sessionID := openSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/enrollment-cases/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data struct {
			Draft      models.EnrollmentCase `json:"draft"`
			CanConfirm bool                  `json:"can_confirm"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.CaseStatusDraft, envelope.Data.Draft.Status)
	assert.False(t, envelope.Data.CanConfirm)
}

func TestCaseHandlerSnapshotUnknownSession(t *testing.T) {
	r, _ := newCaseRouter(t)
	w := doJSON(t, r, http.MethodGet, "/enrollment-cases/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaseHandlerAddStudent(t *testing.T) {
	r, _ := newCaseRouter(t)
	sessionID := openSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/enrollment-cases/"+sessionID+"/students", gin.H{"student_id": "s1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data models.StudentAgreement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.LocalID)
	assert.Len(t, envelope.Data.PensionMonths, models.ScheduleMonths)
}

func TestCaseHandlerAddStudentInvalidBody(t *testing.T) {
	r, _ := newCaseRouter(t)
	sessionID := openSession(t, r)

	req, err := http.NewRequest(http.MethodPost, "/enrollment-cases/"+sessionID+"/students", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaseHandlerResumeMissingCase(t *testing.T) {
	r, _ := newCaseRouter(t)
	w := doJSON(t, r, http.MethodPost, "/enrollment-cases/resume", gin.H{"case_id": "missing"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaseHandlerConfirmBlockedOnEmptyCase(t *testing.T) {
	r, _ := newCaseRouter(t)
	sessionID := openSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/enrollment-cases/"+sessionID+"/confirm", nil)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "PRECONDITION_FAILED", envelope.Error.Code)
	assert.Equal(t, service.MsgCycleRequired, envelope.Error.Message)
}

func TestCaseHandlerExportCSV(t *testing.T) {
	r, _ := newCaseRouter(t)
	sessionID := openSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/enrollment-cases/"+sessionID+"/students", gin.H{"student_id": "s1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/enrollment-cases/"+sessionID+"/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "Estudiante")
}

func TestCaseHandlerExportUnknownFormat(t *testing.T) {
	r, _ := newCaseRouter(t)
	sessionID := openSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/enrollment-cases/"+sessionID+"/students", gin.H{"student_id": "s1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/enrollment-cases/"+sessionID+"/export?format=xlsx", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
