package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cimas-digital/matricula-api/internal/service"
	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
	"github.com/cimas-digital/matricula-api/pkg/response"
)

// CaseHandler exposes the enrollment case workflow.
type CaseHandler struct {
	cases   *service.CaseService
	exports *service.ExportService
	archive *service.ExportArchive
	metrics *service.MetricsService
}

// NewCaseHandler constructs CaseHandler. The archive is optional.
func NewCaseHandler(cases *service.CaseService, exports *service.ExportService, archive *service.ExportArchive, metrics *service.MetricsService) *CaseHandler {
	return &CaseHandler{cases: cases, exports: exports, archive: archive, metrics: metrics}
}

// Open godoc
// @Summary Open a new enrollment case draft
// @Tags EnrollmentCases
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /enrollment-cases [post]
func (h *CaseHandler) Open(c *gin.Context) {
	snapshot := h.cases.OpenCase()
	response.Created(c, snapshot)
}

// ResumeRequest identifies a persisted case to load into a session.
type ResumeRequest struct {
	CaseID string `json:"case_id" binding:"required"`
}

// Resume godoc
// @Summary Resume a persisted enrollment case
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param payload body ResumeRequest true "Case reference"
// @Success 201 {object} response.Envelope
// @Router /enrollment-cases/resume [post]
func (h *CaseHandler) Resume(c *gin.Context) {
	var req ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.ResumeCase(c.Request.Context(), req.CaseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snapshot)
}

// Snapshot godoc
// @Summary Get the live state of a case session
// @Tags EnrollmentCases
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id} [get]
func (h *CaseHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.cases.Snapshot(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Close godoc
// @Summary Discard a case session
// @Tags EnrollmentCases
// @Param id path string true "Session ID"
// @Success 204
// @Router /enrollment-cases/{id} [delete]
func (h *CaseHandler) Close(c *gin.Context) {
	h.cases.CloseCase(c.Param("id"))
	response.NoContent(c)
}

// UpdateFields godoc
// @Summary Patch case-level fields
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.UpdateCaseFieldsRequest true "Field patch"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id} [patch]
func (h *CaseHandler) UpdateFields(c *gin.Context) {
	var req service.UpdateCaseFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.UpdateCaseFields(c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// AddStudent godoc
// @Summary Add a student slot to the case
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.AddStudentRequest true "Student reference"
// @Success 201 {object} response.Envelope
// @Router /enrollment-cases/{id}/students [post]
func (h *CaseHandler) AddStudent(c *gin.Context) {
	var req service.AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	agreement, err := h.cases.AddStudent(c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, agreement)
}

// RemoveStudent godoc
// @Summary Remove a student slot from the case
// @Tags EnrollmentCases
// @Produce json
// @Param id path string true "Session ID"
// @Param slotId path string true "Student slot ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/students/{slotId} [delete]
func (h *CaseHandler) RemoveStudent(c *gin.Context) {
	snapshot, err := h.cases.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("slotId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SetClassroom godoc
// @Summary Select the classroom for a student slot
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param slotId path string true "Student slot ID"
// @Param payload body service.SetClassroomRequest true "Classroom selection"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/students/{slotId}/classroom [put]
func (h *CaseHandler) SetClassroom(c *gin.Context) {
	var req service.SetClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.SetClassroom(c.Param("id"), c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SetGeneralPension godoc
// @Summary Replace the flat monthly pension amount
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param slotId path string true "Student slot ID"
// @Param payload body service.SetGeneralPensionRequest true "Pension amount"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/students/{slotId}/pension [put]
func (h *CaseHandler) SetGeneralPension(c *gin.Context) {
	var req service.SetGeneralPensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.SetGeneralPension(c.Param("id"), c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SetStartMonth godoc
// @Summary Move the first billable month
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param slotId path string true "Student slot ID"
// @Param payload body service.SetStartMonthRequest true "Start month"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/students/{slotId}/start-month [put]
func (h *CaseHandler) SetStartMonth(c *gin.Context) {
	var req service.SetStartMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.SetStartMonth(c.Param("id"), c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SetMonthAmount godoc
// @Summary Price a single month in the custom editor
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param slotId path string true "Student slot ID"
// @Param payload body service.SetMonthAmountRequest true "Month amount"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/students/{slotId}/months [put]
func (h *CaseHandler) SetMonthAmount(c *gin.Context) {
	var req service.SetMonthAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.SetMonthAmount(c.Param("id"), c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SetPreviousSchool godoc
// @Summary Record the student's previous school
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param slotId path string true "Student slot ID"
// @Param payload body service.SetPreviousSchoolRequest true "Previous school"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/students/{slotId}/previous-school [put]
func (h *CaseHandler) SetPreviousSchool(c *gin.Context) {
	var req service.SetPreviousSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.SetPreviousSchool(c.Param("id"), c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SetFees godoc
// @Summary Patch enrollment/admission fee terms
// @Tags EnrollmentCases
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param slotId path string true "Student slot ID"
// @Param payload body service.SetFeesRequest true "Fee patch"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/students/{slotId}/fees [put]
func (h *CaseHandler) SetFees(c *gin.Context) {
	var req service.SetFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.cases.SetFees(c.Param("id"), c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SaveDraft godoc
// @Summary Persist the working draft
// @Tags EnrollmentCases
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/save [post]
func (h *CaseHandler) SaveDraft(c *gin.Context) {
	snapshot, err := h.cases.SaveDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Confirm godoc
// @Summary Confirm the enrollment case
// @Tags EnrollmentCases
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment-cases/{id}/confirm [post]
func (h *CaseHandler) Confirm(c *gin.Context) {
	summary, err := h.cases.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordConfirmation(*summary)
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export the case's pension schedule
// @Tags EnrollmentCases
// @Produce text/csv,application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /enrollment-cases/{id}/export [get]
func (h *CaseHandler) Export(c *gin.Context) {
	snapshot, err := h.cases.Snapshot(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	result, err := h.exports.RenderSchedule(snapshot, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	if result.DownloadToken != "" {
		c.Header("X-Download-Token", result.DownloadToken)
	}
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// DownloadExport godoc
// @Summary Download a previously archived export
// @Tags EnrollmentCases
// @Produce text/csv,application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} byte
// @Router /exports/download [get]
func (h *CaseHandler) DownloadExport(c *gin.Context) {
	if h.archive == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotImplemented, "export archive is not enabled"))
		return
	}
	file, name, err := h.archive.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.File(file.Name())
}
