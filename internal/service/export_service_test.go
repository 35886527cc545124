package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
)

func exportSnapshot() *CaseSnapshot {
	return &CaseSnapshot{
		SessionID: "sess-1",
		Draft: models.EnrollmentCase{
			ID:         "case 1/x",
			CycleID:    "2026",
			CampusCode: "SUR",
			FamilyID:   "f1",
			Students: []models.StudentAgreement{{
				LocalID:       "slot-1",
				StudentID:     "s1",
				ClassroomID:   "c1",
				PensionMonths: models.MonthlySchedule{-1, -1, 120, 120, 120, 120, 120, 120, 120, 120},
			}},
		},
	}
}

func TestExportServiceRenderCSV(t *testing.T) {
	svc := NewExportService(nil, nil, zap.NewNop())

	result, err := svc.RenderSchedule(exportSnapshot(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "matricula-case-1-x.csv", result.Filename)

	content := string(result.Content)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Estudiante,Aula,Marzo"))
	// Not-charged months render as a dash, billable ones with two decimals.
	assert.Equal(t, "s1,c1,-,-,120.00,120.00,120.00,120.00,120.00,120.00,120.00,120.00", lines[1])
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc := NewExportService(nil, nil, zap.NewNop())

	result, err := svc.RenderSchedule(exportSnapshot(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "matricula-case-1-x.pdf", result.Filename)
	assert.NotEmpty(t, result.Content)
}

func TestExportServiceRejectsEmptyCase(t *testing.T) {
	svc := NewExportService(nil, nil, zap.NewNop())
	snap := exportSnapshot()
	snap.Draft.Students = nil

	_, err := svc.RenderSchedule(snap, ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(nil, nil, zap.NewNop())

	_, err := svc.RenderSchedule(exportSnapshot(), ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceFallsBackToSessionID(t *testing.T) {
	svc := NewExportService(nil, nil, zap.NewNop())
	snap := exportSnapshot()
	snap.Draft.ID = ""

	result, err := svc.RenderSchedule(snap, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "matricula-sess-1.csv", result.Filename)
}
