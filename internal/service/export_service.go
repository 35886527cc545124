package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
	"github.com/cimas-digital/matricula-api/pkg/export"
	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
)

// ExportFormat identifies a rendered export type.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered document ready to stream to the client.
// DownloadToken is set when an archive is attached: it re-fetches the stored
// copy without re-rendering.
type ExportResult struct {
	Content        []byte
	ContentType    string
	Filename       string
	DownloadToken  string
	TokenExpiresAt time.Time
}

// ExportService renders a case's pension schedule as a downloadable table,
// one row per student, one column per billable month. Not-charged months are
// rendered as "-".
type ExportService struct {
	csv     csvRenderer
	pdf     pdfRenderer
	archive *ExportArchive
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// AttachArchive enables on-disk archiving of every rendered export.
func (s *ExportService) AttachArchive(archive *ExportArchive) {
	s.archive = archive
}

// RenderSchedule renders the case snapshot's schedules in the given format.
func (s *ExportService) RenderSchedule(snapshot *CaseSnapshot, format ExportFormat) (*ExportResult, error) {
	if snapshot == nil || len(snapshot.Draft.Students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "case has no students to export")
	}

	dataset := scheduleDataset(&snapshot.Draft)
	name := snapshot.Draft.ID
	if name == "" {
		name = snapshot.SessionID
	}

	var result *ExportResult
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		result = &ExportResult{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("matricula-%s.csv", filenameSafe(name))}
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, "Cronograma de pensiones")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		result = &ExportResult{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("matricula-%s.pdf", filenameSafe(name))}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	if s.archive != nil {
		result.DownloadToken, result.TokenExpiresAt = s.archive.Archive(result)
	}
	return result, nil
}

func scheduleDataset(draft *models.EnrollmentCase) export.Dataset {
	headers := make([]string, 0, models.ScheduleMonths+2)
	headers = append(headers, "Estudiante", "Aula")
	headers = append(headers, models.MonthNames[:]...)

	rows := make([]map[string]string, 0, len(draft.Students))
	for i := range draft.Students {
		student := &draft.Students[i]
		row := map[string]string{
			"Estudiante": student.StudentID,
			"Aula":       student.ClassroomID,
		}
		schedule := NormalizeSchedule(student.PensionMonths, models.NotCharged)
		for monthIndex, amount := range schedule {
			value := "-"
			if amount != models.NotCharged {
				value = strconv.FormatFloat(amount, 'f', 2, 64)
			}
			row[models.MonthNames[monthIndex]] = value
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// filenameSafe strips characters that do not belong in a download name.
func filenameSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
