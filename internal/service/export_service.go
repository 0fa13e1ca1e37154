package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/policy"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
	"github.com/noah-isme/integrity-report-api/pkg/export"
)

// ExportFormat enumerates the supported dump encodings.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatJSON ExportFormat = "json"
)

const exportUserPageSize = 100

type exportReportSource interface {
	ListAll(ctx context.Context) ([]models.Report, error)
}

type exportUserSource interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type exportNotificationSource interface {
	List(ctx context.Context, scope models.NotificationScope) ([]models.Notification, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered dump ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportDump is the JSON export document.
type ExportDump struct {
	Reports       []models.Report       `json:"reports"`
	Users         []models.User         `json:"users"`
	Notifications []models.Notification `json:"notifications"`
	ExportDate    time.Time             `json:"export_date"`
}

// ExportService renders report data as CSV, PDF or a full JSON dump.
type ExportService struct {
	reports       exportReportSource
	users         exportUserSource
	notifications exportNotificationSource
	csv           csvRenderer
	pdf           pdfRenderer
	audit         auditWriter
	logger        *zap.Logger
	now           func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the pkg/export implementations.
func NewExportService(reports exportReportSource, users exportUserSource, notifications exportNotificationSource, audit auditWriter, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		reports:       reports,
		users:         users,
		notifications: notifications,
		csv:           csv,
		pdf:           pdf,
		audit:         audit,
		logger:        logger,
		now:           time.Now,
	}
}

// ParseExportFormat accepts any casing; empty defaults to csv.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return ExportFormatCSV, true
	case ExportFormatCSV, ExportFormatPDF, ExportFormatJSON:
		return f, true
	}
	return "", false
}

// Export renders every report in the requested format.
func (s *ExportService) Export(ctx context.Context, actor *models.JWTClaims, format ExportFormat) (*ExportFile, error) {
	if !policy.CanExportData(actor) {
		return nil, permissionDenied("not allowed to export data")
	}
	parsed, ok := ParseExportFormat(string(format))
	if !ok {
		return nil, validationError("unsupported export format: " + string(format))
	}
	format = parsed

	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Store(err)
	}
	if reports == nil {
		reports = []models.Report{}
	}

	now := s.now().UTC()
	file := &ExportFile{Filename: fmt.Sprintf("integrity-reports-%s.%s", now.Format("2006-01-02"), format)}

	switch format {
	case ExportFormatCSV:
		file.ContentType = "text/csv"
		file.Data, err = s.csv.Render(reportDataset(reports))
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Data, err = s.pdf.Render(reportDataset(reports), "Academic Integrity Reports")
	case ExportFormatJSON:
		file.ContentType = "application/json"
		file.Data, err = s.renderDump(ctx, reports, now)
	}
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrStore.Code) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("data exported", zap.String("format", string(format)), zap.Int("reports", len(reports)))
	recordAudit(ctx, s.logger, s.audit, auditEntry(actor, models.AuditActionDataExport, "reports", "", nil,
		map[string]interface{}{"format": format, "reports": len(reports)}))
	return file, nil
}

func (s *ExportService) renderDump(ctx context.Context, reports []models.Report, now time.Time) ([]byte, error) {
	users, err := s.allUsers(ctx)
	if err != nil {
		return nil, err
	}
	notifications, err := s.notifications.List(ctx, models.NotificationScope{All: true})
	if err != nil {
		return nil, appErrors.Store(err)
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return json.MarshalIndent(ExportDump{
		Reports:       reports,
		Users:         users,
		Notifications: notifications,
		ExportDate:    now,
	}, "", "  ")
}

func (s *ExportService) allUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	for page := 1; ; page++ {
		batch, total, err := s.users.List(ctx, models.UserFilter{Page: page, PageSize: exportUserPageSize})
		if err != nil {
			return nil, appErrors.Store(err)
		}
		users = append(users, batch...)
		if len(batch) < exportUserPageSize || len(users) >= total {
			return users, nil
		}
	}
}

var reportExportHeaders = []string{
	"ID", "Student Name", "Student ID", "Course", "Exam", "Incident Date",
	"Incident Type", "Status", "Priority", "Reported By", "Assigned To", "Witnesses", "Created At",
}

func reportDataset(reports []models.Report) export.Dataset {
	rows := make([]map[string]string, 0, len(reports))
	for _, r := range reports {
		assigned := ""
		if r.AssignedTo != nil {
			assigned = *r.AssignedTo
		}
		rows = append(rows, map[string]string{
			"ID":            r.ID,
			"Student Name":  r.StudentName,
			"Student ID":    r.StudentID,
			"Course":        r.CourseCode,
			"Exam":          r.ExamName,
			"Incident Date": r.IncidentDate,
			"Incident Type": string(r.IncidentType),
			"Status":        string(r.Status),
			"Priority":      string(r.Priority),
			"Reported By":   r.ReportedBy,
			"Assigned To":   assigned,
			"Witnesses":     strconv.Itoa(len(r.Witnesses)),
			"Created At":    r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: reportExportHeaders, Rows: rows}
}
