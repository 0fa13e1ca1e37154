package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/policy"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
	"github.com/noah-isme/integrity-report-api/pkg/sanitize"
	"github.com/noah-isme/integrity-report-api/pkg/storage"
)

// Column widths of the attachment and assignment fields.
const (
	maxAttachmentNameLength = 255
	maxContentTypeLength    = 128
	maxAssigneeLength       = 255
)

type reportStore interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, updatedAt time.Time) error
	UpdatePriority(ctx context.Context, id string, priority models.ReportPriority, updatedAt time.Time) error
	UpdateAssignment(ctx context.Context, id string, assignee *string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	FindAttachment(ctx context.Context, reportID, attachmentID string) (*models.Attachment, error)
}

type notificationEmitter interface {
	Emit(ctx context.Context, n *models.Notification) error
}

type analyticsInvalidator interface {
	Invalidate(ctx context.Context)
}

type settingReader interface {
	Enabled(ctx context.Context, key string) bool
}

// AttachmentUpload is one evidence file received with a submission.
type AttachmentUpload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// AttachmentLink is a signed download reference for one attachment.
type AttachmentLink struct {
	Attachment models.Attachment
	Token      string
	ExpiresAt  time.Time
}

// ReportServiceConfig bounds attachment uploads.
type ReportServiceConfig struct {
	MaxFiles         int
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// ReportService owns the report lifecycle: submission, triage and removal.
type ReportService struct {
	repo      reportStore
	blobs     storage.Blob
	signer    *storage.SignedURLSigner
	notifier  notificationEmitter
	analytics analyticsInvalidator
	settings  settingReader
	metrics   *MetricsService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// ReportServiceDeps groups the collaborators of ReportService.
type ReportServiceDeps struct {
	Repo      reportStore
	Blobs     storage.Blob
	Signer    *storage.SignedURLSigner
	Notifier  notificationEmitter
	Analytics analyticsInvalidator
	Settings  settingReader
	Metrics   *MetricsService
	Audit     auditWriter
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(deps ReportServiceDeps, cfg ReportServiceConfig) *ReportService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	return &ReportService{
		repo:      deps.Repo,
		blobs:     deps.Blobs,
		signer:    deps.Signer,
		notifier:  deps.Notifier,
		analytics: deps.Analytics,
		settings:  deps.Settings,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		validator: deps.Validator,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create validates and persists a new report in PENDING state. Every
// validation and permission check completes before the first write.
func (s *ReportService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateReportRequest, uploads []AttachmentUpload) (*models.Report, error) {
	if !policy.CanCreateReport(actor) {
		return nil, permissionDenied("not allowed to create reports")
	}

	sanitize.Fields(&req.StudentName, &req.StudentID, &req.StudentClass, &req.CourseCode, &req.ExamName,
		&req.ExamCode, &req.IncidentDate, &req.IncidentTime, &req.ExamRoom, &req.IncidentType,
		&req.CheatingMethod, &req.Description, &req.InvigilatorName, &req.InvigilatorSignature, &req.Priority)

	if err := requireReportFields(req); err != nil {
		return nil, err
	}
	req.Witnesses = filterWitnesses(req.Witnesses)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	incidentType, ok := models.ParseIncidentType(req.IncidentType)
	if !ok {
		return nil, validationError("unknown incident_type: " + req.IncidentType)
	}
	priority := models.PriorityMedium
	if req.Priority != "" {
		if priority, ok = models.ParseReportPriority(req.Priority); !ok {
			return nil, validationError("unknown priority: " + req.Priority)
		}
	}

	if err := s.validateUploads(uploads); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	report := &models.Report{
		ID:                   uuid.NewString(),
		StudentName:          req.StudentName,
		StudentID:            req.StudentID,
		StudentClass:         strPtr(req.StudentClass),
		CourseCode:           req.CourseCode,
		ExamName:             req.ExamName,
		ExamCode:             req.ExamCode,
		IncidentDate:         req.IncidentDate,
		IncidentTime:         req.IncidentTime,
		ExamRoom:             req.ExamRoom,
		IncidentType:         incidentType,
		CheatingMethod:       req.CheatingMethod,
		Description:          req.Description,
		InvigilatorName:      req.InvigilatorName,
		InvigilatorSignature: strPtr(req.InvigilatorSignature),
		Priority:             priority,
		Status:               models.ReportStatusPending,
		ReportedBy:           actor.FullName,
		ReporterEmail:        actor.Email,
		ReporterID:           actor.UserID,
		CreatedAt:            now,
		UpdatedAt:            now,
		Witnesses:            req.Witnesses,
		Attachments:          []models.Attachment{},
	}

	uploaded, err := s.storeUploads(ctx, report.ID, uploads, now)
	if err != nil {
		return nil, err
	}
	report.Attachments = uploaded

	if err := s.repo.Create(ctx, report); err != nil {
		s.discardBlobs(ctx, uploaded)
		return nil, appErrors.Store(err)
	}

	s.metrics.RecordReportCreated()
	s.emit(ctx, &models.Notification{
		Type:     models.NotificationNewReport,
		Title:    "New Cheating Report",
		Message:  fmt.Sprintf("A new report has been submitted for %s in %s", report.StudentName, report.CourseCode),
		ReportID: &report.ID,
	})
	s.afterMutation(ctx, actor, models.AuditActionReportCreate, report.ID, nil, map[string]interface{}{
		"status":      report.Status,
		"priority":    report.Priority,
		"attachments": len(report.Attachments),
		"witnesses":   len(report.Witnesses),
	})

	return report, nil
}

// List returns a page of reports. Lecturers only ever see their own submissions.
func (s *ReportService) List(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) ([]models.Report, *models.Pagination, error) {
	switch {
	case policy.CanViewAllReports(actor):
	case policy.CanViewOwnReports(actor):
		filter.ReporterID = actor.UserID
	default:
		return nil, nil, permissionDenied("not allowed to view reports")
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	filter.Search = strings.TrimSpace(filter.Search)

	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one report the actor may see.
func (s *ReportService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Report, error) {
	if !policy.CanViewOwnReports(actor) {
		return nil, permissionDenied("not allowed to view reports")
	}
	report, err := s.findReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewAllReports(actor) && report.ReporterID != actor.UserID {
		return nil, permissionDenied("not allowed to view this report")
	}
	return report, nil
}

// UpdateStatus moves a report to any status. The reporter is notified.
func (s *ReportService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, status models.ReportStatus) (*models.Report, error) {
	if !policy.CanEditReportStatus(actor) {
		return nil, permissionDenied("not allowed to change report status")
	}
	normalized, ok := models.ParseReportStatus(string(status))
	if !ok {
		return nil, validationError("unknown status: " + string(status))
	}
	status = normalized

	report, err := s.findReport(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := report.Status
	touched := s.touch(report.UpdatedAt)
	if err := s.repo.UpdateStatus(ctx, id, status, touched); err != nil {
		return nil, lookupError(err, "report not found")
	}
	report.Status = status
	report.UpdatedAt = touched

	s.metrics.RecordStatusTransition(previous, status)
	if s.settings == nil || s.settings.Enabled(ctx, models.SettingStatusUpdateNotifications) {
		s.emit(ctx, &models.Notification{
			Type:        models.NotificationStatusUpdate,
			Title:       "Report Status Updated",
			Message:     fmt.Sprintf("Report for %s has been moved to %s", report.StudentName, status.Label()),
			ReportID:    &report.ID,
			RecipientID: strPtr(report.ReporterID),
		})
	}
	s.afterMutation(ctx, actor, models.AuditActionReportStatus, id,
		map[string]interface{}{"status": previous}, map[string]interface{}{"status": status})

	return report, nil
}

// UpdatePriority re-ranks a report.
func (s *ReportService) UpdatePriority(ctx context.Context, actor *models.JWTClaims, id string, priority models.ReportPriority) (*models.Report, error) {
	if !policy.CanEditReportStatus(actor) {
		return nil, permissionDenied("not allowed to change report priority")
	}
	normalized, ok := models.ParseReportPriority(string(priority))
	if !ok {
		return nil, validationError("unknown priority: " + string(priority))
	}
	priority = normalized

	report, err := s.findReport(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := report.Priority
	touched := s.touch(report.UpdatedAt)
	if err := s.repo.UpdatePriority(ctx, id, priority, touched); err != nil {
		return nil, lookupError(err, "report not found")
	}
	report.Priority = priority
	report.UpdatedAt = touched

	s.afterMutation(ctx, actor, models.AuditActionReportPriority, id,
		map[string]interface{}{"priority": previous}, map[string]interface{}{"priority": priority})
	return report, nil
}

// Assign sets the free-text assignee. An empty assignee clears it.
func (s *ReportService) Assign(ctx context.Context, actor *models.JWTClaims, id, assignee string) (*models.Report, error) {
	if !policy.CanEditReportStatus(actor) {
		return nil, permissionDenied("not allowed to assign reports")
	}
	assignee = sanitize.Text(assignee)
	if utf8.RuneCountInString(assignee) > maxAssigneeLength {
		return nil, validationError(fmt.Sprintf("assigned_to exceeds %d characters", maxAssigneeLength))
	}

	report, err := s.findReport(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := report.AssignedTo
	touched := s.touch(report.UpdatedAt)
	if err := s.repo.UpdateAssignment(ctx, id, strPtr(assignee), touched); err != nil {
		return nil, lookupError(err, "report not found")
	}
	report.AssignedTo = strPtr(assignee)
	report.UpdatedAt = touched

	message := fmt.Sprintf("Report for %s has been assigned to %s", report.StudentName, assignee)
	if assignee == "" {
		message = fmt.Sprintf("Report for %s is no longer assigned", report.StudentName)
	}
	s.emit(ctx, &models.Notification{
		Type:        models.NotificationAssignment,
		Title:       "Report Assigned",
		Message:     message,
		ReportID:    &report.ID,
		RecipientID: strPtr(report.ReporterID),
	})
	s.afterMutation(ctx, actor, models.AuditActionReportAssign, id,
		map[string]interface{}{"assigned_to": previous}, map[string]interface{}{"assigned_to": report.AssignedTo})
	return report, nil
}

// Delete removes a report with its witnesses, attachment rows and blobs.
func (s *ReportService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if !policy.CanDeleteReport(actor) {
		return permissionDenied("not allowed to delete reports")
	}

	report, err := s.findReport(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "report not found")
	}
	s.discardBlobs(ctx, report.Attachments)

	s.afterMutation(ctx, actor, models.AuditActionReportDelete, id,
		map[string]interface{}{"student_id": report.StudentID, "status": report.Status}, nil)
	return nil
}

// AttachmentDownloadURL issues a signed token for one attachment of a
// report the actor may read.
func (s *ReportService) AttachmentDownloadURL(ctx context.Context, actor *models.JWTClaims, reportID, attachmentID string) (*AttachmentLink, error) {
	if _, err := s.Get(ctx, actor, reportID); err != nil {
		return nil, err
	}
	att, err := s.findAttachment(ctx, reportID, attachmentID)
	if err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "attachment signing is not configured")
	}
	token, expiresAt, err := s.signer.Generate(att.ID, att.StorageKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attachment link")
	}
	return &AttachmentLink{Attachment: *att, Token: token, ExpiresAt: expiresAt}, nil
}

// OpenAttachment validates a download token and streams the blob. The caller
// closes the returned reader.
func (s *ReportService) OpenAttachment(ctx context.Context, actor *models.JWTClaims, reportID, attachmentID, token string) (*models.Attachment, io.ReadCloser, error) {
	if s.signer == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "attachment signing is not configured")
	}
	tokenID, key, _, err := s.signer.Parse(token)
	if err != nil || tokenID != attachmentID {
		return nil, nil, permissionDenied("invalid or expired download token")
	}
	if _, err := s.Get(ctx, actor, reportID); err != nil {
		return nil, nil, err
	}
	att, err := s.findAttachment(ctx, reportID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if att.StorageKey != key {
		return nil, nil, permissionDenied("invalid or expired download token")
	}

	rc, err := s.blobs.Open(ctx, att.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attachment content not found")
		}
		return nil, nil, appErrors.Store(err)
	}
	return att, rc, nil
}

func (s *ReportService) findReport(ctx context.Context, id string) (*models.Report, error) {
	if !isRowID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "report not found")
	}
	return report, nil
}

func (s *ReportService) findAttachment(ctx context.Context, reportID, attachmentID string) (*models.Attachment, error) {
	if !isRowID(attachmentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	att, err := s.repo.FindAttachment(ctx, reportID, attachmentID)
	if err != nil {
		return nil, lookupError(err, "attachment not found")
	}
	return att, nil
}

// touch returns now, or the instant right after previous when the clock has
// not advanced past it.
func (s *ReportService) touch(previous time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(previous) {
		return previous.Add(time.Microsecond).UTC()
	}
	return now
}

func (s *ReportService) validateUploads(uploads []AttachmentUpload) error {
	if len(uploads) > s.cfg.MaxFiles {
		return validationError(fmt.Sprintf("maximum %d files allowed, got %d", s.cfg.MaxFiles, len(uploads)))
	}
	for i, up := range uploads {
		name := attachmentName(up.Name, i)
		if up.Content == nil {
			return validationError(fmt.Sprintf("attachment %s has no content", name))
		}
		if utf8.RuneCountInString(name) > maxAttachmentNameLength {
			return validationError(fmt.Sprintf("attachment %d name exceeds %d characters", i+1, maxAttachmentNameLength))
		}
		if utf8.RuneCountInString(strings.TrimSpace(up.ContentType)) > maxContentTypeLength {
			return validationError(fmt.Sprintf("attachment %s content type exceeds %d characters", name, maxContentTypeLength))
		}
		if up.Size > s.cfg.MaxFileSizeBytes {
			return validationError(fmt.Sprintf("attachment %s exceeds the maximum size of %d MB", name, s.cfg.MaxFileSizeBytes/(1024*1024)))
		}
		if len(s.cfg.AllowedMIMEs) > 0 && !mimeAllowed(s.cfg.AllowedMIMEs, up.ContentType) {
			return validationError(fmt.Sprintf("attachment %s has unsupported content type %q", name, up.ContentType))
		}
	}
	return nil
}

func (s *ReportService) storeUploads(ctx context.Context, reportID string, uploads []AttachmentUpload, now time.Time) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(uploads))
	for i, up := range uploads {
		contentType := strings.TrimSpace(up.ContentType)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		att := models.Attachment{
			ID:          uuid.NewString(),
			ReportID:    reportID,
			Position:    i,
			Name:        attachmentName(up.Name, i),
			ContentType: contentType,
			SizeBytes:   up.Size,
			UploadedAt:  now,
		}
		key, err := s.blobs.Put(ctx, fmt.Sprintf("reports/%s/%s", reportID, att.ID), up.Content, contentType)
		if err != nil {
			s.discardBlobs(ctx, attachments)
			return nil, appErrors.Store(err)
		}
		att.StorageKey = key
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func (s *ReportService) discardBlobs(ctx context.Context, attachments []models.Attachment) {
	for _, att := range attachments {
		if att.StorageKey == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, att.StorageKey); err != nil {
			s.logger.Warn("failed to delete attachment blob", zap.String("key", att.StorageKey), zap.Error(err))
		}
	}
}

// emit delivers a notification after a committed mutation; failures are
// logged and never surface to the caller.
func (s *ReportService) emit(ctx context.Context, n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Emit(ctx, n); err != nil {
		s.logger.Warn("failed to emit notification", zap.String("type", string(n.Type)), zap.Error(err))
	}
}

func (s *ReportService) afterMutation(ctx context.Context, actor *models.JWTClaims, action, reportID string, oldValues, newValues interface{}) {
	if s.analytics != nil {
		s.analytics.Invalidate(ctx)
	}
	recordAudit(ctx, s.logger, s.audit, auditEntry(actor, action, "reports", reportID, oldValues, newValues))
}

func requireReportFields(req dto.CreateReportRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{"student_name", req.StudentName},
		{"student_id", req.StudentID},
		{"course_code", req.CourseCode},
		{"exam_name", req.ExamName},
		{"exam_code", req.ExamCode},
		{"incident_date", req.IncidentDate},
		{"incident_time", req.IncidentTime},
		{"exam_room", req.ExamRoom},
		{"incident_type", req.IncidentType},
		{"cheating_method", req.CheatingMethod},
		{"description", req.Description},
		{"invigilator_name", req.InvigilatorName},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return validationError(f.name + " is required")
		}
	}
	return nil
}

func filterWitnesses(in []models.Witness) []models.Witness {
	out := make([]models.Witness, 0, len(in))
	for _, w := range in {
		clean := models.Witness{Name: sanitize.Text(w.Name), RegistrationNumber: sanitize.Text(w.RegistrationNumber)}
		if clean.Blank() {
			continue
		}
		out = append(out, clean)
	}
	return out
}

func attachmentName(raw string, index int) string {
	name := filepath.Base(strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("attachment-%d", index+1)
	}
	return name
}

func mimeAllowed(allowed []string, contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	for _, a := range allowed {
		a = strings.ToLower(a)
		if a == contentType {
			return true
		}
		if strings.HasSuffix(a, "/*") && strings.HasPrefix(contentType, strings.TrimSuffix(a, "*")) {
			return true
		}
	}
	return false
}
