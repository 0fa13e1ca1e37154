package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
	"github.com/noah-isme/integrity-report-api/pkg/storage"
)

type memoryReportStore struct {
	reports   map[string]*models.Report
	calls     int
	createErr error
	updateErr error
	lastList  models.ReportFilter
}

func newMemoryReportStore() *memoryReportStore {
	return &memoryReportStore{reports: map[string]*models.Report{}}
}

func (m *memoryReportStore) Create(ctx context.Context, report *models.Report) error {
	m.calls++
	if m.createErr != nil {
		return m.createErr
	}
	stored := *report
	m.reports[report.ID] = &stored
	return nil
}

func (m *memoryReportStore) FindByID(ctx context.Context, id string) (*models.Report, error) {
	m.calls++
	r, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := *r
	return &found, nil
}

func (m *memoryReportStore) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	m.calls++
	m.lastList = filter
	var out []models.Report
	for _, r := range m.reports {
		if filter.ReporterID != "" && r.ReporterID != filter.ReporterID {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *memoryReportStore) mutate(id string, fn func(r *models.Report)) error {
	m.calls++
	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.reports[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(r)
	return nil
}

func (m *memoryReportStore) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, updatedAt time.Time) error {
	return m.mutate(id, func(r *models.Report) { r.Status, r.UpdatedAt = status, updatedAt })
}

func (m *memoryReportStore) UpdatePriority(ctx context.Context, id string, priority models.ReportPriority, updatedAt time.Time) error {
	return m.mutate(id, func(r *models.Report) { r.Priority, r.UpdatedAt = priority, updatedAt })
}

func (m *memoryReportStore) UpdateAssignment(ctx context.Context, id string, assignee *string, updatedAt time.Time) error {
	return m.mutate(id, func(r *models.Report) { r.AssignedTo, r.UpdatedAt = assignee, updatedAt })
}

func (m *memoryReportStore) Delete(ctx context.Context, id string) error {
	m.calls++
	if _, ok := m.reports[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.reports, id)
	return nil
}

func (m *memoryReportStore) FindAttachment(ctx context.Context, reportID, attachmentID string) (*models.Attachment, error) {
	r, ok := m.reports[reportID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for _, att := range r.Attachments {
		if att.ID == attachmentID {
			found := att
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memoryBlob struct {
	objects map[string][]byte
	putErr  error
	puts    int
}

func (b *memoryBlob) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	b.puts++
	if b.putErr != nil {
		return "", b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	return key, nil
}

func (b *memoryBlob) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memoryBlob) Delete(ctx context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

type recordingEmitter struct {
	sent []models.Notification
	err  error
}

func (e *recordingEmitter) Emit(ctx context.Context, n *models.Notification) error {
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, *n)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) { c.calls++ }

type reportFixture struct {
	svc       *ReportService
	store     *memoryReportStore
	blobs     *memoryBlob
	emitter   *recordingEmitter
	analytics *countingInvalidator
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	f := &reportFixture{
		store:     newMemoryReportStore(),
		blobs:     &memoryBlob{},
		emitter:   &recordingEmitter{},
		analytics: &countingInvalidator{},
	}
	f.svc = NewReportService(ReportServiceDeps{
		Repo:      f.store,
		Blobs:     f.blobs,
		Signer:    storage.NewSignedURLSigner("test-secret", time.Minute),
		Notifier:  f.emitter,
		Analytics: f.analytics,
		Metrics:   NewMetricsService(),
		Audit:     &recordingAudit{},
		Logger:    zap.NewNop(),
	}, ReportServiceConfig{MaxFiles: 5, MaxFileSizeBytes: 10 * 1024 * 1024})
	return f
}

func validReportRequest() dto.CreateReportRequest {
	return dto.CreateReportRequest{
		StudentName:     "Jane Doe",
		StudentID:       "S-1001",
		CourseCode:      "CS101",
		ExamName:        "Midterm",
		ExamCode:        "MT-01",
		IncidentDate:    "2024-05-01",
		IncidentTime:    "09:30",
		ExamRoom:        "Hall A",
		IncidentType:    "Exam Cheating",
		CheatingMethod:  "phone",
		Description:     "Used a phone during the exam",
		InvigilatorName: "Dr. Smith",
	}
}

func upload(name string, size int) AttachmentUpload {
	return AttachmentUpload{Name: name, ContentType: "image/png", Size: int64(size), Content: strings.NewReader(strings.Repeat("x", size))}
}

func TestReportCreateDefaults(t *testing.T) {
	f := newReportFixture(t)

	report, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), []AttachmentUpload{upload("evidence.png", 16)})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.Equal(t, models.PriorityMedium, report.Priority)
	assert.Equal(t, models.IncidentExamCheating, report.IncidentType)
	assert.Equal(t, lecturerActor.FullName, report.ReportedBy)
	assert.Equal(t, lecturerActor.Email, report.ReporterEmail)
	assert.Equal(t, lecturerActor.UserID, report.ReporterID)
	assert.Equal(t, report.CreatedAt, report.UpdatedAt)
	require.Len(t, report.Attachments, 1)
	assert.Equal(t, "evidence.png", report.Attachments[0].Name)
	assert.Equal(t, int64(16), report.Attachments[0].SizeBytes)
	assert.Contains(t, f.blobs.objects, report.Attachments[0].StorageKey)

	require.Len(t, f.emitter.sent, 1)
	n := f.emitter.sent[0]
	assert.Equal(t, models.NotificationNewReport, n.Type)
	assert.Equal(t, "New Cheating Report", n.Title)
	assert.Equal(t, "A new report has been submitted for Jane Doe in CS101", n.Message)
	assert.Equal(t, report.ID, *n.ReportID)
	assert.Nil(t, n.RecipientID)
	assert.Equal(t, 1, f.analytics.calls)
}

func TestReportCreateRequiresAuthenticatedActor(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.svc.Create(context.Background(), nil, validReportRequest(), nil)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	assert.Zero(t, f.store.calls)
}

func TestReportCreateMissingFieldMakesNoStoreCalls(t *testing.T) {
	f := newReportFixture(t)
	req := validReportRequest()
	req.StudentName = "   "

	_, err := f.svc.Create(context.Background(), lecturerActor, req, []AttachmentUpload{upload("a.png", 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "student_name")
	assert.Zero(t, f.store.calls)
	assert.Zero(t, f.blobs.puts)
	assert.Empty(t, f.emitter.sent)
}

func TestReportCreateRejectsMarkupOnlyField(t *testing.T) {
	f := newReportFixture(t)
	req := validReportRequest()
	req.Description = "<p></p>"

	_, err := f.svc.Create(context.Background(), lecturerActor, req, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description is required")
}

func TestReportCreateRejectsTooManyFiles(t *testing.T) {
	f := newReportFixture(t)
	uploads := make([]AttachmentUpload, 6)
	for i := range uploads {
		uploads[i] = upload("file.png", 1)
	}

	_, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), uploads)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "maximum 5 files allowed, got 6")
	assert.Zero(t, f.blobs.puts)
	assert.Empty(t, f.store.reports)
}

func TestReportCreateRejectsOversizedFileWholeBatch(t *testing.T) {
	f := newReportFixture(t)
	big := AttachmentUpload{Name: "huge.mp4", ContentType: "video/mp4", Size: 11 * 1024 * 1024, Content: strings.NewReader("")}

	_, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), []AttachmentUpload{upload("ok.png", 4), big})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "huge.mp4")
	assert.Zero(t, f.blobs.puts)
	assert.Empty(t, f.store.reports)
}

func TestReportCreateRejectsUnknownEnumerations(t *testing.T) {
	f := newReportFixture(t)
	req := validReportRequest()
	req.IncidentType = "bribery"
	_, err := f.svc.Create(context.Background(), lecturerActor, req, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = validReportRequest()
	req.Priority = "urgent"
	_, err = f.svc.Create(context.Background(), lecturerActor, req, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = validReportRequest()
	req.Priority = "high"
	report, err := f.svc.Create(context.Background(), lecturerActor, req, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, report.Priority)
}

func TestReportCreateFiltersWitnesses(t *testing.T) {
	f := newReportFixture(t)
	req := validReportRequest()
	req.Witnesses = []models.Witness{
		{Name: "A", RegistrationNumber: ""},
		{Name: "", RegistrationNumber: ""},
		{Name: "B", RegistrationNumber: "123"},
	}

	report, err := f.svc.Create(context.Background(), lecturerActor, req, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Witness{{Name: "B", RegistrationNumber: "123"}}, report.Witnesses)
	assert.Equal(t, []models.Witness{{Name: "B", RegistrationNumber: "123"}}, f.store.reports[report.ID].Witnesses)
}

func TestReportCreateStoreFailureCleansBlobs(t *testing.T) {
	f := newReportFixture(t)
	f.store.createErr = errors.New("insert report: connection refused")

	_, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), []AttachmentUpload{upload("a.png", 3)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStore.Code, appErr.Code)
	assert.Equal(t, "insert report: connection refused", appErr.Message)
	assert.Equal(t, 1, f.blobs.puts)
	assert.Empty(t, f.blobs.objects)
	assert.Empty(t, f.emitter.sent)
}

func TestReportCreateSucceedsWhenNotificationFails(t *testing.T) {
	f := newReportFixture(t)
	f.emitter.err = errors.New("create notification: timeout")

	report, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), nil)
	require.NoError(t, err)
	assert.Contains(t, f.store.reports, report.ID)
}

func TestReportLifecycleEndToEnd(t *testing.T) {
	f := newReportFixture(t)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, created.Status)

	_, err = f.svc.UpdateStatus(context.Background(), lecturerActor, created.ID, models.ReportStatusUnderReview)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	updated, err := f.svc.UpdateStatus(context.Background(), adminActor, created.ID, "under review")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusUnderReview, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.CreatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	last := f.emitter.sent[len(f.emitter.sent)-1]
	assert.Equal(t, models.NotificationStatusUpdate, last.Type)
	assert.Equal(t, created.ID, *last.ReportID)
	assert.Equal(t, lecturerActor.UserID, *last.RecipientID)
	assert.Equal(t, "Report for Jane Doe has been moved to under review", last.Message)

	resolved, err := f.svc.UpdateStatus(context.Background(), adminActor, created.ID, models.ReportStatusResolved)
	require.NoError(t, err)
	assert.True(t, resolved.UpdatedAt.After(updated.UpdatedAt))

	reopened, err := f.svc.UpdateStatus(context.Background(), adminActor, created.ID, models.ReportStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, reopened.Status)
	assert.False(t, reopened.UpdatedAt.Before(reopened.CreatedAt))
}

func TestReportUpdateStatusErrors(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), adminActor, "missing", models.ReportStatusResolved)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.UpdateStatus(context.Background(), adminActor, "missing", "closed")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), nil)
	require.NoError(t, err)
	f.store.updateErr = errors.New("update report status: connection reset")
	_, err = f.svc.UpdateStatus(context.Background(), adminActor, created.ID, models.ReportStatusDismissed)
	require.Error(t, err)
	assert.Equal(t, "update report status: connection reset", appErrors.FromError(err).Message)
}

func TestReportPriorityAndAssignmentAdminOnly(t *testing.T) {
	f := newReportFixture(t)
	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), nil)
	require.NoError(t, err)
	sent := len(f.emitter.sent)

	_, err = f.svc.UpdatePriority(context.Background(), lecturerActor, created.ID, models.PriorityHigh)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	prioritised, err := f.svc.UpdatePriority(context.Background(), adminActor, created.ID, "HIGH")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, prioritised.Priority)
	assert.Len(t, f.emitter.sent, sent)

	_, err = f.svc.Assign(context.Background(), lecturerActor, created.ID, "Dr. Who")
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	assigned, err := f.svc.Assign(context.Background(), adminActor, created.ID, " Dr. Who ")
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, "Dr. Who", *assigned.AssignedTo)
	assert.Equal(t, models.NotificationAssignment, f.emitter.sent[len(f.emitter.sent)-1].Type)

	cleared, err := f.svc.Assign(context.Background(), adminActor, created.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTo)
	assert.Nil(t, f.store.reports[created.ID].AssignedTo)
}

func TestReportListAndGetScopedToLecturer(t *testing.T) {
	f := newReportFixture(t)
	mine, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), nil)
	require.NoError(t, err)
	other := &models.JWTClaims{UserID: "lect-2", Role: models.RoleLecturer, FullName: "Other"}
	theirs, err := f.svc.Create(context.Background(), other, validReportRequest(), nil)
	require.NoError(t, err)

	reports, pagination, err := f.svc.List(context.Background(), lecturerActor, models.ReportFilter{ReporterID: "lect-2", PageSize: 1000})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, mine.ID, reports[0].ID)
	assert.Equal(t, lecturerActor.UserID, f.store.lastList.ReporterID)
	assert.Equal(t, 100, pagination.PageSize)
	assert.Equal(t, 1, pagination.Page)

	all, _, err := f.svc.List(context.Background(), adminActor, models.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.Get(context.Background(), lecturerActor, theirs.ID)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	got, err := f.svc.Get(context.Background(), adminActor, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, theirs.ID, got.ID)

	_, err = f.svc.Get(context.Background(), adminActor, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, _, err = f.svc.List(context.Background(), nil, models.ReportFilter{})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestReportDeleteRemovesBlobs(t *testing.T) {
	f := newReportFixture(t)
	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), []AttachmentUpload{upload("a.png", 2)})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), lecturerActor, created.ID), appErrors.ErrPermissionDenied)
	require.NoError(t, f.svc.Delete(context.Background(), adminActor, created.ID))
	assert.Empty(t, f.store.reports)
	assert.Empty(t, f.blobs.objects)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), adminActor, created.ID), appErrors.ErrNotFound)
}

func TestReportAttachmentDownload(t *testing.T) {
	f := newReportFixture(t)
	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), []AttachmentUpload{upload("a.png", 5)})
	require.NoError(t, err)
	attID := created.Attachments[0].ID

	link, err := f.svc.AttachmentDownloadURL(context.Background(), lecturerActor, created.ID, attID)
	require.NoError(t, err)
	assert.NotEmpty(t, link.Token)
	assert.True(t, link.ExpiresAt.After(time.Now()))

	att, rc, err := f.svc.OpenAttachment(context.Background(), lecturerActor, created.ID, attID, link.Token)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "xxxxx", string(body))
	assert.Equal(t, "a.png", att.Name)

	_, _, err = f.svc.OpenAttachment(context.Background(), lecturerActor, created.ID, attID, link.Token+"0")
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, err = f.svc.AttachmentDownloadURL(context.Background(), lecturerActor, created.ID, "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	other := &models.JWTClaims{UserID: "lect-2", Role: models.RoleLecturer}
	_, err = f.svc.AttachmentDownloadURL(context.Background(), other, created.ID, attID)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestReportTouchIsStrictlyMonotonic(t *testing.T) {
	f := newReportFixture(t)
	prev := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return prev.Add(-time.Hour) }

	assert.True(t, f.svc.touch(prev).After(prev))
	f.svc.now = func() time.Time { return prev.Add(time.Hour) }
	assert.Equal(t, prev.Add(time.Hour), f.svc.touch(prev))
}

func TestReportStatusNotificationRespectsSetting(t *testing.T) {
	f := newReportFixture(t)
	repo := &memorySettingRepo{rows: map[string]models.Setting{
		models.SettingStatusUpdateNotifications: {Key: models.SettingStatusUpdateNotifications, Value: "false"},
	}}
	f.svc.settings = NewSettingsService(repo, nil, nil, nil)

	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), adminActor, created.ID, models.ReportStatusResolved)
	require.NoError(t, err)
	assert.Len(t, f.emitter.sent, 1)
}

func TestReportCreateRejectsOverlongFields(t *testing.T) {
	cases := map[string]func(r *dto.CreateReportRequest){
		"student_name": func(r *dto.CreateReportRequest) { r.StudentName = strings.Repeat("é", 256) },
		"student_id":   func(r *dto.CreateReportRequest) { r.StudentID = strings.Repeat("9", 65) },
		"exam_room":    func(r *dto.CreateReportRequest) { r.ExamRoom = strings.Repeat("H", 65) },
		"exam_name":    func(r *dto.CreateReportRequest) { r.ExamName = strings.Repeat("m", 256) },
		"invigilator":  func(r *dto.CreateReportRequest) { r.InvigilatorName = strings.Repeat("d", 256) },
		"witness": func(r *dto.CreateReportRequest) {
			r.Witnesses = []models.Witness{{Name: "B", RegistrationNumber: strings.Repeat("1", 65)}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newReportFixture(t)
			req := validReportRequest()
			mutate(&req)

			_, err := f.svc.Create(context.Background(), lecturerActor, req, []AttachmentUpload{upload("a.png", 1)})
			assert.ErrorIs(t, err, appErrors.ErrValidation)
			assert.Zero(t, f.store.calls)
			assert.Zero(t, f.blobs.puts)
		})
	}
}

func TestReportCreateAcceptsFieldsAtColumnWidth(t *testing.T) {
	f := newReportFixture(t)
	req := validReportRequest()
	req.StudentName = strings.Repeat("é", 255)
	req.ExamRoom = strings.Repeat("H", 64)

	report, err := f.svc.Create(context.Background(), lecturerActor, req, nil)
	require.NoError(t, err)
	assert.Equal(t, req.ExamRoom, report.ExamRoom)
}

func TestReportCreateRejectsOverlongAttachmentMetadata(t *testing.T) {
	longName := upload(strings.Repeat("a", 252)+".png", 1)
	longType := upload("a.png", 1)
	longType.ContentType = "image/" + strings.Repeat("x", 123)

	for name, up := range map[string]AttachmentUpload{"name": longName, "content_type": longType} {
		t.Run(name, func(t *testing.T) {
			f := newReportFixture(t)
			_, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), []AttachmentUpload{upload("ok.png", 1), up})
			assert.ErrorIs(t, err, appErrors.ErrValidation)
			assert.Zero(t, f.blobs.puts)
			assert.Zero(t, f.store.calls)
		})
	}
}

func TestReportAssignRejectsOverlongAssignee(t *testing.T) {
	f := newReportFixture(t)
	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), nil)
	require.NoError(t, err)

	_, err = f.svc.Assign(context.Background(), adminActor, created.ID, strings.Repeat("z", 256))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Nil(t, f.store.reports[created.ID].AssignedTo)
}

func TestReportLookupRejectsMalformedIDs(t *testing.T) {
	f := newReportFixture(t)
	created, err := f.svc.Create(context.Background(), lecturerActor, validReportRequest(), []AttachmentUpload{upload("a.png", 1)})
	require.NoError(t, err)
	f.store.reports["abc"] = &models.Report{ID: "abc", ReporterID: lecturerActor.UserID}
	f.store.calls = 0
	ctx := context.Background()

	_, err = f.svc.Get(ctx, adminActor, "abc")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.UpdateStatus(ctx, adminActor, "abc", models.ReportStatusResolved)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.UpdatePriority(ctx, adminActor, "abc", models.PriorityHigh)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.Assign(ctx, adminActor, "abc", "Dr. Who")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, adminActor, "abc"), appErrors.ErrNotFound)
	assert.Zero(t, f.store.calls)
	assert.Contains(t, f.store.reports, "abc")

	_, err = f.svc.AttachmentDownloadURL(ctx, lecturerActor, created.ID, "abc")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
