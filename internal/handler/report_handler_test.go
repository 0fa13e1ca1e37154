package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/service"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

type fakeReportService struct {
	created     dto.CreateReportRequest
	uploadNames []string
	uploadBody  []string
	filter      models.ReportFilter
	status      models.ReportStatus
	assignee    string
	err         error
	link        *service.AttachmentLink
	content     string
}

func (f *fakeReportService) Create(_ context.Context, actor *models.JWTClaims, req dto.CreateReportRequest, uploads []service.AttachmentUpload) (*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = req
	for _, up := range uploads {
		body, _ := io.ReadAll(up.Content)
		f.uploadNames = append(f.uploadNames, up.Name)
		f.uploadBody = append(f.uploadBody, string(body))
	}
	return &models.Report{ID: "r-1", StudentName: req.StudentName, Status: models.ReportStatusPending, ReporterID: actor.UserID}, nil
}

func (f *fakeReportService) List(_ context.Context, _ *models.JWTClaims, filter models.ReportFilter) ([]models.Report, *models.Pagination, error) {
	f.filter = filter
	return []models.Report{{ID: "r-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, f.err
}

func (f *fakeReportService) Get(_ context.Context, _ *models.JWTClaims, id string) (*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Report{ID: id}, nil
}

func (f *fakeReportService) UpdateStatus(_ context.Context, _ *models.JWTClaims, id string, status models.ReportStatus) (*models.Report, error) {
	f.status = status
	return &models.Report{ID: id, Status: models.ReportStatusUnderReview}, f.err
}

func (f *fakeReportService) UpdatePriority(_ context.Context, _ *models.JWTClaims, id string, priority models.ReportPriority) (*models.Report, error) {
	return &models.Report{ID: id, Priority: priority}, f.err
}

func (f *fakeReportService) Assign(_ context.Context, _ *models.JWTClaims, id, assignee string) (*models.Report, error) {
	f.assignee = assignee
	return &models.Report{ID: id}, f.err
}

func (f *fakeReportService) Delete(context.Context, *models.JWTClaims, string) error {
	return f.err
}

func (f *fakeReportService) AttachmentDownloadURL(context.Context, *models.JWTClaims, string, string) (*service.AttachmentLink, error) {
	return f.link, f.err
}

func (f *fakeReportService) OpenAttachment(_ context.Context, _ *models.JWTClaims, _, attachmentID, _ string) (*models.Attachment, io.ReadCloser, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	att := &models.Attachment{ID: attachmentID, Name: "evidence.png", ContentType: "image/png", SizeBytes: int64(len(f.content))}
	return att, io.NopCloser(strings.NewReader(f.content)), nil
}

func TestReportHandlerCreateJSON(t *testing.T) {
	svc := &fakeReportService{}
	h := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/reports", jsonBody(t, map[string]string{"student_name": "Jane Doe", "priority": "high"}), lecturerClaims)
	withJSON(c)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Jane Doe", svc.created.StudentName)
	assert.Equal(t, "high", svc.created.Priority)
	assert.Empty(t, svc.uploadNames)

	var report models.Report
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &report))
	assert.Equal(t, "lect-1", report.ReporterID)
}

func multipartReport(t *testing.T, report string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if report != "" {
		require.NoError(t, w.WriteField("report", report))
	}
	for name, content := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="attachments"; filename="`+name+`"`)
		header.Set("Content-Type", "image/png")
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestReportHandlerCreateMultipart(t *testing.T) {
	svc := &fakeReportService{}
	h := NewReportHandler(svc)
	body, contentType := multipartReport(t, `{"student_name":"Jane Doe","witnesses":[{"name":"B","registration_number":"123"}]}`,
		map[string]string{"photo.png": "png-bytes"})
	c, rec := newTestContext(http.MethodPost, "/reports", body, lecturerClaims)
	c.Request.Header.Set("Content-Type", contentType)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Jane Doe", svc.created.StudentName)
	assert.Equal(t, []models.Witness{{Name: "B", RegistrationNumber: "123"}}, svc.created.Witnesses)
	assert.Equal(t, []string{"photo.png"}, svc.uploadNames)
	assert.Equal(t, []string{"png-bytes"}, svc.uploadBody)
}

func TestReportHandlerCreateMultipartRequiresReportField(t *testing.T) {
	svc := &fakeReportService{}
	h := NewReportHandler(svc)
	body, contentType := multipartReport(t, "", map[string]string{"photo.png": "x"})
	c, rec := newTestContext(http.MethodPost, "/reports", body, lecturerClaims)
	c.Request.Header.Set("Content-Type", contentType)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "report field is required", decodeEnvelope(t, rec).Error.Message)
}

func TestReportHandlerCreateSurfacesValidation(t *testing.T) {
	svc := &fakeReportService{err: appErrors.Clone(appErrors.ErrValidation, "maximum 5 files allowed, got 6")}
	h := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/reports", jsonBody(t, map[string]string{}), lecturerClaims)
	withJSON(c)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "maximum 5 files allowed, got 6", env.Error.Message)
}

func TestReportHandlerListParsesFilters(t *testing.T) {
	svc := &fakeReportService{}
	h := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/reports?page=2&page_size=5&status=under%20review&priority=low&incident_type=other&search=cs101", nil, adminClaims)

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.filter.Page)
	assert.Equal(t, 5, svc.filter.PageSize)
	require.NotNil(t, svc.filter.Status)
	assert.Equal(t, models.ReportStatusUnderReview, *svc.filter.Status)
	assert.Equal(t, models.PriorityLow, *svc.filter.Priority)
	assert.Equal(t, models.IncidentOther, *svc.filter.IncidentType)
	assert.Equal(t, "cs101", svc.filter.Search)
	assert.Equal(t, 1, decodeEnvelope(t, rec).Pagination.TotalCount)
}

func TestReportHandlerListRejectsUnknownStatus(t *testing.T) {
	h := NewReportHandler(&fakeReportService{})
	c, rec := newTestContext(http.MethodGet, "/reports?status=archived", nil, adminClaims)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerUpdateStatus(t *testing.T) {
	svc := &fakeReportService{}
	h := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodPatch, "/reports/r-1/status", jsonBody(t, dto.UpdateReportStatusRequest{Status: "under review"}), adminClaims)
	withJSON(c)
	withParams(c, "id", "r-1")

	h.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ReportStatus("under review"), svc.status)
}

func TestReportHandlerTriageRequiresValue(t *testing.T) {
	svc := &fakeReportService{}
	h := NewReportHandler(svc)

	c, rec := newTestContext(http.MethodPatch, "/reports/r-1/status", strings.NewReader(`{}`), adminClaims)
	withJSON(c)
	withParams(c, "id", "r-1")
	h.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
	assert.Empty(t, svc.status)

	c, rec = newTestContext(http.MethodPatch, "/reports/r-1/priority", strings.NewReader(`{"priority":""}`), adminClaims)
	withJSON(c)
	withParams(c, "id", "r-1")
	h.UpdatePriority(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerPermissionDenied(t *testing.T) {
	svc := &fakeReportService{err: appErrors.Clone(appErrors.ErrPermissionDenied, "not allowed to view this report")}
	h := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/reports/r-9", nil, lecturerClaims)
	withParams(c, "id", "r-9")

	h.Get(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not allowed to view this report", decodeEnvelope(t, rec).Error.Message)
}

func TestReportHandlerAssignAndDelete(t *testing.T) {
	svc := &fakeReportService{}
	h := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodPatch, "/reports/r-1/assignment", jsonBody(t, dto.AssignReportRequest{AssignedTo: "Dr. Who"}), adminClaims)
	withJSON(c)
	withParams(c, "id", "r-1")
	h.Assign(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dr. Who", svc.assignee)

	c, _ = newTestContext(http.MethodDelete, "/reports/r-1", nil, adminClaims)
	withParams(c, "id", "r-1")
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
}

func TestReportHandlerAttachmentLink(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := &fakeReportService{link: &service.AttachmentLink{
		Attachment: models.Attachment{ID: "a-1", Name: "evidence.png"},
		Token:      "a-1.123.key.sig",
		ExpiresAt:  expires,
	}}
	h := NewReportHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/api/v1/reports/r-1/attachments/a-1", nil, lecturerClaims)
	withParams(c, "id", "r-1", "attachmentId", "a-1")

	h.AttachmentLink(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var link dto.AttachmentLinkResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &link))
	assert.Equal(t, "/api/v1/reports/r-1/attachments/a-1/download?token=a-1.123.key.sig", link.URL)
	assert.True(t, expires.Equal(link.ExpiresAt))
}

func TestReportHandlerDownloadAttachment(t *testing.T) {
	svc := &fakeReportService{content: "png-bytes"}
	h := NewReportHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/reports/r-1/attachments/a-1/download", nil, lecturerClaims)
	withParams(c, "id", "r-1", "attachmentId", "a-1")
	h.DownloadAttachment(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/reports/r-1/attachments/a-1/download?token=tok", nil, lecturerClaims)
	withParams(c, "id", "r-1", "attachmentId", "a-1")
	h.DownloadAttachment(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="evidence.png"`, rec.Header().Get("Content-Disposition"))
}
