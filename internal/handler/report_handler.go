package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/service"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
	"github.com/noah-isme/integrity-report-api/pkg/response"
)

const (
	reportFormField     = "report"
	attachmentFormField = "attachments"
)

type reportService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateReportRequest, uploads []service.AttachmentUpload) (*models.Report, error)
	List(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) ([]models.Report, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, status models.ReportStatus) (*models.Report, error)
	UpdatePriority(ctx context.Context, actor *models.JWTClaims, id string, priority models.ReportPriority) (*models.Report, error)
	Assign(ctx context.Context, actor *models.JWTClaims, id, assignee string) (*models.Report, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	AttachmentDownloadURL(ctx context.Context, actor *models.JWTClaims, reportID, attachmentID string) (*service.AttachmentLink, error)
	OpenAttachment(ctx context.Context, actor *models.JWTClaims, reportID, attachmentID, token string) (*models.Attachment, io.ReadCloser, error)
}

// ReportHandler exposes the report lifecycle endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// List godoc
// @Summary List reports
// @Description Administrators see every report, lecturers only their own
// @Tags Reports
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Status filter"
// @Param priority query string false "Priority filter"
// @Param incident_type query string false "Incident type filter"
// @Param search query string false "Search by student name or id, course code, exam name or exam code"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	var filter models.ReportFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Search = c.Query("search")

	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseReportStatus(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status: "+raw))
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority, ok := models.ParseReportPriority(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown priority: "+raw))
			return
		}
		filter.Priority = &priority
	}
	if raw := c.Query("incident_type"); raw != "" {
		incident, ok := models.ParseIncidentType(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown incident_type: "+raw))
			return
		}
		filter.IncidentType = &incident
	}

	reports, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, pagination)
}

// Create godoc
// @Summary Submit a report
// @Description Accepts a JSON body, or multipart form data with a "report" JSON field and up to five "attachments" files
// @Tags Reports
// @Accept json,mpfd
// @Produce json
// @Param payload body dto.CreateReportRequest false "Report payload"
// @Param report formData string false "Report payload as JSON"
// @Param attachments formData file false "Evidence files"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var (
		req     dto.CreateReportRequest
		uploads []service.AttachmentUpload
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			response.Error(c, bindError(err, "invalid multipart payload"))
			return
		}
		raw := form.Value[reportFormField]
		if len(raw) == 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "report field is required"))
			return
		}
		if err := json.Unmarshal([]byte(raw[0]), &req); err != nil {
			response.Error(c, bindError(err, "invalid report payload"))
			return
		}

		files, closeAll, err := openUploads(form.File[attachmentFormField])
		defer closeAll()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open attachment"))
			return
		}
		uploads = files
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid report payload"))
		return
	}

	report, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Get godoc
// @Summary Get report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// UpdateStatus godoc
// @Summary Change report status
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.UpdateReportStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/status [patch]
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid status payload"))
		return
	}
	report, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), models.ReportStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// UpdatePriority godoc
// @Summary Change report priority
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.UpdateReportPriorityRequest true "Priority"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/priority [patch]
func (h *ReportHandler) UpdatePriority(c *gin.Context) {
	var req dto.UpdateReportPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid priority payload"))
		return
	}
	report, err := h.service.UpdatePriority(c.Request.Context(), claimsFromContext(c), c.Param("id"), models.ReportPriority(req.Priority))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Assign godoc
// @Summary Assign or unassign a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.AssignReportRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/assignment [patch]
func (h *ReportHandler) Assign(c *gin.Context) {
	var req dto.AssignReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	report, err := h.service.Assign(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.AssignedTo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Delete godoc
// @Summary Delete report
// @Tags Reports
// @Param id path string true "Report ID"
// @Success 204
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AttachmentLink godoc
// @Summary Issue a signed download link for an attachment
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Param attachmentId path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/attachments/{attachmentId} [get]
func (h *ReportHandler) AttachmentLink(c *gin.Context) {
	link, err := h.service.AttachmentDownloadURL(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	downloadURL := strings.TrimRight(c.Request.URL.Path, "/") + "/download?token=" + url.QueryEscape(link.Token)
	response.JSON(c, http.StatusOK, dto.AttachmentLinkResponse{
		AttachmentID: link.Attachment.ID,
		Name:         link.Attachment.Name,
		URL:          downloadURL,
		Token:        link.Token,
		ExpiresAt:    link.ExpiresAt,
	}, nil)
}

// DownloadAttachment godoc
// @Summary Download attachment content
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Report ID"
// @Param attachmentId path string true "Attachment ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/{id}/attachments/{attachmentId}/download [get]
func (h *ReportHandler) DownloadAttachment(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	att, content, err := h.service.OpenAttachment(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("attachmentId"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer content.Close()

	response.Stream(c, att.Name, att.ContentType, att.SizeBytes, content)
}

func openUploads(headers []*multipart.FileHeader) ([]service.AttachmentUpload, func(), error) {
	uploads := make([]service.AttachmentUpload, 0, len(headers))
	closers := make([]io.Closer, 0, len(headers))
	closeAll := func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, file)
		uploads = append(uploads, service.AttachmentUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     file,
		})
	}
	return uploads, closeAll, nil
}
