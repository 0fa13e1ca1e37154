package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/service"
	"github.com/noah-isme/integrity-report-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, actor *models.JWTClaims, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler streams data dumps.
type ExportHandler struct {
	service exportService
}

func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export reports
// @Description Returns every report as CSV or PDF, or a JSON dump with users and notifications
// @Tags Export
// @Produce text/csv,application/pdf,json
// @Param format query string false "csv, pdf or json" default(csv)
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), claimsFromContext(c), service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
