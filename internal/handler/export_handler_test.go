package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/service"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

type fakeExportService struct {
	format service.ExportFormat
	err    error
}

func (f *fakeExportService) Export(_ context.Context, _ *models.JWTClaims, format service.ExportFormat) (*service.ExportFile, error) {
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportFile{Filename: "integrity-reports-2024-06-30.csv", ContentType: "text/csv", Data: []byte("ID\nr-1\n")}, nil
}

func TestExportHandlerStreamsFile(t *testing.T) {
	svc := &fakeExportService{}
	h := NewExportHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/export?format=csv", nil, adminClaims)

	h.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, svc.format)
	assert.Equal(t, "ID\nr-1\n", rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="integrity-reports-2024-06-30.csv"`, rec.Header().Get("Content-Disposition"))
}

func TestExportHandlerError(t *testing.T) {
	h := NewExportHandler(&fakeExportService{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format: xlsx")})
	c, rec := newTestContext(http.MethodGet, "/export?format=xlsx", nil, adminClaims)

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported export format: xlsx", decodeEnvelope(t, rec).Error.Message)
}
