package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/pkg/response"
)

type settingsService interface {
	List(ctx context.Context, actor *models.JWTClaims) ([]dto.SettingItem, error)
	Update(ctx context.Context, actor *models.JWTClaims, key, value string) (*dto.SettingItem, error)
	BulkUpdate(ctx context.Context, actor *models.JWTClaims, req dto.BulkUpdateSettingsRequest) ([]dto.SettingItem, error)
}

// SettingHandler exposes system settings.
type SettingHandler struct {
	service settingsService
}

func NewSettingHandler(svc settingsService) *SettingHandler {
	return &SettingHandler{service: svc}
}

// List godoc
// @Summary List settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Update godoc
// @Summary Update one setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body dto.UpdateSettingRequest true "Value"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings/{key} [put]
func (h *SettingHandler) Update(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid setting payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("key"), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// BulkUpdate godoc
// @Summary Update several settings at once
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.BulkUpdateSettingsRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Router /settings [put]
func (h *SettingHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid settings payload"))
		return
	}
	items, err := h.service.BulkUpdate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
