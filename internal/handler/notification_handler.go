package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, actor *models.JWTClaims, onlyUnread bool) ([]models.Notification, error)
	UnreadCount(ctx context.Context, actor *models.JWTClaims) (int, error)
	MarkAsRead(ctx context.Context, actor *models.JWTClaims, id string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, actor *models.JWTClaims) (int64, error)
	Broadcast(ctx context.Context, actor *models.JWTClaims, req dto.BroadcastNotificationRequest) (*models.Notification, error)
}

// NotificationHandler serves the notification inbox.
type NotificationHandler struct {
	service notificationService
}

func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List notifications visible to the caller
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	onlyUnread, _ := strconv.ParseBool(c.Query("unread"))
	items, err := h.service.List(c.Request.Context(), claimsFromContext(c), onlyUnread)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.UnreadCountResponse{Unread: count}, nil)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.service.MarkAsRead(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, n, nil)
}

// MarkAllRead godoc
// @Summary Mark every visible notification as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.service.MarkAllAsRead(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MarkAllReadResponse{Updated: updated}, nil)
}

// Broadcast godoc
// @Summary Send a system notification
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.BroadcastNotificationRequest true "Notification"
// @Success 201 {object} response.Envelope
// @Router /notifications [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req dto.BroadcastNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid notification payload"))
		return
	}
	n, err := h.service.Broadcast(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, n)
}
