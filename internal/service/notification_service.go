package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/policy"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
	"github.com/noah-isme/integrity-report-api/pkg/sanitize"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, scope models.NotificationScope) ([]models.Notification, error)
	CountUnread(ctx context.Context, scope models.NotificationScope) (int, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	MarkAllRead(ctx context.Context, scope models.NotificationScope, readAt time.Time) (int64, error)
}

// NotificationService exposes the notification inbox and emits lifecycle events.
type NotificationService struct {
	repo      notificationRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// notificationScope is the visible set: administrators see every row,
// everyone else only rows addressed to them.
func notificationScope(actor *models.JWTClaims, onlyUnread bool) models.NotificationScope {
	if actor != nil && actor.Role == models.RoleAdmin {
		return models.NotificationScope{All: true, OnlyUnread: onlyUnread}
	}
	scope := models.NotificationScope{OnlyUnread: onlyUnread}
	if actor != nil {
		scope.RecipientID = actor.UserID
	}
	return scope
}

// List returns the actor's visible notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor *models.JWTClaims, onlyUnread bool) ([]models.Notification, error) {
	if !policy.CanManageNotifications(actor) {
		return nil, permissionDenied("not allowed to view notifications")
	}
	items, err := s.repo.List(ctx, notificationScope(actor, onlyUnread))
	if err != nil {
		return nil, appErrors.Store(err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// UnreadCount counts unread notifications in the visible set.
func (s *NotificationService) UnreadCount(ctx context.Context, actor *models.JWTClaims) (int, error) {
	if !policy.CanManageNotifications(actor) {
		return 0, permissionDenied("not allowed to view notifications")
	}
	count, err := s.repo.CountUnread(ctx, notificationScope(actor, true))
	if err != nil {
		return 0, appErrors.Store(err)
	}
	return count, nil
}

// MarkAsRead flags one notification as read. Marking an already read
// notification succeeds without another write.
func (s *NotificationService) MarkAsRead(ctx context.Context, actor *models.JWTClaims, id string) (*models.Notification, error) {
	if !policy.CanMarkNotificationRead(actor) {
		return nil, permissionDenied("not allowed to mark notifications")
	}

	if !isRowID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "notification not found")
	}
	if !notificationScope(actor, false).Visible(*n) {
		return nil, permissionDenied("notification is not addressed to you")
	}
	if n.IsRead {
		return n, nil
	}

	readAt := s.now().UTC()
	if err := s.repo.MarkRead(ctx, id, readAt); err != nil {
		return nil, lookupError(err, "notification not found")
	}
	n.IsRead = true
	n.ReadAt = &readAt
	return n, nil
}

// MarkAllAsRead flags the whole visible set as read in one statement.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, actor *models.JWTClaims) (int64, error) {
	if !policy.CanManageNotifications(actor) {
		return 0, permissionDenied("not allowed to mark notifications")
	}
	updated, err := s.repo.MarkAllRead(ctx, notificationScope(actor, true), s.now().UTC())
	if err != nil {
		return 0, appErrors.Store(err)
	}
	return updated, nil
}

// Emit persists a notification produced by another component.
func (s *NotificationService) Emit(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	n.IsRead = false
	n.ReadAt = nil
	if err := s.repo.Create(ctx, n); err != nil {
		return appErrors.Store(err)
	}
	s.logger.Debug("notification emitted", zap.String("notification_id", n.ID), zap.String("type", string(n.Type)))
	return nil
}

// Broadcast sends a system notification written by an administrator.
func (s *NotificationService) Broadcast(ctx context.Context, actor *models.JWTClaims, req dto.BroadcastNotificationRequest) (*models.Notification, error) {
	if !policy.CanSendNotifications(actor) {
		return nil, permissionDenied("not allowed to send notifications")
	}
	sanitize.Fields(&req.Title, &req.Message)
	req.RecipientID = strings.TrimSpace(req.RecipientID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}

	n := &models.Notification{
		Type:        models.NotificationSystem,
		Title:       req.Title,
		Message:     req.Message,
		RecipientID: strPtr(req.RecipientID),
	}
	if err := s.Emit(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
