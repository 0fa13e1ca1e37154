package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/integrity-report-api/internal/models"
)

const notificationColumns = `id, type, title, message, is_read, report_id, recipient_id, created_at, read_at`

// notificationListLimit caps a single listing; the dashboard shows recent items only.
const notificationListLimit = 500

// NotificationRepository persists notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, type, title, message, is_read, report_id, recipient_id, created_at, read_at)
VALUES (:id, :type, :title, :message, :is_read, :report_id, :recipient_id, :created_at, :read_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID returns a notification or sql.ErrNoRows.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

// List returns the newest notifications inside scope.
func (r *NotificationRepository) List(ctx context.Context, scope models.NotificationScope) ([]models.Notification, error) {
	where, args := scopeWhere(scope)
	query := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC, id DESC LIMIT %d", notificationColumns, where, notificationListLimit)
	items := []models.Notification{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// CountUnread counts unread notifications inside scope.
func (r *NotificationRepository) CountUnread(ctx context.Context, scope models.NotificationScope) (int, error) {
	scope.OnlyUnread = true
	where, args := scopeWhere(scope)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where, args...); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

// MarkRead flips one read flag. Already-read rows keep their first read_at.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, readAt)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead flips every unread row inside scope in a single statement.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, scope models.NotificationScope, readAt time.Time) (int64, error) {
	scope.OnlyUnread = true
	where, args := scopeWhere(scope)
	args = append(args, readAt)
	query := fmt.Sprintf("UPDATE notifications SET is_read = TRUE, read_at = $%d%s", len(args), where)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read rows affected: %w", err)
	}
	return affected, nil
}

func scopeWhere(scope models.NotificationScope) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if !scope.All {
		args = append(args, scope.RecipientID)
		conditions = append(conditions, fmt.Sprintf("recipient_id = $%d", len(args)))
	}
	if scope.OnlyUnread {
		conditions = append(conditions, "is_read = FALSE")
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
