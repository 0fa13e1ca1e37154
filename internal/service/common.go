package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/models"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit writes an audit entry; failures never fail the caller.
func recordAudit(ctx context.Context, logger *zap.Logger, audit auditWriter, entry *models.AuditLog) {
	if audit == nil || entry == nil {
		return
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err))
	}
}

func auditEntry(actor *models.JWTClaims, action, resource, resourceID string, oldValues, newValues interface{}) *models.AuditLog {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: strPtr(resourceID),
		OldValues:  marshalAudit(oldValues),
		NewValues:  marshalAudit(newValues),
	}
	if actor != nil {
		entry.UserID = strPtr(actor.UserID)
	}
	return entry
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func permissionDenied(message string) error {
	return appErrors.Clone(appErrors.ErrPermissionDenied, message)
}

func validationError(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

// lookupError maps a repository miss onto NotFound and anything else onto
// StoreError with the collaborator message intact.
func lookupError(err error, notFoundMessage string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMessage)
	}
	return appErrors.Store(err)
}

// isRowID reports whether id has the shape of a stored primary key.
func isRowID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
