package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/internal/policy"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

type settingRepository interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, s *models.Setting) error
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

type allowedSetting struct {
	Key         string
	Type        models.SettingType
	Description string
	Default     string
}

var allowedSettingKeys = []string{
	models.SettingInstitutionName,
	models.SettingAutoAssignReports,
	models.SettingRequireApproval,
	models.SettingMaxReportsPerDay,
	models.SettingEmailNotifications,
	models.SettingStatusUpdateNotifications,
}

var allowedSettings = map[string]allowedSetting{
	models.SettingInstitutionName: {
		Key:         models.SettingInstitutionName,
		Type:        models.SettingTypeString,
		Description: "Institution name shown on exports",
	},
	models.SettingAutoAssignReports: {
		Key:         models.SettingAutoAssignReports,
		Type:        models.SettingTypeBoolean,
		Description: "Assign new reports to an administrator automatically",
		Default:     "false",
	},
	models.SettingRequireApproval: {
		Key:         models.SettingRequireApproval,
		Type:        models.SettingTypeBoolean,
		Description: "Reports need administrator approval before resolution",
		Default:     "true",
	},
	models.SettingMaxReportsPerDay: {
		Key:         models.SettingMaxReportsPerDay,
		Type:        models.SettingTypeInteger,
		Description: "Maximum reports a lecturer may submit per day",
		Default:     "50",
	},
	models.SettingEmailNotifications: {
		Key:         models.SettingEmailNotifications,
		Type:        models.SettingTypeBoolean,
		Description: "Send e-mail for new notifications",
		Default:     "true",
	},
	models.SettingStatusUpdateNotifications: {
		Key:         models.SettingStatusUpdateNotifications,
		Type:        models.SettingTypeBoolean,
		Description: "Notify reporters when a report changes status",
		Default:     "true",
	},
}

// SettingsService manages system-wide settings scoped to an allow-list.
type SettingsService struct {
	repo      settingRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns every allowed setting, falling back to defaults for unset keys.
func (s *SettingsService) List(ctx context.Context, actor *models.JWTClaims) ([]dto.SettingItem, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err)
	}
	existing := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}

	items := make([]dto.SettingItem, 0, len(allowedSettingKeys))
	for _, key := range allowedSettingKeys {
		meta := allowedSettings[key]
		item := settingItem(meta, meta.Default)
		if row, ok := existing[key]; ok {
			item.Value = row.Value
			if row.Description != nil && *row.Description != "" {
				item.Description = *row.Description
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Value returns the effective value of a key, used by other services.
func (s *SettingsService) Value(ctx context.Context, key string) (string, error) {
	meta, err := requireAllowedSetting(key)
	if err != nil {
		return "", err
	}
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return meta.Default, nil
		}
		return "", appErrors.Store(err)
	}
	return row.Value, nil
}

// Enabled reads a boolean setting; lookup failures yield the default.
func (s *SettingsService) Enabled(ctx context.Context, key string) bool {
	if s == nil {
		return allowedSettings[key].Default == "true"
	}
	value, err := s.Value(ctx, key)
	if err != nil {
		s.logger.Warn("setting lookup failed", zap.String("key", key), zap.Error(err))
		return allowedSettings[key].Default == "true"
	}
	return value == "true"
}

// Update upserts a single setting.
func (s *SettingsService) Update(ctx context.Context, actor *models.JWTClaims, key, value string) (*dto.SettingItem, error) {
	if !policy.CanModifySystemSettings(actor) {
		return nil, permissionDenied("not allowed to modify system settings")
	}
	meta, err := requireAllowedSetting(key)
	if err != nil {
		return nil, err
	}
	value, err = validateSettingValue(meta, value)
	if err != nil {
		return nil, err
	}

	prev, err := s.repo.Get(ctx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Store(err)
	}

	setting := &models.Setting{
		Key:         key,
		Value:       value,
		Type:        meta.Type,
		Description: strPtr(meta.Description),
		UpdatedBy:   strPtr(actor.UserID),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Store(err)
	}

	s.emitAudit(ctx, actor, key, prevSettingValue(prev), value)
	item := settingItem(meta, value)
	return &item, nil
}

// BulkUpdate validates every item first and then writes them in one transaction.
func (s *SettingsService) BulkUpdate(ctx context.Context, actor *models.JWTClaims, req dto.BulkUpdateSettingsRequest) ([]dto.SettingItem, error) {
	if !policy.CanModifySystemSettings(actor) {
		return nil, permissionDenied("not allowed to modify system settings")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}

	toUpsert := make([]models.Setting, 0, len(req.Items))
	for _, item := range req.Items {
		meta, err := requireAllowedSetting(item.Key)
		if err != nil {
			return nil, err
		}
		value, err := validateSettingValue(meta, item.Value)
		if err != nil {
			return nil, err
		}
		toUpsert = append(toUpsert, models.Setting{
			Key:         item.Key,
			Value:       value,
			Type:        meta.Type,
			Description: strPtr(meta.Description),
			UpdatedBy:   strPtr(actor.UserID),
		})
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err)
	}
	previous := make(map[string]string, len(rows))
	for _, row := range rows {
		previous[row.Key] = row.Value
	}

	if err := s.repo.BulkUpsert(ctx, toUpsert); err != nil {
		return nil, appErrors.Store(err)
	}

	result := make([]dto.SettingItem, 0, len(toUpsert))
	for _, setting := range toUpsert {
		result = append(result, settingItem(allowedSettings[setting.Key], setting.Value))
		s.emitAudit(ctx, actor, setting.Key, previous[setting.Key], setting.Value)
	}
	return result, nil
}

func (s *SettingsService) emitAudit(ctx context.Context, actor *models.JWTClaims, key, oldValue, newValue string) {
	recordAudit(ctx, s.logger, s.audit, auditEntry(actor, models.AuditActionSettingUpdate, "settings", key,
		map[string]string{"key": key, "value": oldValue},
		map[string]string{"key": key, "value": newValue}))
}

func requireAllowedSetting(key string) (allowedSetting, error) {
	meta, ok := allowedSettings[key]
	if !ok {
		return allowedSetting{}, validationError("unsupported setting key: " + key)
	}
	return meta, nil
}

func validateSettingValue(meta allowedSetting, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Type {
	case models.SettingTypeBoolean:
		switch strings.ToLower(value) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", validationError(fmt.Sprintf("%s expects boolean value", meta.Key))
	case models.SettingTypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return "", validationError(fmt.Sprintf("%s expects a non-negative integer", meta.Key))
		}
		return strconv.Itoa(n), nil
	case models.SettingTypeString:
		return value, nil
	}
	return "", validationError("unsupported setting type")
}

func settingItem(meta allowedSetting, value string) dto.SettingItem {
	return dto.SettingItem{Key: meta.Key, Value: value, Type: string(meta.Type), Description: meta.Description}
}

func prevSettingValue(s *models.Setting) string {
	if s == nil {
		return ""
	}
	return s.Value
}
