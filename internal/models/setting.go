package models

import "time"

// SettingType defines supported types for setting values.
type SettingType string

const (
	SettingTypeString  SettingType = "STRING"
	SettingTypeBoolean SettingType = "BOOLEAN"
	SettingTypeInteger SettingType = "INTEGER"
)

const (
	SettingInstitutionName           = "institution_name"
	SettingAutoAssignReports         = "auto_assign_reports"
	SettingRequireApproval           = "require_approval"
	SettingMaxReportsPerDay          = "max_reports_per_day"
	SettingEmailNotifications        = "email_notifications"
	SettingStatusUpdateNotifications = "status_update_notifications"
)

// Setting represents a persisted system-wide setting.
type Setting struct {
	Key         string      `db:"key" json:"key"`
	Value       string      `db:"value" json:"value"`
	Type        SettingType `db:"type" json:"type"`
	Description *string     `db:"description" json:"description,omitempty"`
	UpdatedBy   *string     `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
