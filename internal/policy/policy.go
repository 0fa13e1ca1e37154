// Package policy holds the role based authorization rules. Every predicate is
// a pure function of the actor's role; the targeted resource never matters,
// so a lecturer cannot change the status of their own report either.
package policy

import "github.com/noah-isme/integrity-report-api/internal/models"

// Action names a permission checked through Allowed.
type Action string

const (
	CreateReport         Action = "create_report"
	ViewOwnReports       Action = "view_own_reports"
	ViewAllReports       Action = "view_all_reports"
	EditReportStatus     Action = "edit_report_status"
	DeleteReport         Action = "delete_report"
	CreateUser           Action = "create_user"
	EditUser             Action = "edit_user"
	DeleteUser           Action = "delete_user"
	ViewUsers            Action = "view_users"
	ViewAnalytics        Action = "view_analytics"
	ExportData           Action = "export_data"
	ModifySystemSettings Action = "modify_system_settings"
	MarkNotificationRead Action = "mark_notification_read"
	ManageNotifications  Action = "manage_notifications"
	SendNotifications    Action = "send_notifications"
	ViewAllNotifications Action = "view_all_notifications"
)

func authenticated(actor *models.JWTClaims) bool {
	return actor != nil && actor.UserID != ""
}

func admin(actor *models.JWTClaims) bool {
	return authenticated(actor) && actor.Role == models.RoleAdmin
}

func CanCreateReport(actor *models.JWTClaims) bool { return authenticated(actor) }
func CanViewOwnReports(actor *models.JWTClaims) bool { return authenticated(actor) }
func CanViewAllReports(actor *models.JWTClaims) bool { return admin(actor) }
func CanEditReportStatus(actor *models.JWTClaims) bool { return admin(actor) }
func CanDeleteReport(actor *models.JWTClaims) bool { return admin(actor) }

func CanCreateUser(actor *models.JWTClaims) bool { return admin(actor) }
func CanEditUser(actor *models.JWTClaims) bool { return admin(actor) }
func CanDeleteUser(actor *models.JWTClaims) bool { return admin(actor) }
func CanViewUsers(actor *models.JWTClaims) bool { return admin(actor) }

func CanViewAnalytics(actor *models.JWTClaims) bool { return admin(actor) }
func CanExportData(actor *models.JWTClaims) bool { return admin(actor) }
func CanModifySystemSettings(actor *models.JWTClaims) bool { return admin(actor) }

// CanMarkNotificationRead admits any signed-in user; which rows a lecturer may
// touch is bounded by their visible set, not by this predicate.
func CanMarkNotificationRead(actor *models.JWTClaims) bool { return authenticated(actor) }
func CanManageNotifications(actor *models.JWTClaims) bool { return authenticated(actor) }
func CanSendNotifications(actor *models.JWTClaims) bool { return admin(actor) }
func CanViewAllNotifications(actor *models.JWTClaims) bool { return authenticated(actor) }

var rules = map[Action]func(*models.JWTClaims) bool{
	CreateReport:         CanCreateReport,
	ViewOwnReports:       CanViewOwnReports,
	ViewAllReports:       CanViewAllReports,
	EditReportStatus:     CanEditReportStatus,
	DeleteReport:         CanDeleteReport,
	CreateUser:           CanCreateUser,
	EditUser:             CanEditUser,
	DeleteUser:           CanDeleteUser,
	ViewUsers:            CanViewUsers,
	ViewAnalytics:        CanViewAnalytics,
	ExportData:           CanExportData,
	ModifySystemSettings: CanModifySystemSettings,
	MarkNotificationRead: CanMarkNotificationRead,
	ManageNotifications:  CanManageNotifications,
	SendNotifications:    CanSendNotifications,
	ViewAllNotifications: CanViewAllNotifications,
}

// Allowed evaluates action for actor. Unknown actions are denied.
func Allowed(actor *models.JWTClaims, action Action) bool {
	rule, ok := rules[action]
	if !ok {
		return false
	}
	return rule(actor)
}

// Actions returns every known action.
func Actions() []Action {
	out := make([]Action, 0, len(rules))
	for action := range rules {
		out = append(out, action)
	}
	return out
}

// Snapshot evaluates every action for actor, keyed by action name. The
// dashboard uses it to decide which controls to render.
func Snapshot(actor *models.JWTClaims) map[Action]bool {
	out := make(map[Action]bool, len(rules))
	for action, rule := range rules {
		out[action] = rule(actor)
	}
	return out
}
