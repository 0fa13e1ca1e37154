package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/integrity-report-api/internal/models"
)

var (
	adminActor    = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	lecturerActor = &models.JWTClaims{UserID: "lect-1", Role: models.RoleLecturer}
)

func TestPolicyMatrix(t *testing.T) {
	lecturerAllowed := map[Action]bool{
		CreateReport:         true,
		ViewOwnReports:       true,
		MarkNotificationRead: true,
		ManageNotifications:  true,
		ViewAllNotifications: true,
	}

	for _, action := range Actions() {
		assert.True(t, Allowed(adminActor, action), "admin %s", action)
		assert.Equal(t, lecturerAllowed[action], Allowed(lecturerActor, action), "lecturer %s", action)
		assert.False(t, Allowed(nil, action), "anonymous %s", action)
	}
}

func TestSendNotificationsAdminOnly(t *testing.T) {
	assert.True(t, CanSendNotifications(adminActor))
	assert.False(t, CanSendNotifications(lecturerActor))
}

func TestEditReportStatusIndependentOfTarget(t *testing.T) {
	// the reporter of a report is still a lecturer and still denied
	reporter := &models.JWTClaims{UserID: "reporter", Role: models.RoleLecturer}
	assert.False(t, CanEditReportStatus(reporter))
	assert.False(t, Allowed(reporter, EditReportStatus))
	assert.True(t, Allowed(adminActor, EditReportStatus))
}

func TestUnknownRoleAndAction(t *testing.T) {
	ghost := &models.JWTClaims{UserID: "x", Role: models.UserRole("SUPERADMIN")}
	assert.False(t, CanViewAllReports(ghost))
	assert.True(t, CanCreateReport(ghost))
	assert.False(t, Allowed(adminActor, Action("launch_rockets")))
	assert.False(t, CanCreateReport(&models.JWTClaims{Role: models.RoleAdmin}))
}

func TestSnapshot(t *testing.T) {
	snap := Snapshot(lecturerActor)
	assert.Len(t, snap, len(Actions()))
	assert.True(t, snap[CreateReport])
	assert.False(t, snap[DeleteReport])
}
