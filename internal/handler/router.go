package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/integrity-report-api/internal/middleware"
	"github.com/noah-isme/integrity-report-api/internal/policy"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler
	Settings      *SettingHandler
	Analytics     *AnalyticsHandler
	Export        *ExportHandler
}

// RegisterRoutes mounts the API. Every route past /auth/refresh requires a
// bearer token.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	reports := secured.Group("/reports")
	reports.GET("", middleware.Require(policy.ViewOwnReports), h.Reports.List)
	reports.POST("", middleware.Require(policy.CreateReport), h.Reports.Create)
	reports.GET("/:id", middleware.Require(policy.ViewOwnReports), h.Reports.Get)
	reports.PATCH("/:id/status", middleware.Require(policy.EditReportStatus), h.Reports.UpdateStatus)
	reports.PATCH("/:id/priority", middleware.Require(policy.EditReportStatus), h.Reports.UpdatePriority)
	reports.PATCH("/:id/assignment", middleware.Require(policy.EditReportStatus), h.Reports.Assign)
	reports.DELETE("/:id", middleware.Require(policy.DeleteReport), h.Reports.Delete)
	reports.GET("/:id/attachments/:attachmentId", middleware.Require(policy.ViewOwnReports), h.Reports.AttachmentLink)
	reports.GET("/:id/attachments/:attachmentId/download", middleware.Require(policy.ViewOwnReports), h.Reports.DownloadAttachment)

	notifications := secured.Group("/notifications")
	notifications.GET("", middleware.Require(policy.ManageNotifications), h.Notifications.List)
	notifications.GET("/unread-count", middleware.Require(policy.ManageNotifications), h.Notifications.UnreadCount)
	notifications.POST("/read-all", middleware.Require(policy.ManageNotifications), h.Notifications.MarkAllRead)
	notifications.POST("/:id/read", middleware.Require(policy.MarkNotificationRead), h.Notifications.MarkRead)
	notifications.POST("", middleware.Require(policy.SendNotifications), h.Notifications.Broadcast)

	users := secured.Group("/users")
	users.GET("", middleware.Require(policy.ViewUsers), h.Users.List)
	users.POST("", middleware.Require(policy.CreateUser), h.Users.Create)
	users.GET("/:id", middleware.Require(policy.ViewUsers), h.Users.Get)
	users.PUT("/:id", middleware.Require(policy.EditUser), h.Users.Update)
	users.DELETE("/:id", middleware.Require(policy.DeleteUser), h.Users.Delete)

	settings := secured.Group("/settings")
	settings.GET("", h.Settings.List)
	settings.PUT("", middleware.Require(policy.ModifySystemSettings), h.Settings.BulkUpdate)
	settings.PUT("/:key", middleware.Require(policy.ModifySystemSettings), h.Settings.Update)

	analytics := secured.Group("/analytics", middleware.Require(policy.ViewAnalytics))
	analytics.GET("/summary", h.Analytics.Summary)
	analytics.GET("/system", h.Analytics.System)

	secured.GET("/export", middleware.Require(policy.ExportData), h.Export.Export)
}
