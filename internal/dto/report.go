package dto

import (
	"time"

	"github.com/noah-isme/integrity-report-api/internal/models"
)

// CreateReportRequest captures the submission form. Enumerations arrive as
// free text and are normalised by the service.
type CreateReportRequest struct {
	StudentName          string           `json:"student_name" validate:"max=255"`
	StudentID            string           `json:"student_id" validate:"max=64"`
	StudentClass         string           `json:"student_class,omitempty" validate:"max=64"`
	CourseCode           string           `json:"course_code" validate:"max=64"`
	ExamName             string           `json:"exam_name" validate:"max=255"`
	ExamCode             string           `json:"exam_code" validate:"max=64"`
	IncidentDate         string           `json:"incident_date" validate:"max=32"`
	IncidentTime         string           `json:"incident_time" validate:"max=32"`
	ExamRoom             string           `json:"exam_room" validate:"max=64"`
	IncidentType         string           `json:"incident_type" validate:"max=32"`
	CheatingMethod       string           `json:"cheating_method"`
	Description          string           `json:"description"`
	InvigilatorName      string           `json:"invigilator_name" validate:"max=255"`
	InvigilatorSignature string           `json:"invigilator_signature,omitempty"`
	Priority             string           `json:"priority,omitempty" validate:"max=16"`
	Witnesses            []models.Witness `json:"witnesses,omitempty" validate:"dive"`
}

// UpdateReportStatusRequest is the PATCH /reports/:id/status payload.
type UpdateReportStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateReportPriorityRequest is the PATCH /reports/:id/priority payload.
type UpdateReportPriorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

// AssignReportRequest assigns or, when empty, clears the handler of a report.
type AssignReportRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// AttachmentLinkResponse carries a signed, expiring download link.
type AttachmentLinkResponse struct {
	AttachmentID string    `json:"attachment_id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
