package models

import (
	"strings"
	"time"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportStatusPending     ReportStatus = "PENDING"
	ReportStatusUnderReview ReportStatus = "UNDER_REVIEW"
	ReportStatusResolved    ReportStatus = "RESOLVED"
	ReportStatusDismissed   ReportStatus = "DISMISSED"
)

// ReportStatuses lists every status in display order.
var ReportStatuses = []ReportStatus{ReportStatusPending, ReportStatusUnderReview, ReportStatusResolved, ReportStatusDismissed}

// ParseReportStatus normalises any external spelling of a status.
func ParseReportStatus(raw string) (ReportStatus, bool) {
	switch status := ReportStatus(canonical(raw)); status {
	case ReportStatusPending, ReportStatusUnderReview, ReportStatusResolved, ReportStatusDismissed:
		return status, true
	}
	return "", false
}

// Label renders the status for human facing text, e.g. "under review".
func (s ReportStatus) Label() string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}

// ReportPriority ranks a report for triage.
type ReportPriority string

const (
	PriorityLow    ReportPriority = "LOW"
	PriorityMedium ReportPriority = "MEDIUM"
	PriorityHigh   ReportPriority = "HIGH"
)

var ReportPriorities = []ReportPriority{PriorityLow, PriorityMedium, PriorityHigh}

func ParseReportPriority(raw string) (ReportPriority, bool) {
	switch p := ReportPriority(canonical(raw)); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

// IncidentType classifies the misconduct. Values are lower snake case.
type IncidentType string

const (
	IncidentExamCheating              IncidentType = "exam_cheating"
	IncidentAssignmentPlagiarism      IncidentType = "assignment_plagiarism"
	IncidentUnauthorizedCollaboration IncidentType = "unauthorized_collaboration"
	IncidentOther                     IncidentType = "other"
)

var IncidentTypes = []IncidentType{IncidentExamCheating, IncidentAssignmentPlagiarism, IncidentUnauthorizedCollaboration, IncidentOther}

func ParseIncidentType(raw string) (IncidentType, bool) {
	t := IncidentType(strings.ToLower(canonical(raw)))
	for _, known := range IncidentTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Witness is a named observer of the incident.
type Witness struct {
	Name               string `db:"name" json:"name" validate:"max=255"`
	RegistrationNumber string `db:"registration_number" json:"registration_number" validate:"max=64"`
}

// Blank reports whether either field is empty after trimming.
func (w Witness) Blank() bool {
	return strings.TrimSpace(w.Name) == "" || strings.TrimSpace(w.RegistrationNumber) == ""
}

// Attachment is evidence metadata; bytes live in blob storage under StorageKey.
type Attachment struct {
	ID          string    `db:"id" json:"id"`
	ReportID    string    `db:"report_id" json:"report_id"`
	Position    int       `db:"position" json:"-"`
	Name        string    `db:"name" json:"name"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	StorageKey  string    `db:"storage_key" json:"-"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// Report is a submitted academic integrity incident.
type Report struct {
	ID                   string         `db:"id" json:"id"`
	StudentName          string         `db:"student_name" json:"student_name"`
	StudentID            string         `db:"student_id" json:"student_id"`
	StudentClass         *string        `db:"student_class" json:"student_class,omitempty"`
	CourseCode           string         `db:"course_code" json:"course_code"`
	ExamName             string         `db:"exam_name" json:"exam_name"`
	ExamCode             string         `db:"exam_code" json:"exam_code"`
	IncidentDate         string         `db:"incident_date" json:"incident_date"`
	IncidentTime         string         `db:"incident_time" json:"incident_time"`
	ExamRoom             string         `db:"exam_room" json:"exam_room"`
	IncidentType         IncidentType   `db:"incident_type" json:"incident_type"`
	CheatingMethod       string         `db:"cheating_method" json:"cheating_method"`
	Description          string         `db:"description" json:"description"`
	InvigilatorName      string         `db:"invigilator_name" json:"invigilator_name"`
	InvigilatorSignature *string        `db:"invigilator_signature" json:"invigilator_signature,omitempty"`
	Priority             ReportPriority `db:"priority" json:"priority"`
	Status               ReportStatus   `db:"status" json:"status"`
	ReportedBy           string         `db:"reported_by" json:"reported_by"`
	ReporterEmail        string         `db:"reporter_email" json:"reporter_email"`
	ReporterID           string         `db:"reporter_id" json:"reporter_id"`
	AssignedTo           *string        `db:"assigned_to" json:"assigned_to,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	Witnesses            []Witness      `db:"-" json:"witnesses"`
	Attachments          []Attachment   `db:"-" json:"attachments"`
}

// ReportFilter scopes report listings. ReporterID restricts to one submitter.
type ReportFilter struct {
	Status       *ReportStatus
	Priority     *ReportPriority
	IncidentType *IncidentType
	ReporterID   string
	Search       string
	Page         int
	PageSize     int
}
