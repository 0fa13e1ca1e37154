package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/integrity-report-api/internal/models"
)

var reportCols = []string{
	"id", "student_name", "student_id", "student_class", "course_code", "exam_name", "exam_code",
	"incident_date", "incident_time", "exam_room", "incident_type", "cheating_method", "description",
	"invigilator_name", "invigilator_signature", "priority", "status", "reported_by", "reporter_email",
	"reporter_id", "assigned_to", "created_at", "updated_at",
}

func addReportRow(rows *sqlmock.Rows, id string, ts time.Time) *sqlmock.Rows {
	return rows.AddRow(id, "Jane Doe", "S-1", nil, "CS101", "Midterm", "MT-1",
		"2026-03-01", "09:00", "Hall A", "exam_cheating", "phone", "used a phone",
		"Dr. Smith", nil, "MEDIUM", "PENDING", "Lecturer One", "lect@example.com",
		"lect-1", nil, ts, ts)
}

func sampleReport() *models.Report {
	now := time.Now().UTC()
	return &models.Report{
		ID:            "r-1",
		StudentName:   "Jane Doe",
		Status:        models.ReportStatusPending,
		Priority:      models.PriorityMedium,
		IncidentType:  models.IncidentExamCheating,
		ReporterID:    "lect-1",
		CreatedAt:     now,
		UpdatedAt:     now,
		Witnesses:     []models.Witness{{Name: "B", RegistrationNumber: "123"}},
		Attachments:   []models.Attachment{{ID: "a-1", Name: "photo.jpg", ContentType: "image/jpeg", SizeBytes: 10, StorageKey: "reports/r-1/a-1.jpg", UploadedAt: now}},
		ReporterEmail: "lect@example.com",
	}
}

func TestReportCreateInsertsChildrenInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO witnesses").
		WithArgs("r-1", 0, "B", "123").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO report_attachments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	report := sampleReport()
	require.NoError(t, repo.Create(context.Background(), report))
	assert.Equal(t, "r-1", report.Attachments[0].ReportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCreateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO witnesses").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportFindByIDLoadsChildren(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnRows(addReportRow(sqlmock.NewRows(reportCols), "r-1", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM witnesses WHERE report_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"report_id", "name", "registration_number"}).
			AddRow("r-1", "B", "123").
			AddRow("r-1", "C", "456"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_attachments WHERE report_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_id", "position", "name", "content_type", "size_bytes", "storage_key", "uploaded_at"}).
			AddRow("a-1", "r-1", 0, "photo.jpg", "image/jpeg", 10, "reports/r-1/a-1.jpg", now))

	report, err := repo.FindByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	require.Len(t, report.Witnesses, 2)
	assert.Equal(t, "C", report.Witnesses[1].Name)
	require.Len(t, report.Attachments, 1)
	assert.Equal(t, "reports/r-1/a-1.jpg", report.Attachments[0].StorageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery("FROM reports WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReportListScopesToReporter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	status := models.ReportStatusPending
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE reporter_id = $1 AND status = $2 AND (LOWER(student_name) LIKE $3")).
		WithArgs("lect-1", status, "%cs101%").
		WillReturnRows(addReportRow(sqlmock.NewRows(reportCols), "r-1", now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports WHERE reporter_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM witnesses").WillReturnRows(sqlmock.NewRows([]string{"report_id", "name", "registration_number"}))
	mock.ExpectQuery("FROM report_attachments").WillReturnRows(sqlmock.NewRows([]string{"id", "report_id"}))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{ReporterID: "lect-1", Status: &status, Search: " CS101 "})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, reports, 1)
	assert.NotNil(t, reports[0].Witnesses)
	assert.Empty(t, reports[0].Attachments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportListEmptySkipsChildren(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reports ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(reportCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("r-1", models.ReportStatusResolved, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), "r-1", models.ReportStatusResolved, ts))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "gone", models.ReportStatusResolved, ts), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportUpdateAssignmentClears(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET assigned_to = $2")).
		WithArgs("r-1", nil, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateAssignment(context.Background(), "r-1", nil, ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "r-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCreateWithoutSignature(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	report := sampleReport()
	report.Witnesses = nil
	report.Attachments = nil
	report.InvigilatorSignature = nil

	args := make([]driver.Value, len(reportCols))
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[3] = nil
	args[14] = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").WithArgs(args...).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportSchemaAllowsMissingSignature(t *testing.T) {
	schema, err := os.ReadFile("../../db/migrations/0001_init.sql")
	require.NoError(t, err)

	line := regexp.MustCompile(`(?m)^\s*invigilator_signature\s+[^\n]*$`).FindString(string(schema))
	require.NotEmpty(t, line)
	assert.NotContains(t, line, "NOT NULL")
}

func TestReportListSearchEscapesWildcards(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`(LOWER(student_name) LIKE $1 ESCAPE '\' OR LOWER(student_id) LIKE $1 ESCAPE '\' OR LOWER(course_code) LIKE $1 ESCAPE '\' OR LOWER(exam_name) LIKE $1 ESCAPE '\' OR LOWER(exam_code) LIKE $1 ESCAPE '\')`)).
		WithArgs(`%100\%\_final\\%`).
		WillReturnRows(sqlmock.NewRows(reportCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports WHERE")).
		WithArgs(`%100\%\_final\\%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{Search: `100%_FINAL\`})
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
