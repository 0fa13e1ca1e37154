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
	"github.com/lib/pq"

	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/pkg/database"
)

const reportColumns = `id, student_name, student_id, student_class, course_code, exam_name, exam_code,
incident_date, incident_time, exam_room, incident_type, cheating_method, description,
invigilator_name, invigilator_signature, priority, status, reported_by, reporter_email,
reporter_id, assigned_to, created_at, updated_at`

const attachmentColumns = `id, report_id, position, name, content_type, size_bytes, storage_key, uploaded_at`

// ReportRepository persists reports with their witnesses and attachment metadata.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts report, witnesses and attachments in one transaction.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertReport = `INSERT INTO reports (id, student_name, student_id, student_class, course_code, exam_name, exam_code,
incident_date, incident_time, exam_room, incident_type, cheating_method, description, invigilator_name,
invigilator_signature, priority, status, reported_by, reporter_email, reporter_id, assigned_to, created_at, updated_at)
VALUES (:id, :student_name, :student_id, :student_class, :course_code, :exam_name, :exam_code,
:incident_date, :incident_time, :exam_room, :incident_type, :cheating_method, :description, :invigilator_name,
:invigilator_signature, :priority, :status, :reported_by, :reporter_email, :reporter_id, :assigned_to, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertReport, report); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}

		const insertWitness = `INSERT INTO witnesses (report_id, position, name, registration_number) VALUES ($1, $2, $3, $4)`
		for i, w := range report.Witnesses {
			if _, err := tx.ExecContext(ctx, insertWitness, report.ID, i, w.Name, w.RegistrationNumber); err != nil {
				return fmt.Errorf("insert witness: %w", err)
			}
		}

		const insertAttachment = `INSERT INTO report_attachments (id, report_id, position, name, content_type, size_bytes, storage_key, uploaded_at)
VALUES (:id, :report_id, :position, :name, :content_type, :size_bytes, :storage_key, :uploaded_at)`
		for i := range report.Attachments {
			att := &report.Attachments[i]
			att.ReportID = report.ID
			att.Position = i
			if _, err := tx.NamedExecContext(ctx, insertAttachment, att); err != nil {
				return fmt.Errorf("insert attachment: %w", err)
			}
		}
		return nil
	})
}

// FindByID returns a report with its children or sql.ErrNoRows.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	reports := []models.Report{report}
	if err := r.loadChildren(ctx, reports); err != nil {
		return nil, err
	}
	return &reports[0], nil
}

// List returns a page of reports matching the filter plus the total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	where, args := buildReportWhere(filter)
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s FROM reports%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", reportColumns, where, pageSize, offset)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reports"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	if err := r.loadChildren(ctx, reports); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// ListAll returns every report, newest first, for export.
func (r *ReportRepository) ListAll(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list all reports: %w", err)
	}
	if err := r.loadChildren(ctx, reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// UpdateStatus sets status and updated_at. Missing rows yield sql.ErrNoRows.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, updatedAt time.Time) error {
	const query = `UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update report status", query, id, status, updatedAt)
}

// UpdatePriority sets priority and updated_at.
func (r *ReportRepository) UpdatePriority(ctx context.Context, id string, priority models.ReportPriority, updatedAt time.Time) error {
	const query = `UPDATE reports SET priority = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update report priority", query, id, priority, updatedAt)
}

// UpdateAssignment sets or clears assigned_to.
func (r *ReportRepository) UpdateAssignment(ctx context.Context, id string, assignee *string, updatedAt time.Time) error {
	const query = `UPDATE reports SET assigned_to = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update report assignment", query, id, assignee, updatedAt)
}

// Delete removes the report; witnesses and attachment rows cascade.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete report", `DELETE FROM reports WHERE id = $1`, id)
}

// FindAttachment returns attachment metadata scoped to its report.
func (r *ReportRepository) FindAttachment(ctx context.Context, reportID, attachmentID string) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM report_attachments WHERE report_id = $1 AND id = $2`
	var att models.Attachment
	if err := r.db.GetContext(ctx, &att, query, reportID, attachmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	return &att, nil
}

func (r *ReportRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type witnessRow struct {
	ReportID string `db:"report_id"`
	models.Witness
}

// loadChildren fills witnesses and attachments for every report in two queries.
func (r *ReportRepository) loadChildren(ctx context.Context, reports []models.Report) error {
	if len(reports) == 0 {
		return nil
	}
	ids := make([]string, len(reports))
	index := make(map[string]int, len(reports))
	for i := range reports {
		ids[i] = reports[i].ID
		index[reports[i].ID] = i
		reports[i].Witnesses = []models.Witness{}
		reports[i].Attachments = []models.Attachment{}
	}

	var witnesses []witnessRow
	const witnessQuery = `SELECT report_id, name, registration_number FROM witnesses WHERE report_id = ANY($1) ORDER BY report_id, position`
	if err := r.db.SelectContext(ctx, &witnesses, witnessQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("load witnesses: %w", err)
	}
	for _, w := range witnesses {
		if i, ok := index[w.ReportID]; ok {
			reports[i].Witnesses = append(reports[i].Witnesses, w.Witness)
		}
	}

	var attachments []models.Attachment
	attachmentQuery := `SELECT ` + attachmentColumns + ` FROM report_attachments WHERE report_id = ANY($1) ORDER BY report_id, position`
	if err := r.db.SelectContext(ctx, &attachments, attachmentQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	for _, a := range attachments {
		if i, ok := index[a.ReportID]; ok {
			reports[i].Attachments = append(reports[i].Attachments, a)
		}
	}
	return nil
}

var reportSearchColumns = []string{"student_name", "student_id", "course_code", "exam_name", "exam_code"}

// likeEscaper keeps user input from acting as LIKE wildcards.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildReportWhere(filter models.ReportFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.ReporterID != "" {
		args = append(args, filter.ReporterID)
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.IncidentType != nil {
		args = append(args, *filter.IncidentType)
		conditions = append(conditions, fmt.Sprintf("incident_type = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(search))+"%")
		n := len(args)
		var matches []string
		for _, col := range reportSearchColumns {
			matches = append(matches, fmt.Sprintf(`LOWER(%s) LIKE $%d ESCAPE '\'`, col, n))
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
