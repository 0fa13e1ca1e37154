package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/integrity-report-api/internal/models"
)

// AnalyticsRepository exposes read-optimised aggregate queries over reports.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CountByStatus groups reports by status.
func (r *AnalyticsRepository) CountByStatus(ctx context.Context) ([]models.CountRow, error) {
	return r.countBy(ctx, "status")
}

// CountByIncidentType groups reports by incident type.
func (r *AnalyticsRepository) CountByIncidentType(ctx context.Context) ([]models.CountRow, error) {
	return r.countBy(ctx, "incident_type")
}

// CountByPriority groups reports by priority.
func (r *AnalyticsRepository) CountByPriority(ctx context.Context) ([]models.CountRow, error) {
	return r.countBy(ctx, "priority")
}

// column is always one of the constants above, never user input.
func (r *AnalyticsRepository) countBy(ctx context.Context, column string) ([]models.CountRow, error) {
	query := fmt.Sprintf("SELECT %s AS key, COUNT(*) AS count FROM reports GROUP BY %s ORDER BY %s", column, column, column)
	var rows []models.CountRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count reports by %s: %w", column, err)
	}
	return rows, nil
}
