package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/integrity-report-api/internal/models"
	"github.com/noah-isme/integrity-report-api/pkg/database"
)

const upsertSettingQuery = `INSERT INTO settings (key, value, type, description, updated_by, updated_at)
VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, description = EXCLUDED.description,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`

// SettingRepository persists system-wide settings.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs the repository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// List returns every stored setting ordered by key.
func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM settings ORDER BY key ASC`
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Get fetches a single setting by key. Missing keys return sql.ErrNoRows.
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM settings WHERE key = $1`
	var s models.Setting
	if err := r.db.GetContext(ctx, &s, query, key); err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert inserts or updates a setting.
func (r *SettingRepository) Upsert(ctx context.Context, s *models.Setting) error {
	s.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, upsertSettingQuery, s); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// BulkUpsert writes all settings in one transaction.
func (r *SettingRepository) BulkUpsert(ctx context.Context, settings []models.Setting) error {
	if len(settings) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for i := range settings {
			settings[i].UpdatedAt = now
			if _, err := tx.NamedExecContext(ctx, upsertSettingQuery, settings[i]); err != nil {
				return fmt.Errorf("bulk upsert setting %s: %w", settings[i].Key, err)
			}
		}
		return nil
	})
}
