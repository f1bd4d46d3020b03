package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dens-health/casetrack-api/internal/models"
)

const settingsName = "default"

// SettingsRepository stores the singleton clinic-wide settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrInit returns the settings row, creating it with the provided default
// PIN hash when absent so the system is never unconfigured. The insert is
// idempotent under concurrent first access.
func (r *SettingsRepository) GetOrInit(ctx context.Context, defaultPINHash string) (*models.AppSettings, error) {
	const insert = `INSERT INTO app_settings (name, clinic_pin_hash, updated_at)
		VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, settingsName, defaultPINHash, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("init app settings: %w", err)
	}

	const query = `SELECT name, clinic_pin_hash, updated_at FROM app_settings WHERE name = $1 LIMIT 1`
	var settings models.AppSettings
	if err := r.db.GetContext(ctx, &settings, query, settingsName); err != nil {
		return nil, fmt.Errorf("get app settings: %w", err)
	}
	return &settings, nil
}

// UpdateClinicPINHash overwrites the global clinic PIN hash.
func (r *SettingsRepository) UpdateClinicPINHash(ctx context.Context, pinHash string) error {
	const query = `UPDATE app_settings SET clinic_pin_hash = $2, updated_at = $3 WHERE name = $1`
	if _, err := r.db.ExecContext(ctx, query, settingsName, pinHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update clinic pin hash: %w", err)
	}
	return nil
}
