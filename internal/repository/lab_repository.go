package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dens-health/casetrack-api/internal/models"
)

// ErrLabInUse is returned when deleting a lab that still owns cases.
var ErrLabInUse = fmt.Errorf("lab has referencing cases")

// LabRepository provides database access for external labs.
type LabRepository struct {
	db *sqlx.DB
}

// NewLabRepository creates a new instance of LabRepository.
func NewLabRepository(db *sqlx.DB) *LabRepository {
	return &LabRepository{db: db}
}

// FindByID returns a lab by identifier.
func (r *LabRepository) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	const query = `SELECT id, name, contact, pin_hash, created_at, updated_at FROM labs WHERE id = $1 LIMIT 1`
	var lab models.Lab
	if err := r.db.GetContext(ctx, &lab, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lab by id: %w", err)
	}
	return &lab, nil
}

// List returns all labs ordered by name.
func (r *LabRepository) List(ctx context.Context) ([]models.Lab, error) {
	const query = `SELECT id, name, contact, pin_hash, created_at, updated_at FROM labs ORDER BY name`
	var labs []models.Lab
	if err := r.db.SelectContext(ctx, &labs, query); err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}
	return labs, nil
}

// Create inserts a new lab.
func (r *LabRepository) Create(ctx context.Context, lab *models.Lab) error {
	if lab.ID == "" {
		lab.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lab.CreatedAt = now
	lab.UpdatedAt = now

	const query = `INSERT INTO labs (id, name, contact, pin_hash, created_at, updated_at)
		VALUES (:id, :name, :contact, :pin_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lab); err != nil {
		if isUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create lab: %w", err)
	}
	return nil
}

// Update edits lab master data, leaving the PIN hash untouched.
func (r *LabRepository) Update(ctx context.Context, lab *models.Lab) error {
	lab.UpdatedAt = time.Now().UTC()
	const query = `UPDATE labs SET name = :name, contact = :contact, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lab)
	if err != nil {
		return fmt.Errorf("update lab: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePINHash overwrites the stored PIN hash.
func (r *LabRepository) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	const query = `UPDATE labs SET pin_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, pinHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lab pin hash: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a lab. The cases FK is RESTRICT; a lab with cases cannot be
// deleted and ErrLabInUse is returned instead.
func (r *LabRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM labs WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrLabInUse
		}
		return fmt.Errorf("delete lab: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
