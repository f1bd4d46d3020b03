package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dens-health/casetrack-api/internal/models"
)

// Advisory lock class for per-year case code sequences.
const caseCodeLockClass = 7401

// Attempts for code assignment before the unique constraint violation is
// treated as a server fault.
const codeAssignRetries = 3

const caseColumns = `c.id, c.case_code, c.patient_name, c.patient_dob, c.lab_id, l.name AS lab_name,
		c.status, c.substage, c.eta, c.returned_tracking_no, c.returned_at, c.public_token,
		c.created_by, c.created_at, c.updated_at`

// CaseRepository provides database access for cases and their transitions.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository creates a new instance of CaseRepository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create inserts a new case together with its initial SENT_CLINIC event in a
// single transaction. The case code sequence for the current year is
// serialized with an advisory lock; the unique constraint on case_code is the
// safety net and triggers a bounded retry.
func (r *CaseRepository) Create(ctx context.Context, kase *models.Case, initialNote string) error {
	var lastErr error
	for attempt := 0; attempt < codeAssignRetries; attempt++ {
		lastErr = r.createOnce(ctx, kase, initialNote)
		if lastErr == nil {
			return nil
		}
		if !isUniqueViolation(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("assign case code after %d attempts: %w", codeAssignRetries, lastErr)
}

func (r *CaseRepository) createOnce(ctx context.Context, kase *models.Case, initialNote string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin case transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	year := now.Year()

	if kase.CaseCode == "" {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, caseCodeLockClass, year); err != nil {
			return fmt.Errorf("lock case code sequence: %w", err)
		}

		var lastSeq int
		const seqQuery = `SELECT COALESCE(MAX(SPLIT_PART(case_code, '-', 3)::INTEGER), 0) FROM cases WHERE case_code LIKE $1`
		if err = tx.GetContext(ctx, &lastSeq, seqQuery, fmt.Sprintf("C-%d-%%", year)); err != nil {
			return fmt.Errorf("read case code sequence: %w", err)
		}
		kase.CaseCode = fmt.Sprintf("C-%d-%05d", year, lastSeq+1)
	}

	if kase.ID == "" {
		kase.ID = uuid.NewString()
	}
	if kase.PublicToken == "" {
		kase.PublicToken = uuid.NewString()
	}
	kase.Status = models.StatusSentClinic
	kase.CreatedAt = now
	kase.UpdatedAt = now

	const insertCase = `INSERT INTO cases (id, case_code, patient_name, patient_dob, lab_id, status, substage, eta, public_token, created_by, created_at, updated_at)
		VALUES (:id, :case_code, :patient_name, :patient_dob, :lab_id, :status, :substage, :eta, :public_token, :created_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertCase, kase); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}

	const insertEvent = `INSERT INTO events (id, case_id, status, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertEvent, uuid.NewString(), kase.ID, models.StatusSentClinic, models.ActorClinic, initialNote, now); err != nil {
		return fmt.Errorf("insert initial event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit case: %w", err)
	}
	return nil
}

// TransitionParams holds everything needed to apply a status move atomically.
type TransitionParams struct {
	CaseID     string
	Expected   models.Status
	Target     models.Status
	Actor      models.Actor
	Action     string
	Note       string
	IP         string
	UserAgent  string
	TrackingNo string
}

// AppendTransition sets the case status and appends the audit event in one
// transaction. The status update is a compare-and-swap against the expected
// status; sql.ErrNoRows is returned when another writer got there first, and
// neither write is visible in that case.
func (r *CaseRepository) AppendTransition(ctx context.Context, params TransitionParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	var res sql.Result
	if params.Target == models.StatusReturnedByLab {
		const update = `UPDATE cases SET status = $1, returned_at = $2, returned_tracking_no = COALESCE(NULLIF($3, ''), returned_tracking_no), updated_at = $2
			WHERE id = $4 AND status = $5`
		res, err = tx.ExecContext(ctx, update, params.Target, now, params.TrackingNo, params.CaseID, params.Expected)
	} else {
		const update = `UPDATE cases SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
		res, err = tx.ExecContext(ctx, update, params.Target, now, params.CaseID, params.Expected)
	}
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const insertEvent = `INSERT INTO events (id, case_id, status, action, actor, note, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err = tx.ExecContext(ctx, insertEvent, uuid.NewString(), params.CaseID, params.Target, params.Action, params.Actor, params.Note, params.IP, params.UserAgent, now); err != nil {
		return fmt.Errorf("insert transition event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// FindByID returns a case by identifier including the lab name.
func (r *CaseRepository) FindByID(ctx context.Context, id string) (*models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases c JOIN labs l ON l.id = c.lab_id WHERE c.id = $1 LIMIT 1`, caseColumns)
	var kase models.Case
	if err := r.db.GetContext(ctx, &kase, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case by id: %w", err)
	}
	return &kase, nil
}

// FindByToken resolves the opaque public token to a case.
func (r *CaseRepository) FindByToken(ctx context.Context, token string) (*models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases c JOIN labs l ON l.id = c.lab_id WHERE c.public_token = $1 LIMIT 1`, caseColumns)
	var kase models.Case
	if err := r.db.GetContext(ctx, &kase, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case by token: %w", err)
	}
	return &kase, nil
}

// FindByCode returns a case by its human-readable code, case-insensitively.
func (r *CaseRepository) FindByCode(ctx context.Context, code string) (*models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases c JOIN labs l ON l.id = c.lab_id WHERE LOWER(c.case_code) = LOWER($1) LIMIT 1`, caseColumns)
	var kase models.Case
	if err := r.db.GetContext(ctx, &kase, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case by code: %w", err)
	}
	return &kase, nil
}

// List returns cases matching the filter with total count, newest first.
func (r *CaseRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error) {
	baseQuery := `FROM cases c JOIN labs l ON l.id = c.lab_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.LabID != "" {
		conditions = append(conditions, fmt.Sprintf("c.lab_id = $%d", len(args)+1))
		args = append(args, filter.LabID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.patient_name) LIKE $%d OR LOWER(c.case_code) LIKE $%d OR LOWER(l.name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d", caseColumns, baseQuery, pageSize, offset)

	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	return cases, total, nil
}

// Update edits the non-status fields of a case. The case code, status and
// public token are never touched here.
func (r *CaseRepository) Update(ctx context.Context, kase *models.Case) error {
	kase.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cases SET patient_name = :patient_name, patient_dob = :patient_dob, lab_id = :lab_id,
		substage = :substage, eta = :eta, returned_tracking_no = :returned_tracking_no, updated_at = :updated_at
		WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, kase)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a case. Events and comments go with it via FK cascade.
func (r *CaseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountsByStatus aggregates cases per workflow stage.
func (r *CaseRepository) CountsByStatus(ctx context.Context) (*models.StatusCounts, error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE status = 'SENT_CLINIC') AS sent,
		COUNT(*) FILTER (WHERE status = 'RECEIVED_BY_LAB') AS in_lab,
		COUNT(*) FILTER (WHERE status = 'RETURNED_BY_LAB') AS returned,
		COUNT(*) FILTER (WHERE status = 'RECEIVED_BY_CLINIC') AS completed
		FROM cases`
	var counts models.StatusCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count cases by status: %w", err)
	}
	return &counts, nil
}

// Recent returns the newest cases for the dashboard.
func (r *CaseRepository) Recent(ctx context.Context, limit int) ([]models.Case, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM cases c JOIN labs l ON l.id = c.lab_id ORDER BY c.created_at DESC LIMIT %d", caseColumns, limit)
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query); err != nil {
		return nil, fmt.Errorf("recent cases: %w", err)
	}
	return cases, nil
}

// DistinctLabNames lists lab names that currently have cases, for filters.
func (r *CaseRepository) DistinctLabNames(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT l.name FROM cases c JOIN labs l ON l.id = c.lab_id ORDER BY l.name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("distinct lab names: %w", err)
	}
	return names, nil
}
