package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dens-health/casetrack-api/internal/models"
)

// CommentRepository stores free-text case messages.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new instance of CommentRepository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends a comment to a case.
func (r *CommentRepository) Create(ctx context.Context, comment *models.CaseComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO case_comments (id, case_id, author_id, text, created_at)
		VALUES (:id, :case_id, :author_id, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByCase returns a case's comments oldest first, with author names.
func (r *CommentRepository) ListByCase(ctx context.Context, caseID string) ([]models.CaseComment, error) {
	const query = `SELECT cc.id, cc.case_id, cc.author_id, u.full_name AS author_name, cc.text, cc.created_at
		FROM case_comments cc JOIN users u ON u.id = cc.author_id
		WHERE cc.case_id = $1 ORDER BY cc.created_at ASC`
	var comments []models.CaseComment
	if err := r.db.SelectContext(ctx, &comments, query, caseID); err != nil {
		return nil, fmt.Errorf("list comments for case: %w", err)
	}
	return comments, nil
}
