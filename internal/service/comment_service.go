package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/models"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type commentRepository interface {
	Create(ctx context.Context, comment *models.CaseComment) error
	ListByCase(ctx context.Context, caseID string) ([]models.CaseComment, error)
}

// CommentService handles case messages between clinic and lab staff.
type CommentService struct {
	comments  commentRepository
	cases     *CaseService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(comments commentRepository, cases *CaseService, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommentService{comments: comments, cases: cases, validator: validate, logger: logger}
}

// Add posts a comment on a case the caller can see.
func (s *CommentService) Add(ctx context.Context, claims *models.JWTClaims, caseID string, req dto.AddCommentRequest) (*models.CaseComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}

	// The case read applies the lab scope for LAB users.
	if _, err := s.cases.Get(ctx, claims, caseID); err != nil {
		return nil, err
	}

	comment := &models.CaseComment{
		CaseID:     caseID,
		AuthorID:   claims.UserID,
		AuthorName: claims.FullName,
		Text:       text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store comment")
	}
	return comment, nil
}

// List returns the case's comments oldest first.
func (s *CommentService) List(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.CaseComment, error) {
	if _, err := s.cases.Get(ctx, claims, caseID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByCase(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}
