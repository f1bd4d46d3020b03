package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/models"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type caseRepository interface {
	Create(ctx context.Context, kase *models.Case, initialNote string) error
	FindByID(ctx context.Context, id string) (*models.Case, error)
	FindByCode(ctx context.Context, code string) (*models.Case, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error)
	Update(ctx context.Context, kase *models.Case) error
	Delete(ctx context.Context, id string) error
}

type caseLabRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lab, error)
}

type caseEventRepository interface {
	ListByCase(ctx context.Context, caseID string) ([]models.Event, error)
}

// CaseService provides case CRUD and audit trail reads. Status moves are the
// StatusService's job; this service never touches a case's status.
type CaseService struct {
	cases     caseRepository
	labs      caseLabRepository
	events    caseEventRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCaseService constructs a CaseService instance.
func NewCaseService(cases caseRepository, labs caseLabRepository, events caseEventRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CaseService{cases: cases, labs: labs, events: events, cache: cache, validator: validate, logger: logger}
}

// Create registers a new case. The case starts in SENT_CLINIC with a
// server-assigned code and public token, and its creation is the first entry
// of the audit trail.
func (s *CaseService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateCaseRequest) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	if claims == nil || claims.Role != models.RoleClinic {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clinic staff may register cases")
	}

	if _, err := s.labs.FindByID(ctx, req.LabID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lab does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify lab")
	}

	kase := &models.Case{
		PatientName: req.PatientName,
		PatientDOB:  req.PatientDOB,
		LabID:       req.LabID,
		Substage:    req.Substage,
		ETA:         req.ETA,
		CreatedBy:   &claims.UserID,
	}
	if err := s.cases.Create(ctx, kase, "case registered"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("case created", zap.String("case_id", kase.ID), zap.String("case_code", kase.CaseCode))

	return s.cases.FindByID(ctx, kase.ID)
}

// Get returns a case by ID, scoped to the caller's lab for LAB users.
func (s *CaseService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Case, error) {
	kase, err := s.cases.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if err := s.scopeCheck(claims, kase); err != nil {
		return nil, err
	}
	return kase, nil
}

// GetByCode returns a case by its human-readable code.
func (s *CaseService) GetByCode(ctx context.Context, claims *models.JWTClaims, code string) (*models.Case, error) {
	kase, err := s.cases.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if err := s.scopeCheck(claims, kase); err != nil {
		return nil, err
	}
	return kase, nil
}

// List returns cases matching the query. LAB users only ever see their own
// lab's cases regardless of the filters they send.
func (s *CaseService) List(ctx context.Context, claims *models.JWTClaims, query dto.CaseQuery) ([]models.Case, *models.Pagination, error) {
	filter := models.CaseFilter{
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.Limit,
	}
	if query.Status != "" {
		status := models.Status(query.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = status
	}
	if claims != nil && claims.Role == models.RoleLab {
		if claims.LabID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "lab user without lab binding")
		}
		filter.LabID = *claims.LabID
	}

	cases, total, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}
	return cases, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update edits the non-status fields of a case. Clinic only.
func (s *CaseService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateCaseRequest) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	if claims == nil || claims.Role != models.RoleClinic {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only clinic staff may edit cases")
	}

	kase, err := s.Get(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.labs.FindByID(ctx, req.LabID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lab does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify lab")
	}

	kase.PatientName = req.PatientName
	kase.PatientDOB = req.PatientDOB
	kase.LabID = req.LabID
	kase.Substage = req.Substage
	kase.ETA = req.ETA
	kase.ReturnedTrackingNo = req.ReturnedTrackingNo

	if err := s.cases.Update(ctx, kase); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update case")
	}

	s.invalidateDashboard(ctx)
	return s.cases.FindByID(ctx, id)
}

// Delete removes a case and its audit trail. Clinic only.
func (s *CaseService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	if claims == nil || claims.Role != models.RoleClinic {
		return appErrors.Clone(appErrors.ErrForbidden, "only clinic staff may delete cases")
	}
	if err := s.cases.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete case")
	}
	s.invalidateDashboard(ctx)
	s.logger.Info("case deleted", zap.String("case_id", id))
	return nil
}

// Events returns the case's full audit trail, oldest first.
func (s *CaseService) Events(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.Event, error) {
	if _, err := s.Get(ctx, claims, caseID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByCase(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

func (s *CaseService) scopeCheck(claims *models.JWTClaims, kase *models.Case) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if claims.Role == models.RoleLab {
		if claims.LabID == nil || *claims.LabID != kase.LabID {
			return appErrors.Clone(appErrors.ErrForbidden, "case belongs to another lab")
		}
	}
	return nil
}

func (s *CaseService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
