package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/models"
	"github.com/dens-health/casetrack-api/internal/repository"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type labRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lab, error)
	List(ctx context.Context) ([]models.Lab, error)
	Create(ctx context.Context, lab *models.Lab) error
	Update(ctx context.Context, lab *models.Lab) error
	Delete(ctx context.Context, id string) error
}

// LabService manages external lab master data. PIN rotation lives in the
// CredentialService.
type LabService struct {
	labs      labRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLabService constructs a LabService instance.
func NewLabService(labs labRepository, validate *validator.Validate, logger *zap.Logger) *LabService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LabService{labs: labs, validator: validate, logger: logger}
}

// List returns all labs ordered by name.
func (s *LabService) List(ctx context.Context) ([]models.Lab, error) {
	labs, err := s.labs.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list labs")
	}
	return labs, nil
}

// Get returns a lab by ID.
func (s *LabService) Get(ctx context.Context, id string) (*models.Lab, error) {
	lab, err := s.labs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab")
	}
	return lab, nil
}

// Create registers a new lab. The lab starts without a PIN; public lab-side
// actions stay locked until one is set.
func (s *LabService) Create(ctx context.Context, req dto.CreateLabRequest) (*models.Lab, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lab payload")
	}
	lab := &models.Lab{Name: req.Name, Contact: req.Contact}
	if err := s.labs.Create(ctx, lab); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "lab could not be created")
	}
	s.logger.Info("lab created", zap.String("lab_id", lab.ID), zap.String("name", lab.Name))
	return lab, nil
}

// Update edits lab master data.
func (s *LabService) Update(ctx context.Context, id string, req dto.UpdateLabRequest) (*models.Lab, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lab payload")
	}
	lab, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lab.Name = req.Name
	lab.Contact = req.Contact
	if err := s.labs.Update(ctx, lab); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lab")
	}
	return lab, nil
}

// Delete removes a lab. Labs with cases on file cannot be deleted.
func (s *LabService) Delete(ctx context.Context, id string) error {
	if err := s.labs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrLabInUse) {
			return appErrors.Clone(appErrors.ErrConflict, "lab still has cases on file")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lab")
	}
	s.logger.Info("lab deleted", zap.String("lab_id", id))
	return nil
}
