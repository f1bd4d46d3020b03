package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dens-health/casetrack-api/internal/models"
	"github.com/dens-health/casetrack-api/pkg/config"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

// Credential kinds gating the public transition actions.
const (
	CredentialLab    = "lab"
	CredentialClinic = "clinic"
)

var (
	pinStrictPattern  = regexp.MustCompile(`^[0-9]{6}$`)
	pinRelaxedPattern = regexp.MustCompile(`^[a-zA-Z0-9]{6,10}$`)
)

type credentialLabRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lab, error)
	UpdatePINHash(ctx context.Context, id, pinHash string) error
}

type credentialSettingsRepository interface {
	GetOrInit(ctx context.Context, defaultPINHash string) (*models.AppSettings, error)
	UpdateClinicPINHash(ctx context.Context, pinHash string) error
}

// CredentialService owns PIN hashing, verification and rotation for labs and
// the clinic. PIN checks against an unset hash always fail; callers cannot
// distinguish "no PIN configured" from "wrong PIN".
type CredentialService struct {
	labs     credentialLabRepository
	settings credentialSettingsRepository
	logger   *zap.Logger
	cfg      config.PinConfig
}

// NewCredentialService constructs a CredentialService instance.
func NewCredentialService(labs credentialLabRepository, settings credentialSettingsRepository, logger *zap.Logger, cfg config.PinConfig) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{labs: labs, settings: settings, logger: logger, cfg: cfg}
}

// ValidatePIN checks the candidate PIN against the configured format policy.
func (s *CredentialService) ValidatePIN(pin string) error {
	pattern := pinStrictPattern
	message := "pin must be exactly 6 digits"
	if s.cfg.Policy == config.PinPolicyRelaxed {
		pattern = pinRelaxedPattern
		message = "pin must be 6-10 letters or digits"
	}
	if !pattern.MatchString(pin) {
		return appErrors.Clone(appErrors.ErrValidation, message)
	}
	return nil
}

// SetLabPIN rotates a lab's PIN.
func (s *CredentialService) SetLabPIN(ctx context.Context, labID, newPin string) error {
	if err := s.ValidatePIN(newPin); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPin), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}
	if err := s.labs.UpdatePINHash(ctx, labID, string(hash)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pin")
	}
	s.logger.Info("lab pin rotated", zap.String("lab_id", labID))
	return nil
}

// CheckLabPIN verifies a candidate PIN against the lab's stored hash.
func (s *CredentialService) CheckLabPIN(ctx context.Context, labID, pin string) (bool, error) {
	lab, err := s.labs.FindByID(ctx, labID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("load lab for pin check: %w", err)
	}
	return verifyPIN(lab.PINHash, pin), nil
}

// SetClinicPIN rotates the global clinic PIN. When a PIN is already
// configured the current one must be supplied and match.
func (s *CredentialService) SetClinicPIN(ctx context.Context, currentPin, newPin string) error {
	if err := s.ValidatePIN(newPin); err != nil {
		return err
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return err
	}

	if settings.ClinicPINHash != "" && !verifyPIN(settings.ClinicPINHash, currentPin) {
		return appErrors.Clone(appErrors.ErrPinIncorrect, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPin), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}
	if err := s.settings.UpdateClinicPINHash(ctx, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pin")
	}
	s.logger.Info("clinic pin rotated")
	return nil
}

// CheckClinicPIN verifies a candidate PIN against the clinic-wide hash.
func (s *CredentialService) CheckClinicPIN(ctx context.Context, pin string) (bool, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return false, err
	}
	return verifyPIN(settings.ClinicPINHash, pin), nil
}

// loadSettings fetches the singleton settings row, seeding the clinic PIN
// from the configured default on first access.
func (s *CredentialService) loadSettings(ctx context.Context) (*models.AppSettings, error) {
	defaultHash := ""
	if s.cfg.DefaultPin != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.DefaultPin), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash default pin")
		}
		defaultHash = string(hash)
	}
	settings, err := s.settings.GetOrInit(ctx, defaultHash)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

func verifyPIN(hash, pin string) bool {
	if hash == "" || pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
