package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dens-health/casetrack-api/internal/models"
	"github.com/dens-health/casetrack-api/pkg/config"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type credentialLabRepoStub struct {
	labs map[string]*models.Lab
}

func (s *credentialLabRepoStub) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	if lab, ok := s.labs[id]; ok {
		copied := *lab
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *credentialLabRepoStub) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	lab, ok := s.labs[id]
	if !ok {
		return sql.ErrNoRows
	}
	lab.PINHash = pinHash
	return nil
}

type settingsRepoStub struct {
	settings *models.AppSettings
}

func (s *settingsRepoStub) GetOrInit(ctx context.Context, defaultPINHash string) (*models.AppSettings, error) {
	if s.settings == nil {
		s.settings = &models.AppSettings{
			Name:          "default",
			ClinicPINHash: defaultPINHash,
			UpdatedAt:     time.Now().UTC(),
		}
	}
	copied := *s.settings
	return &copied, nil
}

func (s *settingsRepoStub) UpdateClinicPINHash(ctx context.Context, pinHash string) error {
	if s.settings == nil {
		s.settings = &models.AppSettings{Name: "default"}
	}
	s.settings.ClinicPINHash = pinHash
	return nil
}

func mustHash(t *testing.T, pin string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func strictCredentials(labs *credentialLabRepoStub, settings *settingsRepoStub) *CredentialService {
	return NewCredentialService(labs, settings, nil, config.PinConfig{Policy: config.PinPolicyStrict, DefaultPin: "000000"})
}

func TestCredentialServiceValidatePINStrict(t *testing.T) {
	svc := strictCredentials(&credentialLabRepoStub{}, &settingsRepoStub{})

	require.NoError(t, svc.ValidatePIN("123456"))
	for _, pin := range []string{"12345", "1234567", "12345a", "", "abcdef"} {
		err := svc.ValidatePIN(pin)
		require.Error(t, err, pin)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCredentialServiceValidatePINRelaxed(t *testing.T) {
	svc := NewCredentialService(&credentialLabRepoStub{}, &settingsRepoStub{}, nil, config.PinConfig{Policy: config.PinPolicyRelaxed})

	require.NoError(t, svc.ValidatePIN("abc123"))
	require.NoError(t, svc.ValidatePIN("A1B2C3D4E5"))
	require.Error(t, svc.ValidatePIN("short"))
	require.Error(t, svc.ValidatePIN("toolongtoolong"))
	require.Error(t, svc.ValidatePIN("with space"))
}

func TestCredentialServiceLabPinRoundTrip(t *testing.T) {
	labs := &credentialLabRepoStub{labs: map[string]*models.Lab{"lab-1": {ID: "lab-1", Name: "Apex"}}}
	svc := strictCredentials(labs, &settingsRepoStub{})

	require.NoError(t, svc.SetLabPIN(context.Background(), "lab-1", "123456"))

	ok, err := svc.CheckLabPIN(context.Background(), "lab-1", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckLabPIN(context.Background(), "lab-1", "654321")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialServiceLabPinUnsetNeverMatches(t *testing.T) {
	labs := &credentialLabRepoStub{labs: map[string]*models.Lab{"lab-1": {ID: "lab-1"}}}
	svc := strictCredentials(labs, &settingsRepoStub{})

	ok, err := svc.CheckLabPIN(context.Background(), "lab-1", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CheckLabPIN(context.Background(), "lab-1", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialServiceLabPinUnknownLab(t *testing.T) {
	svc := strictCredentials(&credentialLabRepoStub{}, &settingsRepoStub{})

	ok, err := svc.CheckLabPIN(context.Background(), "lab-missing", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialServiceSetLabPinUnknownLab(t *testing.T) {
	svc := strictCredentials(&credentialLabRepoStub{}, &settingsRepoStub{})

	err := svc.SetLabPIN(context.Background(), "lab-missing", "123456")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCredentialServiceClinicPinDefaultsOnFirstUse(t *testing.T) {
	settings := &settingsRepoStub{}
	svc := strictCredentials(&credentialLabRepoStub{}, settings)

	ok, err := svc.CheckClinicPIN(context.Background(), "000000")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckClinicPIN(context.Background(), "111111")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialServiceClinicPinRotation(t *testing.T) {
	settings := &settingsRepoStub{settings: &models.AppSettings{Name: "default", ClinicPINHash: mustHash(t, "000000")}}
	svc := strictCredentials(&credentialLabRepoStub{}, settings)

	// Wrong current PIN is rejected.
	err := svc.SetClinicPIN(context.Background(), "999999", "222222")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPinIncorrect.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.SetClinicPIN(context.Background(), "000000", "222222"))

	ok, err := svc.CheckClinicPIN(context.Background(), "222222")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckClinicPIN(context.Background(), "000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialServiceClinicPinRotationWithoutExisting(t *testing.T) {
	settings := &settingsRepoStub{settings: &models.AppSettings{Name: "default"}}
	svc := strictCredentials(&credentialLabRepoStub{}, settings)

	// No PIN configured yet; current PIN is not required.
	require.NoError(t, svc.SetClinicPIN(context.Background(), "", "333333"))

	ok, err := svc.CheckClinicPIN(context.Background(), "333333")
	require.NoError(t, err)
	assert.True(t, ok)
}
