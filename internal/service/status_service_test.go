package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/models"
	"github.com/dens-health/casetrack-api/internal/repository"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type statusCaseRepoStub struct {
	kase        *models.Case
	applied     []repository.TransitionParams
	failNext    int
	applyErr    error
	tokenNoRows bool
}

func (s *statusCaseRepoStub) FindByID(ctx context.Context, id string) (*models.Case, error) {
	if s.kase == nil || s.kase.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.kase
	return &copied, nil
}

func (s *statusCaseRepoStub) FindByToken(ctx context.Context, token string) (*models.Case, error) {
	if s.tokenNoRows || s.kase == nil || s.kase.PublicToken != token {
		return nil, sql.ErrNoRows
	}
	copied := *s.kase
	return &copied, nil
}

func (s *statusCaseRepoStub) AppendTransition(ctx context.Context, params repository.TransitionParams) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	if s.failNext > 0 {
		s.failNext--
		return sql.ErrNoRows
	}
	if s.kase.Status != params.Expected {
		return sql.ErrNoRows
	}
	s.applied = append(s.applied, params)
	s.kase.Status = params.Target
	s.kase.UpdatedAt = time.Now().UTC()
	return nil
}

type pinCheckerStub struct {
	labPin    string
	clinicPin string
	err       error
}

func (p *pinCheckerStub) CheckLabPIN(ctx context.Context, labID, pin string) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	return p.labPin != "" && p.labPin == pin, nil
}

func (p *pinCheckerStub) CheckClinicPIN(ctx context.Context, pin string) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	return p.clinicPin != "" && p.clinicPin == pin, nil
}

func testCase(status models.Status) *models.Case {
	return &models.Case{
		ID:          "case-1",
		CaseCode:    "C-2026-00001",
		PatientName: "Jane Roe",
		LabID:       "lab-1",
		LabName:     "Apex Dental Lab",
		Status:      status,
		PublicToken: "tok-1",
	}
}

func clinicClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-clinic", Role: models.RoleClinic}
}

func labClaims(labID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-lab", Role: models.RoleLab, LabID: &labID}
}

func newStatusService(repo *statusCaseRepoStub, pins *pinCheckerStub) *StatusService {
	return NewStatusService(repo, pins, NewMetricsService(), validator.New(), nil)
}

func TestStatusServiceApplyHappyPath(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	kase, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceivedByLab, kase.Status)
	require.Len(t, repo.applied, 1)
	assert.Equal(t, models.ActorClinic, repo.applied[0].Actor)
}

func TestStatusServiceApplyDirectReturnFromSent(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	kase, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: models.StatusReturnedByLab}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturnedByLab, kase.Status)
}

func TestStatusServiceApplyRejectsIllegalMove(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByClinic}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.applied)
}

func TestStatusServiceApplyRejectsRepeatedMove(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusReceivedByLab)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyTerminalIsFrozen(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusReceivedByClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	for _, target := range []models.Status{models.StatusSentClinic, models.StatusReceivedByLab, models.StatusReturnedByLab} {
		_, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: target}, models.RequestMeta{})
		require.Error(t, err, string(target))
		assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	}
}

func TestStatusServiceApplyLabScope(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), labClaims("lab-other"), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyLabCannotCompleteCase(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusReturnedByLab)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), labClaims("lab-1"), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByClinic}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyLabRecordsLabActor(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), labClaims("lab-1"), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.NoError(t, err)
	require.Len(t, repo.applied, 1)
	assert.Equal(t, models.ActorLab, repo.applied[0].Actor)
}

func TestStatusServiceApplyRetriesLostRace(t *testing.T) {
	// First CAS attempt loses; the reload sees the same status so the
	// retry succeeds.
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic), failNext: 1}
	svc := newStatusService(repo, &pinCheckerStub{})

	kase, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceivedByLab, kase.Status)
}

func TestStatusServiceApplyRaceAgainstIdenticalMove(t *testing.T) {
	// The concurrent writer already applied the same move; after the
	// reload the transition is no longer legal.
	repo := &statusCaseRepoStub{kase: testCase(models.StatusReceivedByLab)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyGivesUpAfterRetry(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic), failNext: 2}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), clinicClaims(), "case-1", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransitionRace.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyUnknownCase(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.Apply(context.Background(), clinicClaims(), "case-missing", dto.TransitionRequest{Target: models.StatusReceivedByLab}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStatusServicePublicView(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	view, err := svc.PublicView(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "C-2026-00001", view.CaseCode)
	assert.Equal(t, models.StatusSentClinic, view.Status)
	assert.ElementsMatch(t, []models.Status{models.StatusReceivedByLab, models.StatusReturnedByLab}, view.Allowed)
}

func TestStatusServicePublicViewUnknownToken(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.PublicView(context.Background(), "tok-unknown")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyPublicReceiveLab(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{labPin: "123456"})

	view, err := svc.ApplyPublic(context.Background(), "tok-1", dto.PublicTransitionRequest{Action: "receive_lab", Pin: "123456"}, models.RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceivedByLab, view.Status)
	require.Len(t, repo.applied, 1)
	assert.Equal(t, models.ActorLab, repo.applied[0].Actor)
	assert.Equal(t, "receive_lab", repo.applied[0].Action)
	assert.Equal(t, "10.0.0.1", repo.applied[0].IP)
}

func TestStatusServiceApplyPublicReceiveClinicUsesClinicActor(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusReturnedByLab)}
	svc := newStatusService(repo, &pinCheckerStub{clinicPin: "654321"})

	view, err := svc.ApplyPublic(context.Background(), "tok-1", dto.PublicTransitionRequest{Action: "receive_clinic", Pin: "654321"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceivedByClinic, view.Status)
	require.Len(t, repo.applied, 1)
	assert.Equal(t, models.ActorClinic, repo.applied[0].Actor)
}

func TestStatusServiceApplyPublicWrongPinLeavesNoTrace(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{labPin: "123456"})

	_, err := svc.ApplyPublic(context.Background(), "tok-1", dto.PublicTransitionRequest{Action: "receive_lab", Pin: "999999"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPinIncorrect.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.applied)
	assert.Equal(t, models.StatusSentClinic, repo.kase.Status)
}

func TestStatusServiceApplyPublicUnsetPinAlwaysFails(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{})

	_, err := svc.ApplyPublic(context.Background(), "tok-1", dto.PublicTransitionRequest{Action: "receive_lab", Pin: "123456"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPinIncorrect.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.applied)
}

func TestStatusServiceApplyPublicIllegalMoveBeforePinCheck(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{clinicPin: "654321"})

	_, err := svc.ApplyPublic(context.Background(), "tok-1", dto.PublicTransitionRequest{Action: "receive_clinic", Pin: "654321"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyPublicUnknownAction(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{labPin: "123456"})

	_, err := svc.ApplyPublic(context.Background(), "tok-1", dto.PublicTransitionRequest{Action: "teleport", Pin: "123456"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatusServiceApplyPublicFullChain(t *testing.T) {
	repo := &statusCaseRepoStub{kase: testCase(models.StatusSentClinic)}
	svc := newStatusService(repo, &pinCheckerStub{labPin: "123456", clinicPin: "654321"})

	steps := []struct {
		action string
		pin    string
		want   models.Status
	}{
		{"receive_lab", "123456", models.StatusReceivedByLab},
		{"return_lab", "123456", models.StatusReturnedByLab},
		{"receive_clinic", "654321", models.StatusReceivedByClinic},
	}
	for _, step := range steps {
		view, err := svc.ApplyPublic(context.Background(), "tok-1", dto.PublicTransitionRequest{Action: step.action, Pin: step.pin}, models.RequestMeta{})
		require.NoError(t, err, step.action)
		assert.Equal(t, step.want, view.Status)
	}
	assert.Empty(t, models.AllowedNext(repo.kase.Status))
}
