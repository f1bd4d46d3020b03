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
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type caseRepoStub struct {
	cases      map[string]*models.Case
	lastFilter models.CaseFilter
	created    int
}

func (s *caseRepoStub) Create(ctx context.Context, kase *models.Case, initialNote string) error {
	if s.cases == nil {
		s.cases = make(map[string]*models.Case)
	}
	kase.ID = "case-new"
	kase.CaseCode = "C-2026-00099"
	kase.PublicToken = "tok-new"
	kase.Status = models.StatusSentClinic
	s.cases[kase.ID] = kase
	s.created++
	return nil
}

func (s *caseRepoStub) FindByID(ctx context.Context, id string) (*models.Case, error) {
	if kase, ok := s.cases[id]; ok {
		copied := *kase
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *caseRepoStub) FindByCode(ctx context.Context, code string) (*models.Case, error) {
	for _, kase := range s.cases {
		if kase.CaseCode == code {
			copied := *kase
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *caseRepoStub) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error) {
	s.lastFilter = filter
	var out []models.Case
	for _, kase := range s.cases {
		if filter.LabID != "" && kase.LabID != filter.LabID {
			continue
		}
		out = append(out, *kase)
	}
	return out, len(out), nil
}

func (s *caseRepoStub) Update(ctx context.Context, kase *models.Case) error {
	if _, ok := s.cases[kase.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *kase
	s.cases[kase.ID] = &copied
	return nil
}

func (s *caseRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.cases[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.cases, id)
	return nil
}

type labRepoStub struct {
	labs map[string]*models.Lab
}

func (s *labRepoStub) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	if lab, ok := s.labs[id]; ok {
		copied := *lab
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type eventRepoStub struct {
	events map[string][]models.Event
}

func (s *eventRepoStub) ListByCase(ctx context.Context, caseID string) ([]models.Event, error) {
	return s.events[caseID], nil
}

func newCaseService(cases *caseRepoStub, labs *labRepoStub, events *eventRepoStub) *CaseService {
	if labs == nil {
		labs = &labRepoStub{labs: map[string]*models.Lab{"lab-1": {ID: "lab-1", Name: "Apex"}}}
	}
	if events == nil {
		events = &eventRepoStub{events: map[string][]models.Event{}}
	}
	return NewCaseService(cases, labs, events, nil, validator.New(), nil)
}

func validCreateRequest() dto.CreateCaseRequest {
	return dto.CreateCaseRequest{
		PatientName: "Jane Roe",
		PatientDOB:  time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		LabID:       "6f1b0c52-9f6e-4c2b-9a63-1d2f3a4b5c6d",
	}
}

func TestCaseServiceCreate(t *testing.T) {
	repo := &caseRepoStub{}
	labs := &labRepoStub{labs: map[string]*models.Lab{"6f1b0c52-9f6e-4c2b-9a63-1d2f3a4b5c6d": {ID: "6f1b0c52-9f6e-4c2b-9a63-1d2f3a4b5c6d"}}}
	svc := newCaseService(repo, labs, nil)

	kase, err := svc.Create(context.Background(), clinicClaims(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSentClinic, kase.Status)
	assert.Equal(t, "C-2026-00099", kase.CaseCode)
	assert.Equal(t, 1, repo.created)
}

func TestCaseServiceCreateRejectsLabRole(t *testing.T) {
	repo := &caseRepoStub{}
	svc := newCaseService(repo, nil, nil)

	_, err := svc.Create(context.Background(), labClaims("lab-1"), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.created)
}

func TestCaseServiceCreateUnknownLab(t *testing.T) {
	repo := &caseRepoStub{}
	svc := newCaseService(repo, &labRepoStub{}, nil)

	_, err := svc.Create(context.Background(), clinicClaims(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceGetScopesLabUsers(t *testing.T) {
	repo := &caseRepoStub{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", LabID: "lab-1"},
	}}
	svc := newCaseService(repo, nil, nil)

	_, err := svc.Get(context.Background(), labClaims("lab-1"), "case-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), labClaims("lab-2"), "case-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceListForcesLabFilter(t *testing.T) {
	repo := &caseRepoStub{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", LabID: "lab-1"},
		"case-2": {ID: "case-2", LabID: "lab-2"},
	}}
	svc := newCaseService(repo, nil, nil)

	cases, pagination, err := svc.List(context.Background(), labClaims("lab-1"), dto.CaseQuery{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "lab-1", repo.lastFilter.LabID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestCaseServiceListRejectsBadStatus(t *testing.T) {
	svc := newCaseService(&caseRepoStub{}, nil, nil)

	_, _, err := svc.List(context.Background(), clinicClaims(), dto.CaseQuery{Status: "LOST"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceDeleteClinicOnly(t *testing.T) {
	repo := &caseRepoStub{cases: map[string]*models.Case{"case-1": {ID: "case-1", LabID: "lab-1"}}}
	svc := newCaseService(repo, nil, nil)

	err := svc.Delete(context.Background(), labClaims("lab-1"), "case-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), clinicClaims(), "case-1"))
	assert.Empty(t, repo.cases)
}

func TestCaseServiceEventsRequiresVisibility(t *testing.T) {
	repo := &caseRepoStub{cases: map[string]*models.Case{"case-1": {ID: "case-1", LabID: "lab-1"}}}
	events := &eventRepoStub{events: map[string][]models.Event{
		"case-1": {
			{CaseID: "case-1", Status: models.StatusSentClinic, Actor: models.ActorClinic},
			{CaseID: "case-1", Status: models.StatusReceivedByLab, Actor: models.ActorLab},
		},
	}}
	svc := newCaseService(repo, nil, events)

	trail, err := svc.Events(context.Background(), clinicClaims(), "case-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.StatusSentClinic, trail[0].Status)

	_, err = svc.Events(context.Background(), labClaims("lab-2"), "case-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
