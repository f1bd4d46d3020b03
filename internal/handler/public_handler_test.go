package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/models"
	"github.com/dens-health/casetrack-api/internal/repository"
	"github.com/dens-health/casetrack-api/internal/service"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
)

type publicCaseRepoStub struct {
	kase *models.Case
}

func (s *publicCaseRepoStub) FindByID(ctx context.Context, id string) (*models.Case, error) {
	if s.kase == nil || s.kase.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.kase
	return &copied, nil
}

func (s *publicCaseRepoStub) FindByToken(ctx context.Context, token string) (*models.Case, error) {
	if s.kase == nil || s.kase.PublicToken != token {
		return nil, sql.ErrNoRows
	}
	copied := *s.kase
	return &copied, nil
}

func (s *publicCaseRepoStub) AppendTransition(ctx context.Context, params repository.TransitionParams) error {
	if s.kase.Status != params.Expected {
		return sql.ErrNoRows
	}
	s.kase.Status = params.Target
	return nil
}

type publicPinStub struct {
	labPin    string
	clinicPin string
}

func (p *publicPinStub) CheckLabPIN(ctx context.Context, labID, pin string) (bool, error) {
	return p.labPin != "" && p.labPin == pin, nil
}

func (p *publicPinStub) CheckClinicPIN(ctx context.Context, pin string) (bool, error) {
	return p.clinicPin != "" && p.clinicPin == pin, nil
}

type publicEnvelope struct {
	Data  *dto.PublicCaseView `json:"data"`
	Error *appErrors.Error    `json:"error"`
}

func newPublicRouter(repo *publicCaseRepoStub, pins *publicPinStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	status := service.NewStatusService(repo, pins, service.NewMetricsService(), nil, nil)
	h := NewPublicHandler(status)

	r := gin.New()
	r.GET("/public/:token", h.View)
	r.POST("/public/:token/transition", h.Transition)
	return r
}

func publicTestCase() *models.Case {
	return &models.Case{
		ID:          "case-1",
		CaseCode:    "C-2026-00001",
		PatientName: "Jane Roe",
		LabID:       "lab-1",
		LabName:     "Apex Dental Lab",
		Status:      models.StatusSentClinic,
		PublicToken: "tok-1",
	}
}

func TestPublicHandlerView(t *testing.T) {
	router := newPublicRouter(&publicCaseRepoStub{kase: publicTestCase()}, &publicPinStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/public/tok-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body publicEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Data)
	assert.Equal(t, "C-2026-00001", body.Data.CaseCode)
	assert.Equal(t, "Apex Dental Lab", body.Data.LabName)
	assert.Equal(t, models.StatusSentClinic, body.Data.Status)
	assert.ElementsMatch(t, []models.Status{models.StatusReceivedByLab, models.StatusReturnedByLab}, body.Data.Allowed)
}

func TestPublicHandlerViewUnknownToken(t *testing.T) {
	router := newPublicRouter(&publicCaseRepoStub{kase: publicTestCase()}, &publicPinStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/public/tok-unknown", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body publicEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, body.Error.Code)
}

func TestPublicHandlerTransition(t *testing.T) {
	repo := &publicCaseRepoStub{kase: publicTestCase()}
	router := newPublicRouter(repo, &publicPinStub{labPin: "123456"})

	payload, _ := json.Marshal(dto.PublicTransitionRequest{Action: "receive_lab", Pin: "123456"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/public/tok-1/transition", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body publicEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Data)
	assert.Equal(t, models.StatusReceivedByLab, body.Data.Status)
	assert.Equal(t, models.StatusReceivedByLab, repo.kase.Status)
}

func TestPublicHandlerTransitionWrongPin(t *testing.T) {
	repo := &publicCaseRepoStub{kase: publicTestCase()}
	router := newPublicRouter(repo, &publicPinStub{labPin: "123456"})

	payload, _ := json.Marshal(dto.PublicTransitionRequest{Action: "receive_lab", Pin: "999999"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/public/tok-1/transition", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	var body publicEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, appErrors.ErrPinIncorrect.Code, body.Error.Code)
	assert.Equal(t, models.StatusSentClinic, repo.kase.Status)
}

func TestPublicHandlerTransitionIllegalMove(t *testing.T) {
	kase := publicTestCase()
	kase.Status = models.StatusReceivedByClinic
	router := newPublicRouter(&publicCaseRepoStub{kase: kase}, &publicPinStub{labPin: "123456"})

	payload, _ := json.Marshal(dto.PublicTransitionRequest{Action: "receive_lab", Pin: "123456"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/public/tok-1/transition", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	var body publicEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, body.Error.Code)
}

func TestPublicHandlerTransitionMissingPin(t *testing.T) {
	router := newPublicRouter(&publicCaseRepoStub{kase: publicTestCase()}, &publicPinStub{labPin: "123456"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/public/tok-1/transition", bytes.NewReader([]byte(`{"action":"receive_lab"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
