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

// publicAction binds a public gateway action name to its target status and
// the credential whose PIN gates it.
type publicAction struct {
	Target     models.Status
	Credential string
}

// publicActions is the closed set of actions accepted on the token page.
var publicActions = map[string]publicAction{
	"receive_lab":    {Target: models.StatusReceivedByLab, Credential: CredentialLab},
	"return_lab":     {Target: models.StatusReturnedByLab, Credential: CredentialLab},
	"receive_clinic": {Target: models.StatusReceivedByClinic, Credential: CredentialClinic},
}

type statusCaseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Case, error)
	FindByToken(ctx context.Context, token string) (*models.Case, error)
	AppendTransition(ctx context.Context, params repository.TransitionParams) error
}

type pinChecker interface {
	CheckLabPIN(ctx context.Context, labID, pin string) (bool, error)
	CheckClinicPIN(ctx context.Context, pin string) (bool, error)
}

// StatusService is the single authority for case status moves. Both the
// authenticated API and the public QR gateway go through it; nothing else in
// the codebase mutates a case's status.
type StatusService struct {
	cases       statusCaseRepository
	credentials pinChecker
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStatusService constructs a StatusService instance.
func NewStatusService(cases statusCaseRepository, credentials pinChecker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StatusService{cases: cases, credentials: credentials, metrics: metrics, validator: validate, logger: logger}
}

// Apply moves a case to the requested status on behalf of an authenticated
// user. LAB users may only act on cases bound to their own lab, and only on
// lab-side targets.
func (s *StatusService) Apply(ctx context.Context, claims *models.JWTClaims, caseID string, req dto.TransitionRequest, meta models.RequestMeta) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	if !req.Target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown target status")
	}

	kase, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	actor, err := s.authorize(claims, kase, req.Target)
	if err != nil {
		return nil, err
	}

	params := repository.TransitionParams{
		CaseID:     kase.ID,
		Expected:   kase.Status,
		Target:     req.Target,
		Actor:      actor,
		Note:       req.Note,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		TrackingNo: req.TrackingNo,
	}
	if err := s.apply(ctx, kase, params); err != nil {
		return nil, err
	}

	return s.loadCase(ctx, caseID)
}

// PublicView resolves the opaque token to the reduced case projection shown
// on the QR page.
func (s *StatusService) PublicView(ctx context.Context, token string) (*dto.PublicCaseView, error) {
	kase, err := s.loadCaseByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return publicProjection(kase), nil
}

// ApplyPublic performs a PIN-gated transition from the token page. A failed
// PIN check leaves no trace in the audit log; the rejection is only metered.
// On success the recorded actor is the credential holder, never PUBLIC.
func (s *StatusService) ApplyPublic(ctx context.Context, token string, req dto.PublicTransitionRequest, meta models.RequestMeta) (*dto.PublicCaseView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	action, ok := publicActions[req.Action]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown action")
	}

	kase, err := s.loadCaseByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(kase.Status, action.Target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "")
	}

	ok, err = s.checkPIN(ctx, kase, action, req.Pin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify pin")
	}
	if !ok {
		s.metrics.RecordPinRejected(action.Credential)
		s.logger.Info("public pin rejected",
			zap.String("case_id", kase.ID),
			zap.String("action", req.Action),
			zap.String("ip", meta.IP))
		return nil, appErrors.Clone(appErrors.ErrPinIncorrect, "")
	}

	actor := models.ActorLab
	if action.Credential == CredentialClinic {
		actor = models.ActorClinic
	}

	params := repository.TransitionParams{
		CaseID:    kase.ID,
		Expected:  kase.Status,
		Target:    action.Target,
		Actor:     actor,
		Action:    req.Action,
		Note:      req.Note,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.apply(ctx, kase, params); err != nil {
		return nil, err
	}

	fresh, err := s.loadCaseByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return publicProjection(fresh), nil
}

// apply runs the compare-and-swap transition. When another writer moved the
// case first, the case is reloaded and the move revalidated against the new
// status before one retry; an identical concurrent move therefore surfaces
// as TRANSITION_NOT_ALLOWED rather than being applied twice.
func (s *StatusService) apply(ctx context.Context, kase *models.Case, params repository.TransitionParams) error {
	for attempt := 0; ; attempt++ {
		if !models.CanTransition(params.Expected, params.Target) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "")
		}

		err := s.cases.AppendTransition(ctx, params)
		if err == nil {
			s.metrics.RecordCaseTransition(params.Target, params.Actor)
			s.logger.Info("case transition applied",
				zap.String("case_id", params.CaseID),
				zap.String("from", string(params.Expected)),
				zap.String("to", string(params.Target)),
				zap.String("actor", string(params.Actor)))
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
		}
		if attempt >= 1 {
			return appErrors.Clone(appErrors.ErrTransitionRace, "")
		}

		fresh, err := s.cases.FindByID(ctx, kase.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "case not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload case")
		}
		params.Expected = fresh.Status
	}
}

func (s *StatusService) authorize(claims *models.JWTClaims, kase *models.Case, target models.Status) (models.Actor, error) {
	if claims == nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	switch claims.Role {
	case models.RoleClinic:
		return models.ActorClinic, nil
	case models.RoleLab:
		if claims.LabID == nil || *claims.LabID != kase.LabID {
			return "", appErrors.Clone(appErrors.ErrForbidden, "case belongs to another lab")
		}
		if target != models.StatusReceivedByLab && target != models.StatusReturnedByLab {
			return "", appErrors.Clone(appErrors.ErrForbidden, "lab users may only record lab-side moves")
		}
		return models.ActorLab, nil
	default:
		return "", appErrors.Clone(appErrors.ErrForbidden, "")
	}
}

func (s *StatusService) checkPIN(ctx context.Context, kase *models.Case, action publicAction, pin string) (bool, error) {
	if action.Credential == CredentialClinic {
		return s.credentials.CheckClinicPIN(ctx, pin)
	}
	return s.credentials.CheckLabPIN(ctx, kase.LabID, pin)
}

func (s *StatusService) loadCase(ctx context.Context, id string) (*models.Case, error) {
	kase, err := s.cases.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return kase, nil
}

func (s *StatusService) loadCaseByToken(ctx context.Context, token string) (*models.Case, error) {
	kase, err := s.cases.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve token")
	}
	return kase, nil
}

func publicProjection(kase *models.Case) *dto.PublicCaseView {
	return &dto.PublicCaseView{
		CaseCode:    kase.CaseCode,
		PatientName: kase.PatientName,
		LabName:     kase.LabName,
		Status:      kase.Status,
		Allowed:     models.AllowedNext(kase.Status),
		UpdatedAt:   kase.UpdatedAt,
	}
}
