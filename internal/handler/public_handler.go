package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/service"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
	"github.com/dens-health/casetrack-api/pkg/response"
)

// PublicHandler serves the unauthenticated QR token surface. No session, no
// JWT; the opaque token scopes every request to one case and mutations are
// PIN-gated.
type PublicHandler struct {
	status *service.StatusService
}

// NewPublicHandler creates a new handler.
func NewPublicHandler(status *service.StatusService) *PublicHandler {
	return &PublicHandler{status: status}
}

// View godoc
// @Summary Public case view
// @Description Resolve a QR token to the reduced case projection
// @Tags Public
// @Produce json
// @Param token path string true "Public token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/{token} [get]
func (h *PublicHandler) View(c *gin.Context) {
	view, err := h.status.PublicView(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Transition godoc
// @Summary Public PIN-gated transition
// @Description Apply a workflow action from the token page, gated by the lab or clinic PIN
// @Tags Public
// @Accept json
// @Produce json
// @Param token path string true "Public token"
// @Param payload body dto.PublicTransitionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /public/{token}/transition [post]
func (h *PublicHandler) Transition(c *gin.Context) {
	var req dto.PublicTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}

	view, err := h.status.ApplyPublic(c.Request.Context(), c.Param("token"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
