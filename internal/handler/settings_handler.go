package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/service"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
	"github.com/dens-health/casetrack-api/pkg/response"
)

// SettingsHandler exposes clinic-wide settings, currently the clinic PIN.
type SettingsHandler struct {
	credentials *service.CredentialService
}

// NewSettingsHandler creates a new handler.
func NewSettingsHandler(credentials *service.CredentialService) *SettingsHandler {
	return &SettingsHandler{credentials: credentials}
}

// SetClinicPIN godoc
// @Summary Rotate clinic PIN
// @Description Set the PIN gating the public receive_clinic action. The current PIN must match once one is configured.
// @Tags Settings
// @Accept json
// @Param payload body dto.SetClinicPinRequest true "PIN payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /settings/clinic-pin [put]
func (h *SettingsHandler) SetClinicPIN(c *gin.Context) {
	var req dto.SetClinicPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pin payload"))
		return
	}

	if err := h.credentials.SetClinicPIN(c.Request.Context(), req.CurrentPin, req.NewPin); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
