package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/service"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
	"github.com/dens-health/casetrack-api/pkg/response"
)

// LabHandler wires HTTP endpoints to the lab and credential services.
type LabHandler struct {
	labs        *service.LabService
	credentials *service.CredentialService
}

// NewLabHandler creates a new handler.
func NewLabHandler(labs *service.LabService, credentials *service.CredentialService) *LabHandler {
	return &LabHandler{labs: labs, credentials: credentials}
}

// List godoc
// @Summary List labs
// @Tags Labs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /labs [get]
func (h *LabHandler) List(c *gin.Context) {
	labs, err := h.labs.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, labs, nil)
}

// Get godoc
// @Summary Get lab
// @Tags Labs
// @Produce json
// @Param id path string true "Lab ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /labs/{id} [get]
func (h *LabHandler) Get(c *gin.Context) {
	lab, err := h.labs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lab, nil)
}

// Create godoc
// @Summary Register lab
// @Tags Labs
// @Accept json
// @Produce json
// @Param payload body dto.CreateLabRequest true "Lab payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /labs [post]
func (h *LabHandler) Create(c *gin.Context) {
	var req dto.CreateLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lab payload"))
		return
	}

	lab, err := h.labs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lab)
}

// Update godoc
// @Summary Edit lab
// @Tags Labs
// @Accept json
// @Produce json
// @Param id path string true "Lab ID"
// @Param payload body dto.UpdateLabRequest true "Lab payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /labs/{id} [put]
func (h *LabHandler) Update(c *gin.Context) {
	var req dto.UpdateLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lab payload"))
		return
	}

	lab, err := h.labs.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lab, nil)
}

// Delete godoc
// @Summary Delete lab
// @Description Remove a lab that has no cases on file
// @Tags Labs
// @Param id path string true "Lab ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /labs/{id} [delete]
func (h *LabHandler) Delete(c *gin.Context) {
	if err := h.labs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetPIN godoc
// @Summary Rotate lab PIN
// @Description Set the PIN gating the lab's public workflow actions
// @Tags Labs
// @Accept json
// @Param id path string true "Lab ID"
// @Param payload body dto.SetLabPinRequest true "PIN payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /labs/{id}/pin [put]
func (h *LabHandler) SetPIN(c *gin.Context) {
	var req dto.SetLabPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pin payload"))
		return
	}

	if err := h.credentials.SetLabPIN(c.Request.Context(), c.Param("id"), req.NewPin); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
