package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dens-health/casetrack-api/internal/dto"
	"github.com/dens-health/casetrack-api/internal/service"
	appErrors "github.com/dens-health/casetrack-api/pkg/errors"
	"github.com/dens-health/casetrack-api/pkg/response"
)

// CaseHandler wires HTTP endpoints to the case, status, comment and label
// services.
type CaseHandler struct {
	cases    *service.CaseService
	status   *service.StatusService
	comments *service.CommentService
	labels   *service.LabelService
}

// NewCaseHandler creates a new handler.
func NewCaseHandler(cases *service.CaseService, status *service.StatusService, comments *service.CommentService, labels *service.LabelService) *CaseHandler {
	return &CaseHandler{cases: cases, status: status, comments: comments, labels: labels}
}

// Create godoc
// @Summary Register case
// @Description Register a new case headed to an external lab
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body dto.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid case payload"))
		return
	}

	kase, err := h.cases.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, kase)
}

// List godoc
// @Summary List cases
// @Description List cases with status, search and pagination filters
// @Tags Cases
// @Produce json
// @Param status query string false "Status filter"
// @Param search query string false "Search by patient, code or lab"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	query := dto.CaseQuery{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 25),
	}

	cases, pagination, err := h.cases.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, pagination)
}

// Get godoc
// @Summary Get case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	kase, err := h.cases.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, kase, nil)
}

// GetByCode godoc
// @Summary Find case by code
// @Tags Cases
// @Produce json
// @Param code path string true "Case code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/code/{code} [get]
func (h *CaseHandler) GetByCode(c *gin.Context) {
	kase, err := h.cases.GetByCode(c.Request.Context(), claimsFromContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, kase, nil)
}

// Update godoc
// @Summary Edit case
// @Description Edit the non-status fields of a case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.UpdateCaseRequest true "Case payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/{id} [put]
func (h *CaseHandler) Update(c *gin.Context) {
	var req dto.UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid case payload"))
		return
	}

	kase, err := h.cases.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, kase, nil)
}

// Delete godoc
// @Summary Delete case
// @Description Remove a case together with its audit trail and comments
// @Tags Cases
// @Param id path string true "Case ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/{id} [delete]
func (h *CaseHandler) Delete(c *gin.Context) {
	if err := h.cases.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transition godoc
// @Summary Move case status
// @Description Apply a status transition on the authenticated path
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cases/{id}/transition [post]
func (h *CaseHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}

	kase, err := h.status.Apply(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, kase, nil)
}

// Events godoc
// @Summary Case audit trail
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/{id}/events [get]
func (h *CaseHandler) Events(c *gin.Context) {
	events, err := h.cases.Events(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// ListComments godoc
// @Summary List case comments
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/comments [get]
func (h *CaseHandler) ListComments(c *gin.Context) {
	comments, err := h.comments.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// AddComment godoc
// @Summary Post case comment
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.AddCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /cases/{id}/comments [post]
func (h *CaseHandler) AddComment(c *gin.Context) {
	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	comment, err := h.comments.Add(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// QRCode godoc
// @Summary Case QR code
// @Description Render the case's public tracking URL as a PNG QR code
// @Tags Cases
// @Produce png
// @Param id path string true "Case ID"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} binary
// @Router /cases/{id}/qr.png [get]
func (h *CaseHandler) QRCode(c *gin.Context) {
	size := parseIntQuery(c, "size", 256)
	png, err := h.labels.QRCode(c.Request.Context(), claimsFromContext(c), c.Param("id"), size)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Label godoc
// @Summary Case tray label
// @Description Render the printable tray label as a PDF
// @Tags Cases
// @Produce application/pdf
// @Param id path string true "Case ID"
// @Success 200 {file} binary
// @Router /cases/{id}/label.pdf [get]
func (h *CaseHandler) Label(c *gin.Context) {
	pdf, err := h.labels.Label(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=label.pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
