package dto

import (
	"time"

	"github.com/dens-health/casetrack-api/internal/models"
)

// PublicCaseView is the minimal case projection exposed through the QR token
// page: status, lab name, and a coarse patient identifier only.
type PublicCaseView struct {
	CaseCode    string          `json:"case_code"`
	PatientName string          `json:"patient_name"`
	LabName     string          `json:"lab_name"`
	Status      models.Status   `json:"status"`
	Allowed     []models.Status `json:"allowed_next"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PublicTransitionRequest carries a PIN-gated action from the token page.
type PublicTransitionRequest struct {
	Action string `json:"action" validate:"required"`
	Pin    string `json:"pin" validate:"required"`
	Note   string `json:"note,omitempty"`
}
