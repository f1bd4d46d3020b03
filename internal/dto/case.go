package dto

import (
	"time"

	"github.com/dens-health/casetrack-api/internal/models"
)

// CreateCaseRequest is the payload for registering a new case. The case code
// and public token are assigned server-side.
type CreateCaseRequest struct {
	PatientName string     `json:"patient_name" validate:"required,max=120"`
	PatientDOB  time.Time  `json:"patient_dob" validate:"required"`
	LabID       string     `json:"lab_id" validate:"required,uuid4"`
	Substage    string     `json:"substage,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`
}

// UpdateCaseRequest edits non-status fields of a case.
type UpdateCaseRequest struct {
	PatientName        string     `json:"patient_name" validate:"required,max=120"`
	PatientDOB         time.Time  `json:"patient_dob" validate:"required"`
	LabID              string     `json:"lab_id" validate:"required,uuid4"`
	Substage           string     `json:"substage,omitempty"`
	ETA                *time.Time `json:"eta,omitempty"`
	ReturnedTrackingNo string     `json:"returned_tracking_no,omitempty"`
}

// TransitionRequest asks the status machine for a move on the authenticated
// path.
type TransitionRequest struct {
	Target     models.Status `json:"target" validate:"required"`
	Note       string        `json:"note,omitempty"`
	TrackingNo string        `json:"tracking_no,omitempty"`
}

// CaseQuery captures list filters from the query string.
type CaseQuery struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// AddCommentRequest posts a message on a case.
type AddCommentRequest struct {
	Text string `json:"text" validate:"required"`
}
