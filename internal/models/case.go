package models

import "time"

// Status enumerates the workflow stages of a case between clinic and lab.
type Status string

const (
	StatusSentClinic       Status = "SENT_CLINIC"
	StatusReceivedByLab    Status = "RECEIVED_BY_LAB"
	StatusReturnedByLab    Status = "RETURNED_BY_LAB"
	StatusReceivedByClinic Status = "RECEIVED_BY_CLINIC"
)

// Valid reports whether s is one of the four workflow statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSentClinic, StatusReceivedByLab, StatusReturnedByLab, StatusReceivedByClinic:
		return true
	}
	return false
}

// transitions is the authority on legal status moves. SENT_CLINIC may move
// straight to RETURNED_BY_LAB without an intermediate lab receipt.
// RECEIVED_BY_CLINIC is terminal.
var transitions = map[Status][]Status{
	StatusSentClinic:       {StatusReceivedByLab, StatusReturnedByLab},
	StatusReceivedByLab:    {StatusReturnedByLab},
	StatusReturnedByLab:    {StatusReceivedByClinic},
	StatusReceivedByClinic: {},
}

// AllowedNext returns the statuses reachable from the given status in one
// step. Unknown statuses yield an empty slice.
func AllowedNext(s Status) []Status {
	next, ok := transitions[s]
	if !ok {
		return nil
	}
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Substage values describe optional lab-internal progress on a case.
const (
	SubstageDesign = "DESIGN"
	SubstageMill   = "MILL"
	SubstageSinter = "SINTER"
	SubstageGlaze  = "GLAZE"
	SubstageQA     = "QA"
)

// Case represents one patient case in flight between clinic and lab.
type Case struct {
	ID          string    `db:"id" json:"id"`
	CaseCode    string    `db:"case_code" json:"case_code"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	PatientDOB  time.Time `db:"patient_dob" json:"patient_dob"`
	LabID       string    `db:"lab_id" json:"lab_id"`
	LabName     string    `db:"lab_name" json:"lab_name,omitempty"`
	Status      Status    `db:"status" json:"status"`

	Substage string     `db:"substage" json:"substage,omitempty"`
	ETA      *time.Time `db:"eta" json:"eta,omitempty"`

	ReturnedTrackingNo string     `db:"returned_tracking_no" json:"returned_tracking_no,omitempty"`
	ReturnedAt         *time.Time `db:"returned_at" json:"returned_at,omitempty"`

	// PublicToken grants unauthenticated scoped access via QR code. Minted
	// once at creation, never rotated.
	PublicToken string `db:"public_token" json:"-"`

	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CaseFilter captures filtering criteria for listing cases.
type CaseFilter struct {
	Status   Status
	LabID    string
	Search   string
	Page     int
	PageSize int
}

// StatusCounts aggregates cases per workflow stage for the dashboard.
type StatusCounts struct {
	Sent      int `db:"sent" json:"sent"`
	InLab     int `db:"in_lab" json:"in_lab"`
	Returned  int `db:"returned" json:"returned"`
	Completed int `db:"completed" json:"completed"`
}
