package models

import "time"

// Actor identifies who performed a recorded action.
type Actor string

const (
	ActorClinic Actor = "CLINIC"
	ActorLab    Actor = "LAB"
	// ActorPublic is reserved for unauthenticated non-mutating context; a
	// successful PIN-gated transition is recorded as CLINIC or LAB
	// depending on the credential used.
	ActorPublic Actor = "PUBLIC"
)

// Event is an immutable audit record for a case. Events are only ever
// appended; a case's event sequence ordered by creation time is its audit
// trail.
type Event struct {
	ID      string `db:"id" json:"id"`
	CaseID  string `db:"case_id" json:"case_id"`
	Status  Status `db:"status" json:"status"`
	Action  string `db:"action" json:"action,omitempty"`
	Payload []byte `db:"payload" json:"payload,omitempty"`
	Note    string `db:"note" json:"note,omitempty"`
	Actor   Actor  `db:"actor" json:"actor"`

	// Captured only for PIN-gated public/lab transitions, passed through
	// verbatim from the request.
	IP        string `db:"ip" json:"ip,omitempty"`
	UserAgent string `db:"user_agent" json:"user_agent,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RequestMeta carries HTTP request metadata into event records.
type RequestMeta struct {
	IP        string
	UserAgent string
}
