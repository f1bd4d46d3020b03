package models

import "time"

// CaseComment is a free-text message on a case, exchanged between clinic and
// lab users.
type CaseComment struct {
	ID         string    `db:"id" json:"id"`
	CaseID     string    `db:"case_id" json:"case_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name,omitempty"`
	Text       string    `db:"text" json:"text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
