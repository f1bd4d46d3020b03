package models

import "time"

// AppSettings is the singleton record holding the hashed clinic-wide PIN.
// Exactly one row with Name "default" exists; it is lazily created with the
// default PIN hash on first access.
type AppSettings struct {
	Name          string    `db:"name" json:"name"`
	ClinicPINHash string    `db:"clinic_pin_hash" json:"-"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
