package dto

// CreateLabRequest registers a new external lab.
type CreateLabRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Contact string `json:"contact,omitempty" validate:"max=200"`
}

// UpdateLabRequest edits lab master data.
type UpdateLabRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Contact string `json:"contact,omitempty" validate:"max=200"`
}

// SetLabPinRequest rotates a lab's protection PIN.
type SetLabPinRequest struct {
	NewPin string `json:"new_pin" validate:"required"`
}

// SetClinicPinRequest rotates the global clinic PIN. CurrentPin is verified
// when a PIN has already been configured.
type SetClinicPinRequest struct {
	CurrentPin string `json:"current_pin,omitempty"`
	NewPin     string `json:"new_pin" validate:"required"`
}
