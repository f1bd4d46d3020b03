package dto

// CreateLabUserRequest provisions a lab-scoped login.
type CreateLabUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8"`
	LabID    string `json:"lab_id" validate:"required,uuid4"`
}

// UpdateLabUserRequest edits a lab login, optionally resetting the password.
type UpdateLabUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required,max=120"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
	LabID    string  `json:"lab_id" validate:"required,uuid4"`
	Active   *bool   `json:"active,omitempty"`
}
