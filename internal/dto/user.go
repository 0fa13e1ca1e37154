package dto

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users. Nil fields are left untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}
