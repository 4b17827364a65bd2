package dto

// SignUpRequest represents the data needed to create a new account.
// No password composition policy is enforced; only presence and a
// length cap, since hashes are what get stored.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
	Name     string `json:"name" validate:"required,max=100"`
}

// SignInRequest represents the data needed to sign in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// UpdateProfileRequest patches mutable profile fields
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
