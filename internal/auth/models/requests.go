package models

import (
	"strings"

	dErrors "authgate/pkg/domain-errors"
)

const (
	maxUsernameLen = 255
	maxPasswordLen = 72 // bcrypt input limit
	minPasswordLen = 8
)

// AuthenticateRequest is the inbound login operation.
type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *AuthenticateRequest) Normalize() {
	if r == nil {
		return
	}
	r.Username = strings.TrimSpace(strings.ToLower(r.Username))
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *AuthenticateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Username) > maxUsernameLen {
		return dErrors.New(dErrors.CodeValidation, "username must be 255 characters or less")
	}
	if len(r.Password) > maxPasswordLen {
		return dErrors.New(dErrors.CodeValidation, "password must be 72 characters or less")
	}
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// AuthenticateResult is returned on successful login or refresh.
type AuthenticateResult struct {
	Token            string  `json:"token"`
	ExpiresInSeconds int     `json:"expires_in_seconds"`
	User             Summary `json:"user"`
}

// ChangePasswordRequest verifies the current secret and installs a new one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *ChangePasswordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.NewPassword) > maxPasswordLen {
		return dErrors.New(dErrors.CodeValidation, "new password must be 72 characters or less")
	}
	if r.CurrentPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "current password is required")
	}
	if r.NewPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "new password is required")
	}
	if len(r.NewPassword) < minPasswordLen {
		return dErrors.New(dErrors.CodeValidation, "new password must be at least 8 characters")
	}
	return nil
}
