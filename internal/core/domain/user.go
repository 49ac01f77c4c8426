// internal/core/domain/user.go
package domain

import "time"

// User is an authenticated operator of the system. Only the fields the access
// gate needs are modeled; the password is stored as a bcrypt hash.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate performs domain validation on the user
func (u *User) Validate() error {
	if u.Username == "" {
		return NewValidationError("username", "is required")
	}
	if u.Email == "" {
		return NewValidationError("email", "is required")
	}
	if u.PasswordHash == "" {
		return NewValidationError("password", "is required")
	}
	return nil
}
