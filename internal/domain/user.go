package domain

import "strings"

// User is an account that owns pets.
type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	VerificationToken string
	IsVerified        bool
}

// Validate checks the fields the application validates before insert.
// Uniqueness of username and email is enforced by the database.
func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return invalid("username", MsgUsernameRequired)
	}
	return ValidateEmail(u.Email)
}
