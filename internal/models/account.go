package models

import "time"

// Account is an email/password login. PasswordHash is a bcrypt digest and
// never leaves the server.
type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email" validate:"required,email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
