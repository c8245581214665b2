package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserRole controls access to the admin configuration surface.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User is the request carrier record. PreferredModel feeds the
// selection policy; everything else belongs to the surrounding
// HTTP/session layer.
type User struct {
	ID             string    `json:"id" db:"id"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Role           UserRole  `json:"role" db:"role"`
	Department     string    `json:"department" db:"department"`
	PreferredModel string    `json:"preferred_model" db:"preferred_model"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user may manage providers and read the
// full history.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a login attempt against the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
