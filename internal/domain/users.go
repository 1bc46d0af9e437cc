package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxUserNameLength  = 100
	MaxUserEmailLength = 150

	DefaultUserName  = "DefaultUser"
	DefaultUserEmail = "default@example.com"
)

type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

type UserRepository interface {
	Create(ctx context.Context, name, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, limit int) ([]User, error)
	Delete(ctx context.Context, id int64) error
	// EnsureDefault seeds the default user when the table is empty and reports whether it did.
	EnsureDefault(ctx context.Context) (bool, error)
}

// ValidateUser checks the fields the users table constrains. Lengths count characters, as VARCHAR does.
func ValidateUser(name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name == "":
		return NewValidationError("name", "must not be empty")
	case utf8.RuneCountInString(name) > MaxUserNameLength:
		return NewValidationError("name", "must be at most 100 characters")
	case strings.ContainsRune(name, 0):
		return NewValidationError("name", "must not contain NUL characters")
	case email == "":
		return NewValidationError("email", "must not be empty")
	case utf8.RuneCountInString(email) > MaxUserEmailLength:
		return NewValidationError("email", "must be at most 150 characters")
	case strings.ContainsRune(email, 0):
		return NewValidationError("email", "must not contain NUL characters")
	}
	return nil
}
