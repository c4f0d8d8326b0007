package account

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrMissingFields          = errors.New("missing required fields")
)

// Repository contains all DB interactions needed by the account service and
// the booking workflow.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	// CreateUser returns ErrEmailAlreadyRegistered when the email is taken.
	CreateUser(ctx context.Context, u *User) error

	IncrementAppointmentCount(ctx context.Context, id string) error
}
