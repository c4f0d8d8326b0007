package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDuplicateOrder      = errors.New("payment order already has an appointment")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// CreateAppointment returns ErrDuplicateOrder when the payment order is
	// already attached to another appointment.
	CreateAppointment(ctx context.Context, a *Appointment) error
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	MarkUnconfirmed(ctx context.Context, id uuid.UUID) error

	// For conflict checks; only confirmed appointments count.
	HasOverlap(ctx context.Context, start, end time.Time) (bool, error)

	// Confirmed appointments of a user, oldest first.
	ListAppointmentsByUser(ctx context.Context, userID string) ([]Appointment, error)

	// Reconcile worker
	FindUnconfirmedBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
