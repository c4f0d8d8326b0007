package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/pricing"
)

var (
	ErrInvalidService      = errors.New("unknown service")
	ErrInvalidSchedule     = errors.New("invalid date or time")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrPriceMismatch       = errors.New("reported net price does not match the service price")
	ErrMissingOrderID      = errors.New("payment order id is required")
	ErrPaymentNotCompleted = errors.New("payment was not completed")
	ErrSlotConflict        = errors.New("slot overlaps an existing appointment")
	ErrSlotBeingBooked     = errors.New("slot is currently being booked, please retry")
	ErrOrderInFlight       = errors.New("payment order is already being booked")
	ErrUpstream            = errors.New("upstream service failed")
	ErrUpstreamTimeout     = errors.New("upstream service timed out")

	ErrUserNotFound = account.ErrUserNotFound
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindPaymentNotCompleted
	KindUpstream
	KindUpstreamTimeout
)

// Classify maps an error returned by the service to its failure class.
// Specific sentinels win over the upstream wrappers they may travel with.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidService),
		errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrPriceMismatch),
		errors.Is(err, ErrMissingOrderID),
		errors.Is(err, pricing.ErrNonPositiveNet):
		return KindValidation
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrSlotBeingBooked),
		errors.Is(err, ErrOrderInFlight),
		errors.Is(err, ErrDuplicateOrder):
		return KindConflict
	case errors.Is(err, ErrPaymentNotCompleted):
		return KindPaymentNotCompleted
	case errors.Is(err, ErrUpstreamTimeout):
		return KindUpstreamTimeout
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindInternal
	}
}

// Retryable reports whether the same request may succeed if sent again.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindUpstreamTimeout:
		return true
	case KindConflict:
		return errors.Is(err, ErrSlotBeingBooked) || errors.Is(err, ErrOrderInFlight)
	}
	return false
}

func upstreamError(step string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", step, ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", step, ErrUpstream, err)
}
