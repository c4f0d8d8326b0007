package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/calendar"
	"github.com/hackgods/salon-booking/internal/catalog"
	"github.com/hackgods/salon-booking/internal/config"
	"github.com/hackgods/salon-booking/internal/notify"
	"github.com/hackgods/salon-booking/internal/payment"
	"github.com/hackgods/salon-booking/internal/pricing"
	redisclient "github.com/hackgods/salon-booking/internal/redis"
)

const (
	EventAppointmentCreated    = "APPOINTMENT_CREATED"
	EventAppointmentRolledBack = "APPOINTMENT_ROLLED_BACK"
	EventAppointmentPurged     = "APPOINTMENT_PURGED"
	EventPaymentRefunded       = "PAYMENT_REFUNDED"
)

const notifyTimeout = 30 * time.Second

type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*account.User, error)
	IncrementAppointmentCount(ctx context.Context, id string) error
}

type Scheduler interface {
	Busy(ctx context.Context, start, end time.Time) (bool, error)
	InsertEvent(ctx context.Context, ev calendar.Event) (*calendar.Created, error)
	DeleteEvent(ctx context.Context, id string) error
}

type PaymentGateway interface {
	CaptureOrder(ctx context.Context, orderID string) (*payment.Capture, error)
	RefundCapture(ctx context.Context, captureID string) error
}

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, b notify.BookingConfirmation) error
}

type Deps struct {
	Repo      Repository
	Users     UserStore
	Catalog   *catalog.Catalog
	Fees      pricing.Calculator
	Scheduler Scheduler
	Payments  PaymentGateway
	Notifier  Notifier
	Locker    redisclient.Locker
	Claims    redisclient.OrderClaims
	Logger    *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	repo      Repository
	users     UserStore
	catalog   *catalog.Catalog
	fees      pricing.Calculator
	scheduler Scheduler
	payments  PaymentGateway
	notifier  Notifier
	locker    redisclient.Locker
	claims    redisclient.OrderClaims
	log       *slog.Logger
	now       func() time.Time

	cfg config.Config
	loc *time.Location

	pending sync.WaitGroup
}

func NewService(d Deps, cfg config.Config) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Booking.Location
	if loc == nil {
		loc = time.UTC
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 10 * time.Second
	}
	return &Service{
		repo:      d.Repo,
		users:     d.Users,
		catalog:   d.Catalog,
		fees:      d.Fees,
		scheduler: d.Scheduler,
		payments:  d.Payments,
		notifier:  d.Notifier,
		locker:    d.Locker,
		claims:    d.Claims,
		log:       d.Logger,
		now:       now,
		cfg:       cfg,
		loc:       loc,
	}
}

type PaymentContext struct {
	Method  PaymentMethod
	OrderID string // PayPal only

	// ReportedNet is the net price the client computed, if it sent one.
	ReportedNet *decimal.Decimal
}

type BookingRequest struct {
	UserID     string
	ServiceKey string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM
	Recurring  bool
	Payment    PaymentContext
}

type BookingResult struct {
	AppointmentID   string        `json:"appointmentId"`
	CalendarEventID string        `json:"calendarEventId"`
	CalendarLink    string        `json:"calendarLink"`
	Price           string        `json:"price"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
}

// booking is a request that passed validation.
type booking struct {
	req     BookingRequest
	user    *account.User
	service catalog.Service
	start   time.Time
	end     time.Time
	net     decimal.Decimal
}

func (b *booking) online() bool { return b.req.Payment.Method == MethodPayPal }

// Book validates the request, checks the slot under the per-day lock and runs
// the side effects: capture (online), appointment row, calendar event, user
// counter, confirmation mail. Only the first two are fatal; a calendar failure
// undoes the row and refunds the capture.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	svc, ok := s.catalog.Lookup(req.ServiceKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidService, req.ServiceKey)
	}

	start, end, err := s.schedule(req.Date, req.Time, svc)
	if err != nil {
		return nil, err
	}

	net, err := s.catalog.NetPrice(svc, req.Recurring)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrice, err)
	}

	switch req.Payment.Method {
	case MethodInPerson:
	case MethodPayPal:
		if strings.TrimSpace(req.Payment.OrderID) == "" {
			return nil, ErrMissingOrderID
		}
		if reported := req.Payment.ReportedNet; reported != nil && !reported.Equal(net) {
			return nil, fmt.Errorf("%w: got %s, want %s", ErrPriceMismatch, reported.StringFixed(2), net.StringFixed(2))
		}
	default:
		return nil, fmt.Errorf("%w: payment method %q", ErrInvalidPrice, req.Payment.Method)
	}

	var user *account.User
	err = s.step(ctx, "load user", func(ctx context.Context) error {
		var err error
		user, err = s.users.GetUserByID(ctx, req.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	b := &booking{req: req, user: user, service: svc, start: start, end: end, net: net}
	if b.online() {
		return s.bookOnce(ctx, b)
	}
	return s.bookLocked(ctx, b)
}

func (s *Service) schedule(date, clock string, svc catalog.Service) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(date)+" "+strings.TrimSpace(clock), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidSchedule, date, clock)
	}
	if !start.After(s.now()) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is not in the future", ErrInvalidSchedule, start.Format(time.RFC3339))
	}
	return start, start.Add(svc.Duration()), nil
}

// bookOnce makes a payment order produce at most one appointment.
func (s *Service) bookOnce(ctx context.Context, b *booking) (*BookingResult, error) {
	orderID := b.req.Payment.OrderID

	var cached []byte
	var claimed bool
	err := s.step(ctx, "claim payment order", func(ctx context.Context) error {
		var err error
		cached, claimed, err = s.claims.Claim(ctx, orderID)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrClaimInFlight) {
			return nil, ErrOrderInFlight
		}
		return nil, err
	}

	if !claimed {
		var res BookingResult
		if err := json.Unmarshal(cached, &res); err != nil {
			return nil, fmt.Errorf("%w: decode stored booking for order %s: %w", ErrUpstream, orderID, err)
		}
		s.log.Info("payment order already booked, returning stored result",
			"order_id", orderID, "appointment_id", res.AppointmentID)
		return &res, nil
	}

	bg := context.WithoutCancel(ctx)
	res, err := s.bookLocked(ctx, b)
	if err != nil {
		if rerr := s.claims.Release(bg, orderID); rerr != nil {
			s.log.Warn("failed to release order claim", "order_id", orderID, "error", rerr)
		}
		return nil, err
	}

	data, err := json.Marshal(res)
	if err == nil {
		err = s.claims.Complete(bg, orderID, data)
	}
	if err != nil {
		s.log.Warn("failed to store booking result for order", "order_id", orderID, "error", err)
	}
	return res, nil
}

// the lock keys are the salon-local days the interval touches, so overlapping
// intervals with different start times still serialize
func (s *Service) bookLocked(ctx context.Context, b *booking) (*BookingResult, error) {
	var res *BookingResult
	err := s.withDayLocks(ctx, s.lockDays(b.start, b.end), func(lockCtx context.Context) error {
		var err error
		res, err = s.commit(lockCtx, b)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}
	return res, nil
}

// lockDays lists the days of [start, end) in chronological order. An
// interval ending exactly at midnight does not touch the next day.
func (s *Service) lockDays(start, end time.Time) []string {
	first := start.In(s.loc).Format("2006-01-02")
	last := end.Add(-time.Nanosecond).In(s.loc).Format("2006-01-02")
	if last <= first {
		return []string{first}
	}
	return []string{first, last}
}

// withDayLocks takes the locks in order and runs fn while holding all of them.
func (s *Service) withDayLocks(ctx context.Context, days []string, fn func(ctx context.Context) error) error {
	if len(days) == 0 {
		return fn(ctx)
	}
	return s.locker.WithSlotLock(ctx, days[0], func(lockCtx context.Context) error {
		return s.withDayLocks(lockCtx, days[1:], fn)
	})
}

func (s *Service) ensureAvailable(ctx context.Context, start, end time.Time) error {
	var overlap bool
	err := s.step(ctx, "check stored appointments", func(ctx context.Context) error {
		var err error
		overlap, err = s.repo.HasOverlap(ctx, start, end)
		return err
	})
	if err != nil {
		return err
	}
	if overlap {
		return ErrSlotConflict
	}

	var busy bool
	err = s.step(ctx, "check calendar availability", func(ctx context.Context) error {
		var err error
		busy, err = s.scheduler.Busy(ctx, start, end)
		return err
	})
	if err != nil {
		return err
	}
	if busy {
		return ErrSlotConflict
	}
	return nil
}

func (s *Service) commit(ctx context.Context, b *booking) (*BookingResult, error) {
	if err := s.ensureAvailable(ctx, b.start, b.end); err != nil {
		return nil, err
	}

	appt := s.newAppointment(b)

	var capture *payment.Capture
	if b.online() {
		var err error
		capture, err = s.capture(ctx, b, appt.ID)
		if err != nil {
			return nil, err
		}
		appt.Price = capture.Amount
		appt.PaymentMethod = MethodPayPal
		appt.PaymentStatus = PaymentCompleted
		appt.PaymentOrderID = b.req.Payment.OrderID
		appt.PaymentCaptureID = capture.CaptureID
	}

	// 1. appointment row
	err := s.step(ctx, "store appointment", func(ctx context.Context) error {
		return s.repo.CreateAppointment(ctx, appt)
	})
	if err != nil {
		s.log.Error("failed to store appointment", "appointment_id", appt.ID, "error", err)
		s.refund(ctx, appt.ID, capture)
		return nil, err
	}

	// 2. calendar event
	var created *calendar.Created
	err = s.step(ctx, "insert calendar event", func(ctx context.Context) error {
		var err error
		created, err = s.scheduler.InsertEvent(ctx, s.calendarEvent(appt, b))
		return err
	})
	if err != nil {
		s.log.Error("failed to create calendar event, rolling back", "appointment_id", appt.ID, "error", err)
		s.rollback(ctx, appt, capture, err)
		return nil, err
	}
	appt.CalendarEventID = created.ID

	s.logEvent(ctx, appt.ID, EventAppointmentCreated, map[string]any{
		"user_id":        appt.UserID,
		"service":        appt.ServiceKey,
		"starts_at":      appt.StartsAt,
		"price":          appt.Price.StringFixed(2),
		"payment_method": appt.PaymentMethod,
	})

	// 3. counter
	err = s.step(ctx, "increment appointment count", func(ctx context.Context) error {
		return s.users.IncrementAppointmentCount(ctx, appt.UserID)
	})
	if err != nil {
		s.log.Warn("failed to increment appointment count", "user_id", appt.UserID, "error", err)
	}

	// 4. mail
	s.notifyAsync(ctx, appt, b, created.HTMLLink)

	s.log.Info("appointment booked",
		"appointment_id", appt.ID,
		"user_id", appt.UserID,
		"service", appt.ServiceKey,
		"starts_at", appt.StartsAt,
		"payment_method", appt.PaymentMethod,
	)

	return &BookingResult{
		AppointmentID:   appt.ID.String(),
		CalendarEventID: created.ID,
		CalendarLink:    created.HTMLLink,
		Price:           appt.Price.StringFixed(2),
		PaymentMethod:   appt.PaymentMethod,
		PaymentStatus:   appt.PaymentStatus,
	}, nil
}

// capture returns a completed capture whose Amount is what the customer paid.
// A capture below the quoted gross or in another currency is refunded.
func (s *Service) capture(ctx context.Context, b *booking, appointmentID uuid.UUID) (*payment.Capture, error) {
	orderID := b.req.Payment.OrderID

	gross, err := s.fees.Gross(b.net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrice, err)
	}

	var capture *payment.Capture
	err = s.step(ctx, "capture payment order", func(ctx context.Context) error {
		var err error
		capture, err = s.payments.CaptureOrder(ctx, orderID)
		return err
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotCapturable) {
			s.log.Warn("payment order not capturable", "order_id", orderID, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrPaymentNotCompleted, err)
		}
		return nil, err
	}
	if !capture.Completed() {
		status := ""
		if capture != nil {
			status = capture.Status
		}
		s.log.Warn("payment order not completed", "order_id", orderID, "status", status)
		return nil, fmt.Errorf("%w: status %q", ErrPaymentNotCompleted, status)
	}

	if want := s.cfg.PayPal.Currency; want != "" && capture.Currency != "" && !strings.EqualFold(capture.Currency, want) {
		s.log.Warn("captured currency differs from configured currency, refunding",
			"order_id", orderID, "currency", capture.Currency, "want", want)
		s.refund(ctx, appointmentID, capture)
		return nil, fmt.Errorf("%w: captured in %s, want %s", ErrPaymentNotCompleted, capture.Currency, want)
	}

	switch {
	case capture.Amount.IsZero():
		capture.Amount = gross
	case capture.Amount.LessThan(gross):
		s.log.Warn("captured amount below quoted gross, refunding",
			"order_id", orderID, "captured", capture.Amount.StringFixed(2), "gross", gross.StringFixed(2))
		s.refund(ctx, appointmentID, capture)
		return nil, fmt.Errorf("%w: captured %s, want %s", ErrPaymentNotCompleted, capture.Amount.StringFixed(2), gross.StringFixed(2))
	case !capture.Amount.Equal(gross):
		s.log.Warn("captured amount above quoted gross",
			"order_id", orderID, "captured", capture.Amount.StringFixed(2), "gross", gross.StringFixed(2))
	}
	return capture, nil
}

func (s *Service) newAppointment(b *booking) *Appointment {
	id := uuid.New()
	local := b.start.In(s.loc)
	return &Appointment{
		ID:              id,
		UserID:          b.user.ID,
		CustomerName:    b.user.Name,
		CustomerEmail:   b.user.Email,
		CustomerPhone:   b.user.Phone,
		ServiceKey:      b.service.Key,
		ServiceName:     b.service.Name,
		DurationMinutes: b.service.DurationMinutes,
		StartsAt:        b.start,
		EndsAt:          b.end,
		Date:            local.Format("2006-01-02"),
		Time:            local.Format("15:04"),
		Price:           b.net,
		PaymentMethod:   MethodInPerson,
		PaymentStatus:   PaymentPending,
		State:           StateConfirmed,
		CalendarEventID: eventID(id),
	}
}

// eventID is the appointment id without dashes, valid as a Google event id.
func eventID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

func (s *Service) calendarEvent(appt *Appointment, b *booking) calendar.Event {
	var d strings.Builder
	fmt.Fprintf(&d, "Servicio: %s\n", appt.ServiceName)
	fmt.Fprintf(&d, "Duración: %d min\n", appt.DurationMinutes)
	fmt.Fprintf(&d, "Precio: %s€", appt.Price.StringFixed(2))
	if b.req.Recurring {
		fmt.Fprintf(&d, " (descuento cliente habitual: -%s€)", s.catalog.LoyaltyDiscount().StringFixed(2))
	}
	fmt.Fprintf(&d, "\nPago: %s (%s)\n", appt.PaymentMethod, appt.PaymentStatus)
	fmt.Fprintf(&d, "Cliente: %s\nEmail: %s\nTeléfono: %s", appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone)

	return calendar.Event{
		ID:          appt.CalendarEventID,
		Summary:     fmt.Sprintf("%s - %s", appt.CustomerName, appt.ServiceName),
		Description: d.String(),
		Start:       appt.StartsAt,
		End:         appt.EndsAt,
		TimeZone:    s.loc.String(),
		Attendees:   []string{s.cfg.Calendar.OwnerEmail, appt.CustomerEmail},
	}
}

// rollback undoes a stored appointment whose calendar event failed. It runs
// detached from ctx so a timed out request still cleans up.
func (s *Service) rollback(ctx context.Context, appt *Appointment, capture *payment.Capture, cause error) {
	ctx = context.WithoutCancel(ctx)

	// a timed out insert may still have landed
	err := s.step(ctx, "delete calendar event", func(ctx context.Context) error {
		return s.scheduler.DeleteEvent(ctx, appt.CalendarEventID)
	})
	if err != nil {
		s.log.Warn("rollback: failed to delete calendar event", "appointment_id", appt.ID, "error", err)
	}

	err = s.step(ctx, "delete appointment", func(ctx context.Context) error {
		return s.repo.DeleteAppointment(ctx, appt.ID)
	})
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		s.log.Error("rollback: failed to delete appointment, marking unconfirmed", "appointment_id", appt.ID, "error", err)
		err = s.step(ctx, "mark appointment unconfirmed", func(ctx context.Context) error {
			return s.repo.MarkUnconfirmed(ctx, appt.ID)
		})
		if err != nil {
			s.log.Error("rollback: failed to mark appointment unconfirmed", "appointment_id", appt.ID, "error", err)
		}
	}

	s.refund(ctx, appt.ID, capture)

	s.logEvent(ctx, appt.ID, EventAppointmentRolledBack, map[string]any{
		"reason": cause.Error(),
	})
}

// refund is best-effort; a failed refund is logged for manual follow-up.
func (s *Service) refund(ctx context.Context, appointmentID uuid.UUID, capture *payment.Capture) {
	if capture == nil || capture.CaptureID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	err := s.step(ctx, "refund capture", func(ctx context.Context) error {
		return s.payments.RefundCapture(ctx, capture.CaptureID)
	})
	if err != nil {
		s.log.Error("refund failed, manual follow-up required",
			"appointment_id", appointmentID, "order_id", capture.OrderID, "capture_id", capture.CaptureID, "error", err)
		return
	}

	s.log.Info("capture refunded", "appointment_id", appointmentID, "capture_id", capture.CaptureID)
	s.logEvent(ctx, appointmentID, EventPaymentRefunded, map[string]any{
		"order_id":   capture.OrderID,
		"capture_id": capture.CaptureID,
		"amount":     capture.Amount.StringFixed(2),
	})
}

func (s *Service) notifyAsync(ctx context.Context, appt *Appointment, b *booking, link string) {
	msg := notify.BookingConfirmation{
		Name:            appt.CustomerName,
		Email:           appt.CustomerEmail,
		ServiceName:     appt.ServiceName,
		Start:           appt.StartsAt.In(s.loc),
		DurationMinutes: appt.DurationMinutes,
		Price:           appt.Price.StringFixed(2),
		Discounted:      b.req.Recurring,
		PaymentStatus:   string(appt.PaymentStatus),
		CalendarLink:    link,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.notifier.SendBookingConfirmation(ctx, msg); err != nil {
			s.log.Warn("failed to send booking confirmation", "appointment_id", appt.ID, "error", err)
		}
	}()
}

// Wait blocks until every queued confirmation mail was attempted.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ListAppointments returns the confirmed appointments of a user.
func (s *Service) ListAppointments(ctx context.Context, userID string) ([]Summary, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	appointments, err := s.repo.ListAppointmentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by user: %w", err)
	}

	out := make([]Summary, 0, len(appointments))
	for i := range appointments {
		out = append(out, appointments[i].Summary())
	}
	return out, nil
}

// PurgeUnconfirmed is intended to be called by the worker periodically. It
// deletes unconfirmed appointments past the grace period along with any
// calendar event they may have left behind.
func (s *Service) PurgeUnconfirmed(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.UnconfirmedGrace)
	stale, err := s.repo.FindUnconfirmedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find unconfirmed appointments: %w", err)
	}

	purged := 0
	for _, appt := range stale {
		err := s.step(ctx, "delete calendar event", func(ctx context.Context) error {
			return s.scheduler.DeleteEvent(ctx, appt.CalendarEventID)
		})
		if err != nil {
			s.log.Warn("failed to delete calendar event of unconfirmed appointment", "appointment_id", appt.ID, "error", err)
			continue
		}

		if err := s.repo.DeleteAppointment(ctx, appt.ID); err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			s.log.Warn("failed to purge unconfirmed appointment", "appointment_id", appt.ID, "error", err)
			continue
		}

		s.logEvent(ctx, appt.ID, EventAppointmentPurged, map[string]any{
			"reason": "worker",
		})
		purged++
	}

	return purged, nil
}

// step runs one gateway call under the per-step timeout and tags failures
// as upstream errors.
func (s *Service) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, s.cfg.StepTimeout)
	defer cancel()

	err := fn(stepCtx)
	if err == nil {
		return nil
	}
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return upstreamError(name, err)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", "event_type", eventType, "error", err)
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &appointmentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("failed to insert event log", "event_type", eventType, "appointment_id", appointmentID, "error", err)
	}
}
