package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gomail/gomail"

	"github.com/hackgods/salon-booking/internal/config"
)

type Welcome struct {
	Name  string
	Email string
}

type BookingConfirmation struct {
	Name            string
	Email           string
	ServiceName     string
	Start           time.Time // in the salon's time zone
	DurationMinutes int
	Price           string
	Discounted      bool
	PaymentStatus   string
	CalendarLink    string
}

// Mailer sends transactional mail over SMTP. With no SMTP host configured
// messages are logged and dropped.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	business string
	discount string
	log      *slog.Logger
}

func NewMailer(cfg config.MailConfig, booking config.BookingConfig, logger *slog.Logger) *Mailer {
	m := &Mailer{
		from:     cfg.From,
		fromName: cfg.FromName,
		business: booking.BusinessName,
		discount: booking.LoyaltyDiscount.String(),
		log:      logger,
	}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

func (m *Mailer) SendWelcome(ctx context.Context, w Welcome) error {
	body, err := renderWelcome(w, m.business, m.discount, time.Now())
	if err != nil {
		return fmt.Errorf("render welcome mail: %w", err)
	}
	return m.send(ctx, w.Email, fmt.Sprintf("¡Bienvenid@ a %s!", m.business), body)
}

func (m *Mailer) SendBookingConfirmation(ctx context.Context, b BookingConfirmation) error {
	body, err := renderConfirmation(b, m.business, m.discount, time.Now())
	if err != nil {
		return fmt.Errorf("render confirmation mail: %w", err)
	}
	return m.send(ctx, b.Email, "Tu cita está confirmada", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if m.dialer == nil {
		m.log.Debug("smtp not configured, dropping mail", "to", to, "subject", subject)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	// gomail has no context support; abandon the wait when ctx ends
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error sending email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
