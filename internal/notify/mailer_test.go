package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/salon-booking/internal/config"
	"github.com/hackgods/salon-booking/internal/logging"
)

func TestLongDate(t *testing.T) {
	d := time.Date(2026, time.October, 20, 10, 0, 0, 0, time.UTC)
	if got := longDate(d); got != "martes, 20 de octubre de 2026" {
		t.Fatalf("longDate = %q", got)
	}
}

func TestRenderConfirmation(t *testing.T) {
	b := BookingConfirmation{
		Name:            "Ana <script>",
		ServiceName:     "Corte de Pelo",
		Start:           time.Date(2026, time.October, 20, 10, 30, 0, 0, time.UTC),
		DurationMinutes: 45,
		Price:           "25.00",
		PaymentStatus:   "Pendiente",
		CalendarLink:    "https://calendar.google.com/event?eid=x",
	}
	body, err := renderConfirmation(b, "Salón", "2", time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Corte de Pelo", "10:30", "25.00€", "45 min", "próxima reserva", "Añadir a Google Calendar"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "<script>") {
		t.Error("customer name was not escaped")
	}

	b.Discounted = true
	b.CalendarLink = ""
	body, _ = renderConfirmation(b, "Salón", "2", time.Now())
	if !strings.Contains(body, "descuento de cliente habitual") || strings.Contains(body, "Google Calendar") {
		t.Error("discounted variant rendered wrong block")
	}
}

func TestRenderWelcome(t *testing.T) {
	body, err := renderWelcome(Welcome{Name: "Ana"}, "Salón", "2", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "Ana") || !strings.Contains(body, "© 2026") {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestMailerWithoutSMTPDrops(t *testing.T) {
	m := NewMailer(config.MailConfig{}, config.BookingConfig{BusinessName: "Salón", LoyaltyDiscount: decimal.NewFromInt(2)}, logging.Discard())
	if err := m.SendWelcome(context.Background(), Welcome{Name: "Ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}
