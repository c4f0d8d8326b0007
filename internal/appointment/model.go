package appointment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodInPerson PaymentMethod = "Presencial"
	MethodPayPal   PaymentMethod = "PayPal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pendiente"
	PaymentCompleted PaymentStatus = "Completado"
)

// State is confirmed once the calendar event exists. Unconfirmed rows are
// leftovers of a failed rollback and are purged by the reconcile worker.
type State string

const (
	StateConfirmed   State = "confirmed"
	StateUnconfirmed State = "unconfirmed"
)

type Appointment struct {
	ID     uuid.UUID
	UserID string

	// snapshot of the customer at booking time
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	ServiceKey      string
	ServiceName     string
	DurationMinutes int

	StartsAt time.Time
	EndsAt   time.Time
	Date     string // YYYY-MM-DD in the salon time zone
	Time     string // HH:MM in the salon time zone

	Price            decimal.Decimal
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	PaymentOrderID   string
	PaymentCaptureID string

	CalendarEventID string
	State           State
	CreatedAt       time.Time
}

// Summary is the listing view of an appointment.
type Summary struct {
	ID              string        `json:"id"`
	Service         string        `json:"service"`
	Date            string        `json:"date"`
	Time            string        `json:"time"`
	DurationMinutes int           `json:"durationMinutes"`
	Price           string        `json:"price"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
}

func (a *Appointment) Summary() Summary {
	return Summary{
		ID:              a.ID.String(),
		Service:         a.ServiceName,
		Date:            a.Date,
		Time:            a.Time,
		DurationMinutes: a.DurationMinutes,
		Price:           a.Price.StringFixed(2),
		PaymentMethod:   a.PaymentMethod,
		PaymentStatus:   a.PaymentStatus,
	}
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
