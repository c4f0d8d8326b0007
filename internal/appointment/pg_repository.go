package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hackgods/salon-booking/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, user_id, customer_name, customer_email, customer_phone,
	service_key, service_name, duration_minutes,
	starts_at, ends_at, date, time,
	price::text, payment_method, payment_status, payment_order_id, payment_capture_id,
	calendar_event_id, state, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var price string
	var orderID, captureID *string

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.CustomerName,
		&a.CustomerEmail,
		&a.CustomerPhone,
		&a.ServiceKey,
		&a.ServiceName,
		&a.DurationMinutes,
		&a.StartsAt,
		&a.EndsAt,
		&a.Date,
		&a.Time,
		&price,
		&a.PaymentMethod,
		&a.PaymentStatus,
		&orderID,
		&captureID,
		&a.CalendarEventID,
		&a.State,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	if orderID != nil {
		a.PaymentOrderID = *orderID
	}
	if captureID != nil {
		a.PaymentCaptureID = *captureID
	}
	return &a, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.State == "" {
		a.State = StateConfirmed
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, user_id, customer_name, customer_email, customer_phone,
			service_key, service_name, duration_minutes,
			starts_at, ends_at, date, time,
			price, payment_method, payment_status, payment_order_id, payment_capture_id,
			calendar_event_id, state, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        CAST($13::text AS numeric), $14, $15, $16, $17, $18, $19, now())
		RETURNING created_at
	`,
		a.ID, a.UserID, a.CustomerName, a.CustomerEmail, a.CustomerPhone,
		a.ServiceKey, a.ServiceName, a.DurationMinutes,
		a.StartsAt, a.EndsAt, a.Date, a.Time,
		a.Price.StringFixed(2), a.PaymentMethod, a.PaymentStatus,
		nullableString(a.PaymentOrderID), nullableString(a.PaymentCaptureID),
		a.CalendarEventID, a.State,
	)

	if err := row.Scan(&a.CreatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) MarkUnconfirmed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET state = 'unconfirmed'
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark appointment unconfirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) HasOverlap(ctx context.Context, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE state = 'confirmed'
			  AND starts_at < $2
			  AND ends_at > $1
		)
	`, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check overlapping appointments: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) ListAppointmentsByUser(ctx context.Context, userID string) ([]Appointment, error) {
	return r.query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		  AND state = 'confirmed'
		ORDER BY starts_at
	`, userID)
}

func (r *PgRepository) FindUnconfirmedBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	return r.query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE state = 'unconfirmed'
		  AND created_at < $1
	`, cutoff)
}

func (r *PgRepository) query(ctx context.Context, sql string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
