package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/appointment"
	"github.com/hackgods/salon-booking/internal/payment"
	"github.com/hackgods/salon-booking/internal/pricing"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Code: code, Message: message})
}

var kindStatus = map[appointment.Kind]int{
	appointment.KindValidation:          http.StatusBadRequest,
	appointment.KindNotFound:            http.StatusNotFound,
	appointment.KindConflict:            http.StatusConflict,
	appointment.KindPaymentNotCompleted: http.StatusBadRequest,
	appointment.KindUpstream:            http.StatusInternalServerError,
	appointment.KindUpstreamTimeout:     http.StatusGatewayTimeout,
	appointment.KindInternal:            http.StatusInternalServerError,
}

// bookingCodes is checked in order; the first match names the failure.
var bookingCodes = []struct {
	err     error
	code    string
	message string
}{
	{appointment.ErrInvalidService, "invalid_service", "Servicio no válido"},
	{appointment.ErrInvalidSchedule, "invalid_schedule", "Fecha u hora no válida"},
	{appointment.ErrPriceMismatch, "price_mismatch", "El precio no coincide con el del servicio"},
	{appointment.ErrMissingOrderID, "missing_order_id", "Falta el identificador del pedido"},
	{appointment.ErrInvalidPrice, "invalid_price", "Precio no válido"},
	{appointment.ErrUserNotFound, "user_not_found", "Usuario no encontrado"},
	{appointment.ErrSlotConflict, "slot_conflict", "El horario seleccionado ya está ocupado"},
	{appointment.ErrSlotBeingBooked, "slot_being_booked", "El horario se está reservando, inténtalo de nuevo"},
	{appointment.ErrOrderInFlight, "order_in_flight", "El pago ya se está procesando"},
	{appointment.ErrDuplicateOrder, "order_already_booked", "El pago ya tiene una cita asociada"},
	{appointment.ErrPaymentNotCompleted, "payment_not_completed", "El pago no se ha completado"},
	{appointment.ErrUpstreamTimeout, "upstream_timeout", "Un servicio externo no respondió a tiempo"},
}

func handleBookingError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := appointment.Classify(err)
	status := kindStatus[kind]

	code, message := "internal_error", "Error al procesar la reserva"
	if kind == appointment.KindUpstream {
		code = "upstream_error"
	}
	for _, c := range bookingCodes {
		if errors.Is(err, c.err) {
			code, message = c.code, c.message
			break
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("booking failed", "request_id", GetRequestID(r.Context()), "code", code, "error", err)
	} else {
		logger.Info("booking rejected", "request_id", GetRequestID(r.Context()), "code", code, "error", err)
	}

	if appointment.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, code, message)
}

func handleRegisterError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, account.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields", "Faltan campos requeridos")
	case errors.Is(err, account.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid_email", "Email no válido")
	case errors.Is(err, account.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, "password_too_long", "La contraseña no puede superar 72 bytes")
	case errors.Is(err, account.ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, "email_already_registered", "El email ya está registrado")
	default:
		logger.Error("register failed", "request_id", GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Error al crear el usuario")
	}
}

// handleLoginError never tells an unknown email from a wrong password.
func handleLoginError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, account.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields", "Email y contraseña requeridos")
	case errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Credenciales no válidas")
	default:
		logger.Error("login failed", "request_id", GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Error al iniciar sesión")
	}
}

func handleProfileError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, account.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user_not_found", "Usuario no encontrado")
		return
	}
	logger.Error("load user failed", "request_id", GetRequestID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "Error obteniendo usuario")
}

func handlePaymentError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, pricing.ErrNonPositiveNet),
		errors.Is(err, payment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_price", "El precio debe ser mayor que cero")
	default:
		logger.Error("payment request failed", "request_id", GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "upstream_error", "Error comunicando con PayPal")
	}
}
