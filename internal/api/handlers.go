package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/appointment"
	"github.com/hackgods/salon-booking/internal/catalog"
	"github.com/hackgods/salon-booking/internal/pricing"
)

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden", "No puedes acceder a este usuario")
}

func registerHandler(svc AccountService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decode(w, r, &req) {
			return
		}

		reg, err := svc.Register(r.Context(), account.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			handleRegisterError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{
			Success: true,
			Message: "Usuario creado exitosamente",
			UserID:  reg.UserID,
			Token:   reg.Token,
		})
	}
}

func loginHandler(svc AccountService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decode(w, r, &req) {
			return
		}

		session, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			handleLoginError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Success: true, Token: session.Token, User: session.User})
	}
}

func getUserHandler(svc AccountService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if !authorizedFor(r, userID) {
			forbidden(w)
			return
		}

		profile, err := svc.GetProfile(r.Context(), userID)
		if err != nil {
			handleProfileError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, UserResponse{Success: true, User: *profile})
	}
}

func listAppointmentsHandler(svc BookingService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if !authorizedFor(r, userID) {
			forbidden(w)
			return
		}

		list, err := svc.ListAppointments(r.Context(), userID)
		if err != nil {
			handleBookingError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentsResponse{Success: true, Appointments: list})
	}
}

func createAppointmentHandler(svc BookingService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decode(w, r, &req) {
			return
		}
		if req.UserID == "" || req.ServiceKey == "" || req.Date == "" || req.Time == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "Faltan campos obligatorios")
			return
		}
		if !authorizedFor(r, req.UserID) {
			forbidden(w)
			return
		}

		res, err := svc.Book(r.Context(), appointment.BookingRequest{
			UserID:     req.UserID,
			ServiceKey: req.ServiceKey,
			Date:       req.Date,
			Time:       req.Time,
			Recurring:  req.IsRecurring,
			Payment:    appointment.PaymentContext{Method: appointment.MethodInPerson},
		})
		if err != nil {
			handleBookingError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			Success:       true,
			Message:       "Cita creada exitosamente",
			BookingResult: *res,
		})
	}
}

func captureOrderHandler(svc BookingService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CaptureOrderRequest
		if !decode(w, r, &req) {
			return
		}
		if req.UserID == "" || req.ServiceKey == "" || req.Date == "" || req.Time == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "Faltan campos obligatorios")
			return
		}
		if !authorizedFor(r, req.UserID) {
			forbidden(w)
			return
		}

		res, err := svc.Book(r.Context(), appointment.BookingRequest{
			UserID:     req.UserID,
			ServiceKey: req.ServiceKey,
			Date:       req.Date,
			Time:       req.Time,
			Recurring:  req.IsRecurring,
			Payment: appointment.PaymentContext{
				Method:      appointment.MethodPayPal,
				OrderID:     req.OrderID,
				ReportedNet: req.NetPrice,
			},
		})
		if err != nil {
			handleBookingError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, BookingResponse{
			Success:       true,
			Message:       "Pago completado y cita creada",
			BookingResult: *res,
		})
	}
}

func listServicesHandler(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := c.All()
		out := make([]ServiceView, 0, len(all))
		for _, s := range all {
			out = append(out, ServiceView{
				Key:             s.Key,
				Name:            s.Name,
				DurationMinutes: s.DurationMinutes,
				Price:           s.Price.StringFixed(2),
			})
		}
		writeJSON(w, http.StatusOK, ServicesResponse{
			Success:         true,
			Services:        out,
			LoyaltyDiscount: c.LoyaltyDiscount().StringFixed(2),
		})
	}
}

func grossPriceHandler(fees pricing.Calculator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GrossPriceRequest
		if !decode(w, r, &req) {
			return
		}

		q, err := fees.Quote(req.NetPrice)
		if err != nil {
			handlePaymentError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, GrossPriceResponse{
			Success:    true,
			NetPrice:   q.Net.InexactFloat64(),
			GrossPrice: q.Gross.InexactFloat64(),
			Commission: q.Commission.InexactFloat64(),
		})
	}
}

func createOrderHandler(orders OrderCreator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateOrderRequest
		if !decode(w, r, &req) {
			return
		}

		description := strings.TrimSpace(req.ServiceName)
		if description == "" {
			description = "Reserva"
		}

		orderID, err := orders.CreateOrder(r.Context(), req.GrossPrice.Round(2), description)
		if err != nil {
			handlePaymentError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, CreateOrderResponse{Success: true, OrderID: orderID})
	}
}
