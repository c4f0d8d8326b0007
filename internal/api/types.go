package api

import (
	"github.com/shopspring/decimal"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/appointment"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId"`
	Token   string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool            `json:"success"`
	Token   string          `json:"token"`
	User    account.Profile `json:"user"`
}

type UserResponse struct {
	Success bool            `json:"success"`
	User    account.Profile `json:"user"`
}

type CreateAppointmentRequest struct {
	UserID      string `json:"userId"`
	ServiceKey  string `json:"serviceKey"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	IsRecurring bool   `json:"isRecurring"`
}

type CaptureOrderRequest struct {
	OrderID     string           `json:"orderID"`
	UserID      string           `json:"userId"`
	ServiceKey  string           `json:"serviceKey"`
	Date        string           `json:"date"`
	Time        string           `json:"time"`
	IsRecurring bool             `json:"isRecurring"`
	NetPrice    *decimal.Decimal `json:"netPrice,omitempty"`
}

type BookingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	appointment.BookingResult
}

type AppointmentsResponse struct {
	Success      bool                  `json:"success"`
	Appointments []appointment.Summary `json:"appointments"`
}

type ServiceView struct {
	Key             string `json:"key"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Price           string `json:"price"`
}

type ServicesResponse struct {
	Success         bool          `json:"success"`
	Services        []ServiceView `json:"services"`
	LoyaltyDiscount string        `json:"loyaltyDiscount"`
}

type GrossPriceRequest struct {
	NetPrice decimal.Decimal `json:"netPrice"`
}

type GrossPriceResponse struct {
	Success    bool    `json:"success"`
	NetPrice   float64 `json:"netPrice"`
	GrossPrice float64 `json:"grossPrice"`
	Commission float64 `json:"commission"`
}

type CreateOrderRequest struct {
	GrossPrice  decimal.Decimal `json:"grossPrice"`
	ServiceName string          `json:"serviceName"`
}

type CreateOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderID"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
