package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hackgods/salon-booking/internal/config"
	"github.com/hackgods/salon-booking/internal/logging"
)

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(config.PayPalConfig{}, logging.Discard()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestCreateOrderRejectsNonPositive(t *testing.T) {
	c, err := New(config.PayPalConfig{ClientID: "id", Secret: "secret", Currency: "EUR"}, logging.Discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := c.CreateOrder(context.Background(), decimal.Zero, "Tinte"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCaptureCompleted(t *testing.T) {
	var nilCapture *Capture
	if nilCapture.Completed() {
		t.Fatal("nil capture reported completed")
	}
	if (&Capture{Status: "PENDING"}).Completed() {
		t.Fatal("pending capture reported completed")
	}
	if !(&Capture{Status: StatusCompleted}).Completed() {
		t.Fatal("completed capture not reported")
	}
}

func fakePayPal(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v2/checkout/orders/OK-1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"OK-1","status":"COMPLETED","purchase_units":[{"payments":{"captures":[
			{"id":"CAP-1","status":"COMPLETED","amount":{"currency_code":"EUR","value":"26.11"}}]}}]}`)
	})
	mux.HandleFunc("/v2/checkout/orders/NOPE/capture", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"name":"UNPROCESSABLE_ENTITY","message":"ORDER_NOT_APPROVED"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := newWithBase(config.PayPalConfig{ClientID: "id", Secret: "secret", Currency: "EUR"}, srv.URL, logging.Discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestCaptureOrderParsesAmount(t *testing.T) {
	c := fakePayPal(t)

	capture, err := c.CaptureOrder(context.Background(), "OK-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !capture.Completed() || capture.CaptureID != "CAP-1" {
		t.Fatalf("unexpected capture %+v", capture)
	}
	if capture.Amount.StringFixed(2) != "26.11" || capture.Currency != "EUR" {
		t.Fatalf("amount = %s %s", capture.Amount, capture.Currency)
	}
}

func TestCaptureOrderNotApproved(t *testing.T) {
	c := fakePayPal(t)

	if _, err := c.CaptureOrder(context.Background(), "NOPE"); !errors.Is(err, ErrNotCapturable) {
		t.Fatalf("expected ErrNotCapturable, got %v", err)
	}
}
