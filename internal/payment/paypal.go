// Package payment is the payment gateway backed by PayPal Orders v2.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/hackgods/salon-booking/internal/config"
)

const StatusCompleted = "COMPLETED"

var (
	ErrInvalidAmount = errors.New("order amount must be greater than zero")
	ErrNotCapturable = errors.New("order cannot be captured")
)

// Capture is the outcome of capturing an approved order.
type Capture struct {
	OrderID   string
	CaptureID string
	Status    string
	Amount    decimal.Decimal // zero when PayPal did not report it
	Currency  string
}

func (c *Capture) Completed() bool {
	return c != nil && c.Status == StatusCompleted
}

type Client struct {
	api      *paypal.Client
	currency string
	log      *slog.Logger

	mu sync.Mutex // guards the first token fetch
}

func New(cfg config.PayPalConfig, logger *slog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, errors.New("PAYPAL_CLIENT_ID and PAYPAL_SECRET are required")
	}

	base := paypal.APIBaseSandBox
	if cfg.Mode == "live" {
		base = paypal.APIBaseLive
	}
	return newWithBase(cfg, base, logger)
}

func newWithBase(cfg config.PayPalConfig, base string, logger *slog.Logger) (*Client, error) {
	api, err := paypal.NewClient(cfg.ClientID, cfg.Secret, base)
	if err != nil {
		return nil, fmt.Errorf("create paypal client: %w", err)
	}

	return &Client{api: api, currency: cfg.Currency, log: logger}, nil
}

// the SDK refreshes an expiring token on its own but never fetches the first one
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api.Token != nil {
		return nil
	}
	if _, err := c.api.GetAccessToken(ctx); err != nil {
		return fmt.Errorf("paypal access token: %w", err)
	}
	return nil
}

// CreateOrder opens a capture-intent order for gross and returns its id.
func (c *Client) CreateOrder(ctx context.Context, gross decimal.Decimal, description string) (string, error) {
	if !gross.IsPositive() {
		return "", ErrInvalidAmount
	}
	if err := c.ensureToken(ctx); err != nil {
		return "", err
	}

	order, err := c.api.CreateOrder(ctx, paypal.OrderIntentCapture, []paypal.PurchaseUnitRequest{{
		Description: description,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: c.currency,
			Value:    gross.StringFixed(2),
		},
	}}, nil, nil)
	if err != nil {
		return "", fmt.Errorf("create paypal order: %w", err)
	}

	c.log.Info("paypal order created", "order_id", order.ID, "amount", gross.StringFixed(2))
	return order.ID, nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	resp, err := c.api.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		var perr *paypal.ErrorResponse
		if errors.As(err, &perr) && perr.Response != nil && perr.Response.StatusCode == http.StatusUnprocessableEntity {
			// ORDER_NOT_APPROVED, ORDER_ALREADY_CAPTURED and friends
			return nil, fmt.Errorf("%w: %s", ErrNotCapturable, perr.Message)
		}
		return nil, fmt.Errorf("capture paypal order: %w", err)
	}

	out := &Capture{OrderID: orderID, Status: resp.Status}
	for _, unit := range resp.PurchaseUnits {
		if unit.Payments == nil || len(unit.Payments.Captures) == 0 {
			continue
		}
		captured := unit.Payments.Captures[0]
		out.CaptureID = captured.ID
		if captured.Amount != nil {
			amount, err := decimal.NewFromString(captured.Amount.Value)
			if err != nil {
				c.log.Warn("unparsable capture amount", "order_id", orderID, "value", captured.Amount.Value)
			} else {
				out.Amount = amount
				out.Currency = captured.Amount.Currency
			}
		}
		break
	}

	return out, nil
}

// RefundCapture returns the full captured amount to the payer.
func (c *Client) RefundCapture(ctx context.Context, captureID string) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}
	if _, err := c.api.RefundCapture(ctx, captureID, paypal.RefundCaptureRequest{}); err != nil {
		return fmt.Errorf("refund paypal capture: %w", err)
	}
	return nil
}
