// Package pricing converts the amount the salon must receive into the amount
// charged through the payment processor.
//
// The processor keeps a percentage rate r plus a fixed fee f per transaction,
// so charging G leaves G*(1-r) - f. The gross for a desired net N is therefore
// (N + f) / (1 - r), rounded half-up to cents.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveNet = errors.New("net amount must be greater than zero")
	ErrInvalidRate    = errors.New("fee rate must be in [0, 1)")
	ErrNegativeFee    = errors.New("fixed fee must not be negative")
)

var one = decimal.NewFromInt(1)

type Calculator struct {
	rate     decimal.Decimal
	fixedFee decimal.Decimal
}

type Quote struct {
	Net        decimal.Decimal
	Gross      decimal.Decimal
	Commission decimal.Decimal
}

func NewCalculator(rate, fixedFee decimal.Decimal) (Calculator, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(one) {
		return Calculator{}, ErrInvalidRate
	}
	if fixedFee.IsNegative() {
		return Calculator{}, ErrNegativeFee
	}
	return Calculator{rate: rate, fixedFee: fixedFee}, nil
}

// Gross returns the amount to charge so that net remains after processor fees.
// decimal.Round rounds half away from zero, which is half-up for positive amounts.
func (c Calculator) Gross(net decimal.Decimal) (decimal.Decimal, error) {
	if !net.IsPositive() {
		return decimal.Zero, ErrNonPositiveNet
	}
	return net.Add(c.fixedFee).Div(one.Sub(c.rate)).Round(2), nil
}

func (c Calculator) Quote(net decimal.Decimal) (Quote, error) {
	gross, err := c.Gross(net)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Net:        net,
		Gross:      gross,
		Commission: gross.Sub(net),
	}, nil
}

// Received is what the salon keeps from a gross charge.
func (c Calculator) Received(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(one.Sub(c.rate)).Sub(c.fixedFee)
}
