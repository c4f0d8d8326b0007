package catalog

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var ErrDiscountExceedsPrice = errors.New("loyalty discount leaves nothing to charge")

type Service struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	DurationMinutes int             `json:"durationMinutes"`
	Price           decimal.Decimal `json:"price"`
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Catalog is the immutable service list loaded at startup.
type Catalog struct {
	services        map[string]Service
	loyaltyDiscount decimal.Decimal
}

func New(services []Service, loyaltyDiscount decimal.Decimal) *Catalog {
	m := make(map[string]Service, len(services))
	for _, s := range services {
		m[s.Key] = s
	}
	return &Catalog{services: m, loyaltyDiscount: loyaltyDiscount}
}

// Default is the salon's standard menu.
func Default(loyaltyDiscount decimal.Decimal) *Catalog {
	return New([]Service{
		{Key: "corte", Name: "Corte de Pelo", DurationMinutes: 45, Price: decimal.NewFromInt(25)},
		{Key: "tinte", Name: "Tinte", DurationMinutes: 120, Price: decimal.NewFromInt(60)},
		{Key: "mechas", Name: "Mechas", DurationMinutes: 150, Price: decimal.NewFromInt(80)},
		{Key: "peinado", Name: "Peinado", DurationMinutes: 60, Price: decimal.NewFromInt(35)},
		{Key: "tratamiento", Name: "Tratamiento Capilar", DurationMinutes: 90, Price: decimal.NewFromInt(45)},
		{Key: "manicura", Name: "Manicura", DurationMinutes: 45, Price: decimal.NewFromInt(20)},
	}, loyaltyDiscount)
}

func (c *Catalog) Lookup(key string) (Service, bool) {
	s, ok := c.services[key]
	return s, ok
}

func (c *Catalog) LoyaltyDiscount() decimal.Decimal {
	return c.loyaltyDiscount
}

// All returns the services ordered by key.
func (c *Catalog) All() []Service {
	out := make([]Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// NetPrice is the base price minus the loyalty discount for recurring customers.
func (c *Catalog) NetPrice(s Service, recurring bool) (decimal.Decimal, error) {
	net := s.Price
	if recurring {
		net = net.Sub(c.loyaltyDiscount)
	}
	if !net.IsPositive() {
		return decimal.Zero, ErrDiscountExceedsPrice
	}
	return net, nil
}
