package catalog

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default(decimal.NewFromInt(2))

	corte, ok := c.Lookup("corte")
	if !ok {
		t.Fatal("corte missing")
	}
	if corte.DurationMinutes != 45 || !corte.Price.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected corte %+v", corte)
	}
	if _, ok := c.Lookup("barba"); ok {
		t.Fatal("unexpected service barba")
	}

	all := c.All()
	if len(all) != 6 {
		t.Fatalf("expected 6 services, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("services not sorted: %s before %s", all[i-1].Key, all[i].Key)
		}
	}
}

func TestNetPrice(t *testing.T) {
	c := Default(decimal.NewFromInt(2))

	for _, s := range c.All() {
		full, err := c.NetPrice(s, false)
		if err != nil {
			t.Fatalf("%s: %v", s.Key, err)
		}
		if !full.Equal(s.Price) {
			t.Errorf("%s: non-recurring net %s != price %s", s.Key, full, s.Price)
		}

		disc, err := c.NetPrice(s, true)
		if err != nil {
			t.Fatalf("%s: %v", s.Key, err)
		}
		if !full.Sub(disc).Equal(decimal.NewFromInt(2)) {
			t.Errorf("%s: recurring net %s is not 2 below %s", s.Key, disc, full)
		}
	}
}

func TestNetPriceFloor(t *testing.T) {
	c := New([]Service{{Key: "mini", Name: "Mini", DurationMinutes: 10, Price: decimal.NewFromInt(2)}}, decimal.NewFromInt(2))
	s, _ := c.Lookup("mini")

	if _, err := c.NetPrice(s, true); !errors.Is(err, ErrDiscountExceedsPrice) {
		t.Fatalf("expected ErrDiscountExceedsPrice, got %v", err)
	}
	if _, err := c.NetPrice(s, false); err != nil {
		t.Fatalf("undiscounted: %v", err)
	}
}
