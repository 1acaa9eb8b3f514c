package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"INR", INR(49900), 49900, "inr", "₹499.00"},
		{"USD", USD(5999), 5999, "usd", "$59.99"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"JPY", JPY(6800), 6800, "jpy", "¥6800"},
		{"Zero INR", Zero("INR"), 0, "inr", "₹0.00"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return INR(100).Add(INR(200)) }, INR(300)},
		{"Subtract", func() Money { return INR(500).Subtract(INR(200)) }, INR(300)},
		{"Multiply", func() Money { return INR(100).Multiply(3) }, INR(300)},
		{"Negate", func() Money { return INR(100).Negate() }, INR(-100)},
		{"ClampZero positive", func() Money { return INR(100).ClampZero() }, INR(100)},
		{"ClampZero negative", func() Money { return INR(300).Subtract(INR(1000)).ClampZero() }, INR(0)},
		{"Complex", func() Money {
			return INR(1000).Add(INR(500)).Multiply(2).Subtract(INR(1000))
		}, INR(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = INR(100).Add(USD(100))
}

func TestMoneyComparison(t *testing.T) {
	a := INR(100)
	b := INR(200)

	if !a.LessThan(b) {
		t.Error("100 should be less than 200")
	}
	if !b.GreaterThan(a) {
		t.Error("200 should be greater than 100")
	}
	if !a.IsPositive() {
		t.Error("100 should be positive")
	}
	if !Zero("inr").IsZero() {
		t.Error("zero should be zero")
	}
	if !INR(-1).IsNegative() {
		t.Error("-1 should be negative")
	}
}

func TestMoneySum(t *testing.T) {
	total := Sum(INR(100), INR(200), INR(300))
	if !total.Equal(INR(600)) {
		t.Errorf("Got %v, want %v", total, INR(600))
	}

	empty := Sum()
	if !empty.IsZero() || empty.Currency != "inr" {
		t.Errorf("empty sum should be zero INR, got %v", empty)
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{INR(49900), "499.00"},
		{INR(5), "0.05"},
		{INR(-49900), "-499.00"},
		{JPY(6800), "6800"},
	}

	for _, tt := range tests {
		if got := tt.money.FormatMajor(); got != tt.expected {
			t.Errorf("FormatMajor(%v): got %q, want %q", tt.money, got, tt.expected)
		}
	}
}

func TestMoneyMarshalJSON(t *testing.T) {
	data, err := json.Marshal(INR(49900))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Amount != 49900 || decoded.Currency != "inr" || decoded.Display != "₹499.00" {
		t.Errorf("unexpected JSON payload: %+v", decoded)
	}
}
