package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/storefront/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"GameID", id.NewGameID, "game_"},
		{"EditionID", id.NewEditionID, "edtn_"},
		{"DLCID", id.NewDLCID, "dlc_"},
		{"LineItemID", id.NewLineItemID, "li_"},
		{"PurchaseID", id.NewPurchaseID, "pur_"},
		{"RefundID", id.NewRefundID, "rfnd_"},
		{"PaymentID", id.NewPaymentID, "pay_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixGame)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixGame {
		t.Errorf("expected prefix %q, got %q", id.PrefixGame, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"GameID", id.NewGameID, id.ParseGameID},
		{"EditionID", id.NewEditionID, id.ParseEditionID},
		{"DLCID", id.NewDLCID, id.ParseDLCID},
		{"LineItemID", id.NewLineItemID, id.ParseLineItemID},
		{"PurchaseID", id.NewPurchaseID, id.ParsePurchaseID},
		{"RefundID", id.NewRefundID, id.ParseRefundID},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseGameID rejects edtn_", id.NewEditionID().String(), id.ParseGameID},
		{"ParseEditionID rejects dlc_", id.NewDLCID().String(), id.ParseEditionID},
		{"ParseDLCID rejects li_", id.NewLineItemID().String(), id.ParseDLCID},
		{"ParseLineItemID rejects pur_", id.NewPurchaseID().String(), id.ParseLineItemID},
		{"ParsePurchaseID rejects rfnd_", id.NewRefundID().String(), id.ParsePurchaseID},
		{"ParseRefundID rejects pay_", id.NewPaymentID().String(), id.ParseRefundID},
		{"ParsePaymentID rejects game_", id.NewGameID().String(), id.ParsePaymentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseWithPrefix(t *testing.T) {
	i := id.NewGameID()
	parsed, err := id.ParseWithPrefix(i.String(), id.PrefixGame)
	if err != nil {
		t.Fatalf("ParseWithPrefix failed: %v", err)
	}
	if parsed.String() != i.String() {
		t.Errorf("mismatch: %q != %q", parsed.String(), i.String())
	}

	_, err = id.ParseWithPrefix(i.String(), id.PrefixEdition)
	if err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestEqual(t *testing.T) {
	a := id.NewGameID()
	b := id.NewGameID()

	if !a.Equal(a) {
		t.Error("ID should equal itself")
	}
	if a.Equal(b) {
		t.Error("distinct IDs should not be equal")
	}

	var nil1, nil2 id.ID
	if !nil1.Equal(nil2) {
		t.Error("two nil IDs should be equal")
	}
	if a.Equal(nil1) {
		t.Error("valid ID should not equal nil ID")
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewGameID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	// Nil round-trip.
	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewPurchaseID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	// Nil round-trip.
	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewGameID()
	b := id.NewGameID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewGameID() calls returned the same ID: %q", a.String())
	}
}
