package positions

import (
	"encoding/json"
	"testing"
)

func TestMoney_String(t *testing.T) {
	testCases := []struct {
		m          Money
		want       string
		wantSigned string
	}{
		{EUR(1234.5), "€1,234.50", "+€1,234.50"},
		{USD(-3.456), "-$3.46", "-$3.46"},
		{M(1000, "JPY"), "¥1,000", "+¥1,000"},
		{EUR(0), "€0.00", "-"},
	}
	for _, tc := range testCases {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
		if got := tc.m.SignedString(); got != tc.wantSigned {
			t.Errorf("SignedString() = %q, want %q", got, tc.wantSigned)
		}
	}
}

func TestMoney_Round(t *testing.T) {
	testCases := []struct {
		m    Money
		want Money
	}{
		{EUR(1.005), EUR(1.01)},
		{M(10.6, "JPY"), M(11, "JPY")},
		{M(1.23456, "BHD"), M(1.235, "BHD")},
		{M(1.234, "XYZ"), M(1.23, "XYZ")},
	}
	for _, tc := range testCases {
		if got := tc.m.Round(DefaultPrecision); !got.Equal(tc.want) {
			t.Errorf("%v.Round() = %v, want %v", tc.m.value, got.value, tc.want.value)
		}
	}
}

func TestMoney_CurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("EUR + USD did not panic")
		}
	}()
	EUR(1).Add(USD(1))
}

func TestMoney_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(EUR(12.5))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"currency":"EUR","amount":12.5}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
