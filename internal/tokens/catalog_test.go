package tokens

import (
	"math/big"
	"testing"
)

func TestBySymbolAndMenuChoice(t *testing.T) {
	ape, ok := BySymbol("APE")
	if !ok || !ape.Native() || ape.Decimals != 18 {
		t.Fatalf("unexpected APE token: %+v ok=%v", ape, ok)
	}

	usdt, ok := ByMenuChoice("2")
	if !ok || usdt.Symbol != "USDT" || usdt.Decimals != 6 {
		t.Fatalf("unexpected choice 2 token: %+v ok=%v", usdt, ok)
	}

	if _, ok := ByMenuChoice("4"); ok {
		t.Fatal("choice 4 should not resolve")
	}
	if _, ok := BySymbol("DOGE"); ok {
		t.Fatal("DOGE should not resolve")
	}
}

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		amount   string
		decimals int
		want     string
	}{
		{"1", 6, "1000000"},
		{"0.5", 6, "500000"},
		{"10.25", 6, "10250000"},
		{"1", 18, "1000000000000000000"},
		{"0.000001", 6, "1"},
	}
	for _, tc := range cases {
		units, err := ToBaseUnits(tc.amount, tc.decimals)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q, %d): %v", tc.amount, tc.decimals, err)
		}
		if units.String() != tc.want {
			t.Errorf("ToBaseUnits(%q, %d) = %s, want %s", tc.amount, tc.decimals, units, tc.want)
		}
	}
}

func TestToBaseUnitsRejectsExcessPrecision(t *testing.T) {
	if _, err := ToBaseUnits("0.0000001", 6); err == nil {
		t.Fatal("expected error for 7 fractional digits at 6 decimals")
	}
	if _, err := ToBaseUnits("abc", 6); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		units    string
		decimals int
		want     string
	}{
		{"1000000", 6, "1"},
		{"10250000", 6, "10.25"},
		{"1", 6, "0.000001"},
		{"0", 6, "0"},
		{"1500000000000000000", 18, "1.5"},
	}
	for _, tc := range cases {
		units, _ := new(big.Int).SetString(tc.units, 10)
		if got := FormatUnits(units, tc.decimals); got != tc.want {
			t.Errorf("FormatUnits(%s, %d) = %q, want %q", tc.units, tc.decimals, got, tc.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, amount := range []string{"1", "0.5", "123.456"} {
		units, err := ToBaseUnits(amount, 6)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q): %v", amount, err)
		}
		if got := FormatUnits(units, 6); got != amount {
			t.Errorf("round trip %q -> %q", amount, got)
		}
	}
}
