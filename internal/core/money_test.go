package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseHundredths(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up
		{"1.004", 100, true},
		{".5", 50, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{".", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseHundredths(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseAmountDefaultsToZero(t *testing.T) {
	cases := map[string]string{
		"1500":   "1500",
		"12,5":   "12.5",
		"7.125":  "7.13",
		"":       "0",
		"-20":    "0",
		"twenty": "0",
	}
	for in, want := range cases {
		got := ParseAmount(in)
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", in, got, want)
		}
	}
	if got := ParseHours("7,5"); !got.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("ParseHours = %s", got)
	}
}

func TestHundredthsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "1000", "1234.56", "99999999.99"} {
		d := decimal.RequireFromString(s)
		if got := FromHundredths(ToHundredths(d)); !got.Equal(d) {
			t.Fatalf("round trip %s -> %s", s, got)
		}
	}
	if got := ToHundredths(decimal.RequireFromString("2.345")); got != 235 {
		t.Fatalf("ToHundredths rounds half-up, got %d", got)
	}
}
