package utils

import (
	"math/big"
	"strings"
	"testing"
)

func TestFormatBigInt(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890123456789", 10)

	tests := []struct {
		name     string
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{"negative with scale", big.NewInt(-1500), 3, "-1.500"},
		{"zero scale", big.NewInt(42), 0, "42"},
		{"negative zero scale", big.NewInt(-42), 0, "-42"},
		{"pads small values", big.NewInt(5), 4, "0.0005"},
		{"negative small value", big.NewInt(-5), 4, "-0.0005"},
		{"exactly one unit", big.NewInt(1_000_000), 6, "1.000000"},
		{"nil is zero", nil, 2, "0.00"},
		{"zero", big.NewInt(0), 18, "0.000000000000000000"},
		{"beyond 64 bits", huge, 18, "123456789012345678901.234567890123456789"},
		{"scale 36", big.NewInt(1), 36, "0." + strings.Repeat("0", 35) + "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBigInt(tt.amount, tt.decimals); got != tt.want {
				t.Fatalf("FormatBigInt(%v, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	cases := []struct {
		s     string
		scale uint8
	}{
		{"-1.500", 3},
		{"0.000000000000000001", 18},
		{"123456789012345678901.234567890123456789", 18},
		{"-98765432109876543210987654321.000000000000000000000000000000000001", 36},
		{"7", 0},
		{"-7", 0},
		{"0.00", 2},
	}

	for _, c := range cases {
		raw, err := ParseBigDecimal(c.s, c.scale)
		if err != nil {
			t.Fatalf("ParseBigDecimal(%q, %d): %v", c.s, c.scale, err)
		}
		if got := FormatBigInt(raw, c.scale); got != c.s {
			t.Fatalf("round trip of %q at scale %d gave %q", c.s, c.scale, got)
		}
	}
}

func TestParseBigDecimal(t *testing.T) {
	got, err := ParseBigDecimal("1.5", 3)
	if err != nil {
		t.Fatalf("ParseBigDecimal: %v", err)
	}
	if got.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("expected 1500, got %s", got)
	}

	for _, bad := range []string{"", "1.", ".5", "1.2345", "1.2.3", "abc", "--1", "1.-2"} {
		if _, err := ParseBigDecimal(bad, 3); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseBlockHeight(t *testing.T) {
	cases := []struct {
		raw  string
		want *big.Int
	}{
		{"", nil},
		{"latest", nil},
		{" LATEST ", nil},
		{"19000000", big.NewInt(19_000_000)},
		{"0x10", big.NewInt(16)},
	}
	for _, c := range cases {
		got, err := ParseBlockHeight(c.raw)
		if err != nil {
			t.Fatalf("ParseBlockHeight(%q): %v", c.raw, err)
		}
		if (got == nil) != (c.want == nil) || (got != nil && got.Cmp(c.want) != 0) {
			t.Fatalf("ParseBlockHeight(%q) = %v, want %v", c.raw, got, c.want)
		}
	}

	for _, bad := range []string{"-1", "soon", "0xzz"} {
		if _, err := ParseBlockHeight(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
