package units

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestFormatEther(t *testing.T) {
	cases := map[string]struct {
		amount *uint256.Int
		want   string
	}{
		"nil":           {amount: nil, want: "N/A"},
		"zero":          {amount: uint256.NewInt(0), want: "0"},
		"one ether":     {amount: uint256.NewInt(1_000_000_000_000_000_000), want: "1"},
		"half ether":    {amount: uint256.NewInt(500_000_000_000_000_000), want: "0.5"},
		"one wei":       {amount: uint256.NewInt(1), want: "0.000000000000000001"},
		"mixed":         {amount: uint256.NewInt(2_500_000_000_000_000_001), want: "2.500000000000000001"},
		"large integer": {amount: uint256.MustFromDecimal("123456789000000000000000000"), want: "123456789"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := FormatEther(tc.amount); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

func TestFormatEtherMaxUint256(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got := FormatEther(max)
	want := "115792089237316195423570985008687907853269984665640564039457.584007913129639935"
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestFormatBaseUnitsZeroDecimals(t *testing.T) {
	if got := FormatBaseUnits(uint256.NewInt(42), 0); got != "42" {
		t.Fatalf("expected 42 got %q", got)
	}
	if got := FormatBaseUnits(uint256.NewInt(42), -1); got != NotAvailable {
		t.Fatalf("expected N/A got %q", got)
	}
}

func TestRenderThenParseRecoversAmount(t *testing.T) {
	amounts := []string{
		"0",
		"1",
		"1000000000000000000",
		"1500000000000000000",
		"999999999999999999",
		"115792089237316195423570985008687907853269984665640564039457584007913129639935",
	}
	for _, raw := range amounts {
		want := uint256.MustFromDecimal(raw)
		got, err := ParseEther(FormatEther(want))
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if !got.Eq(want) {
			t.Fatalf("round trip of %s gave %s", raw, got.Dec())
		}
	}
}

func TestParseEtherRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "N/A", "1.2.3", "abc", "-1", "0.0000000000000000001"} {
		if _, err := ParseEther(in); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", in, err)
		}
	}
}
