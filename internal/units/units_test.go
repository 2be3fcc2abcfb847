package units

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

func TestToDecimal(t *testing.T) {
	cases := []struct {
		in   string
		exp  int
		want float64
	}{
		{"1000000000000000000", 18, 1},
		{"500000000000000000", 18, 0.5},
		{"3000000000000000000", 18, 3},
		{"123456", 6, 0.123456},
		{"0", 18, 0},
		{"", 18, 0},
		{"not-a-number", 18, 0},
		{"-5", 0, 0},
		{"1.5", 0, 0},
		{"1e18", 0, 0},
		{"+5", 0, 0},
	}
	for _, tc := range cases {
		got := ToDecimal(tc.in, tc.exp)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("ToDecimal(%q, %d)=%v want=%v", tc.in, tc.exp, got, tc.want)
		}
	}
}

func TestParseDecimalReportsMalformed(t *testing.T) {
	if _, err := ParseDecimal("12x", 18); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("err=%v want ErrMalformedResponse", err)
	}
	for _, in := range []string{"1.5", "1e-3", "1e18", "+5", "-1", "0x10"} {
		if _, err := ParseDecimal(in, 0); !errors.Is(err, domain.ErrMalformedResponse) {
			t.Fatalf("ParseDecimal(%q): err=%v want ErrMalformedResponse", in, err)
		}
	}
	f, err := ParseDecimal("2000000000000000000", 18)
	if err != nil || f != 2 {
		t.Fatalf("got=%v err=%v want=2", f, err)
	}
}

func TestFormatRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		v    float64
		d    int
		want string
	}{
		{1.35, 6, "1.350000"},
		{2.675, 2, "2.68"},
		{-2.675, 2, "-2.68"},
		{0.5, 0, "1"},
		{0.0000005, 6, "0.000001"},
		{3, 2, "3.00"},
		{math.NaN(), 2, "0.00"},
		{math.Inf(1), 1, "0.0"},
		{1.25, -1, "1"},
	}
	for _, tc := range cases {
		if got := Format(tc.v, tc.d); got != tc.want {
			t.Fatalf("Format(%v, %d)=%q want=%q", tc.v, tc.d, got, tc.want)
		}
	}
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("0.5", EtherDecimals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != "500000000000000000" {
		t.Fatalf("got=%s want=500000000000000000", v)
	}

	for _, bad := range []string{"", "abc", "0", "-1", "0.0000000000000000001"} {
		if _, err := ParseUnits(bad, EtherDecimals); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("ParseUnits(%q) err=%v want ErrInvalidAmount", bad, err)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	if got := FormatUnits(big.NewInt(500000000000000000), EtherDecimals); got != "0.5" {
		t.Fatalf("got=%q want=0.5", got)
	}
	one, _ := new(big.Int).SetString("1000000000000000000", 10)
	if got := FormatUnits(one, EtherDecimals); got != "1" {
		t.Fatalf("got=%q want=1", got)
	}
	if got := FormatUnits(nil, EtherDecimals); got != "0" {
		t.Fatalf("got=%q want=0", got)
	}
}

func TestWeiToDecimal(t *testing.T) {
	if got := WeiToDecimal(big.NewInt(250000000000000000)); got != 0.25 {
		t.Fatalf("got=%v want=0.25", got)
	}
	if got := WeiToDecimal(nil); got != 0 {
		t.Fatalf("got=%v want=0", got)
	}
}
