package money_test

import (
	"errors"
	"testing"

	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

func TestRound(t *testing.T) {
	for when, then := range map[float64]money.Cents{
		0:      0,
		12.4:   12,
		12.5:   13,
		12.51:  13,
		28.5:   29,
		-12.5:  -13,
		1999.9: 2000,
	} {
		if actual := money.Round(when); actual != then {
			t.Errorf("Round(%v) = %d, want %d", when, actual, then)
		}
	}
}

func TestCents_Percent(t *testing.T) {
	for name, tc := range map[string]struct {
		amount money.Cents
		pct    float64
		want   money.Cents
	}{
		"0.3% of R$ 1.000,00": {amount: 100000, pct: 0.3, want: 300},
		"0.15% of R$ 190,00":  {amount: 19000, pct: 0.15, want: 29}, // 28.5 -> 29
		"10% of R$ 0,05":      {amount: 5, pct: 10, want: 1},         // 0.5 -> 1
		"zero":                {amount: 0, pct: 5, want: 0},
	} {
		if actual := tc.amount.Percent(tc.pct); actual != tc.want {
			t.Errorf("%s: got %d, want %d", name, actual, tc.want)
		}
	}
}

func TestCents_String(t *testing.T) {
	for when, then := range map[money.Cents]string{
		0:         "R$ 0,00",
		5:         "R$ 0,05",
		123456:    "R$ 1.234,56",
		-1050:     "-R$ 10,50",
		100000000: "R$ 1.000.000,00",
	} {
		if actual := when.String(); actual != then {
			t.Errorf("%d.String() = %q, want %q", when, actual, then)
		}
	}
}

func TestCents_Decimal(t *testing.T) {
	for when, then := range map[money.Cents]string{
		0:      "0.00",
		5:      "0.05",
		123456: "1234.56",
		-1050:  "-10.50",
	} {
		if actual := when.Decimal(); actual != then {
			t.Errorf("%d.Decimal() = %q, want %q", when, actual, then)
		}
	}
}

func TestParse(t *testing.T) {
	for when, then := range map[string]money.Cents{
		"R$ 1.234,56":  123456,
		"1234,56":      123456,
		"12,5":         1250,
		"7":            700,
		"1234.56":      123456,
		"1,234.56":     123456,
		"1.234.567":    123456700,
		" R$ 9,90": 990,
	} {
		actual, err := money.Parse(when)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", when, err)
			continue
		}
		if actual != then {
			t.Errorf("Parse(%q) = %d, want %d", when, actual, then)
		}
	}

	for _, when := range []string{"", "R$", "abc", "1,2,3", "12,5x"} {
		if _, err := money.Parse(when); !errors.Is(err, money.ErrBadAmount) {
			t.Errorf("Parse(%q): error = %v, want ErrBadAmount", when, err)
		}
	}
}
