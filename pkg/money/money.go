// Package money handles amounts of Brazilian Real.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cents is an amount of BRL in centavos.
type Cents int64

// Currency is the only currency this service deals with.
var Currency = currency.BRL

var ErrBadAmount = errors.New("bad amount")

var printer = message.NewPrinter(language.BrazilianPortuguese)

// FromReais converts an amount in reais to Cents, rounding half up.
func FromReais(r float64) Cents {
	return Round(r * 100)
}

// Round rounds fractional centavos half up (away from zero for negatives).
func Round(cents float64) Cents {
	if cents < 0 {
		return -Round(-cents)
	}
	// 1e-9 absorbs representation error like 0.285 * 100 = 28.499999...
	return Cents(math.Floor(cents + 0.5 + 1e-9))
}

// Percent returns pct percent of c, rounded half up.
func (c Cents) Percent(pct float64) Cents {
	return Round(float64(c) * pct / 100)
}

// Reais returns the amount in reais.
func (c Cents) Reais() float64 {
	return float64(c) / 100
}

// String formats the amount like "R$ 1.234,56".
func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return printer.Sprintf("%sR$ %.2f", sign, c.Reais())
}

// Decimal formats the amount like "1234.56", for APIs which take amounts in reais.
func (c Cents) Decimal() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Parse reads amounts written in Brazilian or plain notation:
//
//	"R$ 1.234,56", "1234,56", "12,5", "7", "1234.56"
//
// When both "." and "," appear, the last one is the decimal separator.
// A lone "," is always decimal. A lone "." is decimal unless it is
// followed by exactly three digits and more groups ("1.234.567").
func Parse(s string) (Cents, error) {
	f, err := ParseNumber(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if err != nil {
		return 0, err
	}
	return FromReais(f), nil
}

// ParseNumber reads a decimal number in Brazilian or plain notation.
// See Parse for the rules.
func ParseNumber(s string) (float64, error) {
	orig := s
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadAmount)
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, fmt.Errorf("%w: %q", ErrBadAmount, orig)
		}
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, orig)
	}
	return f, nil
}
