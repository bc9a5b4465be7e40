// Package cep deals with Brazilian postal codes (CEP).
package cep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid CEP")

// Normalize returns the 8 digit form of a CEP.
//
// Separators (like "01310-100" or "01.310-100") are dropped.
// CEPs which are not 8 digits, or are all zeros, are ErrInvalid.
func Normalize(s string) (string, error) {
	digits := make([]byte, 0, 8)
	for _, r := range strings.TrimSpace(s) {
		switch {
		case '0' <= r && r <= '9':
			digits = append(digits, byte(r))
		case r == '-' || r == '.' || r == ' ':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}
	if len(digits) != 8 || string(digits) == "00000000" {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return string(digits), nil
}

// Format returns a CEP in "00000-000" form. c should be normalized.
func Format(c string) string {
	if len(c) != 8 {
		return c
	}
	return c[:5] + "-" + c[5:]
}

// Range is an inclusive range of normalized CEPs.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewRange normalizes both ends.
func NewRange(from, to string) (Range, error) {
	f, err := Normalize(from)
	if err != nil {
		return Range{}, err
	}
	t, err := Normalize(to)
	if err != nil {
		return Range{}, err
	}
	r := Range{From: f, To: t}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if len(r.From) != 8 || len(r.To) != 8 {
		return fmt.Errorf("%w: range %s..%s", ErrInvalid, r.From, r.To)
	}
	if r.To < r.From {
		return fmt.Errorf("range %s..%s is reversed", r.From, r.To)
	}
	return nil
}

// Contains reports whether the normalized CEP c is in r.
//
// Equal-length digit strings compare like numbers.
func (r Range) Contains(c string) bool {
	return r.From <= c && c <= r.To
}

// Width is the count of CEPs in r.
func (r Range) Width() int64 {
	from, _ := strconv.ParseInt(r.From, 10, 64)
	to, _ := strconv.ParseInt(r.To, 10, 64)
	return to - from + 1
}

func (r Range) String() string {
	return Format(r.From) + ".." + Format(r.To)
}
