// Package document validates Brazilian taxpayer ids: CPF (people) and CNPJ (companies).
package document

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid CPF/CNPJ")

type Kind string

const (
	CPF  Kind = "cpf"
	CNPJ Kind = "cnpj"
)

// Normalize returns digits of a CPF or CNPJ, checking its check digits.
//
// Punctuation ("390.533.447-05", "12.345.678/0001-95") is dropped.
func Normalize(s string) (string, Kind, error) {
	digits := make([]int, 0, 14)
	for _, r := range strings.TrimSpace(s) {
		switch {
		case '0' <= r && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return "", "", fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}

	var kind Kind
	var weights1, weights2 []int
	switch len(digits) {
	case 11:
		kind = CPF
		weights1 = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
		weights2 = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	case 14:
		kind = CNPJ
		weights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
		weights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	default:
		return "", "", fmt.Errorf("%w: want 11 or 14 digits: %q", ErrInvalid, s)
	}

	if repeated(digits) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	n := len(weights1)
	if checkDigit(digits[:n], weights1) != digits[n] || checkDigit(digits[:n+1], weights2) != digits[n+1] {
		return "", "", fmt.Errorf("%w: check digit mismatch: %q", ErrInvalid, s)
	}

	b := new(strings.Builder)
	for _, d := range digits {
		b.WriteByte(byte('0' + d))
	}
	return b.String(), kind, nil
}

func checkDigit(digits []int, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	if r := sum % 11; r >= 2 {
		return 11 - r
	}
	return 0
}

// repeated reports whether all digits are the same, like "111.111.111-11".
// Such numbers pass the check digits but are never issued.
func repeated(digits []int) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}
