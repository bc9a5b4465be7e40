// Package cte reads CT-e (Conhecimento de Transporte Eletrônico) documents.
package cte

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidAccessKey = errors.New("invalid CT-e access key")

// Model is the fiscal document model of CT-e.
const Model = "57"

// CheckDigit computes the modulo 11 check digit of the first 43 digits of an access key.
func CheckDigit(digits43 string) (int, error) {
	if len(digits43) != 43 {
		return 0, fmt.Errorf("%w: want 43 digits, got %d", ErrInvalidAccessKey, len(digits43))
	}
	sum, weight := 0, 2
	for i := len(digits43) - 1; 0 <= i; i-- {
		c := digits43[i]
		if c < '0' || '9' < c {
			return 0, fmt.Errorf("%w: not a digit: %q", ErrInvalidAccessKey, c)
		}
		sum += int(c-'0') * weight
		if weight += 1; 9 < weight {
			weight = 2
		}
	}
	if rem := sum % 11; rem >= 2 {
		return 11 - rem, nil
	}
	return 0, nil
}

// Key is a validated access key.
type Key string

// ParseKey validates an access key, ignoring spaces, dots and the "CTe" prefix.
func ParseKey(s string) (Key, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "CTe")
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-':
			return -1
		}
		return r
	}, s)

	if len(digits) != 44 {
		return "", fmt.Errorf("%w: want 44 digits: %q", ErrInvalidAccessKey, s)
	}
	dv, err := CheckDigit(digits[:43])
	if err != nil {
		return "", err
	}
	if int(digits[43]-'0') != dv {
		return "", fmt.Errorf("%w: check digit mismatch", ErrInvalidAccessKey)
	}
	k := Key(digits)
	if k.Model() != Model {
		return "", fmt.Errorf("%w: model %s is not CT-e", ErrInvalidAccessKey, k.Model())
	}
	return k, nil
}

// UF is the IBGE code of the issuing state.
func (k Key) UF() string { return string(k[0:2]) }

// IssuerCNPJ is the CNPJ of the carrier which issued the document.
func (k Key) IssuerCNPJ() string { return string(k[6:20]) }

func (k Key) Model() string { return string(k[20:22]) }

func (k Key) Series() string { return strings.TrimLeft(string(k[22:25]), "0") }

func (k Key) Number() string { return strings.TrimLeft(string(k[25:34]), "0") }
