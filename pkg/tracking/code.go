// Package tracking issues and checks client facing tracking codes.
//
// A tracking code looks like "CFX123456785BR": the prefix "CFX", 8 serial digits,
// a check digit and the suffix "BR". The check digit follows the UPU S10 scheme.
package tracking

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	Prefix = "CFX"
	Suffix = "BR"
)

var ErrInvalidCode = errors.New("invalid tracking code")

var weights = [8]int{8, 6, 4, 2, 3, 5, 9, 7}

// CheckDigit computes the check digit of 8 serial digits.
func CheckDigit(serial string) (int, error) {
	if len(serial) != 8 {
		return 0, fmt.Errorf("%w: serial should be 8 digits: %q", ErrInvalidCode, serial)
	}
	sum := 0
	for i, r := range serial {
		if r < '0' || '9' < r {
			return 0, fmt.Errorf("%w: serial should be 8 digits: %q", ErrInvalidCode, serial)
		}
		sum += int(r-'0') * weights[i]
	}
	switch rem := sum % 11; rem {
	case 0:
		return 5, nil
	case 1:
		return 0, nil
	default:
		return 11 - rem, nil
	}
}

// FromSerial builds a tracking code from 8 serial digits.
func FromSerial(serial string) (string, error) {
	d, err := CheckDigit(serial)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%d%s", Prefix, serial, d, Suffix), nil
}

// New issues a tracking code with a random serial.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", err
	}
	return FromSerial(fmt.Sprintf("%08d", n.Int64()))
}

// Normalize upper-cases code and checks its form and check digit.
func Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != len(Prefix)+9+len(Suffix) ||
		!strings.HasPrefix(code, Prefix) || !strings.HasSuffix(code, Suffix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	digits := code[len(Prefix) : len(Prefix)+9]
	d, err := CheckDigit(digits[:8])
	if err != nil {
		return "", err
	}
	if int(digits[8]-'0') != d {
		return "", fmt.Errorf("%w: check digit mismatch: %q", ErrInvalidCode, code)
	}
	return code, nil
}
