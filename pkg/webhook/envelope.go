package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Envelope struct {
	Id        string          `json:"id"`
	Event     Event           `json:"event"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

const signaturePrefix = "sha256="

// Sign returns the value of X-Confix-Signature for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a X-Confix-Signature value against body.
func Verify(secret string, body []byte, signature string) bool {
	hexsum, ok := strings.CutPrefix(signature, signaturePrefix)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(hexsum)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// NewSecret generates a random signing secret.
func NewSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(b), nil
}

var ErrInvalidURL = errors.New("invalid webhook url")

// ParseURL accepts absolute http(s) URLs with a host.
func ParseURL(s string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme should be http or https: %q", ErrInvalidURL, s)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: no host: %q", ErrInvalidURL, s)
	}
	return u, nil
}

const (
	backoffBase = 30 * time.Second
	backoffMax  = time.Hour
)

// Backoff is the delay before the next try, after attempt tries have failed.
//
// It is min(30s * 2^(attempt-1), 1h).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if backoffMax <= d {
			return backoffMax
		}
	}
	return d
}
