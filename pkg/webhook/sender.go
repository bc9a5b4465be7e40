package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"
)

var ErrHookFailed = errors.New("hook failed")

// ResponseLimit is the size of response bodies kept in Result.Body.
const ResponseLimit = 1024

// bodyLimit caps how much of a response is read at all.
const bodyLimit = 64 * 1024

// Result is what an endpoint answered.
type Result struct {
	StatusCode  int
	ContentType string

	// Body is the head of the response, at most ResponseLimit bytes.
	Body string

	raw []byte
}

func (r Result) Success() bool {
	return 200 <= r.StatusCode && r.StatusCode < 300
}

// Label is a shipping label attached by a TMS in reply to payment.confirmed.
type Label struct {
	LabelURL            string `json:"label_url"`
	CarrierTrackingCode string `json:"carrier_tracking_code"`
}

// Label extracts a label from a successful JSON response.
func (r Result) Label() (Label, bool) {
	if !r.Success() {
		return Label{}, false
	}
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil || !(mt == "application/json" || strings.HasSuffix(mt, "+json")) {
		return Label{}, false
	}
	l := Label{}
	if err := json.Unmarshal(r.raw, &l); err != nil {
		return Label{}, false
	}
	l.LabelURL = strings.TrimSpace(l.LabelURL)
	l.CarrierTrackingCode = strings.TrimSpace(l.CarrierTrackingCode)
	if l.LabelURL == "" {
		return Label{}, false
	}
	if _, err := ParseURL(l.LabelURL); err != nil {
		return Label{}, false
	}
	return l, true
}

// Sender POSTs envelopes to endpoints.
type Sender struct {
	Client    *http.Client
	UserAgent string
}

// Send delivers env to url, signed with secret.
//
// Transport errors and non-2xx responses are reported as errors wrapping ErrHookFailed.
// Result is filled whenever the endpoint answered.
func (s Sender) Send(ctx context.Context, url string, secret string, deliveryId string, env Envelope) (Result, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, errors.Join(err, ErrHookFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Confix-Event", string(env.Event))
	req.Header.Set("X-Confix-Delivery", deliveryId)
	req.Header.Set("X-Confix-Signature", Sign(secret, body))
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, errors.Join(err, ErrHookFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	result := Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        head(raw, ResponseLimit),
		raw:         raw,
	}
	if err != nil {
		return result, errors.Join(err, ErrHookFailed)
	}

	if !result.Success() {
		return result, fmt.Errorf(
			"%w (%s %d, Content-Type: %s): %s",
			ErrHookFailed, url, resp.StatusCode, result.ContentType, result.Body,
		)
	}
	return result, nil
}

// head cuts b to at most n bytes without splitting a UTF-8 sequence.
func head(b []byte, n int) string {
	if n < len(b) {
		b = b[:n]
		for i := len(b) - 1; 0 <= i && len(b)-utf8.UTFMax <= i; i-- {
			if utf8.RuneStart(b[i]) {
				if !utf8.FullRune(b[i:]) {
					b = b[:i]
				}
				break
			}
		}
	}
	return strings.ToValidUTF8(string(b), "")
}
