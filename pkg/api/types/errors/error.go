// Package errors builds HTTP error responses of the API.
//
// Every error response has the body
//
//	{"message": {"reason": "...", "advice": "...", "see": "..."}}
//
// where "advice" and "see" are optional.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Message ErrorMessage `json:"message"`
}

type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
	See    string `json:"see,omitempty"`

	// Cause is logged but never sent to clients.
	Cause error `json:"-"`
}

func (em *ErrorMessage) UnmarshalJSON(b []byte) error {
	var raw struct {
		Reason *string `json:"reason"`
		Advice string  `json:"advice"`
		See    string  `json:"see"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Reason == nil {
		return errors.New(`"reason" is missing in error message`)
	}
	*em = ErrorMessage{Reason: *raw.Reason, Advice: raw.Advice, See: raw.See}
	return nil
}

func (em ErrorMessage) Error() string {
	b := new(strings.Builder)
	b.WriteString(em.Reason)
	if em.Advice != "" {
		b.WriteString(" (" + em.Advice + ")")
	}
	if em.Cause != nil {
		b.WriteString(": caused by: " + em.Cause.Error())
	}
	return b.String()
}

func (em ErrorMessage) Unwrap() error {
	return em.Cause
}

type ErrorMessageOption func(*ErrorMessage)

func WithAdvice(advice string) ErrorMessageOption {
	return func(em *ErrorMessage) {
		if advice != "" {
			em.Advice = advice
		}
	}
}

func WithError(err error) ErrorMessageOption {
	return func(em *ErrorMessage) {
		if err != nil {
			em.Cause = err
		}
	}
}

func WithSee(see string) ErrorMessageOption {
	return func(em *ErrorMessage) {
		if see != "" {
			em.See = see
		}
	}
}

// NewErrorMessage creates *echo.HTTPError with ErrorMessage as its body.
//
// The message is also set as the internal error, so the error handler can log the cause.
func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		opt(&msg)
	}
	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func BadRequest(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusBadRequest, "bad request", WithAdvice(advice), WithError(err))
}

func Unauthorized(advice string) *echo.HTTPError {
	return NewErrorMessage(http.StatusUnauthorized, "unauthorized", WithAdvice(advice))
}

func Forbidden() *echo.HTTPError {
	return NewErrorMessage(http.StatusForbidden, "forbidden")
}

func NotFound() *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found")
}

func Conflict(reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, reason, opts...)
}

// Unprocessable is for requests which are well-formed but can not be served,
// like quotes for routes no carrier covers.
func Unprocessable(reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusUnprocessableEntity, reason, opts...)
}

// BadGateway is for failures of upstream services (payment gateway, address lookup, ...).
func BadGateway(service string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusBadGateway, service+" is not responding as expected",
		WithAdvice("try again later."), WithError(err),
	)
}

func ServiceUnavailable(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusServiceUnavailable, "service unavailable temporarily",
		WithAdvice(advice), WithError(err),
	)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusInternalServerError, "unexpected error", WithError(err))
}
