package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	httptestutil "github.com/confixenvios/confixenvios-sub003/internal/testutils/http"
	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/auth"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
)

const jwtSecret = "handlers-test-secret"

var (
	alice = auth.User{Id: "user-alice", Email: "alice@example.com", Role: auth.Client}
	bob   = auth.User{Id: "user-bob", Email: "bob@example.com", Role: auth.Client}
	staff = auth.User{Id: "user-staff", Email: "staff@example.com", Role: auth.Admin}
)

// signedAs gives a request option to send a token of u.
func signedAs(t *testing.T, u auth.User) httptestutil.RequestOption {
	t.Helper()
	return httptestutil.Bearer(try.To(auth.Issue(jwtSecret, u, time.Hour)).OrFatal(t))
}

// serve runs h behind the authentication middleware.
func serve(c echo.Context, h echo.HandlerFunc) error {
	return auth.Authenticate(auth.NewVerifier(jwtSecret))(h)(c)
}

func fixedNow() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

// codeOf returns the status code of an error returned by a handler.
func codeOf(t *testing.T, err error) int {
	t.Helper()
	herr := new(echo.HTTPError)
	if !errors.As(err, &herr) {
		t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
	}
	return herr.Code
}

// wantCode checks that a handler failed with the status code.
func wantCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, but nil", code)
	}
	if got := codeOf(t, err); got != code {
		t.Errorf("status code: (actual, expected) = (%d, %d): %v", got, code, err)
	}
}

// reasonOf returns the reason of an error returned by a handler.
func reasonOf(t *testing.T, err error) string {
	t.Helper()
	herr := new(echo.HTTPError)
	if !errors.As(err, &herr) {
		t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
	}
	em, ok := herr.Message.(apierr.ErrorMessage)
	if !ok {
		t.Fatalf("message is not ErrorMessage: %#v", herr.Message)
	}
	return em.Reason
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("response is not json: %s: %s", err, rec.Body.String())
	}
	return v
}
