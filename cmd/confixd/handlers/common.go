// Package handlers implements the REST API of confixd.
//
// Each handler is built from the storage (and services) it needs,
// and responds errors made by pkg/api/types/errors.
package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/auth"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

// maxPageSize caps "limit" of listings.
const maxPageSize = 500

func isJSON(c echo.Context) bool {
	mt, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil {
		return false
	}
	return mt == echo.MIMEApplicationJSON || strings.HasSuffix(mt, "+json")
}

// decodeJSON reads the request body as JSON into v.
func decodeJSON(c echo.Context, v any) error {
	if !isJSON(c) {
		return apierr.BadRequest("unexpected content type. it should be application/json", nil)
	}
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		return apierr.BadRequest("can not understand the requested json", err)
	}
	return nil
}

// page reads "limit" and "offset" query parameters.
func page(c echo.Context) (db.Page, error) {
	p := db.Page{}
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || maxPageSize < n {
			return p, apierr.BadRequest("limit should be an integer from 1 to "+strconv.Itoa(maxPageSize), err)
		}
		p.Limit = n
	}
	if o := c.QueryParam("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			return p, apierr.BadRequest("offset should be a non-negative integer", err)
		}
		p.Offset = n
	}
	return p, nil
}

// caller returns the signed-in user. Handlers behind auth.RequireUser always have one.
func caller(c echo.Context) (auth.User, error) {
	u, ok := auth.UserOf(c)
	if !ok {
		return auth.User{}, apierr.Unauthorized("sign in")
	}
	return u, nil
}

// checkToken compares a shared secret sent in header.
func checkToken(c echo.Context, header string, token string) error {
	got := c.Request().Header.Get(header)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return apierr.Unauthorized("send a valid " + header + " header")
	}
	return nil
}

// missingOr makes ErrMissing into 404, and others into 500.
func missingOr(err error) error {
	if errors.Is(err, db.ErrMissing) {
		return apierr.NotFound()
	}
	return apierr.InternalServerError(err)
}
