package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	apiquotes "github.com/confixenvios/confixenvios-sub003/pkg/api/types/quotes"
	"github.com/confixenvios/confixenvios-sub003/pkg/auth"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

// Rater gives quote options. It is *rating.Engine.
type Rater interface {
	Rate(ctx context.Context, req rating.Request) ([]rating.Quote, error)
}

var _ Rater = &rating.Engine{}

// CreateQuoteHandler rates a request and keeps its options for ttl.
//
// Anonymous users can ask quotes too; they are owned by nobody.
func CreateQuoteHandler(rater Rater, dbquote db.QuoteInterface, ttl time.Duration, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req := rating.Request{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		req, err := req.Validate()
		if err != nil {
			return apierr.BadRequest("check postal codes, packages and declared value", err)
		}

		options, err := rater.Rate(ctx, req)
		if err != nil {
			switch {
			case errors.Is(err, rating.ErrInvalidRequest):
				return apierr.BadRequest("check postal codes, packages and declared value", err)
			case errors.Is(err, rating.ErrNoCoverage):
				return apierr.Unprocessable(
					"no carrier covers the route",
					apierr.WithAdvice("contact us for a custom quote."),
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		owner := ""
		if u, ok := auth.UserOf(c); ok {
			owner = u.Id
		}
		t := now()
		quotes, err := dbquote.Create(ctx, owner, req, options, t.Add(ttl))
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := apiquotes.Response{Options: make([]apiquotes.Detail, 0, len(quotes))}
		for _, q := range quotes {
			resp.Options = append(resp.Options, binding.ComposeQuote(q, t))
		}
		return c.JSON(http.StatusCreated, resp)
	}
}

// GetQuoteHandler shows a quote to its owner and admins. Anonymous quotes are shown to everyone.
func GetQuoteHandler(dbquote db.QuoteInterface, param string, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		q, err := dbquote.Get(ctx, c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		u, authenticated := auth.UserOf(c)
		if !auth.CanSee(u, authenticated, q.OwnerId) {
			return apierr.NotFound()
		}
		return c.JSON(http.StatusOK, binding.ComposeQuote(q, now()))
	}
}
