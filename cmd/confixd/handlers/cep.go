package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/cep"
)

// CEPHandler looks up the address of a CEP, to fill address forms.
func CEPHandler(lookup cep.Lookup, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		addr, err := lookup.Lookup(c.Request().Context(), c.Param(param))
		if err != nil {
			switch {
			case errors.Is(err, cep.ErrInvalid):
				return apierr.BadRequest("cep should be 8 digits, like 01310-100", err)
			case errors.Is(err, cep.ErrNotFound):
				return apierr.NotFound()
			}
			return apierr.BadGateway("cep lookup", err)
		}
		return c.JSON(http.StatusOK, addr)
	}
}
