package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating/sheets"
)

// sheetField is the multipart field of uploaded price sheets.
const sheetField = "file"

func invalidTable(err error) error {
	if errors.Is(err, rating.ErrInvalidTable) {
		return apierr.BadRequest("fix the table: "+err.Error(), err)
	}
	return apierr.InternalServerError(err)
}

func decodeTable(c echo.Context) (rating.Table, error) {
	t := rating.Table{}
	if err := decodeJSON(c, &t); err != nil {
		return t, err
	}
	t.Carrier = strings.TrimSpace(t.Carrier)
	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return t, invalidTable(err)
	}
	return t, nil
}

func ListTablesHandler(dbpricing db.PricingTableInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ts, err := dbpricing.List(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if ts == nil {
			ts = []rating.Table{}
		}
		return c.JSON(http.StatusOK, ts)
	}
}

func GetTableHandler(dbpricing db.PricingTableInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := dbpricing.Get(c.Request().Context(), c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func CreateTableHandler(dbpricing db.PricingTableInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := decodeTable(c)
		if err != nil {
			return err
		}
		t.Id = ""
		created, err := dbpricing.Create(c.Request().Context(), t)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

// UpdateTableHandler replaces a table with the body. The id in the path wins.
func UpdateTableHandler(dbpricing db.PricingTableInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := decodeTable(c)
		if err != nil {
			return err
		}
		t.Id = c.Param(param)
		updated, err := dbpricing.Update(c.Request().Context(), t)
		if err != nil {
			return missingOr(err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

// SetTableActiveHandler turns a table on (PUT .../active) or off (DELETE .../active).
func SetTableActiveHandler(dbpricing db.PricingTableInterface, param string, active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := dbpricing.SetActive(c.Request().Context(), c.Param(param), active)
		if err != nil {
			return missingOr(err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func DeleteTableHandler(dbpricing db.PricingTableInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := dbpricing.Delete(c.Request().Context(), c.Param(param)); err != nil {
			return missingOr(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// ImportSheetHandler replaces zones and rates of a table with an uploaded carrier sheet (CSV or XLSX).
//
// Sheets of another carrier than the table's are rejected, unless "force=true".
func ImportSheetHandler(dbpricing db.PricingTableInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		fh, err := c.FormFile(sheetField)
		if err != nil {
			return apierr.BadRequest(`upload the sheet as multipart field "`+sheetField+`"`, err)
		}
		t, err := dbpricing.Get(ctx, c.Param(param))
		if err != nil {
			return missingOr(err)
		}

		f, err := fh.Open()
		if err != nil {
			return apierr.InternalServerError(err)
		}
		defer f.Close()

		rows, err := sheets.Read(fh.Filename, f)
		if err != nil {
			if errors.Is(err, sheets.ErrUnsupportedFormat) {
				return apierr.BadRequest("upload a .csv or .xlsx file", err)
			}
			return apierr.BadRequest("can not read the sheet", err)
		}
		sheet, err := sheets.Parse(rows)
		if err != nil {
			return apierr.BadRequest("fix the sheet: "+err.Error(), err)
		}
		if c.FormValue("force") != "true" && !sheet.Matches(t.Carrier) {
			return apierr.BadRequest(
				"the sheet is of "+string(sheet.Carrier)+", but the table is of "+t.Carrier+
					`. send "force=true" to import anyway`,
				nil,
			)
		}

		t = sheet.ApplyTo(t)
		if err := t.Validate(); err != nil {
			return invalidTable(err)
		}
		updated, err := dbpricing.Update(ctx, t)
		if err != nil {
			return missingOr(err)
		}
		c.Logger().Infof(
			"pricing: table %s replaced by sheet %s (%d zones, %d rates)",
			updated.Id, fh.Filename, len(updated.Zones), len(updated.Rates),
		)
		return c.JSON(http.StatusOK, updated)
	}
}
