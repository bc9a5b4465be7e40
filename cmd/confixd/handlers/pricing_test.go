package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/cmd/confixd/handlers"
	httptestutil "github.com/confixenvios/confixenvios-sub003/internal/testutils/http"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	dbmock "github.com/confixenvios/confixenvios-sub003/pkg/db/mocks"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

const tableBody = `{
	"carrier": "Jadlog", "name": ".Package", "cubic_factor": 300, "gris_pct": 0.3,
	"zones": [{"code": "SP", "range": {"from": "01000000", "to": "05999999"}, "delivery_days": 1}],
	"rates": [
		{"zone_code": "SP", "min_weight_kg": 0, "max_weight_kg": 1, "price": 1500},
		{"zone_code": "SP", "min_weight_kg": 1, "max_weight_kg": 5, "price": 2500}
	]
}`

func TestCreateTableHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		body string
		code int
	}{
		"valid table": {body: tableBody, code: http.StatusCreated},
		"overlapping bands": {
			body: strings.Replace(tableBody, `"min_weight_kg": 1,`, `"min_weight_kg": 0.5,`, 1),
			code: http.StatusBadRequest,
		},
		"rate of unknown zone": {
			body: strings.Replace(tableBody, `"zone_code": "SP", "min_weight_kg": 1`, `"zone_code": "RJ", "min_weight_kg": 1`, 1),
			code: http.StatusBadRequest,
		},
		"negative percentage": {
			body: strings.Replace(tableBody, `"gris_pct": 0.3`, `"gris_pct": -1`, 1),
			code: http.StatusBadRequest,
		},
		"no cubic factor": {
			body: strings.Replace(tableBody, `"cubic_factor": 300`, `"cubic_factor": 0`, 1),
			code: http.StatusBadRequest,
		},
		"no carrier": {
			body: strings.Replace(tableBody, `"carrier": "Jadlog"`, `"carrier": " "`, 1),
			code: http.StatusBadRequest,
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbpricing := dbmock.NewPricingTableInterface()
			dbpricing.Impl.Create = func(ctx context.Context, table rating.Table) (rating.Table, error) {
				table.Id = "t-new"
				return table, nil
			}
			e := echo.New()
			c, rec := httptestutil.Post(
				e, "/api/admin/pricing-tables", strings.NewReader(testcase.body),
				httptestutil.ContentType("application/json"), signedAs(t, staff),
			)
			err := serve(c, handlers.CreateTableHandler(dbpricing))
			if testcase.code != http.StatusCreated {
				wantCode(t, err, testcase.code)
				if dbpricing.Calls.Create.Times() != 0 {
					t.Errorf("table is created")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			resp := decodeBody[rating.Table](t, rec)
			if resp.Id != "t-new" || len(resp.Zones) != 1 || len(resp.Rates) != 2 {
				t.Errorf("response: %+v", resp)
			}
		})
	}
}

func TestUpdateTableHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		updated error
		code    int
	}{
		"existing table": {code: http.StatusOK},
		"missing table":  {updated: db.ErrMissing, code: http.StatusNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			dbpricing := dbmock.NewPricingTableInterface()
			dbpricing.Impl.Update = func(ctx context.Context, table rating.Table) (rating.Table, error) {
				return table, testcase.updated
			}
			e := echo.New()
			c, _ := httptestutil.Put(
				e, "/api/admin/pricing-tables/t-1", strings.NewReader(strings.Replace(tableBody, "{", `{"id": "t-other",`, 1)),
				httptestutil.ContentType("application/json"), signedAs(t, staff),
			)
			c.SetParamNames("tableId")
			c.SetParamValues("t-1")
			err := serve(c, handlers.UpdateTableHandler(dbpricing, "tableId"))
			if testcase.code != http.StatusOK {
				wantCode(t, err, testcase.code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if id := dbpricing.Calls.Update[0].Id; id != "t-1" {
				t.Errorf("id: %q", id)
			}
		})
	}
}

func TestSetTableActiveHandler(t *testing.T) {
	for _, active := range []bool{true, false} {
		dbpricing := dbmock.NewPricingTableInterface()
		dbpricing.Impl.SetActive = func(ctx context.Context, tableId string, active bool) (rating.Table, error) {
			return rating.Table{Id: tableId, Active: active}, nil
		}
		e := echo.New()
		c, rec := httptestutil.Put(e, "/api/admin/pricing-tables/t-1/active", nil, signedAs(t, staff))
		c.SetParamNames("tableId")
		c.SetParamValues("t-1")
		if err := serve(c, handlers.SetTableActiveHandler(dbpricing, "tableId", active)); err != nil {
			t.Fatal(err)
		}
		if call := dbpricing.Calls.SetActive[0]; call.TableId != "t-1" || call.Active != active {
			t.Errorf("set active: %+v", call)
		}
		if resp := decodeBody[rating.Table](t, rec); resp.Active != active {
			t.Errorf("response: %+v", resp)
		}
	}
}

func TestDeleteTableHandler(t *testing.T) {
	dbpricing := dbmock.NewPricingTableInterface()
	dbpricing.Impl.Delete = func(ctx context.Context, tableId string) error {
		return db.ErrMissing
	}
	e := echo.New()
	c, _ := httptestutil.Delete(e, "/api/admin/pricing-tables/t-x", signedAs(t, staff))
	c.SetParamNames("tableId")
	c.SetParamValues("t-x")
	wantCode(t, serve(c, handlers.DeleteTableHandler(dbpricing, "tableId")), http.StatusNotFound)
}

const jadlogSheet = `UF;Cidade/Região;CEP Inicial;CEP Final;Prazo;Até 1kg;Até 5kg;Kg Adicional
SP;Capital;01000-000;05999-999;1;15,00;25,00;3,50
RJ;Capital;20000-000;23799-999;3;22,90;35,10;
`

func multipartSheet(t *testing.T, filename string, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func TestImportSheetHandler(t *testing.T) {
	type when struct {
		carrier  string
		filename string
		content  string
		query    string
		fields   map[string]string
	}
	type then struct {
		code  int
		zones int
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			dbpricing := dbmock.NewPricingTableInterface()
			dbpricing.Impl.Get = func(ctx context.Context, tableId string) (rating.Table, error) {
				return rating.Table{
					Id: tableId, Carrier: when.carrier, Name: ".Package", CubicFactor: 300,
					Zones: []rating.Zone{{Code: "OLD", Range: rating.CEPRange{From: "01000000", To: "01999999"}}},
				}, nil
			}
			dbpricing.Impl.Update = func(ctx context.Context, table rating.Table) (rating.Table, error) {
				return table, nil
			}

			body, ctype := multipartSheet(t, when.filename, when.content, when.fields)
			e := echo.New()
			c, rec := httptestutil.Put(
				e, "/api/admin/pricing-tables/t-1/sheet"+when.query, body,
				httptestutil.ContentType(ctype), signedAs(t, staff),
			)
			c.SetParamNames("tableId")
			c.SetParamValues("t-1")

			err := serve(c, handlers.ImportSheetHandler(dbpricing, "tableId"))
			if then.code != http.StatusOK {
				wantCode(t, err, then.code)
				if dbpricing.Calls.Update.Times() != 0 {
					t.Errorf("table is updated")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			updated := dbpricing.Calls.Update[0]
			if updated.Id != "t-1" || len(updated.Zones) != then.zones || updated.CubicFactor != 300 {
				t.Errorf("updated: %+v", updated)
			}
			for _, z := range updated.Zones {
				if z.Code == "OLD" {
					t.Errorf("old zone is kept")
				}
			}
			if resp := decodeBody[rating.Table](t, rec); len(resp.Rates) != 4 {
				t.Errorf("rates: %+v", resp.Rates)
			}
		}
	}

	t.Run("a sheet of the carrier of the table", theory(
		when{carrier: "Jadlog", filename: "jadlog.csv", content: jadlogSheet},
		then{code: http.StatusOK, zones: 2},
	))

	t.Run("a sheet of another carrier is rejected", theory(
		when{carrier: "Alfa", filename: "jadlog.csv", content: jadlogSheet},
		then{code: http.StatusBadRequest},
	))

	t.Run("a sheet of another carrier with force", theory(
		when{carrier: "Transportadora X", filename: "jadlog.csv", content: jadlogSheet, query: "?force=true"},
		then{code: http.StatusOK, zones: 2},
	))

	t.Run("a sheet of another carrier with force in the form", theory(
		when{
			carrier: "Transportadora X", filename: "jadlog.csv", content: jadlogSheet,
			fields: map[string]string{"force": "true"},
		},
		then{code: http.StatusOK, zones: 2},
	))

	t.Run("unsupported format", theory(
		when{carrier: "Jadlog", filename: "jadlog.pdf", content: jadlogSheet},
		then{code: http.StatusBadRequest},
	))

	t.Run("a sheet without header", theory(
		when{carrier: "Jadlog", filename: "jadlog.csv", content: "a;b;c\n1;2;3\n"},
		then{code: http.StatusBadRequest},
	))

	t.Run("without file", func(t *testing.T) {
		dbpricing := dbmock.NewPricingTableInterface()
		e := echo.New()
		c, _ := httptestutil.Put(
			e, "/api/admin/pricing-tables/t-1/sheet", strings.NewReader(tableBody),
			httptestutil.ContentType("application/json"), signedAs(t, staff),
		)
		c.SetParamNames("tableId")
		c.SetParamValues("t-1")
		wantCode(t, serve(c, handlers.ImportSheetHandler(dbpricing, "tableId")), http.StatusBadRequest)
	})
}
