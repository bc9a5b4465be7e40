package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	dbmock "github.com/confixenvios/confixenvios-sub003/pkg/db/mocks"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating/sheets"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
)

const alfaSheet = `CEP INICIAL;CEP FINAL;PRAZO;PESO INICIAL;PESO FINAL;VALOR;EXCEDENTE
01000-000;05999-999;1;0;1;15,00;3,50
01000-000;05999-999;1;1;5;25,00;3,50
`

func TestImportSheet(t *testing.T) {
	type when struct {
		carrier string
		name    string
		content string
		opts    Options
		getErr  error
	}
	type then struct {
		err     error
		updated bool
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			pricing := dbmock.NewPricingTableInterface()
			pricing.Impl.Get = func(ctx context.Context, tableId string) (rating.Table, error) {
				return rating.Table{Id: tableId, Carrier: when.carrier, Name: "Rodoviário", CubicFactor: 300}, when.getErr
			}
			pricing.Impl.Update = func(ctx context.Context, table rating.Table) (rating.Table, error) {
				return table, nil
			}

			got, err := importSheet(context.Background(), pricing, when.name, strings.NewReader(when.content), when.opts)
			if !errors.Is(err, then.err) {
				t.Fatalf("error: (actual, expected) = (%v, %v)", err, then.err)
			}
			if updated := pricing.Calls.Update.Times() != 0; updated != then.updated {
				t.Errorf("updated: (actual, expected) = (%v, %v)", updated, then.updated)
			}
			if then.err != nil {
				return
			}
			if got.Id != "t-1" || len(got.Zones) != 1 || len(got.Rates) != 2 {
				t.Errorf("table: %+v", got)
			}
		}
	}

	t.Run("a sheet of the carrier", theory(
		when{carrier: "Alfa Transportes", name: "alfa.csv", content: alfaSheet, opts: Options{TableId: "t-1"}},
		then{updated: true},
	))

	t.Run("dry run", theory(
		when{carrier: "Alfa", name: "alfa.csv", content: alfaSheet, opts: Options{TableId: "t-1", DryRun: true}},
		then{},
	))

	t.Run("a sheet of another carrier", theory(
		when{carrier: "Jadlog", name: "alfa.csv", content: alfaSheet, opts: Options{TableId: "t-1"}},
		then{err: ErrCarrierMismatch},
	))

	t.Run("a sheet of another carrier, forced", theory(
		when{carrier: "Jadlog", name: "alfa.csv", content: alfaSheet, opts: Options{TableId: "t-1", Force: true}},
		then{updated: true},
	))

	t.Run("unsupported file", theory(
		when{carrier: "Alfa", name: "alfa.ods", content: alfaSheet, opts: Options{TableId: "t-1"}},
		then{err: sheets.ErrUnsupportedFormat},
	))

	t.Run("missing table", theory(
		when{name: "alfa.csv", content: alfaSheet, opts: Options{TableId: "t-1"}, getErr: db.ErrMissing},
		then{err: db.ErrMissing},
	))
}

func TestWriteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "table.json")
	table := rating.Table{Id: "t-1", Carrier: "Alfa", Name: "Rodoviário", CubicFactor: 300}
	if err := writeTable(path, table); err != nil {
		t.Fatal(err)
	}

	got := rating.Table{}
	if err := json.Unmarshal(try.To(os.ReadFile(path)).OrFatal(t), &got); err != nil {
		t.Fatal(err)
	}
	if got.Id != table.Id || got.Carrier != table.Carrier || got.CubicFactor != table.CubicFactor {
		t.Errorf("written: %+v", got)
	}
}
