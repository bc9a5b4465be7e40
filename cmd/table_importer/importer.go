package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kio "github.com/confixenvios/confixenvios-sub003/pkg/io"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating/sheets"
)

// ErrCarrierMismatch is returned when a sheet is of another carrier than the table.
var ErrCarrierMismatch = errors.New("carrier of the sheet and the table differ")

type Options struct {
	// TableId is the table whose zones and rates are replaced.
	TableId string

	// Force imports a sheet of another carrier than the table's.
	Force bool

	// DryRun leaves the database as it is.
	DryRun bool
}

// importSheet reads the sheet named name from r, and applies it to the table.
//
// It returns the table as it is (or would be, on dry runs) stored.
func importSheet(ctx context.Context, pricing db.PricingTableInterface, name string, r io.Reader, opts Options) (rating.Table, error) {
	rows, err := sheets.Read(name, r)
	if err != nil {
		return rating.Table{}, err
	}
	sheet, err := sheets.Parse(rows)
	if err != nil {
		return rating.Table{}, fmt.Errorf("%s: %w", name, err)
	}

	t, err := pricing.Get(ctx, opts.TableId)
	if err != nil {
		return rating.Table{}, fmt.Errorf("table %s: %w", opts.TableId, err)
	}
	if !opts.Force && !sheet.Matches(t.Carrier) {
		return rating.Table{}, fmt.Errorf(
			"%w: sheet is of %s, table %s is of %s", ErrCarrierMismatch, sheet.Carrier, t.Id, t.Carrier,
		)
	}

	t = sheet.ApplyTo(t)
	if err := t.Validate(); err != nil {
		return rating.Table{}, err
	}
	if opts.DryRun {
		return t, nil
	}
	return pricing.Update(ctx, t)
}

// writeTable saves t as indented JSON, creating directories when missing.
func writeTable(path string, t rating.Table) error {
	return kio.ReplaceAll(path, 0o644, 0o755, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	})
}
