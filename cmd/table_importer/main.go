package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/youta-t/flarc"

	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
)

type Flag struct {
	URI    string `flag:"uri" help:"The connection URI of the database."`
	Table  string `flag:"table" help:"The id of the pricing table to be replaced."`
	Force  bool   `flag:"force" help:"Import a sheet of another carrier than the table's."`
	DryRun bool   `flag:"dry-run" help:"Check the sheet without updating the table."`
	Out    string `flag:"out" help:"Write the resulting table to this file as JSON."`
}

const ARG_SHEET = "SHEET"

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := try.To(flarc.NewCommand(
		"import a carrier price sheet (Jadlog or Alfa, CSV or XLSX) into a pricing table",
		Flag{URI: os.Getenv("CONFIX_DB_URI")},
		flarc.Args{
			{Name: ARG_SHEET, Help: "The price sheet file (.csv or .xlsx).", Required: true},
		},
		func(ctx context.Context, c flarc.Commandline[Flag], _ []any) error {
			flags := c.Flags()
			if flags.URI == "" || flags.Table == "" {
				return errors.Join(flarc.ErrUsage, errors.New("--uri and --table are required"))
			}
			path := c.Args()[ARG_SHEET][0]

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := postgres.New(ctx, flags.URI)
			if err != nil {
				return err
			}
			defer db.Close()

			t, err := importSheet(ctx, db.PricingTables(), path, f, Options{
				TableId: flags.Table, Force: flags.Force, DryRun: flags.DryRun,
			})
			if err != nil {
				return err
			}

			verb := "imported"
			if flags.DryRun {
				verb = "checked (dry run)"
			}
			fmt.Fprintf(
				c.Stdout(), "%s: %s into table %s (%s %s): %d zones, %d rates\n",
				verb, path, t.Id, t.Carrier, t.Name, len(t.Zones), len(t.Rates),
			)

			if flags.Out != "" {
				return writeTable(flags.Out, t)
			}
			return nil
		},
	)).OrFatal(logger)

	os.Exit(flarc.Run(ctx, cmd))
}
