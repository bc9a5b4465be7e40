package cte

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/scanner"
	"github.com/confixenvios/confixenvios-sub003/pkg/cte"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/internal"
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// DefaultLimit is the page size of Find when the query has no limit.
const DefaultLimit = 100

type pgCTe struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) db.CTeInterface {
	return &pgCTe{pool: pool}
}

const columns = `
	"access_key", "number", "series", "emitted_at",
	coalesce("shipment_id", '') as "shipment_id", "tracking_code",
	"freight_value", "xml_url", "pdf_url", "status"::text as "status",
	"created_at", "updated_at"
`

type row struct {
	AccessKey    string     `sql:"access_key"`
	Number       string     `sql:"number"`
	Series       string     `sql:"series"`
	EmittedAt    *time.Time `sql:"emitted_at"`
	ShipmentId   string     `sql:"shipment_id"`
	TrackingCode string     `sql:"tracking_code"`
	FreightValue int64      `sql:"freight_value"`
	XMLURL       string     `sql:"xml_url"`
	PDFURL       string     `sql:"pdf_url"`
	Status       string     `sql:"status"`
	CreatedAt    time.Time  `sql:"created_at"`
	UpdatedAt    time.Time  `sql:"updated_at"`
}

func (r row) cte() db.CTe {
	return db.CTe{
		AccessKey:    cte.Key(r.AccessKey),
		Number:       r.Number,
		Series:       r.Series,
		EmittedAt:    r.EmittedAt,
		ShipmentId:   r.ShipmentId,
		TrackingCode: r.TrackingCode,
		FreightValue: money.Cents(r.FreightValue),
		XMLURL:       r.XMLURL,
		PDFURL:       r.PDFURL,
		Status:       cte.Status(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

var cteScanner = scanner.New[row]()

func query(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]db.CTe, error) {
	rows, err := cteScanner.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ret := make([]db.CTe, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, r.cte())
	}
	return ret, nil
}

func (c *pgCTe) Upsert(ctx context.Context, doc db.CTe) (db.CTe, bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return db.CTe{}, false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	prev, err := query(
		ctx, tx,
		`select `+columns+` from "cte" where "access_key" = $1 for update`,
		string(doc.AccessKey),
	)
	if err != nil {
		return db.CTe{}, false, err
	}

	var shipmentId *string
	if doc.TrackingCode != "" {
		s, err := internal.GetShipmentByTrackingCode(ctx, tx, doc.TrackingCode, true)
		if err == nil {
			shipmentId = &s.Id
		} else if !errors.Is(err, db.ErrMissing) {
			return db.CTe{}, false, xe.Wrap(err)
		}
	}

	status := doc.Status
	if status == "" {
		status = cte.Authorized
	}

	stored, err := query(
		ctx, tx,
		`
		insert into "cte" (
			"access_key", "number", "series", "emitted_at", "shipment_id", "tracking_code",
			"freight_value", "xml_url", "pdf_url", "status"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		on conflict ("access_key") do update set
			"number" = excluded."number",
			"series" = excluded."series",
			"emitted_at" = coalesce(excluded."emitted_at", "cte"."emitted_at"),
			"shipment_id" = coalesce(excluded."shipment_id", "cte"."shipment_id"),
			"tracking_code" = coalesce(nullif(excluded."tracking_code", ''), "cte"."tracking_code"),
			"freight_value" = excluded."freight_value",
			"xml_url" = coalesce(nullif(excluded."xml_url", ''), "cte"."xml_url"),
			"pdf_url" = coalesce(nullif(excluded."pdf_url", ''), "cte"."pdf_url"),
			"status" = excluded."status",
			"updated_at" = now()
		returning `+columns,
		string(doc.AccessKey), doc.Number, doc.Series, doc.EmittedAt, shipmentId, doc.TrackingCode,
		int64(doc.FreightValue), doc.XMLURL, doc.PDFURL, string(status),
	)
	if err != nil {
		return db.CTe{}, false, err
	}
	saved := stored[0]

	created := len(prev) == 0
	if saved.ShipmentId != "" && (created || prev[0].ShipmentId == "") {
		if err := internal.AddEvent(ctx, tx, saved.ShipmentId, db.TrackingEvent{
			Code:        db.EventCteIssued,
			Description: fmt.Sprintf("CT-e %s série %s emitido", saved.Number, saved.Series),
		}); err != nil {
			return db.CTe{}, false, xe.Wrap(err)
		}
	}

	if _, err := internal.Enqueue(ctx, tx, webhook.CteReceived, binding.ComposeCTe(saved)); err != nil {
		return db.CTe{}, false, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.CTe{}, false, xe.Wrap(err)
	}
	return saved, created, nil
}

func (c *pgCTe) Find(ctx context.Context, q db.CTeQuery) ([]db.CTe, error) {
	where := []string{}
	args := []any{}
	if q.ShipmentId != "" {
		args = append(args, q.ShipmentId)
		where = append(where, fmt.Sprintf(`"shipment_id" = $%d`, len(args)))
	}
	if q.Unlinked {
		where = append(where, `"shipment_id" is null`)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	sql := `select ` + columns + ` from "cte"`
	if len(where) != 0 {
		sql += ` where ` + strings.Join(where, " and ")
	}
	args = append(args, limit, q.Offset)
	sql += fmt.Sprintf(
		` order by "created_at" desc, "access_key" limit $%d offset $%d`, len(args)-1, len(args),
	)
	return query(ctx, c.pool, sql, args...)
}
