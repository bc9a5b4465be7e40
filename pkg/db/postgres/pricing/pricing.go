package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"

	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/scanner"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgerr "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/marshal"
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type pgPricingTable struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) db.PricingTableInterface {
	return &pgPricingTable{pool: pool}
}

const columns = `
	"table_id", "carrier", "name", "active", "priority",
	"cubic_factor", "ad_valorem_pct", "gris_pct", "gris_min", "dispatch_fee",
	"markup_pct", "handling_days", "excess_per_kg",
	"origins", "zones", "rates", "created_at", "updated_at"
`

type row struct {
	TableId      string            `sql:"table_id"`
	Carrier      string            `sql:"carrier"`
	Name         string            `sql:"name"`
	Active       bool              `sql:"active"`
	Priority     int32             `sql:"priority"`
	CubicFactor  float64           `sql:"cubic_factor"`
	AdValoremPct float64           `sql:"ad_valorem_pct"`
	GrisPct      float64           `sql:"gris_pct"`
	GrisMin      int64             `sql:"gris_min"`
	DispatchFee  int64             `sql:"dispatch_fee"`
	MarkupPct    float64           `sql:"markup_pct"`
	HandlingDays int32             `sql:"handling_days"`
	ExcessPerKg  int64             `sql:"excess_per_kg"`
	Origins      []rating.CEPRange `sql:"origins"`
	Zones        []rating.Zone     `sql:"zones"`
	Rates        []rating.Rate     `sql:"rates"`
	CreatedAt    time.Time         `sql:"created_at"`
	UpdatedAt    time.Time         `sql:"updated_at"`
}

func (r row) table() rating.Table {
	return rating.Table{
		Id:           r.TableId,
		Carrier:      r.Carrier,
		Name:         r.Name,
		Active:       r.Active,
		Priority:     int(r.Priority),
		CubicFactor:  r.CubicFactor,
		AdValoremPct: r.AdValoremPct,
		GrisPct:      r.GrisPct,
		GrisMin:      money.Cents(r.GrisMin),
		DispatchFee:  money.Cents(r.DispatchFee),
		MarkupPct:    r.MarkupPct,
		HandlingDays: int(r.HandlingDays),
		ExcessPerKg:  money.Cents(r.ExcessPerKg),
		Origins:      r.Origins,
		Zones:        r.Zones,
		Rates:        r.Rates,
	}
}

var tableScanner = scanner.New[row]()

func (p *pgPricingTable) query(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]rating.Table, error) {
	rows, err := tableScanner.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ret := make([]rating.Table, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, r.table())
	}
	return ret, nil
}

func (p *pgPricingTable) ActiveTables(ctx context.Context) ([]rating.Table, error) {
	return p.query(
		ctx, p.pool,
		`select `+columns+` from "pricing_table" where "active" order by "priority" desc, "table_id"`,
	)
}

func (p *pgPricingTable) List(ctx context.Context) ([]rating.Table, error) {
	return p.query(
		ctx, p.pool,
		`select `+columns+` from "pricing_table" order by "carrier", "name", "table_id"`,
	)
}

func (p *pgPricingTable) Get(ctx context.Context, tableId string) (rating.Table, error) {
	ts, err := p.query(ctx, p.pool, `select `+columns+` from "pricing_table" where "table_id" = $1`, tableId)
	if err != nil {
		return rating.Table{}, err
	}
	if len(ts) == 0 {
		return rating.Table{}, kpgerr.Missing{Table: "pricing_table", Identity: tableId}
	}
	return ts[0], nil
}

// args lists column values of t, in the order of $2 to $16 used by Create and Update.
func args(t rating.Table) ([]any, error) {
	origins, err := marshal.JSONB(nonNil(t.Origins))
	if err != nil {
		return nil, err
	}
	zones, err := marshal.JSONB(nonNil(t.Zones))
	if err != nil {
		return nil, err
	}
	rates, err := marshal.JSONB(nonNil(t.Rates))
	if err != nil {
		return nil, err
	}
	return []any{
		t.Carrier, t.Name, t.Active, t.Priority,
		t.CubicFactor, t.AdValoremPct, t.GrisPct, int64(t.GrisMin), int64(t.DispatchFee),
		t.MarkupPct, t.HandlingDays, int64(t.ExcessPerKg),
		origins, zones, rates,
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (p *pgPricingTable) Create(ctx context.Context, t rating.Table) (rating.Table, error) {
	values, err := args(t)
	if err != nil {
		return rating.Table{}, xe.Wrap(err)
	}
	ts, err := p.query(
		ctx, p.pool,
		`
		insert into "pricing_table" (
			"table_id", "carrier", "name", "active", "priority",
			"cubic_factor", "ad_valorem_pct", "gris_pct", "gris_min", "dispatch_fee",
			"markup_pct", "handling_days", "excess_per_kg",
			"origins", "zones", "rates"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		returning `+columns,
		append([]any{uuid.NewString()}, values...)...,
	)
	if err != nil {
		return rating.Table{}, kpgerr.AsConflict(err)
	}
	return ts[0], nil
}

func (p *pgPricingTable) Update(ctx context.Context, t rating.Table) (rating.Table, error) {
	values, err := args(t)
	if err != nil {
		return rating.Table{}, xe.Wrap(err)
	}
	ts, err := p.query(
		ctx, p.pool,
		`
		update "pricing_table" set
			"carrier" = $2, "name" = $3, "active" = $4, "priority" = $5,
			"cubic_factor" = $6, "ad_valorem_pct" = $7, "gris_pct" = $8,
			"gris_min" = $9, "dispatch_fee" = $10,
			"markup_pct" = $11, "handling_days" = $12, "excess_per_kg" = $13,
			"origins" = $14, "zones" = $15, "rates" = $16,
			"updated_at" = now()
		where "table_id" = $1
		returning `+columns,
		append([]any{t.Id}, values...)...,
	)
	if err != nil {
		return rating.Table{}, err
	}
	if len(ts) == 0 {
		return rating.Table{}, kpgerr.Missing{Table: "pricing_table", Identity: t.Id}
	}
	return ts[0], nil
}

func (p *pgPricingTable) SetActive(ctx context.Context, tableId string, active bool) (rating.Table, error) {
	ts, err := p.query(
		ctx, p.pool,
		`
		update "pricing_table" set "active" = $2, "updated_at" = now()
		where "table_id" = $1
		returning `+columns,
		tableId, active,
	)
	if err != nil {
		return rating.Table{}, err
	}
	if len(ts) == 0 {
		return rating.Table{}, kpgerr.Missing{Table: "pricing_table", Identity: tableId}
	}
	return ts[0], nil
}

func (p *pgPricingTable) Delete(ctx context.Context, tableId string) error {
	tag, err := p.pool.Exec(ctx, `delete from "pricing_table" where "table_id" = $1`, tableId)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return kpgerr.Missing{Table: "pricing_table", Identity: tableId}
	}
	return nil
}
