package quote

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

type pgQuote struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) db.QuoteInterface {
	return &pgQuote{pool: pool}
}

// Columns of "quote" read into Row.
const Columns = `
	"quote_id", "owner_id", "origin_cep", "destination_cep", "packages",
	"declared_value", "option", "status"::text as "status", "created_at", "expires_at"
`

type Row struct {
	QuoteId        string           `sql:"quote_id"`
	OwnerId        string           `sql:"owner_id"`
	OriginCEP      string           `sql:"origin_cep"`
	DestinationCEP string           `sql:"destination_cep"`
	Packages       []rating.Package `sql:"packages"`
	DeclaredValue  int64            `sql:"declared_value"`
	Option         rating.Quote     `sql:"option"`
	Status         string           `sql:"status"`
	CreatedAt      time.Time        `sql:"created_at"`
	ExpiresAt      time.Time        `sql:"expires_at"`
}

func (r Row) Quote() db.Quote {
	return db.Quote{
		Id:      r.QuoteId,
		OwnerId: r.OwnerId,
		Request: rating.Request{
			OriginCEP:      r.OriginCEP,
			DestinationCEP: r.DestinationCEP,
			Packages:       r.Packages,
			DeclaredValue:  money.Cents(r.DeclaredValue),
		},
		Option:    r.Option,
		Status:    db.QuoteStatus(r.Status),
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

var quoteScanner = scanner.New[Row]()

// Query reads quotes. query should select Columns.
func Query(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]db.Quote, error) {
	rows, err := quoteScanner.QueryAll(ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	ret := make([]db.Quote, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, r.Quote())
	}
	return ret, nil
}

func (q *pgQuote) Create(ctx context.Context, ownerId string, req rating.Request, options []rating.Quote, expiresAt time.Time) ([]db.Quote, error) {
	packages, err := marshal.JSONB(req.Packages)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	ret := make([]db.Quote, 0, len(options))
	for _, opt := range options {
		option, err := marshal.JSONB(opt)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		qs, err := Query(
			ctx, tx,
			`
			insert into "quote" (
				"quote_id", "owner_id", "origin_cep", "destination_cep",
				"packages", "declared_value", "option", "expires_at"
			)
			values ($1, $2, $3, $4, $5, $6, $7, $8)
			returning `+Columns,
			uuid.NewString(), ownerId, req.OriginCEP, req.DestinationCEP,
			packages, int64(req.DeclaredValue), option, expiresAt,
		)
		if err != nil {
			return nil, xe.Wrap(kpgerr.AsConflict(err))
		}
		ret = append(ret, qs...)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, xe.Wrap(err)
	}
	return ret, nil
}

func (q *pgQuote) Get(ctx context.Context, quoteId string) (db.Quote, error) {
	qs, err := Query(ctx, q.pool, `select `+Columns+` from "quote" where "quote_id" = $1`, quoteId)
	if err != nil {
		return db.Quote{}, xe.Wrap(err)
	}
	if len(qs) == 0 {
		return db.Quote{}, kpgerr.Missing{Table: "quote", Identity: quoteId}
	}
	return qs[0], nil
}

func (q *pgQuote) Expire(ctx context.Context, now time.Time) (int, error) {
	tag, err := q.pool.Exec(
		ctx,
		`update "quote" set "status" = 'expired' where "status" = 'open' and "expires_at" <= $1`,
		now,
	)
	if err != nil {
		return 0, xe.Wrap(err)
	}
	return int(tag.RowsAffected()), nil
}
