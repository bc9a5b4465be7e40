package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/scanner"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgerr "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/internal"
	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/marshal"
	kpgquote "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/quote"
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/tracking"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// DefaultLimit is the page size of Find when the query has no limit.
const DefaultLimit = 100

// how many times Create draws a tracking code.
const trackingCodeRetry = 5

type Option func(*pgShipment) *pgShipment

// WithTrackingCodes replaces the generator of tracking codes.
func WithTrackingCodes(gen func() (string, error)) Option {
	return func(s *pgShipment) *pgShipment {
		s.trackingCode = gen
		return s
	}
}

// WithClock replaces the clock used to check quote expiry.
func WithClock(now func() time.Time) Option {
	return func(s *pgShipment) *pgShipment {
		s.now = now
		return s
	}
}

type pgShipment struct {
	pool         kpool.Pool
	trackingCode func() (string, error)
	now          func() time.Time
}

func New(pool kpool.Pool, options ...Option) db.ShipmentInterface {
	s := &pgShipment{pool: pool, trackingCode: tracking.New, now: time.Now}
	for _, o := range options {
		s = o(s)
	}
	return s
}

func (s *pgShipment) Create(ctx context.Context, ns db.NewShipment) (db.Shipment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	qs, err := kpgquote.Query(
		ctx, tx,
		`select `+kpgquote.Columns+` from "quote" where "quote_id" = $1 for update`,
		ns.QuoteId,
	)
	if err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	if len(qs) == 0 {
		return db.Shipment{}, kpgerr.Missing{Table: "quote", Identity: ns.QuoteId}
	}
	quote := qs[0]
	if !quote.Available(s.now()) {
		return db.Shipment{}, fmt.Errorf("%w: quote %s is %s (expires at %s)", db.ErrQuoteUnavailable, quote.Id, quote.Status, quote.ExpiresAt)
	}

	if _, err := tx.Exec(ctx, `update "quote" set "status" = 'used' where "quote_id" = $1`, quote.Id); err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}

	sender, err := marshal.JSONB(ns.Sender)
	if err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	recipient, err := marshal.JSONB(ns.Recipient)
	if err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	packages, err := marshal.JSONB(quote.Request.Packages)
	if err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}

	var created db.Shipment
	for nth := 1; ; nth++ {
		code, err := s.trackingCode()
		if err != nil {
			return db.Shipment{}, xe.Wrap(err)
		}
		created, err = insert(
			ctx, tx, code, ns, quote, []any{sender, recipient, packages},
		)
		if err == nil {
			break
		}
		if !errors.Is(err, db.ErrConflict) || trackingCodeRetry <= nth {
			return db.Shipment{}, xe.Wrap(err)
		}
	}

	if err := internal.AddEvent(ctx, tx, created.Id, db.TrackingEvent{
		Code:        db.EventCreated,
		Description: "envio criado, aguardando pagamento",
		OccurredAt:  created.CreatedAt,
	}); err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	if _, err := internal.Enqueue(ctx, tx, webhook.ShipmentCreated, binding.ComposeShipment(created)); err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	return created, nil
}

// insert adds a shipment in a savepoint, so that a conflict of tracking codes can be retried.
func insert(ctx context.Context, tx kpool.Tx, code string, ns db.NewShipment, quote db.Quote, jsons []any) (db.Shipment, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return db.Shipment{}, err
	}
	defer sp.Rollback(ctx)

	ss, err := internal.QueryShipments(
		ctx, sp,
		`
		insert into "shipment" (
			"shipment_id", "owner_id", "quote_id", "tracking_code",
			"sender", "recipient", "carrier", "packages",
			"declared_value", "total", "delivery_days"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+internal.ShipmentColumns,
		uuid.NewString(), ns.OwnerId, quote.Id, code,
		jsons[0], jsons[1], quote.Option.Carrier, jsons[2],
		int64(quote.Request.DeclaredValue), int64(quote.Option.Total), quote.Option.DeliveryDays,
	)
	if err != nil {
		return db.Shipment{}, kpgerr.AsConflict(err)
	}
	if err := sp.Commit(ctx); err != nil {
		return db.Shipment{}, err
	}
	return ss[0], nil
}

func (s *pgShipment) Get(ctx context.Context, shipmentId string) (db.Shipment, error) {
	return internal.GetShipment(ctx, s.pool, shipmentId, false)
}

func (s *pgShipment) GetByTrackingCode(ctx context.Context, trackingCode string) (db.Shipment, error) {
	return internal.GetShipmentByTrackingCode(ctx, s.pool, trackingCode, false)
}

func (s *pgShipment) Find(ctx context.Context, q db.ShipmentQuery) ([]db.Shipment, error) {
	where := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.OwnerId != "" {
		where = append(where, `"owner_id" = `+arg(q.OwnerId))
	}
	if len(q.Status) != 0 {
		where = append(where, `"status"::text = any(`+arg(marshal.Strings(q.Status))+`::text[])`)
	}
	if q.Carrier != "" {
		where = append(where, `"carrier" ilike `+arg(q.Carrier))
	}
	if q.Text != "" {
		p := arg("%" + escapeLike(q.Text) + "%")
		where = append(where, fmt.Sprintf(
			`("tracking_code" ilike %[1]s or "sender"->>'Name' ilike %[1]s or "recipient"->>'Name' ilike %[1]s)`, p,
		))
	}
	if q.Since != nil {
		where = append(where, ``+arg(*q.Since)+` <= "created_at"`)
	}
	if q.Until != nil {
		where = append(where, `"created_at" < `+arg(*q.Until))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `select ` + internal.ShipmentColumns + ` from "shipment"`
	if len(where) != 0 {
		query += ` where ` + strings.Join(where, " and ")
	}
	query += ` order by "created_at" desc, "shipment_id" limit ` + arg(limit) + ` offset ` + arg(q.Offset)

	ss, err := internal.QueryShipments(ctx, s.pool, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return ss, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type eventRow struct {
	EventId     int64     `sql:"event_id"`
	ShipmentId  string    `sql:"shipment_id"`
	Code        string    `sql:"code"`
	Description string    `sql:"description"`
	Location    string    `sql:"location"`
	OccurredAt  time.Time `sql:"occurred_at"`
}

var eventScanner = scanner.New[eventRow]()

func (s *pgShipment) Events(ctx context.Context, shipmentId string) ([]db.TrackingEvent, error) {
	rows, err := eventScanner.QueryAll(
		ctx, s.pool,
		`
		select "event_id", "shipment_id", "code", "description", "location", "occurred_at"
		from "tracking_event"
		where "shipment_id" = $1
		order by "occurred_at", "event_id"
		`,
		shipmentId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ret := make([]db.TrackingEvent, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, db.TrackingEvent{
			Id:          r.EventId,
			ShipmentId:  r.ShipmentId,
			Code:        r.Code,
			Description: r.Description,
			Location:    r.Location,
			OccurredAt:  r.OccurredAt,
		})
	}
	return ret, nil
}

// inTx runs f in a transaction with the shipment locked.
func (s *pgShipment) inTx(
	ctx context.Context,
	get func(context.Context, kpool.Queryer) (db.Shipment, error),
	f func(kpool.Tx, db.Shipment) (db.Shipment, error),
) (db.Shipment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := get(ctx, tx)
	if err != nil {
		return db.Shipment{}, err
	}
	updated, err := f(tx, current)
	if err != nil {
		return db.Shipment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return db.Shipment{}, xe.Wrap(err)
	}
	return updated, nil
}

func byId(shipmentId string) func(context.Context, kpool.Queryer) (db.Shipment, error) {
	return func(ctx context.Context, conn kpool.Queryer) (db.Shipment, error) {
		return internal.GetShipment(ctx, conn, shipmentId, true)
	}
}

func (s *pgShipment) SetStatus(ctx context.Context, shipmentId string, next db.ShipmentStatus, ev db.TrackingEvent) (db.Shipment, error) {
	return s.inTx(ctx, byId(shipmentId), func(tx kpool.Tx, current db.Shipment) (db.Shipment, error) {
		return internal.Transit(ctx, tx, current, next, ev)
	})
}

func (s *pgShipment) Cancel(ctx context.Context, shipmentId string, ev db.TrackingEvent) (db.Shipment, error) {
	return s.inTx(ctx, byId(shipmentId), func(tx kpool.Tx, current db.Shipment) (db.Shipment, error) {
		if current.Status != db.PendingPayment {
			return db.Shipment{}, xe.Wrap(fmt.Errorf(
				"%w: shipment %s is %s", db.ErrInvalidStatusTransition, current.Id, current.Status,
			))
		}
		return internal.Transit(ctx, tx, current, db.Cancelled, ev)
	})
}

func (s *pgShipment) AttachLabel(ctx context.Context, shipmentId string, labelURL string, carrierTrackingCode string) (db.Shipment, error) {
	return s.inTx(ctx, byId(shipmentId), func(tx kpool.Tx, current db.Shipment) (db.Shipment, error) {
		labelled, err := internal.AttachLabel(ctx, tx, current, labelURL, carrierTrackingCode)
		if err != nil {
			return db.Shipment{}, xe.Wrap(err)
		}
		return labelled, nil
	})
}

func (s *pgShipment) Track(ctx context.Context, trackingCode string, ev db.TrackingEvent) (db.Shipment, error) {
	get := func(ctx context.Context, conn kpool.Queryer) (db.Shipment, error) {
		return internal.GetShipmentByTrackingCode(ctx, conn, trackingCode, true)
	}
	return s.inTx(ctx, get, func(tx kpool.Tx, current db.Shipment) (db.Shipment, error) {
		if next, err := db.AsShipmentStatus(ev.Code); err == nil && current.Status.CanMoveTo(next) {
			return internal.Transit(ctx, tx, current, next, ev)
		}
		if err := internal.AddEvent(ctx, tx, current.Id, ev); err != nil {
			return db.Shipment{}, xe.Wrap(err)
		}
		return current, nil
	})
}

// statuses whose shipments are counted as revenue.
var revenue = []db.ShipmentStatus{
	db.Paid, db.LabelGenerated, db.InTransit, db.OutForDelivery, db.Delivered, db.Returned,
}

type statsRow struct {
	Status string `sql:"status"`
	Count  int64  `sql:"count"`
	Total  int64  `sql:"total"`
}

var statsScanner = scanner.New[statsRow]()

func (s *pgShipment) Stats(ctx context.Context) (db.Stats, error) {
	rows, err := statsScanner.QueryAll(
		ctx, s.pool,
		`
		select "status"::text as "status", count(*) as "count", coalesce(sum("total"), 0)::bigint as "total"
		from "shipment"
		group by "status"
		`,
	)
	if err != nil {
		return db.Stats{}, xe.Wrap(err)
	}

	stats := db.Stats{ByStatus: map[db.ShipmentStatus]int{}}
	for _, r := range rows {
		st := db.ShipmentStatus(r.Status)
		stats.ByStatus[st] = int(r.Count)
		stats.Total += int(r.Count)
		for _, paid := range revenue {
			if st == paid {
				stats.PaidRevenue += money.Cents(r.Total)
			}
		}
	}
	return stats, nil
}

func (s *pgShipment) CancelStale(ctx context.Context, createdBefore time.Time) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	stale, err := internal.QueryShipments(
		ctx, tx,
		`
		select `+internal.ShipmentColumns+` from "shipment"
		where "status" = 'pending_payment' and "created_at" < $1
		order by "created_at"
		for update skip locked
		`,
		createdBefore,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	ids := make([]string, 0, len(stale))
	for _, sh := range stale {
		if _, err := internal.Transit(ctx, tx, sh, db.Cancelled, db.TrackingEvent{
			Description: "cancelado por falta de pagamento",
		}); err != nil {
			return nil, xe.Wrap(err)
		}
		ids = append(ids, sh.Id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, xe.Wrap(err)
	}
	return ids, nil
}
