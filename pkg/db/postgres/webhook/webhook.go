package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/scanner"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgerr "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/internal"
	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/marshal"
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// DefaultLimit is the page size of Deliveries when the page has no limit.
const DefaultLimit = 100

type pgWebhook struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) db.WebhookInterface {
	return &pgWebhook{pool: pool}
}

const endpointColumns = `
	"endpoint_id", "name", "url", "events", "active", "secret", "static", "created_at", "updated_at"
`

type endpointRow struct {
	EndpointId string    `sql:"endpoint_id"`
	Name       string    `sql:"name"`
	URL        string    `sql:"url"`
	Events     []string  `sql:"events"`
	Active     bool      `sql:"active"`
	Secret     string    `sql:"secret"`
	Static     bool      `sql:"static"`
	CreatedAt  time.Time `sql:"created_at"`
	UpdatedAt  time.Time `sql:"updated_at"`
}

func (r endpointRow) endpoint() db.Endpoint {
	return db.Endpoint{
		Id:        r.EndpointId,
		Name:      r.Name,
		URL:       r.URL,
		Events:    marshal.FromStrings[webhook.Event](r.Events),
		Active:    r.Active,
		Secret:    r.Secret,
		Static:    r.Static,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

var endpointScanner = scanner.New[endpointRow]()

func queryEndpoints(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]db.Endpoint, error) {
	rows, err := endpointScanner.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ret := make([]db.Endpoint, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, r.endpoint())
	}
	return ret, nil
}

const deliveryColumns = `
	"delivery_id", "endpoint_id", "event", "payload", "status"::text as "status",
	"attempts", "next_attempt_at", "last_status_code", "last_response", "last_error",
	"created_at", "delivered_at"
`

type deliveryRow struct {
	DeliveryId     string     `sql:"delivery_id"`
	EndpointId     string     `sql:"endpoint_id"`
	Event          string     `sql:"event"`
	Payload        []byte     `sql:"payload"`
	Status         string     `sql:"status"`
	Attempts       int32      `sql:"attempts"`
	NextAttemptAt  time.Time  `sql:"next_attempt_at"`
	LastStatusCode int32      `sql:"last_status_code"`
	LastResponse   string     `sql:"last_response"`
	LastError      string     `sql:"last_error"`
	CreatedAt      time.Time  `sql:"created_at"`
	DeliveredAt    *time.Time `sql:"delivered_at"`
}

func (r deliveryRow) delivery() db.Delivery {
	return db.Delivery{
		Id:             r.DeliveryId,
		EndpointId:     r.EndpointId,
		Event:          webhook.Event(r.Event),
		Payload:        r.Payload,
		Status:         db.DeliveryStatus(r.Status),
		Attempts:       int(r.Attempts),
		NextAttemptAt:  r.NextAttemptAt,
		LastStatusCode: int(r.LastStatusCode),
		LastResponse:   r.LastResponse,
		LastError:      r.LastError,
		CreatedAt:      r.CreatedAt,
		DeliveredAt:    r.DeliveredAt,
	}
}

var deliveryScanner = scanner.New[deliveryRow]()

func queryDeliveries(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]db.Delivery, error) {
	rows, err := deliveryScanner.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ret := make([]db.Delivery, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, r.delivery())
	}
	return ret, nil
}

func (w *pgWebhook) Endpoints(ctx context.Context) ([]db.Endpoint, error) {
	return queryEndpoints(
		ctx, w.pool,
		`select `+endpointColumns+` from "webhook_endpoint" order by "static", "created_at", "endpoint_id"`,
	)
}

func getEndpoint(ctx context.Context, conn kpool.Queryer, endpointId string, forUpdate bool) (db.Endpoint, error) {
	lock := ""
	if forUpdate {
		lock = "for update"
	}
	eps, err := queryEndpoints(
		ctx, conn,
		`select `+endpointColumns+` from "webhook_endpoint" where "endpoint_id" = $1 `+lock,
		endpointId,
	)
	if err != nil {
		return db.Endpoint{}, err
	}
	if len(eps) == 0 {
		return db.Endpoint{}, kpgerr.Missing{Table: "webhook_endpoint", Identity: endpointId}
	}
	return eps[0], nil
}

func (w *pgWebhook) GetEndpoint(ctx context.Context, endpointId string) (db.Endpoint, error) {
	return getEndpoint(ctx, w.pool, endpointId, false)
}

func (w *pgWebhook) CreateEndpoint(ctx context.Context, ep db.Endpoint) (db.Endpoint, error) {
	eps, err := queryEndpoints(
		ctx, w.pool,
		`
		insert into "webhook_endpoint" ("endpoint_id", "name", "url", "events", "active", "secret")
		values ($1, $2, $3, $4, $5, $6)
		returning `+endpointColumns,
		uuid.NewString(), ep.Name, ep.URL, marshal.Strings(ep.Events), ep.Active, ep.Secret,
	)
	if err != nil {
		return db.Endpoint{}, err
	}
	return eps[0], nil
}

func staticError(ep db.Endpoint) error {
	return fmt.Errorf("%w: endpoint %s is static (configured by file)", db.ErrConflict, ep.Id)
}

func (w *pgWebhook) UpdateEndpoint(ctx context.Context, ep db.Endpoint) (db.Endpoint, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return db.Endpoint{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := getEndpoint(ctx, tx, ep.Id, true)
	if err != nil {
		return db.Endpoint{}, err
	}
	if current.Static {
		return db.Endpoint{}, staticError(current)
	}

	eps, err := queryEndpoints(
		ctx, tx,
		`
		update "webhook_endpoint" set
			"name" = $2, "url" = $3, "events" = $4, "active" = $5, "secret" = $6,
			"updated_at" = now()
		where "endpoint_id" = $1
		returning `+endpointColumns,
		ep.Id, ep.Name, ep.URL, marshal.Strings(ep.Events), ep.Active, ep.Secret,
	)
	if err != nil {
		return db.Endpoint{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return db.Endpoint{}, xe.Wrap(err)
	}
	return eps[0], nil
}

func (w *pgWebhook) DeleteEndpoint(ctx context.Context, endpointId string) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := getEndpoint(ctx, tx, endpointId, true)
	if err != nil {
		return err
	}
	if current.Static {
		return staticError(current)
	}
	if _, err := tx.Exec(
		ctx, `delete from "webhook_endpoint" where "endpoint_id" = $1`, endpointId,
	); err != nil {
		return xe.Wrap(err)
	}
	return xe.Wrap(tx.Commit(ctx))
}

func (w *pgWebhook) SyncStatic(ctx context.Context, urls []string, secret string) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx,
		`delete from "webhook_endpoint" where "static" and not ("url" = any($1::varchar[]))`,
		urls,
	); err != nil {
		return xe.Wrap(err)
	}

	for _, u := range urls {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "webhook_endpoint" ("endpoint_id", "name", "url", "events", "active", "secret", "static")
			values ($1, $2, $3, '{*}', true, $4, true)
			on conflict ("url") where "static" do update set
				"events" = '{*}', "active" = true, "secret" = excluded."secret", "updated_at" = now()
			`,
			uuid.NewString(), "static: "+u, u, secret,
		); err != nil {
			return xe.Wrap(err)
		}
	}

	return xe.Wrap(tx.Commit(ctx))
}

func (w *pgWebhook) Enqueue(ctx context.Context, event webhook.Event, payload []byte) (int, error) {
	n, err := internal.Enqueue(ctx, w.pool, event, payload)
	if err != nil {
		return 0, xe.Wrap(err)
	}
	return n, nil
}

func (w *pgWebhook) Deliveries(ctx context.Context, endpointId string, page db.Page) ([]db.Delivery, error) {
	if _, err := getEndpoint(ctx, w.pool, endpointId, false); err != nil {
		return nil, err
	}
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return queryDeliveries(
		ctx, w.pool,
		`
		select `+deliveryColumns+` from "webhook_delivery"
		where "endpoint_id" = $1
		order by "created_at" desc, "delivery_id"
		limit $2 offset $3
		`,
		endpointId, limit, page.Offset,
	)
}

func (w *pgWebhook) Redeliver(ctx context.Context, deliveryId string) (db.Delivery, error) {
	ds, err := queryDeliveries(
		ctx, w.pool,
		`
		update "webhook_delivery" set
			"status" = 'pending', "attempts" = 0, "next_attempt_at" = now(), "delivered_at" = null
		where "delivery_id" = $1
		returning `+deliveryColumns,
		deliveryId,
	)
	if err != nil {
		return db.Delivery{}, err
	}
	if len(ds) == 0 {
		return db.Delivery{}, kpgerr.Missing{Table: "webhook_delivery", Identity: deliveryId}
	}
	return ds[0], nil
}

func (w *pgWebhook) PopDue(ctx context.Context, now time.Time, send func(db.Endpoint, db.Delivery) db.Outcome) (bool, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	ds, err := queryDeliveries(
		ctx, tx,
		`
		select `+deliveryColumns+` from "webhook_delivery"
		where "status" = 'pending' and "next_attempt_at" <= $1
		order by "next_attempt_at", "created_at"
		limit 1
		for update skip locked
		`,
		now,
	)
	if err != nil {
		return false, err
	}
	if len(ds) == 0 {
		return false, nil
	}
	target := ds[0]

	ep, err := getEndpoint(ctx, tx, target.EndpointId, false)
	if err != nil {
		return true, err
	}

	outcome := send(ep, target)

	switch {
	case outcome.Delivered:
		note := ""
		if outcome.Label != nil {
			note, err = attachLabel(ctx, tx, *outcome.Label)
			if err != nil {
				return true, err
			}
		}
		_, err = tx.Exec(
			ctx,
			`
			update "webhook_delivery" set
				"status" = 'delivered', "attempts" = "attempts" + 1, "delivered_at" = now(),
				"last_status_code" = $2, "last_response" = $3, "last_error" = $4
			where "delivery_id" = $1
			`,
			target.Id, outcome.StatusCode, outcome.Response, note,
		)
	case outcome.RetryAt != nil:
		_, err = tx.Exec(
			ctx,
			`
			update "webhook_delivery" set
				"attempts" = "attempts" + 1, "next_attempt_at" = $2,
				"last_status_code" = $3, "last_response" = $4, "last_error" = $5
			where "delivery_id" = $1
			`,
			target.Id, *outcome.RetryAt, outcome.StatusCode, outcome.Response, outcome.Error,
		)
	default:
		_, err = tx.Exec(
			ctx,
			`
			update "webhook_delivery" set
				"status" = 'failed', "attempts" = "attempts" + 1,
				"last_status_code" = $2, "last_response" = $3, "last_error" = $4
			where "delivery_id" = $1
			`,
			target.Id, outcome.StatusCode, outcome.Response, outcome.Error,
		)
	}
	if err != nil {
		return true, xe.Wrap(err)
	}

	return true, xe.Wrap(tx.Commit(ctx))
}

// attachLabel attaches a label replied by a TMS in tx.
//
// Labels which can not be attached for the shipment's sake are not errors;
// the reason is returned as a note for the delivery.
func attachLabel(ctx context.Context, tx kpool.Tx, l db.Label) (string, error) {
	// a savepoint, so that a refused label leaves the delivery recordable
	sp, err := tx.Begin(ctx)
	if err != nil {
		return "", xe.Wrap(err)
	}
	defer sp.Rollback(ctx)

	current, err := internal.GetShipment(ctx, sp, l.ShipmentId, true)
	if err == nil {
		_, err = internal.AttachLabel(ctx, sp, current, l.URL, l.CarrierTrackingCode)
	}
	switch {
	case err == nil:
		return "", xe.Wrap(sp.Commit(ctx))
	case errors.Is(err, db.ErrMissing), errors.Is(err, db.ErrInvalidStatusTransition):
		return fmt.Sprintf("label for shipment %s is ignored: %s", l.ShipmentId, err), nil
	default:
		return "", xe.Wrap(err)
	}
}
