package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/scanner"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgerr "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/internal"
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

type pgPayment struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) db.PaymentInterface {
	return &pgPayment{pool: pool}
}

const columns = `
	"payment_id", "shipment_id", "external_id",
	"method"::text as "method", "status"::text as "status", "amount",
	"invoice_url", "bank_slip_url", "pix_payload", "pix_image",
	"due_date", "created_at", "updated_at", "checked_at", "confirmed_at"
`

type row struct {
	PaymentId   string     `sql:"payment_id"`
	ShipmentId  string     `sql:"shipment_id"`
	ExternalId  string     `sql:"external_id"`
	Method      string     `sql:"method"`
	Status      string     `sql:"status"`
	Amount      int64      `sql:"amount"`
	InvoiceURL  string     `sql:"invoice_url"`
	BankSlipURL string     `sql:"bank_slip_url"`
	PixPayload  string     `sql:"pix_payload"`
	PixImage    string     `sql:"pix_image"`
	DueDate     time.Time  `sql:"due_date"`
	CreatedAt   time.Time  `sql:"created_at"`
	UpdatedAt   time.Time  `sql:"updated_at"`
	CheckedAt   time.Time  `sql:"checked_at"`
	ConfirmedAt *time.Time `sql:"confirmed_at"`
}

func (r row) payment() db.Payment {
	return db.Payment{
		Id:          r.PaymentId,
		ShipmentId:  r.ShipmentId,
		ExternalId:  r.ExternalId,
		Method:      db.PaymentMethod(r.Method),
		Status:      db.PaymentStatus(r.Status),
		Amount:      money.Cents(r.Amount),
		InvoiceURL:  r.InvoiceURL,
		BankSlipURL: r.BankSlipURL,
		PixPayload:  r.PixPayload,
		PixImage:    r.PixImage,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CheckedAt:   r.CheckedAt,
		ConfirmedAt: r.ConfirmedAt,
	}
}

var paymentScanner = scanner.New[row]()

func query(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]db.Payment, error) {
	rows, err := paymentScanner.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return nil, err
	}
	ret := make([]db.Payment, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, r.payment())
	}
	return ret, nil
}

func getBy(ctx context.Context, conn kpool.Queryer, column string, value string, forUpdate bool) (db.Payment, error) {
	lock := ""
	if forUpdate {
		lock = "for update"
	}
	ps, err := query(
		ctx, conn,
		fmt.Sprintf(`select %s from "payment" where "%s" = $1 %s`, columns, column, lock),
		value,
	)
	if err != nil {
		return db.Payment{}, xe.Wrap(err)
	}
	if len(ps) == 0 {
		return db.Payment{}, kpgerr.Missing{Table: "payment", Identity: fmt.Sprintf("%s=%s", column, value)}
	}
	return ps[0], nil
}

func (m *pgPayment) Create(ctx context.Context, p db.Payment) (db.Payment, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return db.Payment{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	shipment, err := internal.GetShipment(ctx, tx, p.ShipmentId, true)
	if err != nil {
		return db.Payment{}, xe.Wrap(err)
	}
	if shipment.Status != db.PendingPayment {
		return db.Payment{}, fmt.Errorf(
			"%w: payment for a shipment in %s", db.ErrInvalidStatusTransition, shipment.Status,
		)
	}

	status := p.Status
	if status == "" {
		status = db.PaymentPending
	}
	ps, err := query(
		ctx, tx,
		`
		insert into "payment" (
			"payment_id", "shipment_id", "external_id", "method", "status", "amount",
			"invoice_url", "bank_slip_url", "pix_payload", "pix_image", "due_date"
		)
		values ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $10)
		returning `+columns,
		uuid.NewString(), p.ShipmentId, p.ExternalId, string(p.Method), int64(p.Amount),
		p.InvoiceURL, p.BankSlipURL, p.PixPayload, p.PixImage, p.DueDate,
	)
	if err != nil {
		return db.Payment{}, xe.Wrap(kpgerr.AsConflict(err))
	}
	created := ps[0]

	// card charges can be confirmed by the gateway on creation.
	if status != db.PaymentPending {
		created, _, err = apply(ctx, tx, created, status)
		if err != nil {
			return db.Payment{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return db.Payment{}, xe.Wrap(err)
	}
	return created, nil
}

func (m *pgPayment) Get(ctx context.Context, paymentId string) (db.Payment, error) {
	return getBy(ctx, m.pool, "payment_id", paymentId, false)
}

func (m *pgPayment) GetByExternalId(ctx context.Context, externalId string) (db.Payment, error) {
	return getBy(ctx, m.pool, "external_id", externalId, false)
}

func (m *pgPayment) ListByShipment(ctx context.Context, shipmentId string) ([]db.Payment, error) {
	ps, err := query(
		ctx, m.pool,
		`select `+columns+` from "payment" where "shipment_id" = $1 order by "created_at" desc, "payment_id"`,
		shipmentId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return ps, nil
}

func (m *pgPayment) SetStatus(ctx context.Context, externalId string, status db.PaymentStatus) (db.Payment, bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return db.Payment{}, false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := getBy(ctx, tx, "external_id", externalId, true)
	if err != nil {
		return db.Payment{}, false, err
	}
	updated, changed, err := apply(ctx, tx, current, status)
	if err != nil {
		return db.Payment{}, false, err
	}
	if !changed {
		return current, false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return db.Payment{}, false, xe.Wrap(err)
	}
	return updated, true, nil
}

// apply changes the status of a locked payment.
//
// When it is confirmed, the shipment pending payment becomes paid and payment.confirmed is enqueued.
func apply(ctx context.Context, tx kpool.Tx, p db.Payment, status db.PaymentStatus) (db.Payment, bool, error) {
	if p.Status == status {
		return p, false, nil
	}
	if p.Status == db.PaymentConfirmed && !status.Settled() {
		return p, false, nil
	}

	ps, err := query(
		ctx, tx,
		`
		update "payment" set
			"status" = $2::payment_status,
			"updated_at" = now(),
			"confirmed_at" = case when $2::payment_status = 'confirmed' then coalesce("confirmed_at", now()) else "confirmed_at" end
		where "payment_id" = $1
		returning `+columns,
		p.Id, string(status),
	)
	if err != nil {
		return db.Payment{}, false, xe.Wrap(err)
	}
	updated := ps[0]

	if status != db.PaymentConfirmed {
		return updated, true, nil
	}

	shipment, err := internal.GetShipment(ctx, tx, p.ShipmentId, true)
	if err != nil {
		return db.Payment{}, false, xe.Wrap(err)
	}
	if shipment.Status == db.PendingPayment {
		shipment, err = internal.Transit(ctx, tx, shipment, db.Paid, db.TrackingEvent{
			Description: "pagamento confirmado",
		})
		if err != nil {
			return db.Payment{}, false, xe.Wrap(err)
		}
	}
	if _, err := internal.Enqueue(
		ctx, tx, webhook.PaymentConfirmed, binding.ComposeConfirmed(updated, shipment),
	); err != nil {
		return db.Payment{}, false, xe.Wrap(err)
	}
	return updated, true, nil
}

func (m *pgPayment) PopUnsettled(ctx context.Context, checkedBefore time.Time, poll func(db.Payment) (db.PaymentStatus, error)) (bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	ps, err := query(
		ctx, tx,
		`
		select `+columns+` from "payment"
		where "status" in ('pending', 'overdue') and "checked_at" < $1
		order by "checked_at"
		limit 1
		for update skip locked
		`,
		checkedBefore,
	)
	if err != nil {
		return false, xe.Wrap(err)
	}
	if len(ps) == 0 {
		return false, nil
	}
	target := ps[0]

	status, pollErr := poll(target)
	if pollErr == nil {
		if _, _, err := apply(ctx, tx, target, status); err != nil {
			return true, err
		}
	}

	if _, err := tx.Exec(
		ctx, `update "payment" set "checked_at" = now() where "payment_id" = $1`, target.Id,
	); err != nil {
		return true, xe.Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return true, xe.Wrap(err)
	}
	return true, pollErr
}

func (m *pgPayment) CustomerId(ctx context.Context, document string) (string, error) {
	id, err := scanner.New[string]().QueryOne(
		ctx, m.pool,
		`select "customer_id" from "payment_customer" where "document" = $1`,
		document,
	)
	if errors.Is(err, scanner.ErrNoRows) {
		return "", kpgerr.Missing{Table: "payment_customer", Identity: document}
	} else if err != nil {
		return "", xe.Wrap(err)
	}
	return id, nil
}

func (m *pgPayment) SaveCustomerId(ctx context.Context, document string, customerId string) error {
	_, err := m.pool.Exec(
		ctx,
		`
		insert into "payment_customer" ("document", "customer_id") values ($1, $2)
		on conflict ("document") do update set "customer_id" = excluded."customer_id"
		`,
		document, customerId,
	)
	return xe.Wrap(err)
}
