package ticket

import (
	"context"
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
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// DefaultLimit is the page size of Find when the query has no limit.
const DefaultLimit = 100

type pgTicket struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) db.TicketInterface {
	return &pgTicket{pool: pool}
}

const ticketColumns = `
	"ticket_id", "owner_id", coalesce("shipment_id", '') as "shipment_id", "subject",
	"status"::text as "status", "priority"::text as "priority", "created_at", "updated_at"
`

type ticketRow struct {
	TicketId   string    `sql:"ticket_id"`
	OwnerId    string    `sql:"owner_id"`
	ShipmentId string    `sql:"shipment_id"`
	Subject    string    `sql:"subject"`
	Status     string    `sql:"status"`
	Priority   string    `sql:"priority"`
	CreatedAt  time.Time `sql:"created_at"`
	UpdatedAt  time.Time `sql:"updated_at"`
}

var ticketScanner = scanner.New[ticketRow]()

func queryTickets(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]db.Ticket, error) {
	rows, err := ticketScanner.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ret := make([]db.Ticket, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, db.Ticket{
			Id:         r.TicketId,
			OwnerId:    r.OwnerId,
			ShipmentId: r.ShipmentId,
			Subject:    r.Subject,
			Status:     db.TicketStatus(r.Status),
			Priority:   db.TicketPriority(r.Priority),
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return ret, nil
}

func getTicket(ctx context.Context, conn kpool.Queryer, ticketId string, forUpdate bool) (db.Ticket, error) {
	lock := ""
	if forUpdate {
		lock = "for update"
	}
	ts, err := queryTickets(
		ctx, conn,
		`select `+ticketColumns+` from "ticket" where "ticket_id" = $1 `+lock,
		ticketId,
	)
	if err != nil {
		return db.Ticket{}, err
	}
	if len(ts) == 0 {
		return db.Ticket{}, kpgerr.Missing{Table: "ticket", Identity: ticketId}
	}
	return ts[0], nil
}

const messageColumns = `"message_id", "ticket_id", "author_id", "from_staff", "body", "created_at"`

type messageRow struct {
	MessageId int64     `sql:"message_id"`
	TicketId  string    `sql:"ticket_id"`
	AuthorId  string    `sql:"author_id"`
	FromStaff bool      `sql:"from_staff"`
	Body      string    `sql:"body"`
	CreatedAt time.Time `sql:"created_at"`
}

var messageScanner = scanner.New[messageRow]()

func queryMessages(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]db.TicketMessage, error) {
	rows, err := messageScanner.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ret := make([]db.TicketMessage, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, db.TicketMessage{
			Id:        r.MessageId,
			TicketId:  r.TicketId,
			AuthorId:  r.AuthorId,
			FromStaff: r.FromStaff,
			Body:      r.Body,
			CreatedAt: r.CreatedAt,
		})
	}
	return ret, nil
}

func insertMessage(ctx context.Context, conn kpool.Queryer, msg db.TicketMessage) (db.TicketMessage, error) {
	ms, err := queryMessages(
		ctx, conn,
		`
		insert into "ticket_message" ("ticket_id", "author_id", "from_staff", "body")
		values ($1, $2, $3, $4)
		returning `+messageColumns,
		msg.TicketId, msg.AuthorId, msg.FromStaff, msg.Body,
	)
	if err != nil {
		return db.TicketMessage{}, err
	}
	return ms[0], nil
}

func (t *pgTicket) Create(ctx context.Context, nt db.NewTicket) (db.Ticket, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return db.Ticket{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	var shipmentId *string
	if nt.ShipmentId != "" {
		if _, err := internal.GetShipment(ctx, tx, nt.ShipmentId, false); err != nil {
			return db.Ticket{}, err
		}
		shipmentId = &nt.ShipmentId
	}

	priority := nt.Priority
	if priority == "" {
		priority = db.PriorityNormal
	}

	ts, err := queryTickets(
		ctx, tx,
		`
		insert into "ticket" ("ticket_id", "owner_id", "shipment_id", "subject", "priority")
		values ($1, $2, $3, $4, $5)
		returning `+ticketColumns,
		uuid.NewString(), nt.OwnerId, shipmentId, nt.Subject, string(priority),
	)
	if err != nil {
		return db.Ticket{}, err
	}
	created := ts[0]

	first, err := insertMessage(ctx, tx, db.TicketMessage{
		TicketId: created.Id,
		AuthorId: nt.OwnerId,
		Body:     nt.Body,
	})
	if err != nil {
		return db.Ticket{}, err
	}

	if _, err := internal.Enqueue(
		ctx, tx, webhook.TicketCreated, binding.ComposeTicket(created, []db.TicketMessage{first}),
	); err != nil {
		return db.Ticket{}, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.Ticket{}, xe.Wrap(err)
	}
	return created, nil
}

func (t *pgTicket) Get(ctx context.Context, ticketId string) (db.Ticket, []db.TicketMessage, error) {
	tk, err := getTicket(ctx, t.pool, ticketId, false)
	if err != nil {
		return db.Ticket{}, nil, err
	}
	msgs, err := queryMessages(
		ctx, t.pool,
		`select `+messageColumns+` from "ticket_message" where "ticket_id" = $1 order by "created_at", "message_id"`,
		ticketId,
	)
	if err != nil {
		return db.Ticket{}, nil, err
	}
	return tk, msgs, nil
}

func (t *pgTicket) Find(ctx context.Context, q db.TicketQuery) ([]db.Ticket, error) {
	where := []string{}
	args := []any{}
	if q.OwnerId != "" {
		args = append(args, q.OwnerId)
		where = append(where, fmt.Sprintf(`"owner_id" = $%d`, len(args)))
	}
	if len(q.Status) != 0 {
		args = append(args, marshal.Strings(q.Status))
		where = append(where, fmt.Sprintf(`"status"::text = any($%d::text[])`, len(args)))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	sql := `select ` + ticketColumns + ` from "ticket"`
	if len(where) != 0 {
		sql += ` where ` + strings.Join(where, " and ")
	}
	args = append(args, limit, q.Offset)
	sql += fmt.Sprintf(
		` order by "updated_at" desc, "ticket_id" limit $%d offset $%d`, len(args)-1, len(args),
	)
	return queryTickets(ctx, t.pool, sql, args...)
}

func (t *pgTicket) AddMessage(ctx context.Context, msg db.TicketMessage) (db.TicketMessage, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return db.TicketMessage{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	tk, err := getTicket(ctx, tx, msg.TicketId, true)
	if err != nil {
		return db.TicketMessage{}, err
	}
	if tk.Status == db.TicketClosed {
		return db.TicketMessage{}, fmt.Errorf("%w: ticket %s", db.ErrTicketClosed, tk.Id)
	}

	added, err := insertMessage(ctx, tx, msg)
	if err != nil {
		return db.TicketMessage{}, err
	}

	next := tk.Status
	switch {
	case !msg.FromStaff && tk.Status == db.TicketResolved:
		next = db.TicketOpen
	case msg.FromStaff && tk.Status == db.TicketOpen:
		next = db.TicketInProgress
	}
	if _, err := tx.Exec(
		ctx,
		`update "ticket" set "status" = $2, "updated_at" = now() where "ticket_id" = $1`,
		tk.Id, string(next),
	); err != nil {
		return db.TicketMessage{}, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.TicketMessage{}, xe.Wrap(err)
	}
	return added, nil
}

func (t *pgTicket) SetStatus(ctx context.Context, ticketId string, status db.TicketStatus) (db.Ticket, error) {
	ts, err := queryTickets(
		ctx, t.pool,
		`
		update "ticket" set "status" = $2, "updated_at" = now()
		where "ticket_id" = $1
		returning `+ticketColumns,
		ticketId, string(status),
	)
	if err != nil {
		return db.Ticket{}, err
	}
	if len(ts) == 0 {
		return db.Ticket{}, kpgerr.Missing{Table: "ticket", Identity: ticketId}
	}
	return ts[0], nil
}
