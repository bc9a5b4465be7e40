package ticket_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool/testenv"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	. "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/testhelpers"
	kpgticket "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/ticket"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

func TestTicket(t *testing.T) {
	poolBroaker := testenv.NewPoolBroaker(context.Background(), t)

	t.Run("it goes through a conversation", func(t *testing.T) {
		ctx := context.Background()
		pool := poolBroaker.GetPool(ctx, t)
		Endpoint(ctx, t, pool, "https://tms.example.com/hook", webhook.TicketCreated)
		s := Shipment(ctx, t, pool, "user-1")
		testee := kpgticket.New(pool)

		tk := try.To(testee.Create(ctx, db.NewTicket{
			OwnerId:    "user-1",
			ShipmentId: s.Id,
			Subject:    "Entrega atrasada",
			Body:       "Meu pacote não chegou.",
		})).OrFatal(t)
		if tk.Status != db.TicketOpen || tk.Priority != db.PriorityNormal || tk.ShipmentId != s.Id {
			t.Errorf("ticket = %+v", tk)
		}
		if outbox := Deliveries(ctx, t, pool); !slices.Equal(outbox, []webhook.Event{webhook.TicketCreated}) {
			t.Errorf("outbox = %v", outbox)
		}

		try.To(testee.AddMessage(ctx, db.TicketMessage{
			TicketId: tk.Id, AuthorId: "staff-1", FromStaff: true, Body: "Verificando com a transportadora.",
		})).OrFatal(t)
		got, _, err := testee.Get(ctx, tk.Id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != db.TicketInProgress {
			t.Errorf("status after staff reply = %s, want in_progress", got.Status)
		}

		try.To(testee.SetStatus(ctx, tk.Id, db.TicketResolved)).OrFatal(t)
		try.To(testee.AddMessage(ctx, db.TicketMessage{
			TicketId: tk.Id, AuthorId: "user-1", Body: "Ainda não recebi.",
		})).OrFatal(t)
		got, msgs, err := testee.Get(ctx, tk.Id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != db.TicketOpen {
			t.Errorf("status after owner reply = %s, want open", got.Status)
		}
		if len(msgs) != 3 || msgs[0].Body != "Meu pacote não chegou." || !msgs[1].FromStaff {
			t.Errorf("messages = %+v", msgs)
		}

		try.To(testee.SetStatus(ctx, tk.Id, db.TicketClosed)).OrFatal(t)
		_, err = testee.AddMessage(ctx, db.TicketMessage{TicketId: tk.Id, AuthorId: "user-1", Body: "?"})
		if !errors.Is(err, db.ErrTicketClosed) {
			t.Errorf("err = %v, want ErrTicketClosed", err)
		}
	})

	t.Run("it finds tickets", func(t *testing.T) {
		ctx := context.Background()
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgticket.New(pool)

		t1 := try.To(testee.Create(ctx, db.NewTicket{OwnerId: "user-1", Subject: "a", Body: "a"})).OrFatal(t)
		t2 := try.To(testee.Create(ctx, db.NewTicket{OwnerId: "user-2", Subject: "b", Body: "b", Priority: db.PriorityHigh})).OrFatal(t)
		try.To(testee.SetStatus(ctx, t2.Id, db.TicketResolved)).OrFatal(t)

		mine := try.To(testee.Find(ctx, db.TicketQuery{OwnerId: "user-1"})).OrFatal(t)
		if len(mine) != 1 || mine[0].Id != t1.Id {
			t.Errorf("found = %+v", mine)
		}
		resolved := try.To(testee.Find(ctx, db.TicketQuery{Status: []db.TicketStatus{db.TicketResolved}})).OrFatal(t)
		if len(resolved) != 1 || resolved[0].Id != t2.Id || resolved[0].Priority != db.PriorityHigh {
			t.Errorf("found = %+v", resolved)
		}
	})

	t.Run("missing ones", func(t *testing.T) {
		ctx := context.Background()
		pool := poolBroaker.GetPool(ctx, t)
		testee := kpgticket.New(pool)

		if _, err := testee.Create(ctx, db.NewTicket{OwnerId: "user-1", ShipmentId: "no-such", Subject: "a", Body: "a"}); !errors.Is(err, db.ErrMissing) {
			t.Errorf("Create: err = %v, want ErrMissing", err)
		}
		if _, _, err := testee.Get(ctx, "no-such"); !errors.Is(err, db.ErrMissing) {
			t.Errorf("Get: err = %v, want ErrMissing", err)
		}
		if _, err := testee.SetStatus(ctx, "no-such", db.TicketClosed); !errors.Is(err, db.ErrMissing) {
			t.Errorf("SetStatus: err = %v, want ErrMissing", err)
		}
	})
}
