// Package testhelpers has fixtures shared by tests of postgres repositories.
package testhelpers

import (
	"context"
	"testing"
	"time"

	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgquote "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/quote"
	kpgshipment "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/shipment"
	kpghook "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/webhook"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// get current timestamp in postgres.
func PGNow(ctx context.Context, conn kpool.Queryer) (time.Time, error) {
	var now time.Time
	err := conn.QueryRow(ctx, `select now()`).Scan(&now)
	if err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func Ref[T any](v T) *T { return &v }

// Count returns the number of rows in table.
func Count(ctx context.Context, t *testing.T, conn kpool.Queryer, table string) int {
	t.Helper()
	var n int
	if err := conn.QueryRow(ctx, `select count(*) from "`+table+`"`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

// QuoteRequest is a rating request from São Paulo to Rio de Janeiro.
func QuoteRequest() rating.Request {
	return rating.Request{
		OriginCEP:      "01310100",
		DestinationCEP: "20040002",
		Packages: []rating.Package{
			{WeightKg: 2.5, LengthCm: 30, WidthCm: 20, HeightCm: 10},
		},
		DeclaredValue: 15000,
	}
}

// QuoteOption is a rated option for QuoteRequest.
func QuoteOption() rating.Quote {
	b := rating.Breakdown{Freight: 3590, AdValorem: 45, Gris: 300, DispatchFee: 500, Markup: 443}
	return rating.Quote{
		TableId:            "table-1",
		TableName:          "Jadlog .Package",
		Carrier:            "jadlog",
		ZoneCode:           "RJ-CAPITAL",
		Source:             rating.FromTable,
		ActualWeightKg:     2.5,
		CubedWeightKg:      1,
		ChargeableWeightKg: 2.5,
		Breakdown:          b,
		Total:              b.Sum(),
		DeliveryDays:       3,
	}
}

// Quote stores an open quote of ownerId, expiring in an hour.
func Quote(ctx context.Context, t *testing.T, pool kpool.Pool, ownerId string) db.Quote {
	t.Helper()
	qs := try.To(kpgquote.New(pool).Create(
		ctx, ownerId, QuoteRequest(), []rating.Quote{QuoteOption()}, time.Now().Add(time.Hour),
	)).OrFatal(t)
	return qs[0]
}

func Party(name string, cep string) db.Party {
	return db.Party{
		Name:     name,
		Document: "39053344705",
		Phone:    "+5511999990000",
		Email:    "cliente@example.com",
		Address: db.Address{
			CEP:      cep,
			Street:   "Avenida Paulista",
			Number:   "1000",
			District: "Bela Vista",
			City:     "São Paulo",
			State:    "SP",
		},
	}
}

// Shipment creates a shipment pending payment, from a new quote.
func Shipment(ctx context.Context, t *testing.T, pool kpool.Pool, ownerId string) db.Shipment {
	t.Helper()
	q := Quote(ctx, t, pool, ownerId)
	return try.To(kpgshipment.New(pool).Create(ctx, db.NewShipment{
		OwnerId:   ownerId,
		QuoteId:   q.Id,
		Sender:    Party("Loja Exemplo", q.Request.OriginCEP),
		Recipient: Party("Maria Silva", q.Request.DestinationCEP),
	})).OrFatal(t)
}

// Endpoint registers an active endpoint subscribing events.
func Endpoint(ctx context.Context, t *testing.T, pool kpool.Pool, url string, events ...webhook.Event) db.Endpoint {
	t.Helper()
	return try.To(kpghook.New(pool).CreateEndpoint(ctx, db.Endpoint{
		Name:   "tms",
		URL:    url,
		Events: events,
		Active: true,
		Secret: "whsec_test",
	})).OrFatal(t)
}

// Deliveries lists events in the outbox, oldest first.
func Deliveries(ctx context.Context, t *testing.T, conn kpool.Queryer) []webhook.Event {
	t.Helper()
	rows, err := conn.Query(ctx, `select "event" from "webhook_delivery" order by "created_at", "event"`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	ret := []webhook.Event{}
	for rows.Next() {
		var ev string
		if err := rows.Scan(&ev); err != nil {
			t.Fatal(err)
		}
		ret = append(ret, webhook.Event(ev))
	}
	return ret
}
