// Package internal holds queries shared by repositories.
//
// Functions here take a Queryer (usually a transaction), so that callers can
// combine them with their own changes atomically.
package internal

import (
	"context"
	"encoding/json"

	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// Enqueue adds deliveries of an event to the outbox, one per active endpoint subscribing it.
//
// data is the "data" of the envelope. It is marshalled into JSON unless it is []byte.
func Enqueue(ctx context.Context, conn kpool.Queryer, ev webhook.Event, data any) (int, error) {
	payload, ok := data.([]byte)
	if !ok {
		b, err := json.Marshal(data)
		if err != nil {
			return 0, err
		}
		payload = b
	}

	tag, err := conn.Exec(
		ctx,
		`
		insert into "webhook_delivery" ("delivery_id", "endpoint_id", "event", "payload")
		select gen_random_uuid()::varchar, "endpoint_id", $1::varchar, $2::jsonb
		from "webhook_endpoint"
		where "active" and ('*' = any("events") or $1::varchar = any("events"))
		`,
		string(ev), string(payload),
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
