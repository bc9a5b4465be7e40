// Package dispatch sends webhook deliveries in the outbox to their endpoints.
package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"time"

	apipayments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/payments"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop/recurring"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// Tally counts what the loop has done so far.
type Tally struct {
	Delivered int
	Retried   int
	Failed    int
	Labels    int
}

// initial value for task
func Seed() Tally {
	return Tally{}
}

type Sender interface {
	Send(ctx context.Context, url string, secret string, deliveryId string, env webhook.Envelope) (webhook.Result, error)
}

var _ Sender = webhook.Sender{}

type Config struct {
	// MaxAttempts is how many tries a delivery gets before it fails.
	MaxAttempts int

	Now func() time.Time
}

// Task sends a due delivery.
//
// Failed tries are retried after webhook.Backoff, until MaxAttempts.
// A label replied to payment.confirmed is attached to the shipment
// together with recording the delivery.
func Task(
	logger *log.Logger,
	hooks db.WebhookInterface,
	sender Sender,
	cfg Config,
) recurring.Task[Tally] {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context, tally Tally) (Tally, bool, error) {
		var result *db.Outcome
		var target db.Delivery
		var url string

		popped, err := hooks.PopDue(ctx, now(), func(ep db.Endpoint, d db.Delivery) db.Outcome {
			target, url = d, ep.URL
			env := webhook.Envelope{
				Id: d.Id, Event: d.Event, CreatedAt: d.CreatedAt, Data: json.RawMessage(d.Payload),
			}
			res, err := sender.Send(ctx, ep.URL, ep.Secret, d.Id, env)
			if err == nil {
				outcome := db.Outcome{Delivered: true, StatusCode: res.StatusCode, Response: res.Body}
				if l, ok := labelOf(d, res); ok {
					outcome.Label = &l
				}
				result = &outcome
				return outcome
			}

			outcome := db.Outcome{StatusCode: res.StatusCode, Response: res.Body, Error: err.Error()}
			if attempts := d.Attempts + 1; attempts < cfg.MaxAttempts {
				retryAt := now().Add(webhook.Backoff(attempts))
				outcome.RetryAt = &retryAt
			}
			result = &outcome
			return outcome
		})
		if err != nil {
			if result != nil {
				logger.Printf("delivery %s (%s to %s): outcome is not recorded: %s", target.Id, target.Event, url, err)
			}
			return tally, popped, err
		}
		if result == nil {
			return tally, popped, nil
		}

		attempts := target.Attempts + 1
		switch {
		case result.Delivered:
			tally.Delivered += 1
			if result.Label != nil {
				tally.Labels += 1
				logger.Printf("delivery %s: label for shipment %s is replied", target.Id, result.Label.ShipmentId)
			}
		case result.RetryAt != nil:
			tally.Retried += 1
			logger.Printf(
				"delivery %s (%s to %s): try #%d failed, retry at %s: %s",
				target.Id, target.Event, url, attempts, result.RetryAt.Format(time.RFC3339), result.Error,
			)
		default:
			tally.Failed += 1
			logger.Printf(
				"delivery %s (%s to %s): gave up after %d tries: %s",
				target.Id, target.Event, url, attempts, result.Error,
			)
		}
		return tally, popped, nil
	}
}

func labelOf(d db.Delivery, res webhook.Result) (db.Label, bool) {
	if d.Event != webhook.PaymentConfirmed {
		return db.Label{}, false
	}
	l, ok := res.Label()
	if !ok {
		return db.Label{}, false
	}
	data := apipayments.Confirmed{}
	if err := json.Unmarshal(d.Payload, &data); err != nil || data.Shipment.ShipmentId == "" {
		return db.Label{}, false
	}
	return db.Label{
		ShipmentId:          data.Shipment.ShipmentId,
		URL:                 l.LabelURL,
		CarrierTrackingCode: l.CarrierTrackingCode,
	}, true
}
