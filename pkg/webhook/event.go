// Package webhook signs and sends event notifications to external systems (TMS, n8n).
//
// A notification is a JSON Envelope POSTed to an endpoint with headers:
//
//	X-Confix-Event: shipment.created
//	X-Confix-Delivery: <delivery id>
//	X-Confix-Signature: sha256=<hex HMAC-SHA256 of the body, keyed with the endpoint secret>
package webhook

import (
	"errors"
	"fmt"
	"slices"
)

type Event string

const (
	ShipmentCreated       Event = "shipment.created"
	ShipmentStatusChanged Event = "shipment.status_changed"
	PaymentConfirmed      Event = "payment.confirmed"
	CteReceived           Event = "cte.received"
	TicketCreated         Event = "ticket.created"
	Ping                  Event = "ping"

	// All subscribes every event.
	All Event = "*"
)

var ErrUnknownEvent = errors.New("unknown event")

// Events returns every known event, except All.
func Events() []Event {
	return []Event{
		ShipmentCreated, ShipmentStatusChanged, PaymentConfirmed,
		CteReceived, TicketCreated, Ping,
	}
}

func AsEvent(s string) (Event, error) {
	ev := Event(s)
	if ev == All || slices.Contains(Events(), ev) {
		return ev, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// Subscribed reports whether an endpoint subscribing events receives ev.
func Subscribed(events []Event, ev Event) bool {
	return slices.Contains(events, All) || slices.Contains(events, ev)
}
