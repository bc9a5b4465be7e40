package db

import (
	"context"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

type Endpoint struct {
	Id     string
	Name   string
	URL    string
	Events []webhook.Event
	Active bool
	Secret string

	// Static endpoints come from configuration files, not from the API.
	Static bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Delivery is an event to be sent to an endpoint (a row of the outbox).
type Delivery struct {
	Id         string
	EndpointId string
	Event      webhook.Event

	// Payload is the "data" of the envelope, in JSON.
	Payload []byte

	Status        DeliveryStatus
	Attempts      int
	NextAttemptAt time.Time

	LastStatusCode int
	LastResponse   string
	LastError      string

	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Outcome is a result of a try to send a delivery.
type Outcome struct {
	Delivered bool

	StatusCode int
	Response   string
	Error      string

	// RetryAt is when to try again after a failure. nil gives the delivery up.
	RetryAt *time.Time

	// Label, replied to a delivered payment.confirmed, is attached to its shipment.
	Label *Label
}

// Label is a shipping label issued by a TMS.
type Label struct {
	ShipmentId          string
	URL                 string
	CarrierTrackingCode string
}

type WebhookInterface interface {
	// Endpoints lists all endpoints, static ones included.
	Endpoints(ctx context.Context) ([]Endpoint, error)

	// GetEndpoint returns an endpoint.
	//
	// Error: ErrMissing if no such endpoint.
	GetEndpoint(ctx context.Context, endpointId string) (Endpoint, error)

	// CreateEndpoint registers an endpoint. Id and timestamps are ignored.
	CreateEndpoint(ctx context.Context, ep Endpoint) (Endpoint, error)

	// UpdateEndpoint replaces name, url, events, active flag and secret.
	//
	// Error:
	//
	// - ErrMissing: no such endpoint.
	//
	// - ErrConflict: the endpoint is static.
	UpdateEndpoint(ctx context.Context, ep Endpoint) (Endpoint, error)

	// DeleteEndpoint removes an endpoint with its deliveries.
	//
	// Error:
	//
	// - ErrMissing: no such endpoint.
	//
	// - ErrConflict: the endpoint is static.
	DeleteEndpoint(ctx context.Context, endpointId string) error

	// SyncStatic makes static endpoints be exactly the urls, subscribing every event.
	SyncStatic(ctx context.Context, urls []string, secret string) error

	// Enqueue makes deliveries of an event for each active endpoint subscribing it.
	//
	// Returns the number of deliveries.
	Enqueue(ctx context.Context, event webhook.Event, payload []byte) (int, error)

	// Deliveries lists deliveries of an endpoint, newest first.
	Deliveries(ctx context.Context, endpointId string, page Page) ([]Delivery, error)

	// Redeliver makes a delivery pending again, due immediately.
	//
	// Error: ErrMissing if no such delivery.
	Redeliver(ctx context.Context, deliveryId string) (Delivery, error)

	// PopDue picks a pending delivery due by now and passes it to send in a transaction.
	// The Outcome is recorded on the delivery.
	//
	// The Outcome's Label is attached in the same transaction, as AttachLabel does.
	// When its shipment is missing or has moved past label_generated, the delivery
	// is still delivered, with the reason as its last error.
	// On other errors nothing is recorded, and the delivery stays due.
	//
	// Returns true if a delivery is picked.
	PopDue(ctx context.Context, now time.Time, send func(Endpoint, Delivery) Outcome) (bool, error)
}
