// Package db declares the storage of the brokerage: quotes, shipments,
// payments, webhook outbox, CT-e documents, support tickets and pricing tables.
//
// Implementations live in subpackages (postgres). Errors returned from them
// wrap the sentinel errors declared here, so callers check them with errors.Is.
package db

import (
	"context"
	"errors"
)

var (
	// requested record is not found.
	ErrMissing = errors.New("missing")

	// requested record is found more than expected.
	ErrTooMuch = errors.New("too much")

	// a record with the same identity exists.
	ErrConflict = errors.New("conflict")

	// the status can not move to the requested one.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// the quote is used or expired.
	ErrQuoteUnavailable = errors.New("quote is not available")

	// the ticket is closed and takes no more messages.
	ErrTicketClosed = errors.New("ticket is closed")
)

type ConfixDatabase interface {
	Quotes() QuoteInterface
	Shipments() ShipmentInterface
	Payments() PaymentInterface
	Webhooks() WebhookInterface
	CTes() CTeInterface
	Tickets() TicketInterface
	PricingTables() PricingTableInterface
	Schema() SchemaInterface
	Close() error
}

type SchemaInterface interface {
	// Upgrade applies schema versions newer than the database.
	Upgrade(ctx context.Context) error

	// Version returns the schema version of the database.
	Version(ctx context.Context) (int, error)

	// Context returns a context which is cancelled when the schema becomes outdated.
	Context(ctx context.Context) (context.Context, context.CancelFunc)
}

// Page narrows down a listing.
type Page struct {
	// Limit is the max number of records. 0 means the default of the implementation.
	Limit int

	Offset int
}
