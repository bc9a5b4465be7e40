package db

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type ShipmentStatus string

const (
	PendingPayment ShipmentStatus = "pending_payment"
	Paid           ShipmentStatus = "paid"
	LabelGenerated ShipmentStatus = "label_generated"
	InTransit      ShipmentStatus = "in_transit"
	OutForDelivery ShipmentStatus = "out_for_delivery"
	Delivered      ShipmentStatus = "delivered"
	Cancelled      ShipmentStatus = "cancelled"
	Returned       ShipmentStatus = "returned"
)

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	PendingPayment: {Paid, Cancelled},
	Paid:           {LabelGenerated, Cancelled},
	LabelGenerated: {InTransit},
	InTransit:      {OutForDelivery, Returned},
	OutForDelivery: {Delivered, Returned},
	Delivered:      {},
	Cancelled:      {},
	Returned:       {},
}

// ShipmentStatuses returns every status, in the order of the happy path.
func ShipmentStatuses() []ShipmentStatus {
	return []ShipmentStatus{
		PendingPayment, Paid, LabelGenerated, InTransit, OutForDelivery, Delivered,
		Cancelled, Returned,
	}
}

func AsShipmentStatus(s string) (ShipmentStatus, error) {
	st := ShipmentStatus(s)
	if _, ok := shipmentTransitions[st]; !ok {
		return "", fmt.Errorf("unknown shipment status: %q", s)
	}
	return st, nil
}

// CanMoveTo reports whether a shipment in s can move to next.
func (s ShipmentStatus) CanMoveTo(next ShipmentStatus) bool {
	return slices.Contains(shipmentTransitions[s], next)
}

// Final reports whether s has no way out.
func (s ShipmentStatus) Final() bool {
	return len(shipmentTransitions[s]) == 0
}

// Transition checks the move from s to next.
//
// Error: wraps ErrInvalidStatusTransition when the move is not allowed.
func (s ShipmentStatus) Transition(next ShipmentStatus) error {
	if !s.CanMoveTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s, next)
	}
	return nil
}

type Address struct {
	CEP        string
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
}

// Party is a sender or a recipient of a shipment.
type Party struct {
	Name string

	// Document is CPF (11 digits) or CNPJ (14 digits).
	Document string

	Phone   string
	Email   string
	Address Address
}

type Shipment struct {
	Id           string
	OwnerId      string
	QuoteId      string
	TrackingCode string
	Status       ShipmentStatus

	Sender    Party
	Recipient Party

	Carrier       string
	Packages      []rating.Package
	DeclaredValue money.Cents
	Total         money.Cents
	DeliveryDays  int

	LabelURL            string
	CarrierTrackingCode string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EstimatedDelivery is the business day the shipment is expected to be delivered.
func (s Shipment) EstimatedDelivery() time.Time {
	return rating.BusinessDaysAfter(s.CreatedAt, s.DeliveryDays)
}

// Tracking event codes which are not shipment statuses.
const (
	EventCreated   = "created"
	EventCteIssued = "cte_issued"
	EventLabel     = "label_attached"
)

type TrackingEvent struct {
	Id         int64
	ShipmentId string

	// Code is a shipment status, or a note like "cte_issued".
	Code string

	Description string
	Location    string
	OccurredAt  time.Time
}

type NewShipment struct {
	OwnerId   string
	QuoteId   string
	Sender    Party
	Recipient Party
}

type ShipmentQuery struct {
	// OwnerId narrows to shipments of the user. Empty means everyone.
	OwnerId string

	Status  []ShipmentStatus
	Carrier string

	// Text matches tracking codes, sender and recipient names.
	Text string

	Since *time.Time
	Until *time.Time

	Page
}

// Stats summarizes shipments.
type Stats struct {
	Total    int
	ByStatus map[ShipmentStatus]int

	// PaidRevenue sums totals of shipments which have been paid and not cancelled.
	PaidRevenue money.Cents
}

type ShipmentInterface interface {
	// Create makes a shipment from an open quote.
	//
	// It issues a fresh tracking code, marks the quote used,
	// records a tracking event and enqueues shipment.created.
	//
	// Error:
	//
	// - ErrMissing: the quote is not found.
	//
	// - ErrQuoteUnavailable: the quote is used or expired.
	Create(ctx context.Context, ns NewShipment) (Shipment, error)

	// Get returns a shipment.
	//
	// Error: ErrMissing if no such shipment.
	Get(ctx context.Context, shipmentId string) (Shipment, error)

	// GetByTrackingCode returns a shipment.
	//
	// Error: ErrMissing if no such shipment.
	GetByTrackingCode(ctx context.Context, trackingCode string) (Shipment, error)

	// Find lists shipments matching q, newest first.
	Find(ctx context.Context, q ShipmentQuery) ([]Shipment, error)

	// Events lists tracking events of a shipment, oldest first.
	Events(ctx context.Context, shipmentId string) ([]TrackingEvent, error)

	// SetStatus moves a shipment to next, records a tracking event
	// (with description and location from ev) and enqueues shipment.status_changed.
	//
	// Error:
	//
	// - ErrMissing: no such shipment.
	//
	// - ErrInvalidStatusTransition: next is not reachable from the current status.
	SetStatus(ctx context.Context, shipmentId string, next ShipmentStatus, ev TrackingEvent) (Shipment, error)

	// Cancel moves a shipment waiting for payment to cancelled, as SetStatus does.
	//
	// Error:
	//
	// - ErrMissing: no such shipment.
	//
	// - ErrInvalidStatusTransition: the shipment is not pending_payment.
	Cancel(ctx context.Context, shipmentId string, ev TrackingEvent) (Shipment, error)

	// AttachLabel stores a shipping label.
	//
	// A paid shipment moves to label_generated. A shipment already in
	// label_generated gets its label replaced.
	//
	// Error: ErrMissing, ErrInvalidStatusTransition.
	AttachLabel(ctx context.Context, shipmentId string, labelURL string, carrierTrackingCode string) (Shipment, error)

	// Track appends a tracking event reported by a TMS.
	//
	// When ev.Code is a shipment status reachable from the current one,
	// the shipment moves to it (and shipment.status_changed is enqueued).
	//
	// Error: ErrMissing if no shipment has the tracking code.
	Track(ctx context.Context, trackingCode string, ev TrackingEvent) (Shipment, error)

	// Stats summarizes all shipments.
	Stats(ctx context.Context) (Stats, error)

	// CancelStale cancels shipments still pending_payment which are created before the deadline.
	//
	// Returns ids of cancelled shipments.
	CancelStale(ctx context.Context, createdBefore time.Time) ([]string, error)
}
