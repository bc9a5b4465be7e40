package db

import (
	"context"
	"fmt"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

type PaymentMethod string

const (
	Pix        PaymentMethod = "pix"
	Boleto     PaymentMethod = "boleto"
	CreditCard PaymentMethod = "credit_card"
)

func AsPaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case Pix, Boleto, CreditCard:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method: %q", s)
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentFailed    PaymentStatus = "failed"
)

// Settled reports whether the payment needs no more polling.
func (s PaymentStatus) Settled() bool {
	return s != PaymentPending && s != PaymentOverdue
}

type Payment struct {
	Id         string
	ShipmentId string

	// ExternalId is the id of the charge in the payment gateway.
	ExternalId string

	Method PaymentMethod
	Status PaymentStatus
	Amount money.Cents

	InvoiceURL  string
	BankSlipURL string

	// PixPayload is the "copia e cola" code. PixImage is a base64 PNG.
	PixPayload string
	PixImage   string

	DueDate     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CheckedAt   time.Time
	ConfirmedAt *time.Time
}

type PaymentInterface interface {
	// Create stores a charge made for a shipment.
	//
	// Error:
	//
	// - ErrMissing: no such shipment.
	//
	// - ErrInvalidStatusTransition: the shipment is not pending_payment.
	//
	// - ErrConflict: a payment with the same external id exists.
	Create(ctx context.Context, p Payment) (Payment, error)

	// Get returns a payment.
	//
	// Error: ErrMissing if no such payment.
	Get(ctx context.Context, paymentId string) (Payment, error)

	// GetByExternalId returns the payment having the gateway charge id.
	//
	// Error: ErrMissing if no such payment.
	GetByExternalId(ctx context.Context, externalId string) (Payment, error)

	// ListByShipment lists payments of a shipment, newest first.
	ListByShipment(ctx context.Context, shipmentId string) ([]Payment, error)

	// SetStatus changes the status of the payment having the gateway charge id.
	//
	// Confirming a payment moves the shipment to paid and enqueues payment.confirmed.
	// Setting the current status again changes nothing and reports changed = false,
	// as does moving a confirmed payment back to pending or overdue.
	//
	// Error: ErrMissing if no such payment.
	SetStatus(ctx context.Context, externalId string, status PaymentStatus) (p Payment, changed bool, err error)

	// PopUnsettled picks the pending (or overdue) payment checked least recently,
	// before checkedBefore, and passes it to poll in a transaction.
	//
	// The status returned by poll is applied as SetStatus does, and the payment is
	// marked as checked. When poll returns an error, the payment is only marked as
	// checked and the error is returned.
	//
	// Returns true if a payment is picked.
	PopUnsettled(ctx context.Context, checkedBefore time.Time, poll func(Payment) (PaymentStatus, error)) (bool, error)

	// CustomerId returns the gateway customer id for a CPF/CNPJ.
	//
	// Error: ErrMissing if not registered.
	CustomerId(ctx context.Context, document string) (string, error)

	// SaveCustomerId registers the gateway customer id for a CPF/CNPJ.
	SaveCustomerId(ctx context.Context, document string, customerId string) error
}
