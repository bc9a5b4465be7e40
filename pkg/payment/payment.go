// Package payment charges shipments through the payment gateway (Asaas),
// and translates what the gateway reports into payment statuses.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment/asaas"
)

// ErrCardRequired is returned when a credit card charge has no card.
var ErrCardRequired = errors.New("credit card and holder info are required")

// Gateway is the part of the Asaas client used here.
type Gateway interface {
	FindCustomer(ctx context.Context, cpfCnpj string) (asaas.Customer, bool, error)
	CreateCustomer(ctx context.Context, cus asaas.Customer) (asaas.Customer, error)
	CreatePayment(ctx context.Context, req asaas.PaymentRequest) (asaas.Payment, error)
	GetPayment(ctx context.Context, paymentId string) (asaas.Payment, error)
	PixQrCode(ctx context.Context, paymentId string) (asaas.PixQrCode, error)
}

var _ Gateway = &asaas.Client{}

// StatusOf translates the status of an Asaas charge.
//
// ok is false for statuses which do not change the payment (like refund requests in progress).
func StatusOf(p asaas.Payment) (status db.PaymentStatus, ok bool) {
	if p.Deleted {
		return db.PaymentCancelled, true
	}
	switch p.Status {
	case asaas.StatusPending, asaas.StatusAwaitingRiskAnalyse:
		return db.PaymentPending, true
	case asaas.StatusConfirmed, asaas.StatusReceived, asaas.StatusReceivedInCash:
		return db.PaymentConfirmed, true
	case asaas.StatusOverdue:
		return db.PaymentOverdue, true
	case asaas.StatusRefunded:
		return db.PaymentRefunded, true
	}
	return "", false
}

// StatusOfEvent translates an event of Asaas webhooks.
//
// ok is false for events to be acknowledged and ignored.
func StatusOfEvent(event string) (status db.PaymentStatus, ok bool) {
	switch event {
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		return db.PaymentConfirmed, true
	case "PAYMENT_OVERDUE":
		return db.PaymentOverdue, true
	case "PAYMENT_REFUNDED":
		return db.PaymentRefunded, true
	case "PAYMENT_DELETED":
		return db.PaymentCancelled, true
	case "PAYMENT_CREDIT_CARD_CAPTURE_REFUSED", "PAYMENT_REPROVED_BY_RISK_ANALYSIS":
		return db.PaymentFailed, true
	}
	return "", false
}

func billingType(m db.PaymentMethod) asaas.BillingType {
	switch m {
	case db.Pix:
		return asaas.Pix
	case db.Boleto:
		return asaas.Boleto
	default:
		return asaas.CreditCardBilling
	}
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if '0' <= r && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Request is how a client wants to pay.
type Request struct {
	Method db.PaymentMethod

	Card     *asaas.CreditCard
	Holder   *asaas.CreditCardHolderInfo
	RemoteIP string
}

type Charger struct {
	Gateway  Gateway
	Payments db.PaymentInterface

	// DueDays is how many days after today charges are due.
	DueDays int

	Now func() time.Time
}

func (c *Charger) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// customer returns the gateway customer of the sender, registering it when needed.
func (c *Charger) customer(ctx context.Context, sender db.Party) (string, error) {
	doc := digits(sender.Document)
	if id, err := c.Payments.CustomerId(ctx, doc); err == nil {
		return id, nil
	} else if !errors.Is(err, db.ErrMissing) {
		return "", err
	}

	cus, found, err := c.Gateway.FindCustomer(ctx, doc)
	if err != nil {
		return "", err
	}
	if !found {
		cus, err = c.Gateway.CreateCustomer(ctx, asaas.Customer{
			Name:          sender.Name,
			CpfCnpj:       doc,
			Email:         sender.Email,
			MobilePhone:   digits(sender.Phone),
			PostalCode:    sender.Address.CEP,
			AddressNumber: sender.Address.Number,
		})
		if err != nil {
			return "", err
		}
	}
	if err := c.Payments.SaveCustomerId(ctx, doc, cus.Id); err != nil {
		return "", err
	}
	return cus.Id, nil
}

// Charge makes a charge of the shipment at the gateway and stores it.
//
// A PIX charge comes with its QR code. A card charge may be confirmed already.
func (c *Charger) Charge(ctx context.Context, s db.Shipment, req Request) (db.Payment, error) {
	if s.Status != db.PendingPayment {
		return db.Payment{}, fmt.Errorf("%w: shipment is %s", db.ErrInvalidStatusTransition, s.Status)
	}
	if req.Method == db.CreditCard && (req.Card == nil || req.Holder == nil) {
		return db.Payment{}, ErrCardRequired
	}

	customerId, err := c.customer(ctx, s.Sender)
	if err != nil {
		return db.Payment{}, err
	}

	due := c.now().In(rfctime.Brasilia).AddDate(0, 0, c.DueDays)
	preq := asaas.PaymentRequest{
		Customer:          customerId,
		BillingType:       billingType(req.Method),
		Value:             s.Total.Reais(),
		DueDate:           due.Format(rfctime.DateFormat),
		Description:       fmt.Sprintf("Frete %s (%s)", s.TrackingCode, s.Carrier),
		ExternalReference: s.Id,
	}
	if req.Method == db.CreditCard {
		preq.CreditCard = req.Card
		preq.CreditCardHolderInfo = req.Holder
		preq.RemoteIp = req.RemoteIP
	}

	charge, err := c.Gateway.CreatePayment(ctx, preq)
	if err != nil {
		return db.Payment{}, err
	}

	status, ok := StatusOf(charge)
	if !ok {
		status = db.PaymentPending
	}
	p := db.Payment{
		ShipmentId:  s.Id,
		ExternalId:  charge.Id,
		Method:      req.Method,
		Status:      status,
		Amount:      s.Total,
		InvoiceURL:  charge.InvoiceURL,
		BankSlipURL: charge.BankSlipURL,
		DueDate:     time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
	}

	// without QR code, the invoice page still shows it.
	if req.Method == db.Pix {
		if qr, err := c.Gateway.PixQrCode(ctx, charge.Id); err == nil {
			p.PixPayload = qr.Payload
			p.PixImage = qr.EncodedImage
		}
	}

	return c.Payments.Create(ctx, p)
}

// Poll asks the gateway the status of p. It is for PaymentInterface.PopUnsettled.
//
// Statuses which change nothing keep the current status.
func Poll(ctx context.Context, gw Gateway) func(db.Payment) (db.PaymentStatus, error) {
	return func(p db.Payment) (db.PaymentStatus, error) {
		charge, err := gw.GetPayment(ctx, p.ExternalId)
		if err != nil {
			return "", err
		}
		status, ok := StatusOf(charge)
		if !ok {
			return p.Status, nil
		}
		return status, nil
	}
}
