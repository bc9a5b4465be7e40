package mocks

import (
	"context"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

type PaymentInterface struct {
	Impl struct {
		Create          func(ctx context.Context, payment db.Payment) (db.Payment, error)
		Get             func(ctx context.Context, paymentId string) (db.Payment, error)
		GetByExternalId func(ctx context.Context, externalId string) (db.Payment, error)
		ListByShipment  func(ctx context.Context, shipmentId string) ([]db.Payment, error)
		SetStatus       func(ctx context.Context, externalId string, status db.PaymentStatus) (db.Payment, bool, error)
		PopUnsettled    func(ctx context.Context, checkedBefore time.Time, poll func(db.Payment) (db.PaymentStatus, error)) (bool, error)
		CustomerId      func(ctx context.Context, document string) (string, error)
		SaveCustomerId  func(ctx context.Context, document string, customerId string) error
	}
	Calls struct {
		Create          CallLog[db.Payment]
		Get             CallLog[string]
		GetByExternalId CallLog[string]
		ListByShipment  CallLog[string]
		SetStatus       CallLog[struct {
			ExternalId string
			Status     db.PaymentStatus
		}]
		PopUnsettled   CallLog[time.Time]
		CustomerId     CallLog[string]
		SaveCustomerId CallLog[struct {
			Document   string
			CustomerId string
		}]
	}
}

func NewPaymentInterface() *PaymentInterface {
	return &PaymentInterface{}
}

var _ db.PaymentInterface = &PaymentInterface{}

func (m *PaymentInterface) Create(ctx context.Context, payment db.Payment) (db.Payment, error) {
	m.Calls.Create = append(m.Calls.Create, payment)
	if m.Impl.Create == nil {
		notImplemented()
	}
	return m.Impl.Create(ctx, payment)
}

func (m *PaymentInterface) Get(ctx context.Context, paymentId string) (db.Payment, error) {
	m.Calls.Get = append(m.Calls.Get, paymentId)
	if m.Impl.Get == nil {
		notImplemented()
	}
	return m.Impl.Get(ctx, paymentId)
}

func (m *PaymentInterface) GetByExternalId(ctx context.Context, externalId string) (db.Payment, error) {
	m.Calls.GetByExternalId = append(m.Calls.GetByExternalId, externalId)
	if m.Impl.GetByExternalId == nil {
		notImplemented()
	}
	return m.Impl.GetByExternalId(ctx, externalId)
}

func (m *PaymentInterface) ListByShipment(ctx context.Context, shipmentId string) ([]db.Payment, error) {
	m.Calls.ListByShipment = append(m.Calls.ListByShipment, shipmentId)
	if m.Impl.ListByShipment == nil {
		notImplemented()
	}
	return m.Impl.ListByShipment(ctx, shipmentId)
}

func (m *PaymentInterface) SetStatus(ctx context.Context, externalId string, status db.PaymentStatus) (db.Payment, bool, error) {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		ExternalId string
		Status     db.PaymentStatus
	}{ExternalId: externalId, Status: status})
	if m.Impl.SetStatus == nil {
		notImplemented()
	}
	return m.Impl.SetStatus(ctx, externalId, status)
}

func (m *PaymentInterface) PopUnsettled(ctx context.Context, checkedBefore time.Time, poll func(db.Payment) (db.PaymentStatus, error)) (bool, error) {
	m.Calls.PopUnsettled = append(m.Calls.PopUnsettled, checkedBefore)
	if m.Impl.PopUnsettled == nil {
		notImplemented()
	}
	return m.Impl.PopUnsettled(ctx, checkedBefore, poll)
}

func (m *PaymentInterface) CustomerId(ctx context.Context, document string) (string, error) {
	m.Calls.CustomerId = append(m.Calls.CustomerId, document)
	if m.Impl.CustomerId == nil {
		notImplemented()
	}
	return m.Impl.CustomerId(ctx, document)
}

func (m *PaymentInterface) SaveCustomerId(ctx context.Context, document string, customerId string) error {
	m.Calls.SaveCustomerId = append(m.Calls.SaveCustomerId, struct {
		Document   string
		CustomerId string
	}{Document: document, CustomerId: customerId})
	if m.Impl.SaveCustomerId == nil {
		notImplemented()
	}
	return m.Impl.SaveCustomerId(ctx, document, customerId)
}
