package mocks

import (
	"context"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

type Database struct {
	QuoteMock        *QuoteInterface
	ShipmentMock     *ShipmentInterface
	PaymentMock      *PaymentInterface
	WebhookMock      *WebhookInterface
	CTeMock          *CTeInterface
	TicketMock       *TicketInterface
	PricingTableMock *PricingTableInterface
	SchemaMock       *SchemaInterface
}

func NewDatabase() *Database {
	return &Database{
		QuoteMock:        NewQuoteInterface(),
		ShipmentMock:     NewShipmentInterface(),
		PaymentMock:      NewPaymentInterface(),
		WebhookMock:      NewWebhookInterface(),
		CTeMock:          NewCTeInterface(),
		TicketMock:       NewTicketInterface(),
		PricingTableMock: NewPricingTableInterface(),
		SchemaMock:       NewSchemaInterface(),
	}
}

var _ db.ConfixDatabase = &Database{}

func (d *Database) Quotes() db.QuoteInterface               { return d.QuoteMock }
func (d *Database) Shipments() db.ShipmentInterface         { return d.ShipmentMock }
func (d *Database) Payments() db.PaymentInterface           { return d.PaymentMock }
func (d *Database) Webhooks() db.WebhookInterface           { return d.WebhookMock }
func (d *Database) CTes() db.CTeInterface                   { return d.CTeMock }
func (d *Database) Tickets() db.TicketInterface             { return d.TicketMock }
func (d *Database) PricingTables() db.PricingTableInterface { return d.PricingTableMock }
func (d *Database) Schema() db.SchemaInterface              { return d.SchemaMock }
func (d *Database) Close() error                            { return nil }

type SchemaInterface struct {
	Impl struct {
		Upgrade func(context.Context) error
		Version func(context.Context) (int, error)
		Context func(context.Context) (context.Context, context.CancelFunc)
	}
	Calls struct {
		Upgrade CallLog[struct{}]
		Version CallLog[struct{}]
		Context CallLog[struct{}]
	}
}

func NewSchemaInterface() *SchemaInterface {
	return &SchemaInterface{}
}

var _ db.SchemaInterface = &SchemaInterface{}

func (m *SchemaInterface) Upgrade(ctx context.Context) error {
	m.Calls.Upgrade = append(m.Calls.Upgrade, struct{}{})
	if m.Impl.Upgrade == nil {
		notImplemented()
	}
	return m.Impl.Upgrade(ctx)
}

func (m *SchemaInterface) Version(ctx context.Context) (int, error) {
	m.Calls.Version = append(m.Calls.Version, struct{}{})
	if m.Impl.Version == nil {
		notImplemented()
	}
	return m.Impl.Version(ctx)
}

// Context returns ctx itself unless Impl.Context is set.
func (m *SchemaInterface) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	m.Calls.Context = append(m.Calls.Context, struct{}{})
	if m.Impl.Context == nil {
		return ctx, func() {}
	}
	return m.Impl.Context(ctx)
}
