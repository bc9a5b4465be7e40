package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgcte "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/cte"
	kpgpay "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/payment"
	kpgpricing "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/pricing"
	kpgquote "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/quote"
	kpgschema "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/schema"
	kpgshipment "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/shipment"
	kpgticket "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/ticket"
	kpghook "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/webhook"
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
)

type confixDBPostgres struct {
	pool      *pgxpool.Pool
	quotes    db.QuoteInterface
	shipments db.ShipmentInterface
	payments  db.PaymentInterface
	webhooks  db.WebhookInterface
	ctes      db.CTeInterface
	tickets   db.TicketInterface
	pricing   db.PricingTableInterface
	schema    db.SchemaInterface
}

type Config struct {
	SchemaRepository string

	// Clock is used where the repository compares time in Go (quote expiry).
	Clock func() time.Time
}

func DefaultConfig() Config {
	return Config{Clock: time.Now}
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Config) *Config {
		c.Clock = clock
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (db.ConfixDatabase, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	c := DefaultConfig()
	for _, option := range options {
		c = *option(&c)
	}

	p := kpool.Wrap(pool)
	var schema db.SchemaInterface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &confixDBPostgres{
		pool:      pool,
		quotes:    kpgquote.New(p),
		shipments: kpgshipment.New(p, kpgshipment.WithClock(c.Clock)),
		payments:  kpgpay.New(p),
		webhooks:  kpghook.New(p),
		ctes:      kpgcte.New(p),
		tickets:   kpgticket.New(p),
		pricing:   kpgpricing.New(p),
		schema:    schema,
	}, nil
}

func (c *confixDBPostgres) Quotes() db.QuoteInterface {
	return c.quotes
}

func (c *confixDBPostgres) Shipments() db.ShipmentInterface {
	return c.shipments
}

func (c *confixDBPostgres) Payments() db.PaymentInterface {
	return c.payments
}

func (c *confixDBPostgres) Webhooks() db.WebhookInterface {
	return c.webhooks
}

func (c *confixDBPostgres) CTes() db.CTeInterface {
	return c.ctes
}

func (c *confixDBPostgres) Tickets() db.TicketInterface {
	return c.tickets
}

func (c *confixDBPostgres) PricingTables() db.PricingTableInterface {
	return c.pricing
}

func (c *confixDBPostgres) Schema() db.SchemaInterface {
	return c.schema
}

func (c *confixDBPostgres) Close() error {
	c.pool.Close()
	return nil
}
