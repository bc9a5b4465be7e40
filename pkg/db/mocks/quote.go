package mocks

import (
	"context"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type QuoteInterface struct {
	Impl struct {
		Create func(ctx context.Context, ownerId string, req rating.Request, options []rating.Quote, expiresAt time.Time) ([]db.Quote, error)
		Get    func(ctx context.Context, quoteId string) (db.Quote, error)
		Expire func(ctx context.Context, now time.Time) (int, error)
	}
	Calls struct {
		Create CallLog[struct {
			OwnerId   string
			Request   rating.Request
			Options   []rating.Quote
			ExpiresAt time.Time
		}]
		Get    CallLog[string]
		Expire CallLog[time.Time]
	}
}

func NewQuoteInterface() *QuoteInterface {
	return &QuoteInterface{}
}

var _ db.QuoteInterface = &QuoteInterface{}

func (m *QuoteInterface) Create(ctx context.Context, ownerId string, req rating.Request, options []rating.Quote, expiresAt time.Time) ([]db.Quote, error) {
	m.Calls.Create = append(m.Calls.Create, struct {
		OwnerId   string
		Request   rating.Request
		Options   []rating.Quote
		ExpiresAt time.Time
	}{OwnerId: ownerId, Request: req, Options: options, ExpiresAt: expiresAt})
	if m.Impl.Create == nil {
		notImplemented()
	}
	return m.Impl.Create(ctx, ownerId, req, options, expiresAt)
}

func (m *QuoteInterface) Get(ctx context.Context, quoteId string) (db.Quote, error) {
	m.Calls.Get = append(m.Calls.Get, quoteId)
	if m.Impl.Get == nil {
		notImplemented()
	}
	return m.Impl.Get(ctx, quoteId)
}

func (m *QuoteInterface) Expire(ctx context.Context, now time.Time) (int, error) {
	m.Calls.Expire = append(m.Calls.Expire, now)
	if m.Impl.Expire == nil {
		notImplemented()
	}
	return m.Impl.Expire(ctx, now)
}
