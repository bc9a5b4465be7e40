package db

import (
	"context"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type QuoteStatus string

const (
	QuoteOpen    QuoteStatus = "open"
	QuoteUsed    QuoteStatus = "used"
	QuoteExpired QuoteStatus = "expired"
)

// Quote is an option of a rating, kept until it expires or a shipment uses it.
type Quote struct {
	Id string

	// OwnerId is the user who asked the quote. Empty for anonymous quotes.
	OwnerId string

	Request rating.Request
	Option  rating.Quote

	Status    QuoteStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Available reports whether a shipment can be created from q at now.
func (q Quote) Available(now time.Time) bool {
	return q.Status == QuoteOpen && now.Before(q.ExpiresAt)
}

type QuoteInterface interface {
	// Create stores options of a rating as quotes, in the same order.
	//
	// req should be validated (normalized) already.
	Create(ctx context.Context, ownerId string, req rating.Request, options []rating.Quote, expiresAt time.Time) ([]Quote, error)

	// Get returns a quote.
	//
	// Error: ErrMissing if no such quote.
	Get(ctx context.Context, quoteId string) (Quote, error)

	// Expire marks open quotes whose expires_at is not after now as expired.
	//
	// Returns how many quotes are expired.
	Expire(ctx context.Context, now time.Time) (int, error)
}
