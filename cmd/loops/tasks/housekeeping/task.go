// Package housekeeping expires old quotes and cancels shipments left unpaid.
package housekeeping

import (
	"context"
	"log"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop/recurring"
)

// Tally counts what the loop has done so far.
type Tally struct {
	ExpiredQuotes      int
	CancelledShipments int
}

// initial value for task
func Seed() Tally {
	return Tally{}
}

// Task expires quotes past their expiry, and cancels shipments
// still pending_payment after paymentDeadline since creation.
func Task(
	logger *log.Logger,
	quotes db.QuoteInterface,
	shipments db.ShipmentInterface,
	paymentDeadline time.Duration,
	now func() time.Time,
) recurring.Task[Tally] {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, tally Tally) (Tally, bool, error) {
		t := now()

		expired, err := quotes.Expire(ctx, t)
		if err != nil {
			return tally, false, err
		}
		tally.ExpiredQuotes += expired

		cancelled, err := shipments.CancelStale(ctx, t.Add(-paymentDeadline))
		if err != nil {
			return tally, expired != 0, err
		}
		for _, id := range cancelled {
			logger.Printf("shipment %s is cancelled: not paid in %s", id, paymentDeadline)
		}
		tally.CancelledShipments += len(cancelled)

		return tally, expired != 0 || len(cancelled) != 0, nil
	}
}
