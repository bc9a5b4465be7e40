// Package reconcile polls the payment gateway for payments whose notifications may be lost.
package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop/recurring"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment"
)

// Tally counts what the loop has done so far.
type Tally struct {
	Checked int
	Errors  int
}

// initial value for task
func Seed() Tally {
	return Tally{}
}

// Task polls the unsettled payment checked least recently, if it rested for interval.
//
// Gateway errors are logged and the payment waits for the next turn.
// Database errors break the task.
func Task(
	logger *log.Logger,
	payments db.PaymentInterface,
	gateway payment.Gateway,
	interval time.Duration,
	now func() time.Time,
) recurring.Task[Tally] {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, tally Tally) (Tally, bool, error) {
		var gatewayErr error
		var polled db.Payment
		poll := payment.Poll(ctx, gateway)

		picked, err := payments.PopUnsettled(ctx, now().Add(-interval), func(p db.Payment) (db.PaymentStatus, error) {
			polled = p
			status, err := poll(p)
			if err != nil {
				gatewayErr = err
				return "", err
			}
			if status != p.Status {
				logger.Printf("payment %s (shipment %s): %s -> %s", p.Id, p.ShipmentId, p.Status, status)
			}
			return status, nil
		})
		if !picked {
			return tally, false, err
		}
		tally.Checked += 1
		if err != nil {
			if gatewayErr != nil && errors.Is(err, gatewayErr) {
				tally.Errors += 1
				logger.Printf("payment %s: can not poll the gateway: %s", polled.Id, err)
				return tally, true, nil
			}
			return tally, true, err
		}
		return tally, true, nil
	}
}
