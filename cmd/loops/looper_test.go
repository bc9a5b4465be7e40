package main

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/configs"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	dbmock "github.com/confixenvios/confixenvios-sub003/pkg/db/mocks"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop/recurring"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

func TestAsLoopType(t *testing.T) {
	for _, s := range []string{"dispatch", "reconcile", "housekeeping", "all"} {
		lt, err := AsLoopType(s)
		if err != nil || lt.String() != s {
			t.Errorf("AsLoopType(%q) = (%s, %v)", s, lt, err)
		}
	}
	if _, err := AsLoopType("gc"); err == nil {
		t.Errorf("unknown loop type is accepted")
	}
}

// idle makes a database with empty backlogs.
func idle() *dbmock.Database {
	d := dbmock.NewDatabase()
	d.WebhookMock.Impl.PopDue = func(ctx context.Context, now time.Time, send func(db.Endpoint, db.Delivery) db.Outcome) (bool, error) {
		return false, nil
	}
	d.PaymentMock.Impl.PopUnsettled = func(ctx context.Context, checkedBefore time.Time, poll func(db.Payment) (db.PaymentStatus, error)) (bool, error) {
		return false, nil
	}
	d.QuoteMock.Impl.Expire = func(ctx context.Context, now time.Time) (int, error) {
		return 0, nil
	}
	d.ShipmentMock.Impl.CancelStale = func(ctx context.Context, createdBefore time.Time) ([]string, error) {
		return nil, nil
	}
	return d
}

func manifestOf(lt LoopType) LoopManifest {
	return LoopManifest{
		Type:   lt,
		Policy: recurring.UntilError(recurring.Backlog()),
		Config: configs.Loops{
			Dispatch:     configs.Dispatch{MaxAttempts: 3, Timeout: time.Second},
			Reconcile:    configs.Reconcile{RecheckInterval: time.Minute},
			Housekeeping: configs.Housekeeping{PaymentDeadline: time.Hour},
			Asaas:        configs.Asaas{Timeout: time.Second},
		},
	}
}

func TestStartLoop(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	ctx := context.Background()

	t.Run("all loops run until backlogs are over", func(t *testing.T) {
		d := idle()
		err := StartLoop(ctx, logger, Deps{Database: d, Sender: webhook.Sender{}}, manifestOf(All))
		if err != nil {
			t.Fatal(err)
		}
		if d.WebhookMock.Calls.PopDue.Times() != 1 ||
			d.PaymentMock.Calls.PopUnsettled.Times() != 1 ||
			d.QuoteMock.Calls.Expire.Times() != 1 {
			t.Errorf("loops are not run once each")
		}
	})

	t.Run("a single loop runs alone", func(t *testing.T) {
		d := idle()
		if err := StartLoop(ctx, logger, Deps{Database: d}, manifestOf(Housekeeping)); err != nil {
			t.Fatal(err)
		}
		if d.WebhookMock.Calls.PopDue.Times() != 0 || d.PaymentMock.Calls.PopUnsettled.Times() != 0 {
			t.Errorf("other loops are run")
		}
		if d.ShipmentMock.Calls.CancelStale.Times() != 1 {
			t.Errorf("housekeeping loop is not run")
		}
	})

	t.Run("an error of a loop stops all", func(t *testing.T) {
		expected := errors.New("fake error")
		d := idle()
		d.PaymentMock.Impl.PopUnsettled = func(ctx context.Context, checkedBefore time.Time, poll func(db.Payment) (db.PaymentStatus, error)) (bool, error) {
			return false, expected
		}
		err := StartLoop(ctx, logger, Deps{Database: d, Sender: webhook.Sender{}}, manifestOf(All))
		if !errors.Is(err, expected) {
			t.Errorf("error: (actual, expected) = (%v, %v)", err, expected)
		}
	})

	t.Run("unknown loop type", func(t *testing.T) {
		if err := StartLoop(ctx, logger, Deps{Database: idle()}, manifestOf("gc")); err == nil {
			t.Errorf("unknown loop type is started")
		}
	})
}
