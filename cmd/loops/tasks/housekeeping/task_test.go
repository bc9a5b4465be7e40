package housekeeping_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/confixenvios/confixenvios-sub003/cmd/loops/tasks/housekeeping"
	dbmock "github.com/confixenvios/confixenvios-sub003/pkg/db/mocks"
)

func fixedNow() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func TestTask(t *testing.T) {
	type when struct {
		expired   int
		expireErr error
		cancelled []string
		cancelErr error
	}
	type then struct {
		worked      bool
		tally       housekeeping.Tally
		err         error
		cancelAsked bool
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			quotes := dbmock.NewQuoteInterface()
			quotes.Impl.Expire = func(ctx context.Context, now time.Time) (int, error) {
				return when.expired, when.expireErr
			}
			shipments := dbmock.NewShipmentInterface()
			shipments.Impl.CancelStale = func(ctx context.Context, createdBefore time.Time) ([]string, error) {
				return when.cancelled, when.cancelErr
			}

			testee := housekeeping.Task(log.New(io.Discard, "", 0), quotes, shipments, 72*time.Hour, fixedNow)
			tally, worked, err := testee(context.Background(), housekeeping.Tally{ExpiredQuotes: 1})

			if worked != then.worked {
				t.Errorf("worked: (actual, expected) = (%v, %v)", worked, then.worked)
			}
			if !errors.Is(err, then.err) {
				t.Errorf("error: (actual, expected) = (%v, %v)", err, then.err)
			}
			if tally != then.tally {
				t.Errorf("tally: (actual, expected) = (%+v, %+v)", tally, then.tally)
			}

			if q := quotes.Calls.Expire; len(q) != 1 || !q[0].Equal(fixedNow()) {
				t.Errorf("expire: %v", q)
			}
			if !then.cancelAsked {
				if shipments.Calls.CancelStale.Times() != 0 {
					t.Errorf("shipments are cancelled")
				}
				return
			}
			deadline := fixedNow().Add(-72 * time.Hour)
			if s := shipments.Calls.CancelStale; len(s) != 1 || !s[0].Equal(deadline) {
				t.Errorf("cancel stale: (actual, expected) = (%v, %s)", s, deadline)
			}
		}
	}

	t.Run("nothing to do", theory(
		when{},
		then{tally: housekeeping.Tally{ExpiredQuotes: 1}, cancelAsked: true},
	))

	t.Run("quotes are expired and shipments are cancelled", theory(
		when{expired: 3, cancelled: []string{"s-1", "s-2"}},
		then{worked: true, tally: housekeeping.Tally{ExpiredQuotes: 4, CancelledShipments: 2}, cancelAsked: true},
	))

	t.Run("only shipments are cancelled", theory(
		when{cancelled: []string{"s-1"}},
		then{worked: true, tally: housekeeping.Tally{ExpiredQuotes: 1, CancelledShipments: 1}, cancelAsked: true},
	))

	{
		expected := errors.New("fake error")
		t.Run("expiring quotes fails", theory(
			when{expireErr: expected},
			then{tally: housekeeping.Tally{ExpiredQuotes: 1}, err: expected},
		))
	}

	{
		expected := errors.New("fake error")
		t.Run("cancelling shipments fails", theory(
			when{expired: 2, cancelErr: expected},
			then{worked: true, tally: housekeeping.Tally{ExpiredQuotes: 3}, err: expected, cancelAsked: true},
		))
	}
}
