package quote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool/testenv"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgquote "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/quote"
	. "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/testhelpers"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
)

func TestQuote(t *testing.T) {
	poolBroaker := testenv.NewPoolBroaker(context.Background(), t)
	ctx := context.Background()
	pool := poolBroaker.GetPool(ctx, t)
	testee := kpgquote.New(pool)

	now := try.To(PGNow(ctx, pool)).OrFatal(t)

	cheap := QuoteOption()
	ai := QuoteOption()
	ai.Source = rating.FromAI
	ai.TableId = ""
	ai.Carrier = "Transportadora IA"
	ai.Total = 9900

	qs := try.To(testee.Create(ctx, "", QuoteRequest(), []rating.Quote{cheap, ai}, now.Add(time.Minute))).OrFatal(t)
	if len(qs) != 2 || qs[0].Id == qs[1].Id {
		t.Fatalf("quotes = %+v", qs)
	}
	if qs[1].Option.Source != rating.FromAI || qs[1].Option.Total != 9900 || qs[0].Option.Breakdown != cheap.Breakdown {
		t.Errorf("quotes = %+v", qs)
	}

	got := try.To(testee.Get(ctx, qs[0].Id)).OrFatal(t)
	if got.OwnerId != "" || got.Status != db.QuoteOpen || got.Request.OriginCEP != "01310100" || len(got.Request.Packages) != 1 {
		t.Errorf("got = %+v", got)
	}

	if n := try.To(testee.Expire(ctx, now)).OrFatal(t); n != 0 {
		t.Errorf("expired = %d, want 0", n)
	}
	if n := try.To(testee.Expire(ctx, now.Add(time.Hour))).OrFatal(t); n != 2 {
		t.Errorf("expired = %d, want 2", n)
	}
	if got := try.To(testee.Get(ctx, qs[0].Id)).OrFatal(t); got.Status != db.QuoteExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}

	if _, err := testee.Get(ctx, "no-such-quote"); !errors.Is(err, db.ErrMissing) {
		t.Errorf("err = %v, want ErrMissing", err)
	}
}
