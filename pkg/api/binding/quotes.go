package binding

import (
	"time"

	apiquotes "github.com/confixenvios/confixenvios-sub003/pkg/api/types/quotes"
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

// ComposeQuote converts a quote. The estimated delivery counts from now.
func ComposeQuote(q db.Quote, now time.Time) apiquotes.Detail {
	return apiquotes.Detail{
		QuoteId:           q.Id,
		Status:            string(q.Status),
		Quote:             q.Option,
		OriginCEP:         q.Request.OriginCEP,
		DestinationCEP:    q.Request.DestinationCEP,
		Packages:          q.Request.Packages,
		DeclaredValue:     q.Request.DeclaredValue,
		EstimatedDelivery: rfctime.Date(rating.BusinessDaysAfter(now, q.Option.DeliveryDays)),
		CreatedAt:         rfctime.New(q.CreatedAt),
		ExpiresAt:         rfctime.New(q.ExpiresAt),
	}
}
