package quotes

import (
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

// Request is the body of POST /api/quotes.
//
// DeclaredValue is in centavos.
type Request = rating.Request

// Detail is a quote option with its id.
type Detail struct {
	QuoteId string `json:"quote_id"`
	Status  string `json:"status"`

	rating.Quote

	OriginCEP      string           `json:"origin_cep"`
	DestinationCEP string           `json:"destination_cep"`
	Packages       []rating.Package `json:"packages"`
	DeclaredValue  money.Cents      `json:"declared_value"`

	// EstimatedDelivery is a date (YYYY-MM-DD) when shipped today.
	EstimatedDelivery string `json:"estimated_delivery"`

	CreatedAt rfctime.RFC3339 `json:"created_at"`
	ExpiresAt rfctime.RFC3339 `json:"expires_at"`
}

// Response is the body answered by POST /api/quotes.
type Response struct {
	Options []Detail `json:"options"`
}
