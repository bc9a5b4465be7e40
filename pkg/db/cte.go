package db

import (
	"context"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/cte"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

// CTe is an electronic transport document (Conhecimento de Transporte eletrônico)
// issued for a shipment.
type CTe struct {
	AccessKey cte.Key
	Number    string
	Series    string
	EmittedAt *time.Time

	// ShipmentId is empty while no shipment has TrackingCode.
	ShipmentId   string
	TrackingCode string

	FreightValue money.Cents
	XMLURL       string
	PDFURL       string
	Status       cte.Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

type CTeQuery struct {
	ShipmentId string

	// Unlinked narrows to documents without shipment.
	Unlinked bool

	Page
}

type CTeInterface interface {
	// Upsert stores a document by its access key.
	//
	// It links the document to the shipment with the same tracking code, when found.
	// A newly linked document records a cte_issued tracking event on the shipment.
	// Every upsert enqueues cte.received.
	//
	// Returns the stored document, and whether it is new.
	Upsert(ctx context.Context, doc CTe) (CTe, bool, error)

	// Find lists documents, newest first.
	Find(ctx context.Context, q CTeQuery) ([]CTe, error)
}
