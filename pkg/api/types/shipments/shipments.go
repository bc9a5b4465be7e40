package shipments

import (
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type Address struct {
	CEP        string `json:"cep"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

type Party struct {
	Name     string  `json:"name"`
	Document string  `json:"document"`
	Phone    string  `json:"phone,omitempty"`
	Email    string  `json:"email,omitempty"`
	Address  Address `json:"address"`
}

// CreateRequest is the body of POST /api/shipments.
type CreateRequest struct {
	QuoteId   string `json:"quote_id"`
	Sender    Party  `json:"sender"`
	Recipient Party  `json:"recipient"`
}

type Detail struct {
	ShipmentId   string `json:"shipment_id"`
	TrackingCode string `json:"tracking_code"`
	Status       string `json:"status"`
	QuoteId      string `json:"quote_id"`
	OwnerId      string `json:"owner_id,omitempty"`

	Sender    Party `json:"sender"`
	Recipient Party `json:"recipient"`

	Carrier           string           `json:"carrier"`
	Packages          []rating.Package `json:"packages"`
	DeclaredValue     money.Cents      `json:"declared_value"`
	Total             money.Cents      `json:"total"`
	DeliveryDays      int              `json:"delivery_days"`
	EstimatedDelivery string           `json:"estimated_delivery"`

	LabelURL            string `json:"label_url,omitempty"`
	CarrierTrackingCode string `json:"carrier_tracking_code,omitempty"`

	CreatedAt rfctime.RFC3339 `json:"created_at"`
	UpdatedAt rfctime.RFC3339 `json:"updated_at"`
}

// StatusChanged is the data of shipment.status_changed.
type StatusChanged struct {
	Detail
	PreviousStatus string `json:"previous_status"`
}

type Event struct {
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	OccurredAt  rfctime.RFC3339 `json:"occurred_at"`
}

// Tracking is the public view of a shipment. It has no personal data.
type Tracking struct {
	TrackingCode      string  `json:"tracking_code"`
	Status            string  `json:"status"`
	Carrier           string  `json:"carrier"`
	EstimatedDelivery string  `json:"estimated_delivery"`
	Events            []Event `json:"events"`
}

// StatusRequest is the body of PUT /api/admin/shipments/:id/status.
type StatusRequest struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// LabelRequest is the body of PUT /api/admin/shipments/:id/label.
type LabelRequest struct {
	LabelURL            string `json:"label_url"`
	CarrierTrackingCode string `json:"carrier_tracking_code,omitempty"`
}

// TrackingNotice is a tracking update pushed by a TMS.
type TrackingNotice struct {
	TrackingCode string           `json:"tracking_code"`
	Status       string           `json:"status"`
	Description  string           `json:"description,omitempty"`
	Location     string           `json:"location,omitempty"`
	OccurredAt   *rfctime.RFC3339 `json:"occurred_at,omitempty"`
}

type Stats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	PaidRevenue money.Cents    `json:"paid_revenue"`
}
