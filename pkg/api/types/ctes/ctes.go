package ctes

import (
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

// Notice is a CT-e pushed by the issuing system, in JSON.
//
// FreightValue is in reais.
type Notice struct {
	Chave        string           `json:"chave"`
	Numero       string           `json:"numero"`
	Serie        string           `json:"serie"`
	EmittedAt    *rfctime.RFC3339 `json:"emitted_at,omitempty"`
	TrackingCode string           `json:"tracking_code"`
	FreightValue float64          `json:"freight_value"`
	XMLURL       string           `json:"xml_url"`
	PDFURL       string           `json:"pdf_url"`
	Status       string           `json:"status"`
}

type Detail struct {
	AccessKey    string           `json:"access_key"`
	Number       string           `json:"number"`
	Series       string           `json:"series"`
	EmittedAt    *rfctime.RFC3339 `json:"emitted_at,omitempty"`
	ShipmentId   string           `json:"shipment_id,omitempty"`
	TrackingCode string           `json:"tracking_code,omitempty"`
	FreightValue money.Cents      `json:"freight_value"`
	XMLURL       string           `json:"xml_url,omitempty"`
	PDFURL       string           `json:"pdf_url,omitempty"`
	Status       string           `json:"status"`
	CreatedAt    rfctime.RFC3339  `json:"created_at"`
	UpdatedAt    rfctime.RFC3339  `json:"updated_at"`
}
