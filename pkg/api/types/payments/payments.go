package payments

import (
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/shipments"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

// CreateRequest is the body of POST /api/shipments/:id/payments.
type CreateRequest struct {
	Method string `json:"method"`

	// CreditCard and Holder are required for credit_card.
	CreditCard *CreditCard `json:"credit_card,omitempty"`
	Holder     *CardHolder `json:"credit_card_holder_info,omitempty"`
}

type CreditCard struct {
	HolderName  string `json:"holder_name"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CCV         string `json:"ccv"`
}

type CardHolder struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CpfCnpj       string `json:"cpf_cnpj"`
	PostalCode    string `json:"postal_code"`
	AddressNumber string `json:"address_number"`
	Phone         string `json:"phone"`
}

type Detail struct {
	PaymentId  string      `json:"payment_id"`
	ShipmentId string      `json:"shipment_id"`
	Method     string      `json:"method"`
	Status     string      `json:"status"`
	Amount     money.Cents `json:"amount"`

	InvoiceURL  string `json:"invoice_url,omitempty"`
	BankSlipURL string `json:"bank_slip_url,omitempty"`
	PixPayload  string `json:"pix_payload,omitempty"`
	PixImage    string `json:"pix_image,omitempty"`

	DueDate     string           `json:"due_date"`
	ConfirmedAt *rfctime.RFC3339 `json:"confirmed_at,omitempty"`
	CreatedAt   rfctime.RFC3339  `json:"created_at"`
}

// Confirmed is the data of payment.confirmed.
type Confirmed struct {
	Payment  Detail           `json:"payment"`
	Shipment shipments.Detail `json:"shipment"`
}
