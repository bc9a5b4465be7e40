package binding

import (
	apipayments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/payments"
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

func ComposePayment(p db.Payment) apipayments.Detail {
	return apipayments.Detail{
		PaymentId:   p.Id,
		ShipmentId:  p.ShipmentId,
		Method:      string(p.Method),
		Status:      string(p.Status),
		Amount:      p.Amount,
		InvoiceURL:  p.InvoiceURL,
		BankSlipURL: p.BankSlipURL,
		PixPayload:  p.PixPayload,
		PixImage:    p.PixImage,
		DueDate:     p.DueDate.Format(rfctime.DateFormat),
		ConfirmedAt: rfctime.Ref(p.ConfirmedAt),
		CreatedAt:   rfctime.New(p.CreatedAt),
	}
}

func ComposeConfirmed(p db.Payment, s db.Shipment) apipayments.Confirmed {
	return apipayments.Confirmed{
		Payment:  ComposePayment(p),
		Shipment: ComposeShipment(s),
	}
}
