package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	apipayments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/payments"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment/asaas"
)

// Charger makes charges of shipments. It is *payment.Charger.
type Charger interface {
	Charge(ctx context.Context, s db.Shipment, req payment.Request) (db.Payment, error)
}

var _ Charger = &payment.Charger{}

func bindPaymentRequest(req apipayments.CreateRequest, remoteIP string) (payment.Request, error) {
	method, err := db.AsPaymentMethod(strings.TrimSpace(req.Method))
	if err != nil {
		return payment.Request{}, err
	}
	preq := payment.Request{Method: method}
	if method != db.CreditCard {
		return preq, nil
	}
	if req.CreditCard != nil {
		preq.Card = &asaas.CreditCard{
			HolderName:  req.CreditCard.HolderName,
			Number:      req.CreditCard.Number,
			ExpiryMonth: req.CreditCard.ExpiryMonth,
			ExpiryYear:  req.CreditCard.ExpiryYear,
			CCV:         req.CreditCard.CCV,
		}
	}
	if req.Holder != nil {
		preq.Holder = &asaas.CreditCardHolderInfo{
			Name:          req.Holder.Name,
			Email:         req.Holder.Email,
			CpfCnpj:       req.Holder.CpfCnpj,
			PostalCode:    req.Holder.PostalCode,
			AddressNumber: req.Holder.AddressNumber,
			Phone:         req.Holder.Phone,
		}
	}
	preq.RemoteIP = remoteIP
	return preq, nil
}

// CreatePaymentHandler charges a shipment waiting for payment, by its owner.
func CreatePaymentHandler(dbshipment db.ShipmentInterface, charger Charger, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := getVisibleShipment(c, dbshipment, param)
		if err != nil {
			return err
		}

		req := apipayments.CreateRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		preq, err := bindPaymentRequest(req, c.RealIP())
		if err != nil {
			return apierr.BadRequest(`method should be one of "pix", "boleto" or "credit_card"`, err)
		}

		p, err := charger.Charge(c.Request().Context(), s, preq)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrCardRequired):
				return apierr.BadRequest("send credit_card and credit_card_holder_info", err)
			case errors.Is(err, db.ErrInvalidStatusTransition):
				return apierr.Conflict(
					"the shipment is not waiting for payment", apierr.WithError(err),
				)
			case errors.Is(err, asaas.ErrAPI):
				return apierr.BadGateway("payment gateway", err)
			}
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusCreated, binding.ComposePayment(p))
	}
}

// ListPaymentsHandler lists payments of a shipment, for its owner and admins.
func ListPaymentsHandler(dbshipment db.ShipmentInterface, dbpayment db.PaymentInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := getVisibleShipment(c, dbshipment, param)
		if err != nil {
			return err
		}
		ps, err := dbpayment.ListByShipment(c.Request().Context(), s.Id)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apipayments.Detail, 0, len(ps))
		for _, p := range ps {
			resp = append(resp, binding.ComposePayment(p))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// AsaasHeader carries the token of Asaas webhooks.
const AsaasHeader = "asaas-access-token"

// AsaasWebhookHandler receives payment notifications of Asaas.
//
// Notifications which are not about known payments or statuses are acknowledged and ignored,
// so that Asaas does not stop the queue.
func AsaasWebhookHandler(dbpayment db.PaymentInterface, token string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := checkToken(c, AsaasHeader, token); err != nil {
			return err
		}

		n := asaas.Notification{}
		if err := decodeJSON(c, &n); err != nil {
			return err
		}
		ack := map[string]any{"received": true}

		status, ok := payment.StatusOfEvent(n.Event)
		if !ok || n.Payment.Id == "" {
			c.Logger().Debugf("asaas: ignored event %s (payment %q)", n.Event, n.Payment.Id)
			return c.JSON(http.StatusOK, ack)
		}

		p, changed, err := dbpayment.SetStatus(c.Request().Context(), n.Payment.Id, status)
		if err != nil {
			if errors.Is(err, db.ErrMissing) {
				c.Logger().Warnf("asaas: event %s for unknown payment %s", n.Event, n.Payment.Id)
				return c.JSON(http.StatusOK, ack)
			}
			return apierr.InternalServerError(err)
		}
		if changed {
			c.Logger().Infof("asaas: payment %s (shipment %s) is %s", p.Id, p.ShipmentId, p.Status)
		}
		return c.JSON(http.StatusOK, ack)
	}
}
