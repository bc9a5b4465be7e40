package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	apishipments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/shipments"
	"github.com/confixenvios/confixenvios-sub003/pkg/auth"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/tracking"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// CreateShipmentHandler makes a shipment from a quote.
//
// The quote should be visible to the caller, and its CEPs should be the addresses' ones.
func CreateShipmentHandler(dbquote db.QuoteInterface, dbshipment db.ShipmentInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := caller(c)
		if err != nil {
			return err
		}

		req := apishipments.CreateRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		if req.QuoteId == "" {
			return apierr.BadRequest("quote_id is required", nil)
		}
		sender, err := binding.ValidateParty("sender", binding.BindParty(req.Sender))
		if err != nil {
			return apierr.BadRequest("check the sender", err)
		}
		recipient, err := binding.ValidateParty("recipient", binding.BindParty(req.Recipient))
		if err != nil {
			return apierr.BadRequest("check the recipient", err)
		}

		q, err := dbquote.Get(ctx, req.QuoteId)
		if err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.BadRequest("quote is not found", err)
			}
			return apierr.InternalServerError(err)
		}
		if !auth.CanSee(u, true, q.OwnerId) {
			return apierr.BadRequest("quote is not found", nil)
		}
		if sender.Address.CEP != q.Request.OriginCEP || recipient.Address.CEP != q.Request.DestinationCEP {
			return apierr.BadRequest(
				"addresses should be in the CEPs of the quote. ask a new quote for the addresses", nil,
			)
		}

		s, err := dbshipment.Create(ctx, db.NewShipment{
			OwnerId:   u.Id,
			QuoteId:   q.Id,
			Sender:    sender,
			Recipient: recipient,
		})
		if err != nil {
			switch {
			case errors.Is(err, db.ErrQuoteUnavailable):
				return apierr.Conflict(
					"quote is used or expired", apierr.WithAdvice("ask a new quote."), apierr.WithError(err),
				)
			case errors.Is(err, db.ErrMissing):
				return apierr.BadRequest("quote is not found", err)
			}
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusCreated, binding.ComposeShipment(s))
	}
}

// getVisibleShipment returns the shipment in the path parameter, if the caller may see it.
func getVisibleShipment(c echo.Context, dbshipment db.ShipmentInterface, param string) (db.Shipment, error) {
	u, err := caller(c)
	if err != nil {
		return db.Shipment{}, err
	}
	s, err := dbshipment.Get(c.Request().Context(), c.Param(param))
	if err != nil {
		return db.Shipment{}, missingOr(err)
	}
	if !u.IsAdmin() && s.OwnerId != u.Id {
		return db.Shipment{}, apierr.NotFound()
	}
	return s, nil
}

func GetShipmentHandler(dbshipment db.ShipmentInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := getVisibleShipment(c, dbshipment, param)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, binding.ComposeShipment(s))
	}
}

// ShipmentEventsHandler lists tracking events of a shipment, for its owner and admins.
func ShipmentEventsHandler(dbshipment db.ShipmentInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := getVisibleShipment(c, dbshipment, param)
		if err != nil {
			return err
		}
		events, err := dbshipment.Events(c.Request().Context(), s.Id)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apishipments.Event, 0, len(events))
		for _, ev := range events {
			resp = append(resp, binding.ComposeEvent(ev))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// parseShipmentQuery reads query parameters status, carrier, q, since, until, limit and offset.
func parseShipmentQuery(c echo.Context) (db.ShipmentQuery, error) {
	q := db.ShipmentQuery{
		Carrier: strings.TrimSpace(c.QueryParam("carrier")),
		Text:    strings.TrimSpace(c.QueryParam("q")),
	}
	if st := c.QueryParam("status"); st != "" {
		for _, s := range strings.Split(st, ",") {
			status, err := db.AsShipmentStatus(strings.TrimSpace(s))
			if err != nil {
				return q, apierr.BadRequest("unknown status", err)
			}
			q.Status = append(q.Status, status)
		}
	}
	for _, bound := range []struct {
		name string
		dest **time.Time
	}{{"since", &q.Since}, {"until", &q.Until}} {
		name, dest := bound.name, bound.dest
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		t, err := rfctime.ParseLoose(v)
		if err != nil {
			return q, apierr.BadRequest(name+" should be a date or RFC3339 date-time", err)
		}
		tt := t.Time()
		*dest = &tt
	}
	p, err := page(c)
	if err != nil {
		return q, err
	}
	q.Page = p
	return q, nil
}

func composeShipments(ss []db.Shipment) []apishipments.Detail {
	resp := make([]apishipments.Detail, 0, len(ss))
	for _, s := range ss {
		resp = append(resp, binding.ComposeShipment(s))
	}
	return resp
}

// ListMyShipmentsHandler lists shipments of the caller.
func ListMyShipmentsHandler(dbshipment db.ShipmentInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := caller(c)
		if err != nil {
			return err
		}
		q, err := parseShipmentQuery(c)
		if err != nil {
			return err
		}
		q.OwnerId = u.Id
		ss, err := dbshipment.Find(c.Request().Context(), q)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, composeShipments(ss))
	}
}

// FindShipmentsHandler lists shipments of everyone, for admins.
func FindShipmentsHandler(dbshipment db.ShipmentInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		q, err := parseShipmentQuery(c)
		if err != nil {
			return err
		}
		ss, err := dbshipment.Find(c.Request().Context(), q)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, composeShipments(ss))
	}
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, db.ErrMissing):
		return apierr.NotFound()
	case errors.Is(err, db.ErrInvalidStatusTransition):
		return apierr.Conflict("the shipment can not move to the status", apierr.WithError(err))
	}
	return apierr.InternalServerError(err)
}

// CancelShipmentHandler cancels a shipment waiting for payment, by its owner.
func CancelShipmentHandler(dbshipment db.ShipmentInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := getVisibleShipment(c, dbshipment, param)
		if err != nil {
			return err
		}
		s, err = dbshipment.Cancel(c.Request().Context(), s.Id, db.TrackingEvent{
			Description: "cancelado pelo cliente",
		})
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return apierr.Conflict(
				"only shipments waiting for payment can be cancelled",
				apierr.WithAdvice("open a support ticket."), apierr.WithError(err),
			)
		} else if err != nil {
			return transitionError(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeShipment(s))
	}
}

// SetShipmentStatusHandler moves a shipment to a status, for admins.
func SetShipmentStatusHandler(dbshipment db.ShipmentInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := apishipments.StatusRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		next, err := db.AsShipmentStatus(req.Status)
		if err != nil {
			return apierr.BadRequest("unknown status", err)
		}
		s, err := dbshipment.SetStatus(c.Request().Context(), c.Param(param), next, db.TrackingEvent{
			Description: strings.TrimSpace(req.Description),
			Location:    strings.TrimSpace(req.Location),
		})
		if err != nil {
			return transitionError(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeShipment(s))
	}
}

// AttachLabelHandler stores a shipping label, for admins.
func AttachLabelHandler(dbshipment db.ShipmentInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := apishipments.LabelRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		if _, err := webhook.ParseURL(req.LabelURL); err != nil {
			return apierr.BadRequest("label_url should be an absolute http(s) URL", err)
		}
		s, err := dbshipment.AttachLabel(
			c.Request().Context(), c.Param(param),
			strings.TrimSpace(req.LabelURL), strings.TrimSpace(req.CarrierTrackingCode),
		)
		if err != nil {
			return transitionError(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeShipment(s))
	}
}

func StatsHandler(dbshipment db.ShipmentInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := dbshipment.Stats(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeStats(st))
	}
}

// TrackingHandler is the public tracking page. It shows no personal data.
func TrackingHandler(dbshipment db.ShipmentInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		code, err := tracking.Normalize(c.Param(param))
		if err != nil {
			return apierr.NotFound()
		}
		s, err := dbshipment.GetByTrackingCode(ctx, code)
		if err != nil {
			return missingOr(err)
		}
		events, err := dbshipment.Events(ctx, s.Id)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeTracking(s, events))
	}
}
