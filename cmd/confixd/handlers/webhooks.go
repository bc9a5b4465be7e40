package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	apiwebhooks "github.com/confixenvios/confixenvios-sub003/pkg/api/types/webhooks"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// Sender sends an envelope to an endpoint. It is webhook.Sender.
type Sender interface {
	Send(ctx context.Context, url string, secret string, deliveryId string, env webhook.Envelope) (webhook.Result, error)
}

var _ Sender = webhook.Sender{}

// bindEndpoint validates a request into an endpoint.
//
// When the request has no secret, the secret of base is kept.
func bindEndpoint(req apiwebhooks.EndpointRequest, base db.Endpoint) (db.Endpoint, error) {
	ep := base
	ep.Name = strings.TrimSpace(req.Name)
	if ep.Name == "" {
		return ep, apierr.BadRequest("name is required", nil)
	}

	u, err := webhook.ParseURL(strings.TrimSpace(req.URL))
	if err != nil {
		return ep, apierr.BadRequest("url should be an absolute http or https URL", err)
	}
	ep.URL = u.String()

	if len(req.Events) == 0 {
		return ep, apierr.BadRequest(`events is required. "*" subscribes all events`, nil)
	}
	ep.Events = make([]webhook.Event, 0, len(req.Events))
	for _, e := range req.Events {
		ev, err := webhook.AsEvent(strings.TrimSpace(e))
		if err != nil {
			return ep, apierr.BadRequest("unknown event: "+e, err)
		}
		ep.Events = append(ep.Events, ev)
	}

	ep.Active = true
	if req.Active != nil {
		ep.Active = *req.Active
	}

	if s := strings.TrimSpace(req.Secret); s != "" {
		ep.Secret = s
	}
	if ep.Secret == "" {
		s, err := webhook.NewSecret()
		if err != nil {
			return ep, apierr.InternalServerError(err)
		}
		ep.Secret = s
	}
	return ep, nil
}

func staticOr(err error) error {
	switch {
	case errors.Is(err, db.ErrMissing):
		return apierr.NotFound()
	case errors.Is(err, db.ErrConflict):
		return apierr.Conflict(
			"the endpoint is static",
			apierr.WithAdvice("edit the configuration file of loops to change static hooks."),
			apierr.WithError(err),
		)
	}
	return apierr.InternalServerError(err)
}

func ListEndpointsHandler(dbwebhook db.WebhookInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		eps, err := dbwebhook.Endpoints(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apiwebhooks.Endpoint, 0, len(eps))
		for _, ep := range eps {
			resp = append(resp, binding.ComposeEndpoint(ep, false))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// GetEndpointHandler shows an endpoint with its secret.
func GetEndpointHandler(dbwebhook db.WebhookInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ep, err := dbwebhook.GetEndpoint(c.Request().Context(), c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeEndpoint(ep, true))
	}
}

func CreateEndpointHandler(dbwebhook db.WebhookInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := apiwebhooks.EndpointRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		ep, err := bindEndpoint(req, db.Endpoint{})
		if err != nil {
			return err
		}
		created, err := dbwebhook.CreateEndpoint(c.Request().Context(), ep)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusCreated, binding.ComposeEndpoint(created, true))
	}
}

func UpdateEndpointHandler(dbwebhook db.WebhookInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		req := apiwebhooks.EndpointRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		current, err := dbwebhook.GetEndpoint(ctx, c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		if current.Static {
			return staticOr(db.ErrConflict)
		}
		ep, err := bindEndpoint(req, current)
		if err != nil {
			return err
		}
		updated, err := dbwebhook.UpdateEndpoint(ctx, ep)
		if err != nil {
			return staticOr(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeEndpoint(updated, true))
	}
}

func DeleteEndpointHandler(dbwebhook db.WebhookInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := dbwebhook.DeleteEndpoint(c.Request().Context(), c.Param(param)); err != nil {
			return staticOr(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// TestEndpointHandler sends a ping to an endpoint and reports how it answered.
//
// Pings are not recorded as deliveries.
func TestEndpointHandler(dbwebhook db.WebhookInterface, sender Sender, param string, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ep, err := dbwebhook.GetEndpoint(ctx, c.Param(param))
		if err != nil {
			return missingOr(err)
		}

		data, err := json.Marshal(map[string]string{
			"endpoint_id": ep.Id,
			"message":     "ping from confix envios",
		})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		env := webhook.Envelope{
			Id:        uuid.NewString(),
			Event:     webhook.Ping,
			CreatedAt: now(),
			Data:      data,
		}

		res, err := sender.Send(ctx, ep.URL, ep.Secret, env.Id, env)
		resp := apiwebhooks.TestResult{
			Delivered:  err == nil,
			StatusCode: res.StatusCode,
			Response:   res.Body,
		}
		if err != nil {
			if !errors.Is(err, webhook.ErrHookFailed) {
				return apierr.InternalServerError(err)
			}
			resp.Error = err.Error()
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func ListDeliveriesHandler(dbwebhook db.WebhookInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		p, err := page(c)
		if err != nil {
			return err
		}
		ep, err := dbwebhook.GetEndpoint(ctx, c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		ds, err := dbwebhook.Deliveries(ctx, ep.Id, p)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		resp := make([]apiwebhooks.Delivery, 0, len(ds))
		for _, d := range ds {
			resp = append(resp, binding.ComposeDelivery(d))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// RedeliverHandler queues a delivery again, to be sent by the dispatch loop.
func RedeliverHandler(dbwebhook db.WebhookInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := dbwebhook.Redeliver(c.Request().Context(), c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		return c.JSON(http.StatusAccepted, binding.ComposeDelivery(d))
	}
}
