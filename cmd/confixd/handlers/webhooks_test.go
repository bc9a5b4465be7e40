package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/cmd/confixd/handlers"
	httptestutil "github.com/confixenvios/confixenvios-sub003/internal/testutils/http"
	apiwebhooks "github.com/confixenvios/confixenvios-sub003/pkg/api/types/webhooks"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	dbmock "github.com/confixenvios/confixenvios-sub003/pkg/db/mocks"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

func endpointOf(static bool) db.Endpoint {
	return db.Endpoint{
		Id: "ep-1", Name: "n8n", URL: "https://n8n.example.com/hook",
		Events: []webhook.Event{webhook.ShipmentCreated}, Active: true,
		Secret: "whsec_current", Static: static,
		CreatedAt: fixedNow(), UpdatedAt: fixedNow(),
	}
}

func TestCreateEndpointHandler(t *testing.T) {
	type then struct {
		code   int
		events []webhook.Event
		active bool
	}
	for name, testcase := range map[string]struct {
		body string
		then then
	}{
		"with events": {
			body: `{"name": " n8n ", "url": "https://n8n.example.com/hook", "events": ["shipment.created", "payment.confirmed"]}`,
			then: then{code: http.StatusCreated, events: []webhook.Event{webhook.ShipmentCreated, webhook.PaymentConfirmed}, active: true},
		},
		"all events, inactive": {
			body: `{"name": "tms", "url": "http://tms.internal:8080/in", "events": ["*"], "active": false}`,
			then: then{code: http.StatusCreated, events: []webhook.Event{webhook.All}, active: false},
		},
		"unknown event": {
			body: `{"name": "tms", "url": "https://tms.example.com", "events": ["shipment.lost"]}`,
			then: then{code: http.StatusBadRequest},
		},
		"no events": {
			body: `{"name": "tms", "url": "https://tms.example.com", "events": []}`,
			then: then{code: http.StatusBadRequest},
		},
		"relative url": {
			body: `{"name": "tms", "url": "/hook", "events": ["*"]}`,
			then: then{code: http.StatusBadRequest},
		},
		"ftp url": {
			body: `{"name": "tms", "url": "ftp://tms.example.com/hook", "events": ["*"]}`,
			then: then{code: http.StatusBadRequest},
		},
		"no name": {
			body: `{"url": "https://tms.example.com", "events": ["*"]}`,
			then: then{code: http.StatusBadRequest},
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbwebhook := dbmock.NewWebhookInterface()
			dbwebhook.Impl.CreateEndpoint = func(ctx context.Context, ep db.Endpoint) (db.Endpoint, error) {
				ep.Id = "ep-new"
				return ep, nil
			}
			e := echo.New()
			c, rec := httptestutil.Post(
				e, "/api/admin/webhooks", strings.NewReader(testcase.body),
				httptestutil.ContentType("application/json"), signedAs(t, staff),
			)
			err := serve(c, handlers.CreateEndpointHandler(dbwebhook))
			if testcase.then.code != http.StatusCreated {
				wantCode(t, err, testcase.then.code)
				if dbwebhook.Calls.CreateEndpoint.Times() != 0 {
					t.Errorf("endpoint is created")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			ep := dbwebhook.Calls.CreateEndpoint[0]
			if fmt.Sprint(ep.Events) != fmt.Sprint(testcase.then.events) || ep.Active != testcase.then.active {
				t.Errorf("endpoint: %+v", ep)
			}
			if !strings.HasPrefix(ep.Secret, "whsec_") {
				t.Errorf("secret is not generated: %q", ep.Secret)
			}
			resp := decodeBody[apiwebhooks.Endpoint](t, rec)
			if resp.EndpointId != "ep-new" || resp.Secret != ep.Secret {
				t.Errorf("response: %+v", resp)
			}
		})
	}

	t.Run("given secret is used", func(t *testing.T) {
		dbwebhook := dbmock.NewWebhookInterface()
		dbwebhook.Impl.CreateEndpoint = func(ctx context.Context, ep db.Endpoint) (db.Endpoint, error) {
			return ep, nil
		}
		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/admin/webhooks",
			strings.NewReader(`{"name": "tms", "url": "https://tms.example.com", "events": ["*"], "secret": "shared"}`),
			httptestutil.ContentType("application/json"), signedAs(t, staff),
		)
		if err := serve(c, handlers.CreateEndpointHandler(dbwebhook)); err != nil {
			t.Fatal(err)
		}
		if s := dbwebhook.Calls.CreateEndpoint[0].Secret; s != "shared" {
			t.Errorf("secret: %q", s)
		}
	})
}

func TestUpdateEndpointHandler(t *testing.T) {
	t.Run("an empty secret keeps the current one", func(t *testing.T) {
		dbwebhook := dbmock.NewWebhookInterface()
		dbwebhook.Impl.GetEndpoint = func(ctx context.Context, endpointId string) (db.Endpoint, error) {
			return endpointOf(false), nil
		}
		dbwebhook.Impl.UpdateEndpoint = func(ctx context.Context, ep db.Endpoint) (db.Endpoint, error) {
			return ep, nil
		}
		e := echo.New()
		c, _ := httptestutil.Put(
			e, "/api/admin/webhooks/ep-1",
			strings.NewReader(`{"name": "n8n v2", "url": "https://n8n.example.com/v2", "events": ["cte.received"]}`),
			httptestutil.ContentType("application/json"), signedAs(t, staff),
		)
		c.SetParamNames("endpointId")
		c.SetParamValues("ep-1")
		if err := serve(c, handlers.UpdateEndpointHandler(dbwebhook, "endpointId")); err != nil {
			t.Fatal(err)
		}
		ep := dbwebhook.Calls.UpdateEndpoint[0]
		if ep.Id != "ep-1" || ep.Name != "n8n v2" || ep.Secret != "whsec_current" ||
			len(ep.Events) != 1 || ep.Events[0] != webhook.CteReceived {
			t.Errorf("endpoint: %+v", ep)
		}
	})

	t.Run("static endpoints can not be updated", func(t *testing.T) {
		dbwebhook := dbmock.NewWebhookInterface()
		dbwebhook.Impl.GetEndpoint = func(ctx context.Context, endpointId string) (db.Endpoint, error) {
			return endpointOf(true), nil
		}
		e := echo.New()
		c, _ := httptestutil.Put(
			e, "/api/admin/webhooks/ep-1",
			strings.NewReader(`{"name": "x", "url": "https://x.example.com", "events": ["*"]}`),
			httptestutil.ContentType("application/json"), signedAs(t, staff),
		)
		c.SetParamNames("endpointId")
		c.SetParamValues("ep-1")
		wantCode(t, serve(c, handlers.UpdateEndpointHandler(dbwebhook, "endpointId")), http.StatusConflict)
		if dbwebhook.Calls.UpdateEndpoint.Times() != 0 {
			t.Errorf("endpoint is updated")
		}
	})
}

func TestDeleteEndpointHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		deleted error
		code    int
	}{
		"deleted": {code: http.StatusNoContent},
		"missing": {deleted: db.ErrMissing, code: http.StatusNotFound},
		"static":  {deleted: db.ErrConflict, code: http.StatusConflict},
	} {
		t.Run(name, func(t *testing.T) {
			dbwebhook := dbmock.NewWebhookInterface()
			dbwebhook.Impl.DeleteEndpoint = func(ctx context.Context, endpointId string) error {
				return testcase.deleted
			}
			e := echo.New()
			c, rec := httptestutil.Delete(e, "/api/admin/webhooks/ep-1", signedAs(t, staff))
			c.SetParamNames("endpointId")
			c.SetParamValues("ep-1")
			err := serve(c, handlers.DeleteEndpointHandler(dbwebhook, "endpointId"))
			if testcase.code != http.StatusNoContent {
				wantCode(t, err, testcase.code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if rec.Code != http.StatusNoContent {
				t.Errorf("status code = %d", rec.Code)
			}
		})
	}
}

type sender struct {
	send  func(ctx context.Context, url string, secret string, deliveryId string, env webhook.Envelope) (webhook.Result, error)
	calls []webhook.Envelope
}

func (s *sender) Send(ctx context.Context, url string, secret string, deliveryId string, env webhook.Envelope) (webhook.Result, error) {
	s.calls = append(s.calls, env)
	return s.send(ctx, url, secret, deliveryId, env)
}

func TestTestEndpointHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		result webhook.Result
		err    error
		then   apiwebhooks.TestResult
	}{
		"endpoint accepts": {
			result: webhook.Result{StatusCode: http.StatusOK, Body: "ok"},
			then:   apiwebhooks.TestResult{Delivered: true, StatusCode: http.StatusOK, Response: "ok"},
		},
		"endpoint rejects": {
			result: webhook.Result{StatusCode: http.StatusForbidden, Body: "nope"},
			err:    fmt.Errorf("%w: 403", webhook.ErrHookFailed),
			then:   apiwebhooks.TestResult{Delivered: false, StatusCode: http.StatusForbidden, Response: "nope"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbwebhook := dbmock.NewWebhookInterface()
			dbwebhook.Impl.GetEndpoint = func(ctx context.Context, endpointId string) (db.Endpoint, error) {
				return endpointOf(false), nil
			}
			snd := &sender{send: func(ctx context.Context, url string, secret string, deliveryId string, env webhook.Envelope) (webhook.Result, error) {
				if url != "https://n8n.example.com/hook" || secret != "whsec_current" || deliveryId != env.Id {
					t.Errorf("send(%q, %q, %q)", url, secret, deliveryId)
				}
				return testcase.result, testcase.err
			}}
			e := echo.New()
			c, rec := httptestutil.Post(e, "/api/admin/webhooks/ep-1/test", nil, signedAs(t, staff))
			c.SetParamNames("endpointId")
			c.SetParamValues("ep-1")

			if err := serve(c, handlers.TestEndpointHandler(dbwebhook, snd, "endpointId", fixedNow)); err != nil {
				t.Fatal(err)
			}
			if len(snd.calls) != 1 || snd.calls[0].Event != webhook.Ping || snd.calls[0].Id == "" {
				t.Errorf("sent: %+v", snd.calls)
			}
			resp := decodeBody[apiwebhooks.TestResult](t, rec)
			if resp.Delivered != testcase.then.Delivered || resp.StatusCode != testcase.then.StatusCode ||
				resp.Response != testcase.then.Response {
				t.Errorf("response: (actual, expected) = (%+v, %+v)", resp, testcase.then)
			}
			if !resp.Delivered && resp.Error == "" {
				t.Errorf("error is not reported")
			}
		})
	}

	t.Run("unexpected errors are internal server error", func(t *testing.T) {
		dbwebhook := dbmock.NewWebhookInterface()
		dbwebhook.Impl.GetEndpoint = func(ctx context.Context, endpointId string) (db.Endpoint, error) {
			return endpointOf(false), nil
		}
		snd := &sender{send: func(context.Context, string, string, string, webhook.Envelope) (webhook.Result, error) {
			return webhook.Result{}, errors.New("json: unsupported value")
		}}
		e := echo.New()
		c, _ := httptestutil.Post(e, "/api/admin/webhooks/ep-1/test", nil, signedAs(t, staff))
		c.SetParamNames("endpointId")
		c.SetParamValues("ep-1")
		wantCode(
			t, serve(c, handlers.TestEndpointHandler(dbwebhook, snd, "endpointId", fixedNow)),
			http.StatusInternalServerError,
		)
	})
}

func TestDeliveriesHandlers(t *testing.T) {
	delivery := db.Delivery{
		Id: "d-1", EndpointId: "ep-1", Event: webhook.ShipmentCreated,
		Payload: []byte(`{"shipment_id":"s-1"}`), Status: db.DeliveryFailed, Attempts: 8,
		NextAttemptAt: fixedNow(), LastStatusCode: 500, CreatedAt: fixedNow(),
	}

	t.Run("list deliveries of an endpoint", func(t *testing.T) {
		dbwebhook := dbmock.NewWebhookInterface()
		dbwebhook.Impl.GetEndpoint = func(ctx context.Context, endpointId string) (db.Endpoint, error) {
			return endpointOf(false), nil
		}
		dbwebhook.Impl.Deliveries = func(ctx context.Context, endpointId string, page db.Page) ([]db.Delivery, error) {
			return []db.Delivery{delivery}, nil
		}
		e := echo.New()
		c, rec := httptestutil.Get(e, "/api/admin/webhooks/ep-1/deliveries?limit=10", signedAs(t, staff))
		c.SetParamNames("endpointId")
		c.SetParamValues("ep-1")
		if err := serve(c, handlers.ListDeliveriesHandler(dbwebhook, "endpointId")); err != nil {
			t.Fatal(err)
		}
		if call := dbwebhook.Calls.Deliveries[0]; call.EndpointId != "ep-1" || call.Page.Limit != 10 {
			t.Errorf("deliveries: %+v", call)
		}
		resp := decodeBody[[]apiwebhooks.Delivery](t, rec)
		if len(resp) != 1 || resp[0].Status != "failed" || string(resp[0].Payload) != `{"shipment_id":"s-1"}` {
			t.Errorf("response: %+v", resp)
		}
	})

	t.Run("redeliver", func(t *testing.T) {
		dbwebhook := dbmock.NewWebhookInterface()
		dbwebhook.Impl.Redeliver = func(ctx context.Context, deliveryId string) (db.Delivery, error) {
			d := delivery
			d.Status, d.Attempts = db.DeliveryPending, 0
			return d, nil
		}
		e := echo.New()
		c, rec := httptestutil.Post(e, "/api/admin/deliveries/d-1/redeliver", nil, signedAs(t, staff))
		c.SetParamNames("deliveryId")
		c.SetParamValues("d-1")
		if err := serve(c, handlers.RedeliverHandler(dbwebhook, "deliveryId")); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusAccepted {
			t.Errorf("status code = %d", rec.Code)
		}
		if resp := decodeBody[apiwebhooks.Delivery](t, rec); resp.Status != "pending" {
			t.Errorf("response: %+v", resp)
		}
	})

	t.Run("redeliver missing delivery", func(t *testing.T) {
		dbwebhook := dbmock.NewWebhookInterface()
		dbwebhook.Impl.Redeliver = func(ctx context.Context, deliveryId string) (db.Delivery, error) {
			return db.Delivery{}, db.ErrMissing
		}
		e := echo.New()
		c, _ := httptestutil.Post(e, "/api/admin/deliveries/d-x/redeliver", nil, signedAs(t, staff))
		c.SetParamNames("deliveryId")
		c.SetParamValues("d-x")
		wantCode(t, serve(c, handlers.RedeliverHandler(dbwebhook, "deliveryId")), http.StatusNotFound)
	})
}
