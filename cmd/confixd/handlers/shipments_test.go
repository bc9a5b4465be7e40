package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/cmd/confixd/handlers"
	httptestutil "github.com/confixenvios/confixenvios-sub003/internal/testutils/http"
	apishipments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/shipments"
	"github.com/confixenvios/confixenvios-sub003/pkg/auth"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	dbmock "github.com/confixenvios/confixenvios-sub003/pkg/db/mocks"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

func shipmentBody(quoteId string, senderCEP string, recipientCEP string) string {
	return fmt.Sprintf(`{
		"quote_id": %q,
		"sender": {
			"name": "Loja Exemplo", "document": "390.533.447-05", "phone": "(11) 98765-4321",
			"address": {"cep": %q, "street": "Av. Paulista", "number": "1000", "district": "Bela Vista", "city": "São Paulo", "state": "sp"}
		},
		"recipient": {
			"name": "Cliente Final", "document": "12.345.678/0001-95",
			"address": {"cep": %q, "street": "Av. Rio Branco", "number": "1", "district": "Centro", "city": "Rio de Janeiro", "state": "RJ"}
		}
	}`, quoteId, senderCEP, recipientCEP)
}

func shipmentOf(owner string, status db.ShipmentStatus) db.Shipment {
	return db.Shipment{
		Id: "s-1", OwnerId: owner, QuoteId: "q-1", TrackingCode: "CFX473124829BR", Status: status,
		Carrier: "Jadlog", Total: 4878, DeliveryDays: 3,
		CreatedAt: fixedNow(), UpdatedAt: fixedNow(),
	}
}

func TestCreateShipmentHandler(t *testing.T) {
	openQuote := db.Quote{
		Id: "q-1", OwnerId: alice.Id, Status: db.QuoteOpen,
		Request:   rating.Request{OriginCEP: "01310100", DestinationCEP: "20040020"},
		Option:    rating.Quote{Carrier: "Jadlog", Total: 4878, DeliveryDays: 3},
		ExpiresAt: fixedNow().Add(time.Hour),
	}

	type when struct {
		user    *auth.User
		body    string
		quote   db.Quote
		getErr  error
		created error
	}

	theory := func(when when, code int) func(*testing.T) {
		return func(t *testing.T) {
			dbquote := dbmock.NewQuoteInterface()
			dbquote.Impl.Get = func(ctx context.Context, quoteId string) (db.Quote, error) {
				return when.quote, when.getErr
			}
			dbshipment := dbmock.NewShipmentInterface()
			dbshipment.Impl.Create = func(ctx context.Context, ns db.NewShipment) (db.Shipment, error) {
				if when.created != nil {
					return db.Shipment{}, when.created
				}
				s := shipmentOf(ns.OwnerId, db.PendingPayment)
				s.Sender, s.Recipient = ns.Sender, ns.Recipient
				return s, nil
			}

			e := echo.New()
			opts := []httptestutil.RequestOption{httptestutil.ContentType("application/json")}
			if when.user != nil {
				opts = append(opts, signedAs(t, *when.user))
			}
			c, rec := httptestutil.Post(e, "/api/shipments", strings.NewReader(when.body), opts...)
			err := serve(c, handlers.CreateShipmentHandler(dbquote, dbshipment))

			if code != http.StatusCreated {
				wantCode(t, err, code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if dbshipment.Calls.Create.Times() != 1 {
				t.Fatalf("create is called %d times", dbshipment.Calls.Create.Times())
			}
			ns := dbshipment.Calls.Create[0]
			if ns.OwnerId != when.user.Id || ns.QuoteId != "q-1" {
				t.Errorf("new shipment: %+v", ns)
			}
			if ns.Sender.Document != "39053344705" || ns.Sender.Address.CEP != "01310100" ||
				ns.Sender.Address.State != "SP" || ns.Recipient.Document != "12345678000195" {
				t.Errorf("parties are not normalized: %+v / %+v", ns.Sender, ns.Recipient)
			}

			resp := decodeBody[apishipments.Detail](t, rec)
			if resp.ShipmentId != "s-1" || resp.Status != string(db.PendingPayment) ||
				resp.TrackingCode != "CFX473124829BR" {
				t.Errorf("response: %+v", resp)
			}
		}
	}

	t.Run("the owner of the quote can ship", theory(
		when{user: &alice, body: shipmentBody("q-1", "01310-100", "20040-020"), quote: openQuote},
		http.StatusCreated,
	))

	t.Run("an admin can ship a quote of others", theory(
		when{user: &staff, body: shipmentBody("q-1", "01310100", "20040020"), quote: openQuote},
		http.StatusCreated,
	))

	t.Run("anonymous users can not ship", theory(
		when{body: shipmentBody("q-1", "01310-100", "20040-020"), quote: openQuote},
		http.StatusUnauthorized,
	))

	t.Run("a quote of other users is not found", theory(
		when{user: &bob, body: shipmentBody("q-1", "01310-100", "20040-020"), quote: openQuote},
		http.StatusBadRequest,
	))

	t.Run("a missing quote is a bad request", theory(
		when{user: &alice, body: shipmentBody("q-x", "01310-100", "20040-020"), getErr: db.ErrMissing},
		http.StatusBadRequest,
	))

	t.Run("addresses out of the quoted CEPs are rejected", theory(
		when{user: &alice, body: shipmentBody("q-1", "01310-100", "20040-030"), quote: openQuote},
		http.StatusBadRequest,
	))

	t.Run("a sender without valid document is rejected", theory(
		when{
			user:  &alice,
			body:  strings.Replace(shipmentBody("q-1", "01310-100", "20040-020"), "390.533.447-05", "111.111.111-11", 1),
			quote: openQuote,
		},
		http.StatusBadRequest,
	))

	t.Run("a used quote conflicts", theory(
		when{
			user: &alice, body: shipmentBody("q-1", "01310-100", "20040-020"),
			quote: openQuote, created: db.ErrQuoteUnavailable,
		},
		http.StatusConflict,
	))
}

func TestGetShipmentHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		user *auth.User
		code int
	}{
		"owner":       {user: &alice, code: http.StatusOK},
		"admin":       {user: &staff, code: http.StatusOK},
		"other users": {user: &bob, code: http.StatusNotFound},
		"anonymous":   {code: http.StatusUnauthorized},
	} {
		t.Run(name, func(t *testing.T) {
			dbshipment := dbmock.NewShipmentInterface()
			dbshipment.Impl.Get = func(ctx context.Context, shipmentId string) (db.Shipment, error) {
				return shipmentOf(alice.Id, db.Paid), nil
			}
			e := echo.New()
			opts := []httptestutil.RequestOption{}
			if testcase.user != nil {
				opts = append(opts, signedAs(t, *testcase.user))
			}
			c, rec := httptestutil.Get(e, "/api/shipments/s-1", opts...)
			c.SetParamNames("shipmentId")
			c.SetParamValues("s-1")

			err := serve(c, handlers.GetShipmentHandler(dbshipment, "shipmentId"))
			if testcase.code != http.StatusOK {
				wantCode(t, err, testcase.code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if resp := decodeBody[apishipments.Detail](t, rec); resp.ShipmentId != "s-1" || resp.Status != "paid" {
				t.Errorf("response: %+v", resp)
			}
		})
	}

	t.Run("missing shipment is not found", func(t *testing.T) {
		dbshipment := dbmock.NewShipmentInterface()
		dbshipment.Impl.Get = func(ctx context.Context, shipmentId string) (db.Shipment, error) {
			return db.Shipment{}, db.ErrMissing
		}
		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/shipments/s-x", signedAs(t, staff))
		c.SetParamNames("shipmentId")
		c.SetParamValues("s-x")
		wantCode(t, serve(c, handlers.GetShipmentHandler(dbshipment, "shipmentId")), http.StatusNotFound)
	})
}

func TestListMyShipmentsHandler(t *testing.T) {
	t.Run("it narrows to shipments of the caller with query parameters", func(t *testing.T) {
		dbshipment := dbmock.NewShipmentInterface()
		dbshipment.Impl.Find = func(ctx context.Context, q db.ShipmentQuery) ([]db.Shipment, error) {
			return []db.Shipment{shipmentOf(alice.Id, db.Paid)}, nil
		}
		e := echo.New()
		c, rec := httptestutil.Get(
			e, "/api/shipments?status=paid,in_transit&since=2024-03-01&limit=20&offset=40",
			signedAs(t, alice),
		)
		if err := serve(c, handlers.ListMyShipmentsHandler(dbshipment)); err != nil {
			t.Fatal(err)
		}

		q := dbshipment.Calls.Find[0]
		if q.OwnerId != alice.Id || q.Limit != 20 || q.Offset != 40 {
			t.Errorf("query: %+v", q)
		}
		if len(q.Status) != 2 || q.Status[0] != db.Paid || q.Status[1] != db.InTransit {
			t.Errorf("status: %v", q.Status)
		}
		if q.Since == nil || q.Until != nil {
			t.Fatalf("since/until: %v / %v", q.Since, q.Until)
		}
		if want := time.Date(2024, time.March, 1, 3, 0, 0, 0, time.UTC); !q.Since.Equal(want) {
			t.Errorf("since: (actual, expected) = (%s, %s)", q.Since, want)
		}
		if resp := decodeBody[[]apishipments.Detail](t, rec); len(resp) != 1 {
			t.Errorf("response: %+v", resp)
		}
	})

	for name, query := range map[string]string{
		"unknown status": "status=lost",
		"broken since":   "since=yesterday",
		"too large page": "limit=501",
		"negative skip":  "offset=-1",
	} {
		t.Run("it rejects "+name, func(t *testing.T) {
			dbshipment := dbmock.NewShipmentInterface()
			e := echo.New()
			c, _ := httptestutil.Get(e, "/api/shipments?"+query, signedAs(t, alice))
			wantCode(t, serve(c, handlers.ListMyShipmentsHandler(dbshipment)), http.StatusBadRequest)
			if dbshipment.Calls.Find.Times() != 0 {
				t.Errorf("find is called")
			}
		})
	}
}

func TestFindShipmentsHandler(t *testing.T) {
	dbshipment := dbmock.NewShipmentInterface()
	dbshipment.Impl.Find = func(ctx context.Context, q db.ShipmentQuery) ([]db.Shipment, error) {
		return []db.Shipment{shipmentOf(alice.Id, db.Paid), shipmentOf(bob.Id, db.Delivered)}, nil
	}
	e := echo.New()
	c, rec := httptestutil.Get(e, "/api/admin/shipments?carrier=Jadlog&q=%20loja%20", signedAs(t, staff))
	if err := serve(c, handlers.FindShipmentsHandler(dbshipment)); err != nil {
		t.Fatal(err)
	}
	q := dbshipment.Calls.Find[0]
	if q.OwnerId != "" || q.Carrier != "Jadlog" || q.Text != "loja" {
		t.Errorf("query: %+v", q)
	}
	if resp := decodeBody[[]apishipments.Detail](t, rec); len(resp) != 2 {
		t.Errorf("response: %+v", resp)
	}
}

func TestCancelShipmentHandler(t *testing.T) {
	type then struct {
		code      int
		cancelled bool
	}
	for name, testcase := range map[string]struct {
		user      auth.User
		cancelErr error
		then      then
	}{
		"owner cancels a shipment waiting for payment": {
			user: alice, then: then{code: http.StatusOK, cancelled: true},
		},
		"shipment paid before the cancel takes the lock is not cancelled": {
			user:      alice,
			cancelErr: fmt.Errorf("%w: shipment s-1 is paid", db.ErrInvalidStatusTransition),
			then:      then{code: http.StatusConflict, cancelled: true},
		},
		"shipment deleted meanwhile": {
			user: alice, cancelErr: db.ErrMissing, then: then{code: http.StatusNotFound, cancelled: true},
		},
		"other users can not see the shipment": {
			user: bob, then: then{code: http.StatusNotFound},
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbshipment := dbmock.NewShipmentInterface()
			dbshipment.Impl.Get = func(ctx context.Context, shipmentId string) (db.Shipment, error) {
				return shipmentOf(alice.Id, db.PendingPayment), nil
			}
			dbshipment.Impl.Cancel = func(ctx context.Context, shipmentId string, ev db.TrackingEvent) (db.Shipment, error) {
				if testcase.cancelErr != nil {
					return db.Shipment{}, testcase.cancelErr
				}
				return shipmentOf(alice.Id, db.Cancelled), nil
			}
			e := echo.New()
			c, rec := httptestutil.Post(e, "/api/shipments/s-1/cancel", nil, signedAs(t, testcase.user))
			c.SetParamNames("shipmentId")
			c.SetParamValues("s-1")

			err := serve(c, handlers.CancelShipmentHandler(dbshipment, "shipmentId"))

			if testcase.then.cancelled {
				if call := dbshipment.Calls.Cancel[0]; call.ShipmentId != "s-1" || call.Event.Description == "" {
					t.Errorf("cancel: %+v", call)
				}
			} else if dbshipment.Calls.Cancel.Times() != 0 {
				t.Errorf("cancel is called")
			}
			if dbshipment.Calls.SetStatus.Times() != 0 {
				t.Errorf("status is changed without the pending_payment check")
			}

			if testcase.then.code != http.StatusOK {
				wantCode(t, err, testcase.then.code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if resp := decodeBody[apishipments.Detail](t, rec); resp.Status != "cancelled" {
				t.Errorf("response: %+v", resp)
			}
		})
	}
}

func TestSetShipmentStatusHandler(t *testing.T) {
	type then struct {
		code int
		next db.ShipmentStatus
	}
	for name, testcase := range map[string]struct {
		body  string
		setAs error
		then  then
	}{
		"move with a tracking event": {
			body: `{"status": "in_transit", "description": " coletado ", "location": "São Paulo/SP"}`,
			then: then{code: http.StatusOK, next: db.InTransit},
		},
		"unknown status": {
			body: `{"status": "lost"}`,
			then: then{code: http.StatusBadRequest},
		},
		"unreachable status": {
			body: `{"status": "delivered"}`, setAs: db.ErrInvalidStatusTransition,
			then: then{code: http.StatusConflict, next: db.Delivered},
		},
		"missing shipment": {
			body: `{"status": "delivered"}`, setAs: db.ErrMissing,
			then: then{code: http.StatusNotFound, next: db.Delivered},
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbshipment := dbmock.NewShipmentInterface()
			dbshipment.Impl.SetStatus = func(ctx context.Context, shipmentId string, next db.ShipmentStatus, ev db.TrackingEvent) (db.Shipment, error) {
				if testcase.setAs != nil {
					return db.Shipment{}, testcase.setAs
				}
				return shipmentOf(alice.Id, next), nil
			}
			e := echo.New()
			c, _ := httptestutil.Put(
				e, "/api/admin/shipments/s-1/status", strings.NewReader(testcase.body),
				httptestutil.ContentType("application/json"), signedAs(t, staff),
			)
			c.SetParamNames("shipmentId")
			c.SetParamValues("s-1")

			err := serve(c, handlers.SetShipmentStatusHandler(dbshipment, "shipmentId"))
			if testcase.then.code != http.StatusOK {
				wantCode(t, err, testcase.then.code)
			} else if err != nil {
				t.Fatal(err)
			}
			if testcase.then.next == "" {
				if dbshipment.Calls.SetStatus.Times() != 0 {
					t.Errorf("status is changed")
				}
				return
			}
			call := dbshipment.Calls.SetStatus[0]
			if call.Next != testcase.then.next {
				t.Errorf("next: %s", call.Next)
			}
			if testcase.then.code == http.StatusOK && (call.Event.Description != "coletado" || call.Event.Location != "São Paulo/SP") {
				t.Errorf("event: %+v", call.Event)
			}
		})
	}
}

func TestAttachLabelHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		body string
		code int
	}{
		"label with carrier code": {
			body: `{"label_url": "https://tms.example.com/labels/1.pdf", "carrier_tracking_code": "JD123"}`,
			code: http.StatusOK,
		},
		"relative url": {body: `{"label_url": "/labels/1.pdf"}`, code: http.StatusBadRequest},
		"no url":       {body: `{}`, code: http.StatusBadRequest},
	} {
		t.Run(name, func(t *testing.T) {
			dbshipment := dbmock.NewShipmentInterface()
			dbshipment.Impl.AttachLabel = func(ctx context.Context, shipmentId string, labelURL string, code string) (db.Shipment, error) {
				s := shipmentOf(alice.Id, db.LabelGenerated)
				s.LabelURL, s.CarrierTrackingCode = labelURL, code
				return s, nil
			}
			e := echo.New()
			c, rec := httptestutil.Put(
				e, "/api/admin/shipments/s-1/label", strings.NewReader(testcase.body),
				httptestutil.ContentType("application/json"), signedAs(t, staff),
			)
			c.SetParamNames("shipmentId")
			c.SetParamValues("s-1")

			err := serve(c, handlers.AttachLabelHandler(dbshipment, "shipmentId"))
			if testcase.code != http.StatusOK {
				wantCode(t, err, testcase.code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			resp := decodeBody[apishipments.Detail](t, rec)
			if resp.Status != "label_generated" || resp.CarrierTrackingCode != "JD123" {
				t.Errorf("response: %+v", resp)
			}
		})
	}
}

func TestTrackingHandler(t *testing.T) {
	t.Run("it shows events without personal data", func(t *testing.T) {
		dbshipment := dbmock.NewShipmentInterface()
		dbshipment.Impl.GetByTrackingCode = func(ctx context.Context, code string) (db.Shipment, error) {
			s := shipmentOf(alice.Id, db.InTransit)
			s.Sender.Name = "Loja Exemplo"
			return s, nil
		}
		dbshipment.Impl.Events = func(ctx context.Context, shipmentId string) ([]db.TrackingEvent, error) {
			return []db.TrackingEvent{
				{Code: db.EventCreated, OccurredAt: fixedNow()},
				{Code: string(db.InTransit), Location: "Cajamar/SP", OccurredAt: fixedNow().Add(time.Hour)},
			}, nil
		}
		e := echo.New()
		c, rec := httptestutil.Get(e, "/api/tracking/cfx473124829br")
		c.SetParamNames("trackingCode")
		c.SetParamValues("cfx473124829br")

		if err := serve(c, handlers.TrackingHandler(dbshipment, "trackingCode")); err != nil {
			t.Fatal(err)
		}
		if dbshipment.Calls.GetByTrackingCode[0] != "CFX473124829BR" {
			t.Errorf("tracking code: %v", dbshipment.Calls.GetByTrackingCode)
		}
		if strings.Contains(rec.Body.String(), "Loja Exemplo") {
			t.Errorf("personal data is shown: %s", rec.Body.String())
		}
		resp := decodeBody[apishipments.Tracking](t, rec)
		if resp.Status != "in_transit" || len(resp.Events) != 2 || resp.Events[1].Location != "Cajamar/SP" {
			t.Errorf("response: %+v", resp)
		}
	})

	t.Run("a malformed code is not found", func(t *testing.T) {
		dbshipment := dbmock.NewShipmentInterface()
		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/tracking/CFX473124820BR")
		c.SetParamNames("trackingCode")
		c.SetParamValues("CFX473124820BR")
		wantCode(t, serve(c, handlers.TrackingHandler(dbshipment, "trackingCode")), http.StatusNotFound)
	})
}
