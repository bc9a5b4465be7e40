package asaas_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/confixenvios/confixenvios-sub003/pkg/payment/asaas"
	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
)

func TestClient(t *testing.T) {
	var created asaas.PaymentRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cpfCnpj") == "39053344705" {
			w.Write([]byte(`{"totalCount":1,"data":[{"id":"cus_1","name":"Loja Exemplo","cpfCnpj":"39053344705"}]}`))
			return
		}
		w.Write([]byte(`{"totalCount":0,"data":[]}`))
	})
	mux.HandleFunc("POST /customers", func(w http.ResponseWriter, r *http.Request) {
		var c asaas.Customer
		json.NewDecoder(r.Body).Decode(&c)
		c.Id = "cus_new"
		json.NewEncoder(w).Encode(c)
	})
	mux.HandleFunc("POST /payments", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
			t.Error(err)
		}
		if created.Value <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":[{"code":"invalid_value","description":"Valor inválido"}]}`))
			return
		}
		w.Write([]byte(`{"id":"pay_1","status":"PENDING","billingType":"PIX","value":48.78,"invoiceUrl":"https://sandbox.asaas.com/i/pay_1"}`))
	})
	mux.HandleFunc("GET /payments/pay_1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"pay_1","status":"RECEIVED","billingType":"PIX","value":48.78}`))
	})
	mux.HandleFunc("GET /payments/pay_1/pixQrCode", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"encodedImage":"iVBORw0KGgo=","payload":"00020126580014br.gov.bcb.pix","expirationDate":"2024-03-05 23:59:59"}`))
	})
	mux.HandleFunc("GET /payments/pay_broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	})

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("access_token") != "$aact_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	defer svr.Close()

	ctx := context.Background()
	testee := asaas.New(svr.URL+"/", "$aact_test")

	t.Run("FindCustomer", func(t *testing.T) {
		cus, found, err := testee.FindCustomer(ctx, "39053344705")
		if err != nil || !found || cus.Id != "cus_1" {
			t.Errorf("FindCustomer = %+v, %v, %v", cus, found, err)
		}
		_, found, err = testee.FindCustomer(ctx, "11144477735")
		if err != nil || found {
			t.Errorf("FindCustomer(unknown) = %v, %v", found, err)
		}
	})

	t.Run("CreateCustomer", func(t *testing.T) {
		cus := try.To(testee.CreateCustomer(ctx, asaas.Customer{Name: "Maria", CpfCnpj: "11144477735"})).OrFatal(t)
		if cus.Id != "cus_new" || cus.Name != "Maria" {
			t.Errorf("CreateCustomer = %+v", cus)
		}
	})

	t.Run("CreatePayment", func(t *testing.T) {
		p := try.To(testee.CreatePayment(ctx, asaas.PaymentRequest{
			Customer:          "cus_1",
			BillingType:       asaas.Pix,
			Value:             48.78,
			DueDate:           "2024-03-05",
			ExternalReference: "shipment-1",
		})).OrFatal(t)
		if p.Id != "pay_1" || p.Status != asaas.StatusPending || p.InvoiceURL == "" {
			t.Errorf("CreatePayment = %+v", p)
		}
		if created.ExternalReference != "shipment-1" || created.BillingType != asaas.Pix {
			t.Errorf("sent = %+v", created)
		}
	})

	t.Run("CreatePayment rejected", func(t *testing.T) {
		_, err := testee.CreatePayment(ctx, asaas.PaymentRequest{Customer: "cus_1", BillingType: asaas.Pix})
		var apiErr *asaas.Error
		if !errors.As(err, &apiErr) || !errors.Is(err, asaas.ErrAPI) {
			t.Fatalf("err = %v", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest || apiErr.Errors[0].Code != "invalid_value" {
			t.Errorf("api error = %+v", apiErr)
		}
	})

	t.Run("GetPayment and PixQrCode", func(t *testing.T) {
		p := try.To(testee.GetPayment(ctx, "pay_1")).OrFatal(t)
		if p.Status != asaas.StatusReceived {
			t.Errorf("GetPayment = %+v", p)
		}
		qr := try.To(testee.PixQrCode(ctx, "pay_1")).OrFatal(t)
		if qr.Payload == "" || qr.EncodedImage == "" {
			t.Errorf("PixQrCode = %+v", qr)
		}
	})

	t.Run("non JSON failure", func(t *testing.T) {
		_, err := testee.GetPayment(ctx, "pay_broken")
		var apiErr *asaas.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v", err)
		}
		if apiErr.StatusCode != http.StatusBadGateway || apiErr.Errors[0].Description != "upstream down" {
			t.Errorf("api error = %+v", apiErr)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		_, _, err := asaas.New(svr.URL, "wrong").FindCustomer(ctx, "39053344705")
		if !errors.Is(err, asaas.ErrAPI) {
			t.Errorf("err = %v", err)
		}
	})
}
