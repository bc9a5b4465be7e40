// Package asaas is a client of the Asaas payment API (v3).
//
// Only what the brokerage uses is covered: customers, charges (PIX, boleto and
// credit card) and PIX QR codes.
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	SandboxURL    = "https://sandbox.asaas.com/api/v3"
	ProductionURL = "https://api.asaas.com/v3"
)

// ErrAPI is wrapped by errors which Asaas responded.
var ErrAPI = errors.New("asaas api error")

type BillingType string

const (
	Pix               BillingType = "PIX"
	Boleto            BillingType = "BOLETO"
	CreditCardBilling BillingType = "CREDIT_CARD"
)

// Payment statuses reported by Asaas.
const (
	StatusPending             = "PENDING"
	StatusReceived            = "RECEIVED"
	StatusConfirmed           = "CONFIRMED"
	StatusOverdue             = "OVERDUE"
	StatusRefunded            = "REFUNDED"
	StatusReceivedInCash      = "RECEIVED_IN_CASH"
	StatusAwaitingRiskAnalyse = "AWAITING_RISK_ANALYSIS"
)

type Customer struct {
	Id            string `json:"id,omitempty"`
	Name          string `json:"name"`
	CpfCnpj       string `json:"cpfCnpj"`
	Email         string `json:"email,omitempty"`
	MobilePhone   string `json:"mobilePhone,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	AddressNumber string `json:"addressNumber,omitempty"`
}

type CreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CCV         string `json:"ccv"`
}

type CreditCardHolderInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CpfCnpj       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode"`
	AddressNumber string `json:"addressNumber"`
	Phone         string `json:"phone"`
}

type PaymentRequest struct {
	Customer          string      `json:"customer"`
	BillingType       BillingType `json:"billingType"`
	Value             float64     `json:"value"`
	DueDate           string      `json:"dueDate"`
	Description       string      `json:"description,omitempty"`
	ExternalReference string      `json:"externalReference,omitempty"`

	CreditCard           *CreditCard           `json:"creditCard,omitempty"`
	CreditCardHolderInfo *CreditCardHolderInfo `json:"creditCardHolderInfo,omitempty"`
	RemoteIp             string                `json:"remoteIp,omitempty"`
}

type Payment struct {
	Id                string      `json:"id"`
	Customer          string      `json:"customer"`
	BillingType       BillingType `json:"billingType"`
	Value             float64     `json:"value"`
	Status            string      `json:"status"`
	DueDate           string      `json:"dueDate"`
	InvoiceURL        string      `json:"invoiceUrl"`
	BankSlipURL       string      `json:"bankSlipUrl"`
	ExternalReference string      `json:"externalReference"`
	Deleted           bool        `json:"deleted"`
}

type PixQrCode struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

type ErrorDetail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Error is a failure reported by Asaas.
type Error struct {
	StatusCode int           `json:"-"`
	Errors     []ErrorDetail `json:"errors"`
}

func (e *Error) Error() string {
	msgs := []string{}
	for _, d := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", d.Code, d.Description))
	}
	return fmt.Sprintf("asaas: status %d: %s", e.StatusCode, strings.Join(msgs, "; "))
}

func (e *Error) Unwrap() error {
	return ErrAPI
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client) *Client

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) *Client {
		cl.httpClient = c
		return cl
	}
}

// New creates a client. Empty baseURL means the sandbox.
func New(baseURL string, apiKey string, options ...Option) *Client {
	if baseURL == "" {
		baseURL = SandboxURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range options {
		c = o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "confixenvios")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("asaas: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if err := json.Unmarshal(b, apiErr); err != nil || len(apiErr.Errors) == 0 {
			apiErr.Errors = []ErrorDetail{
				{Code: "unexpected_response", Description: strings.TrimSpace(string(b))},
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("asaas: %s %s: broken response: %w", method, path, err)
	}
	return nil
}

// FindCustomer looks a customer up by CPF/CNPJ. found is false when there are none.
func (c *Client) FindCustomer(ctx context.Context, cpfCnpj string) (cus Customer, found bool, err error) {
	var page struct {
		Data []Customer `json:"data"`
	}
	q := url.Values{"cpfCnpj": []string{cpfCnpj}}
	if err := c.do(ctx, http.MethodGet, "/customers?"+q.Encode(), nil, &page); err != nil {
		return Customer{}, false, err
	}
	if len(page.Data) == 0 {
		return Customer{}, false, nil
	}
	return page.Data[0], true, nil
}

func (c *Client) CreateCustomer(ctx context.Context, cus Customer) (Customer, error) {
	var created Customer
	if err := c.do(ctx, http.MethodPost, "/customers", cus, &created); err != nil {
		return Customer{}, err
	}
	return created, nil
}

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (Payment, error) {
	var created Payment
	if err := c.do(ctx, http.MethodPost, "/payments", req, &created); err != nil {
		return Payment{}, err
	}
	return created, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentId string) (Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentId), nil, &p); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (c *Client) PixQrCode(ctx context.Context, paymentId string) (PixQrCode, error) {
	var qr PixQrCode
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentId)+"/pixQrCode", nil, &qr); err != nil {
		return PixQrCode{}, err
	}
	return qr, nil
}

// Notification is the body of webhooks sent by Asaas.
type Notification struct {
	Id      string  `json:"id"`
	Event   string  `json:"event"`
	Payment Payment `json:"payment"`
}
