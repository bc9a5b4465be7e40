package webhooks

import (
	"encoding/json"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
)

type Endpoint struct {
	EndpointId string          `json:"endpoint_id"`
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	Events     []string        `json:"events"`
	Active     bool            `json:"active"`
	Secret     string          `json:"secret,omitempty"`
	Static     bool            `json:"static"`
	CreatedAt  rfctime.RFC3339 `json:"created_at"`
	UpdatedAt  rfctime.RFC3339 `json:"updated_at"`
}

// EndpointRequest is the body of POST and PUT /api/admin/webhooks.
type EndpointRequest struct {
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Events []string `json:"events"`

	// Active defaults to true.
	Active *bool `json:"active,omitempty"`

	// Secret is generated when empty on creation, kept when empty on update.
	Secret string `json:"secret,omitempty"`
}

type Delivery struct {
	DeliveryId     string           `json:"delivery_id"`
	EndpointId     string           `json:"endpoint_id"`
	Event          string           `json:"event"`
	Status         string           `json:"status"`
	Attempts       int              `json:"attempts"`
	NextAttemptAt  rfctime.RFC3339  `json:"next_attempt_at"`
	LastStatusCode int              `json:"last_status_code,omitempty"`
	LastResponse   string           `json:"last_response,omitempty"`
	LastError      string           `json:"last_error,omitempty"`
	Payload        json.RawMessage  `json:"payload"`
	CreatedAt      rfctime.RFC3339  `json:"created_at"`
	DeliveredAt    *rfctime.RFC3339 `json:"delivered_at,omitempty"`
}

// TestResult is the answer of POST /api/admin/webhooks/:id/test.
type TestResult struct {
	Delivered  bool   `json:"delivered"`
	StatusCode int    `json:"status_code,omitempty"`
	Response   string `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
}
