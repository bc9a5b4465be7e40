package binding

import (
	"encoding/json"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	apiwebhooks "github.com/confixenvios/confixenvios-sub003/pkg/api/types/webhooks"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

// ComposeEndpoint converts an endpoint. Secrets are shown only when withSecret.
func ComposeEndpoint(ep db.Endpoint, withSecret bool) apiwebhooks.Endpoint {
	events := make([]string, 0, len(ep.Events))
	for _, ev := range ep.Events {
		events = append(events, string(ev))
	}
	secret := ""
	if withSecret {
		secret = ep.Secret
	}
	return apiwebhooks.Endpoint{
		EndpointId: ep.Id,
		Name:       ep.Name,
		URL:        ep.URL,
		Events:     events,
		Active:     ep.Active,
		Secret:     secret,
		Static:     ep.Static,
		CreatedAt:  rfctime.New(ep.CreatedAt),
		UpdatedAt:  rfctime.New(ep.UpdatedAt),
	}
}

func ComposeDelivery(d db.Delivery) apiwebhooks.Delivery {
	payload := json.RawMessage(d.Payload)
	if !json.Valid(payload) {
		payload = json.RawMessage("null")
	}
	return apiwebhooks.Delivery{
		DeliveryId:     d.Id,
		EndpointId:     d.EndpointId,
		Event:          string(d.Event),
		Status:         string(d.Status),
		Attempts:       d.Attempts,
		NextAttemptAt:  rfctime.New(d.NextAttemptAt),
		LastStatusCode: d.LastStatusCode,
		LastResponse:   d.LastResponse,
		LastError:      d.LastError,
		Payload:        payload,
		CreatedAt:      rfctime.New(d.CreatedAt),
		DeliveredAt:    rfctime.Ref(d.DeliveredAt),
	}
}
