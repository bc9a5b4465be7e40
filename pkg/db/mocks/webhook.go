package mocks

import (
	"context"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

type WebhookInterface struct {
	Impl struct {
		Endpoints      func(ctx context.Context) ([]db.Endpoint, error)
		GetEndpoint    func(ctx context.Context, endpointId string) (db.Endpoint, error)
		CreateEndpoint func(ctx context.Context, endpoint db.Endpoint) (db.Endpoint, error)
		UpdateEndpoint func(ctx context.Context, endpoint db.Endpoint) (db.Endpoint, error)
		DeleteEndpoint func(ctx context.Context, endpointId string) error
		SyncStatic     func(ctx context.Context, urls []string, secret string) error
		Enqueue        func(ctx context.Context, event webhook.Event, payload []byte) (int, error)
		Deliveries     func(ctx context.Context, endpointId string, page db.Page) ([]db.Delivery, error)
		Redeliver      func(ctx context.Context, deliveryId string) (db.Delivery, error)
		PopDue         func(ctx context.Context, now time.Time, send func(db.Endpoint, db.Delivery) db.Outcome) (bool, error)
	}
	Calls struct {
		Endpoints      CallLog[struct{}]
		GetEndpoint    CallLog[string]
		CreateEndpoint CallLog[db.Endpoint]
		UpdateEndpoint CallLog[db.Endpoint]
		DeleteEndpoint CallLog[string]
		SyncStatic     CallLog[struct {
			Urls   []string
			Secret string
		}]
		Enqueue CallLog[struct {
			Event   webhook.Event
			Payload []byte
		}]
		Deliveries CallLog[struct {
			EndpointId string
			Page       db.Page
		}]
		Redeliver CallLog[string]
		PopDue    CallLog[time.Time]
	}
}

func NewWebhookInterface() *WebhookInterface {
	return &WebhookInterface{}
}

var _ db.WebhookInterface = &WebhookInterface{}

func (m *WebhookInterface) Endpoints(ctx context.Context) ([]db.Endpoint, error) {
	m.Calls.Endpoints = append(m.Calls.Endpoints, struct{}{})
	if m.Impl.Endpoints == nil {
		notImplemented()
	}
	return m.Impl.Endpoints(ctx)
}

func (m *WebhookInterface) GetEndpoint(ctx context.Context, endpointId string) (db.Endpoint, error) {
	m.Calls.GetEndpoint = append(m.Calls.GetEndpoint, endpointId)
	if m.Impl.GetEndpoint == nil {
		notImplemented()
	}
	return m.Impl.GetEndpoint(ctx, endpointId)
}

func (m *WebhookInterface) CreateEndpoint(ctx context.Context, endpoint db.Endpoint) (db.Endpoint, error) {
	m.Calls.CreateEndpoint = append(m.Calls.CreateEndpoint, endpoint)
	if m.Impl.CreateEndpoint == nil {
		notImplemented()
	}
	return m.Impl.CreateEndpoint(ctx, endpoint)
}

func (m *WebhookInterface) UpdateEndpoint(ctx context.Context, endpoint db.Endpoint) (db.Endpoint, error) {
	m.Calls.UpdateEndpoint = append(m.Calls.UpdateEndpoint, endpoint)
	if m.Impl.UpdateEndpoint == nil {
		notImplemented()
	}
	return m.Impl.UpdateEndpoint(ctx, endpoint)
}

func (m *WebhookInterface) DeleteEndpoint(ctx context.Context, endpointId string) error {
	m.Calls.DeleteEndpoint = append(m.Calls.DeleteEndpoint, endpointId)
	if m.Impl.DeleteEndpoint == nil {
		notImplemented()
	}
	return m.Impl.DeleteEndpoint(ctx, endpointId)
}

func (m *WebhookInterface) SyncStatic(ctx context.Context, urls []string, secret string) error {
	m.Calls.SyncStatic = append(m.Calls.SyncStatic, struct {
		Urls   []string
		Secret string
	}{Urls: urls, Secret: secret})
	if m.Impl.SyncStatic == nil {
		notImplemented()
	}
	return m.Impl.SyncStatic(ctx, urls, secret)
}

func (m *WebhookInterface) Enqueue(ctx context.Context, event webhook.Event, payload []byte) (int, error) {
	m.Calls.Enqueue = append(m.Calls.Enqueue, struct {
		Event   webhook.Event
		Payload []byte
	}{Event: event, Payload: payload})
	if m.Impl.Enqueue == nil {
		notImplemented()
	}
	return m.Impl.Enqueue(ctx, event, payload)
}

func (m *WebhookInterface) Deliveries(ctx context.Context, endpointId string, page db.Page) ([]db.Delivery, error) {
	m.Calls.Deliveries = append(m.Calls.Deliveries, struct {
		EndpointId string
		Page       db.Page
	}{EndpointId: endpointId, Page: page})
	if m.Impl.Deliveries == nil {
		notImplemented()
	}
	return m.Impl.Deliveries(ctx, endpointId, page)
}

func (m *WebhookInterface) Redeliver(ctx context.Context, deliveryId string) (db.Delivery, error) {
	m.Calls.Redeliver = append(m.Calls.Redeliver, deliveryId)
	if m.Impl.Redeliver == nil {
		notImplemented()
	}
	return m.Impl.Redeliver(ctx, deliveryId)
}

func (m *WebhookInterface) PopDue(ctx context.Context, now time.Time, send func(db.Endpoint, db.Delivery) db.Outcome) (bool, error) {
	m.Calls.PopDue = append(m.Calls.PopDue, now)
	if m.Impl.PopDue == nil {
		notImplemented()
	}
	return m.Impl.PopDue(ctx, now, send)
}
