package mocks

import (
	"context"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

type ShipmentInterface struct {
	Impl struct {
		Create            func(ctx context.Context, ns db.NewShipment) (db.Shipment, error)
		Get               func(ctx context.Context, shipmentId string) (db.Shipment, error)
		GetByTrackingCode func(ctx context.Context, trackingCode string) (db.Shipment, error)
		Find              func(ctx context.Context, query db.ShipmentQuery) ([]db.Shipment, error)
		Events            func(ctx context.Context, shipmentId string) ([]db.TrackingEvent, error)
		SetStatus         func(ctx context.Context, shipmentId string, next db.ShipmentStatus, event db.TrackingEvent) (db.Shipment, error)
		Cancel            func(ctx context.Context, shipmentId string, event db.TrackingEvent) (db.Shipment, error)
		AttachLabel       func(ctx context.Context, shipmentId string, labelURL string, carrierTrackingCode string) (db.Shipment, error)
		Track             func(ctx context.Context, trackingCode string, event db.TrackingEvent) (db.Shipment, error)
		Stats             func(ctx context.Context) (db.Stats, error)
		CancelStale       func(ctx context.Context, createdBefore time.Time) ([]string, error)
	}
	Calls struct {
		Create            CallLog[db.NewShipment]
		Get               CallLog[string]
		GetByTrackingCode CallLog[string]
		Find              CallLog[db.ShipmentQuery]
		Events            CallLog[string]
		SetStatus         CallLog[struct {
			ShipmentId string
			Next       db.ShipmentStatus
			Event      db.TrackingEvent
		}]
		Cancel CallLog[struct {
			ShipmentId string
			Event      db.TrackingEvent
		}]
		AttachLabel CallLog[struct {
			ShipmentId          string
			LabelURL            string
			CarrierTrackingCode string
		}]
		Track CallLog[struct {
			TrackingCode string
			Event        db.TrackingEvent
		}]
		Stats       CallLog[struct{}]
		CancelStale CallLog[time.Time]
	}
}

func NewShipmentInterface() *ShipmentInterface {
	return &ShipmentInterface{}
}

var _ db.ShipmentInterface = &ShipmentInterface{}

func (m *ShipmentInterface) Create(ctx context.Context, ns db.NewShipment) (db.Shipment, error) {
	m.Calls.Create = append(m.Calls.Create, ns)
	if m.Impl.Create == nil {
		notImplemented()
	}
	return m.Impl.Create(ctx, ns)
}

func (m *ShipmentInterface) Get(ctx context.Context, shipmentId string) (db.Shipment, error) {
	m.Calls.Get = append(m.Calls.Get, shipmentId)
	if m.Impl.Get == nil {
		notImplemented()
	}
	return m.Impl.Get(ctx, shipmentId)
}

func (m *ShipmentInterface) GetByTrackingCode(ctx context.Context, trackingCode string) (db.Shipment, error) {
	m.Calls.GetByTrackingCode = append(m.Calls.GetByTrackingCode, trackingCode)
	if m.Impl.GetByTrackingCode == nil {
		notImplemented()
	}
	return m.Impl.GetByTrackingCode(ctx, trackingCode)
}

func (m *ShipmentInterface) Find(ctx context.Context, query db.ShipmentQuery) ([]db.Shipment, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		notImplemented()
	}
	return m.Impl.Find(ctx, query)
}

func (m *ShipmentInterface) Events(ctx context.Context, shipmentId string) ([]db.TrackingEvent, error) {
	m.Calls.Events = append(m.Calls.Events, shipmentId)
	if m.Impl.Events == nil {
		notImplemented()
	}
	return m.Impl.Events(ctx, shipmentId)
}

func (m *ShipmentInterface) SetStatus(ctx context.Context, shipmentId string, next db.ShipmentStatus, event db.TrackingEvent) (db.Shipment, error) {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		ShipmentId string
		Next       db.ShipmentStatus
		Event      db.TrackingEvent
	}{ShipmentId: shipmentId, Next: next, Event: event})
	if m.Impl.SetStatus == nil {
		notImplemented()
	}
	return m.Impl.SetStatus(ctx, shipmentId, next, event)
}

func (m *ShipmentInterface) Cancel(ctx context.Context, shipmentId string, event db.TrackingEvent) (db.Shipment, error) {
	m.Calls.Cancel = append(m.Calls.Cancel, struct {
		ShipmentId string
		Event      db.TrackingEvent
	}{ShipmentId: shipmentId, Event: event})
	if m.Impl.Cancel == nil {
		notImplemented()
	}
	return m.Impl.Cancel(ctx, shipmentId, event)
}

func (m *ShipmentInterface) AttachLabel(ctx context.Context, shipmentId string, labelURL string, carrierTrackingCode string) (db.Shipment, error) {
	m.Calls.AttachLabel = append(m.Calls.AttachLabel, struct {
		ShipmentId          string
		LabelURL            string
		CarrierTrackingCode string
	}{ShipmentId: shipmentId, LabelURL: labelURL, CarrierTrackingCode: carrierTrackingCode})
	if m.Impl.AttachLabel == nil {
		notImplemented()
	}
	return m.Impl.AttachLabel(ctx, shipmentId, labelURL, carrierTrackingCode)
}

func (m *ShipmentInterface) Track(ctx context.Context, trackingCode string, event db.TrackingEvent) (db.Shipment, error) {
	m.Calls.Track = append(m.Calls.Track, struct {
		TrackingCode string
		Event        db.TrackingEvent
	}{TrackingCode: trackingCode, Event: event})
	if m.Impl.Track == nil {
		notImplemented()
	}
	return m.Impl.Track(ctx, trackingCode, event)
}

func (m *ShipmentInterface) Stats(ctx context.Context) (db.Stats, error) {
	m.Calls.Stats = append(m.Calls.Stats, struct{}{})
	if m.Impl.Stats == nil {
		notImplemented()
	}
	return m.Impl.Stats(ctx)
}

func (m *ShipmentInterface) CancelStale(ctx context.Context, createdBefore time.Time) ([]string, error) {
	m.Calls.CancelStale = append(m.Calls.CancelStale, createdBefore)
	if m.Impl.CancelStale == nil {
		notImplemented()
	}
	return m.Impl.CancelStale(ctx, createdBefore)
}
