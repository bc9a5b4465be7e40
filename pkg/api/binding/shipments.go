// Package binding converts records of pkg/db into API types, and back.
package binding

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	apishipments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/shipments"
	"github.com/confixenvios/confixenvios-sub003/pkg/cep"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/document"
)

func ComposeAddress(a db.Address) apishipments.Address {
	return apishipments.Address{
		CEP:        a.CEP,
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
	}
}

func BindAddress(a apishipments.Address) db.Address {
	return db.Address{
		CEP:        a.CEP,
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
	}
}

func ComposeParty(p db.Party) apishipments.Party {
	return apishipments.Party{
		Name:     p.Name,
		Document: p.Document,
		Phone:    p.Phone,
		Email:    p.Email,
		Address:  ComposeAddress(p.Address),
	}
}

func BindParty(p apishipments.Party) db.Party {
	return db.Party{
		Name:     p.Name,
		Document: p.Document,
		Phone:    p.Phone,
		Email:    p.Email,
		Address:  BindAddress(p.Address),
	}
}

var ErrInvalidParty = errors.New("invalid sender or recipient")

// ValidateParty checks required fields of a sender or recipient, and
// normalizes its CEP and document.
//
// Errors wrap ErrInvalidParty.
func ValidateParty(role string, p db.Party) (db.Party, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, fmt.Errorf("%w: %s: name is required", ErrInvalidParty, role)
	}
	doc, _, err := document.Normalize(p.Document)
	if err != nil {
		return p, fmt.Errorf("%w: %s: %w", ErrInvalidParty, role, err)
	}
	p.Document = doc

	c, err := cep.Normalize(p.Address.CEP)
	if err != nil {
		return p, fmt.Errorf("%w: %s: %w", ErrInvalidParty, role, err)
	}
	p.Address.CEP = c

	for _, f := range []struct{ name, value string }{
		{"street", p.Address.Street},
		{"number", p.Address.Number},
		{"city", p.Address.City},
		{"state", p.Address.State},
	} {
		if strings.TrimSpace(f.value) == "" {
			return p, fmt.Errorf("%w: %s: address %s is required", ErrInvalidParty, role, f.name)
		}
	}
	p.Address.State = strings.ToUpper(strings.TrimSpace(p.Address.State))
	if len(p.Address.State) != 2 {
		return p, fmt.Errorf("%w: %s: state should be 2 letters (UF)", ErrInvalidParty, role)
	}
	return p, nil
}

func ComposeShipment(s db.Shipment) apishipments.Detail {
	return apishipments.Detail{
		ShipmentId:          s.Id,
		TrackingCode:        s.TrackingCode,
		Status:              string(s.Status),
		QuoteId:             s.QuoteId,
		OwnerId:             s.OwnerId,
		Sender:              ComposeParty(s.Sender),
		Recipient:           ComposeParty(s.Recipient),
		Carrier:             s.Carrier,
		Packages:            s.Packages,
		DeclaredValue:       s.DeclaredValue,
		Total:               s.Total,
		DeliveryDays:        s.DeliveryDays,
		EstimatedDelivery:   rfctime.Date(s.EstimatedDelivery()),
		LabelURL:            s.LabelURL,
		CarrierTrackingCode: s.CarrierTrackingCode,
		CreatedAt:           rfctime.New(s.CreatedAt),
		UpdatedAt:           rfctime.New(s.UpdatedAt),
	}
}

func ComposeEvent(ev db.TrackingEvent) apishipments.Event {
	return apishipments.Event{
		Code:        ev.Code,
		Description: ev.Description,
		Location:    ev.Location,
		OccurredAt:  rfctime.New(ev.OccurredAt),
	}
}

// ComposeTracking is the public view of a shipment.
func ComposeTracking(s db.Shipment, events []db.TrackingEvent) apishipments.Tracking {
	evs := make([]apishipments.Event, 0, len(events))
	for _, ev := range events {
		evs = append(evs, ComposeEvent(ev))
	}
	return apishipments.Tracking{
		TrackingCode:      s.TrackingCode,
		Status:            string(s.Status),
		Carrier:           s.Carrier,
		EstimatedDelivery: rfctime.Date(s.EstimatedDelivery()),
		Events:            evs,
	}
}

// BindTrackingNotice converts a TMS update into a tracking event.
// Events without timestamp occur at now.
func BindTrackingNotice(n apishipments.TrackingNotice, now time.Time) db.TrackingEvent {
	at := now
	if n.OccurredAt != nil {
		at = n.OccurredAt.Time()
	}
	return db.TrackingEvent{
		Code:        n.Status,
		Description: n.Description,
		Location:    n.Location,
		OccurredAt:  at,
	}
}

func ComposeStats(s db.Stats) apishipments.Stats {
	by := map[string]int{}
	for _, st := range db.ShipmentStatuses() {
		by[string(st)] = s.ByStatus[st]
	}
	return apishipments.Stats{
		Total:       s.Total,
		ByStatus:    by,
		PaidRevenue: s.PaidRevenue,
	}
}
