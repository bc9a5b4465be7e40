package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	apishipments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/shipments"
	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	"github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/scanner"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	kpgerr "github.com/confixenvios/confixenvios-sub003/pkg/db/postgres/errors"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
	"github.com/confixenvios/confixenvios-sub003/pkg/webhook"
)

// ShipmentColumns are columns of "shipment" read into ShipmentRow.
const ShipmentColumns = `
	"shipment"."shipment_id", "shipment"."owner_id", "shipment"."quote_id",
	"shipment"."tracking_code", "shipment"."status"::text as "status",
	"shipment"."sender", "shipment"."recipient",
	"shipment"."carrier", "shipment"."packages",
	"shipment"."declared_value", "shipment"."total", "shipment"."delivery_days",
	"shipment"."label_url", "shipment"."carrier_tracking_code",
	"shipment"."created_at", "shipment"."updated_at"
`

type ShipmentRow struct {
	ShipmentId          string           `sql:"shipment_id"`
	OwnerId             string           `sql:"owner_id"`
	QuoteId             string           `sql:"quote_id"`
	TrackingCode        string           `sql:"tracking_code"`
	Status              string           `sql:"status"`
	Sender              db.Party         `sql:"sender"`
	Recipient           db.Party         `sql:"recipient"`
	Carrier             string           `sql:"carrier"`
	Packages            []rating.Package `sql:"packages"`
	DeclaredValue       int64            `sql:"declared_value"`
	Total               int64            `sql:"total"`
	DeliveryDays        int32            `sql:"delivery_days"`
	LabelURL            string           `sql:"label_url"`
	CarrierTrackingCode string           `sql:"carrier_tracking_code"`
	CreatedAt           time.Time        `sql:"created_at"`
	UpdatedAt           time.Time        `sql:"updated_at"`
}

func (r ShipmentRow) Shipment() db.Shipment {
	return db.Shipment{
		Id:                  r.ShipmentId,
		OwnerId:             r.OwnerId,
		QuoteId:             r.QuoteId,
		TrackingCode:        r.TrackingCode,
		Status:              db.ShipmentStatus(r.Status),
		Sender:              r.Sender,
		Recipient:           r.Recipient,
		Carrier:             r.Carrier,
		Packages:            r.Packages,
		DeclaredValue:       money.Cents(r.DeclaredValue),
		Total:               money.Cents(r.Total),
		DeliveryDays:        int(r.DeliveryDays),
		LabelURL:            r.LabelURL,
		CarrierTrackingCode: r.CarrierTrackingCode,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

var shipmentScanner = scanner.New[ShipmentRow]()

// QueryShipments reads shipments. query should select ShipmentColumns.
func QueryShipments(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]db.Shipment, error) {
	rows, err := shipmentScanner.QueryAll(ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	ret := make([]db.Shipment, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, r.Shipment())
	}
	return ret, nil
}

// GetShipment reads a shipment by its id, locking it when forUpdate.
func GetShipment(ctx context.Context, conn kpool.Queryer, shipmentId string, forUpdate bool) (db.Shipment, error) {
	return getShipmentBy(ctx, conn, "shipment_id", shipmentId, forUpdate)
}

// GetShipmentByTrackingCode reads a shipment by its tracking code, locking it when forUpdate.
func GetShipmentByTrackingCode(ctx context.Context, conn kpool.Queryer, trackingCode string, forUpdate bool) (db.Shipment, error) {
	return getShipmentBy(ctx, conn, "tracking_code", trackingCode, forUpdate)
}

func getShipmentBy(ctx context.Context, conn kpool.Queryer, column string, value string, forUpdate bool) (db.Shipment, error) {
	lock := ""
	if forUpdate {
		lock = "for update"
	}
	ss, err := QueryShipments(
		ctx, conn,
		fmt.Sprintf(`select %s from "shipment" where "%s" = $1 %s`, ShipmentColumns, column, lock),
		value,
	)
	if err != nil {
		return db.Shipment{}, err
	}
	if len(ss) == 0 {
		return db.Shipment{}, kpgerr.Missing{Table: "shipment", Identity: fmt.Sprintf("%s=%s", column, value)}
	}
	return ss[0], nil
}

// AddEvent records a tracking event. Events without timestamp occur now.
func AddEvent(ctx context.Context, conn kpool.Queryer, shipmentId string, ev db.TrackingEvent) error {
	var at *time.Time
	if !ev.OccurredAt.IsZero() {
		at = &ev.OccurredAt
	}
	_, err := conn.Exec(
		ctx,
		`
		insert into "tracking_event" ("shipment_id", "code", "description", "location", "occurred_at")
		values ($1, $2, $3, $4, coalesce($5, now()))
		`,
		shipmentId, ev.Code, ev.Description, ev.Location, at,
	)
	return err
}

// Transit moves a shipment (which should be locked) to next.
//
// It records a tracking event whose code is next, and enqueues shipment.status_changed.
// ev gives description, location and timestamp of the event.
func Transit(ctx context.Context, conn kpool.Queryer, s db.Shipment, next db.ShipmentStatus, ev db.TrackingEvent) (db.Shipment, error) {
	if err := s.Status.Transition(next); err != nil {
		return db.Shipment{}, err
	}

	ss, err := QueryShipments(
		ctx, conn,
		`
		update "shipment" set "status" = $2, "updated_at" = now()
		where "shipment_id" = $1
		returning `+ShipmentColumns,
		s.Id, string(next),
	)
	if err != nil {
		return db.Shipment{}, err
	}
	if len(ss) == 0 {
		return db.Shipment{}, kpgerr.Missing{Table: "shipment", Identity: s.Id}
	}
	updated := ss[0]

	ev.Code = string(next)
	if err := AddEvent(ctx, conn, s.Id, ev); err != nil {
		return db.Shipment{}, err
	}

	if _, err := Enqueue(ctx, conn, webhook.ShipmentStatusChanged, apishipments.StatusChanged{
		Detail:         binding.ComposeShipment(updated),
		PreviousStatus: string(s.Status),
	}); err != nil {
		return db.Shipment{}, err
	}
	return updated, nil
}

// AttachLabel sets the label of a shipment (which should be locked).
//
// A paid shipment moves to label_generated. A label_generated shipment gets its label
// replaced. Other statuses are ErrInvalidStatusTransition.
func AttachLabel(ctx context.Context, conn kpool.Queryer, current db.Shipment, labelURL string, carrierTrackingCode string) (db.Shipment, error) {
	if current.Status != db.Paid && current.Status != db.LabelGenerated {
		return db.Shipment{}, fmt.Errorf(
			"%w: label for a shipment in %s", db.ErrInvalidStatusTransition, current.Status,
		)
	}

	ss, err := QueryShipments(
		ctx, conn,
		`
		update "shipment" set
			"label_url" = $2,
			"carrier_tracking_code" = coalesce(nullif($3, ''), "carrier_tracking_code"),
			"updated_at" = now()
		where "shipment_id" = $1
		returning `+ShipmentColumns,
		current.Id, labelURL, carrierTrackingCode,
	)
	if err != nil {
		return db.Shipment{}, err
	}
	if len(ss) == 0 {
		return db.Shipment{}, kpgerr.Missing{Table: "shipment", Identity: current.Id}
	}
	labelled := ss[0]

	if current.Status == db.Paid {
		return Transit(ctx, conn, labelled, db.LabelGenerated, db.TrackingEvent{
			Description: "etiqueta gerada",
		})
	}
	if err := AddEvent(ctx, conn, current.Id, db.TrackingEvent{
		Code:        db.EventLabel,
		Description: "etiqueta substituída",
	}); err != nil {
		return db.Shipment{}, err
	}
	return labelled, nil
}
