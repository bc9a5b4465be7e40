package binding

import (
	apictes "github.com/confixenvios/confixenvios-sub003/pkg/api/types/ctes"
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	"github.com/confixenvios/confixenvios-sub003/pkg/cte"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/money"
)

func ComposeCTe(c db.CTe) apictes.Detail {
	return apictes.Detail{
		AccessKey:    string(c.AccessKey),
		Number:       c.Number,
		Series:       c.Series,
		EmittedAt:    rfctime.Ref(c.EmittedAt),
		ShipmentId:   c.ShipmentId,
		TrackingCode: c.TrackingCode,
		FreightValue: c.FreightValue,
		XMLURL:       c.XMLURL,
		PDFURL:       c.PDFURL,
		Status:       string(c.Status),
		CreatedAt:    rfctime.New(c.CreatedAt),
		UpdatedAt:    rfctime.New(c.UpdatedAt),
	}
}

// BindNotice validates a CT-e pushed in JSON.
//
// Number and series missing in the notice are read from the access key.
func BindNotice(n apictes.Notice) (db.CTe, error) {
	key, err := cte.ParseKey(n.Chave)
	if err != nil {
		return db.CTe{}, err
	}
	status, err := cte.AsStatus(n.Status)
	if err != nil {
		return db.CTe{}, err
	}
	number, series := n.Numero, n.Serie
	if number == "" {
		number = key.Number()
	}
	if series == "" {
		series = key.Series()
	}
	c := db.CTe{
		AccessKey:    key,
		Number:       number,
		Series:       series,
		TrackingCode: n.TrackingCode,
		FreightValue: money.FromReais(n.FreightValue),
		XMLURL:       n.XMLURL,
		PDFURL:       n.PDFURL,
		Status:       status,
	}
	if n.EmittedAt != nil {
		t := n.EmittedAt.Time()
		c.EmittedAt = &t
	}
	return c, nil
}

// BindDocument converts a parsed CT-e XML.
func BindDocument(d cte.Document) db.CTe {
	c := db.CTe{
		AccessKey:    d.AccessKey,
		Number:       d.Number,
		Series:       d.Series,
		TrackingCode: d.TrackingCode,
		FreightValue: d.FreightValue,
		XMLURL:       d.XMLURL,
		PDFURL:       d.PDFURL,
		Status:       d.Status,
	}
	if !d.EmittedAt.IsZero() {
		t := d.EmittedAt
		c.EmittedAt = &t
	}
	return c
}
