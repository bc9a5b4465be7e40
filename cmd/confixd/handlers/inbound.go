package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	apictes "github.com/confixenvios/confixenvios-sub003/pkg/api/types/ctes"
	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	apishipments "github.com/confixenvios/confixenvios-sub003/pkg/api/types/shipments"
	"github.com/confixenvios/confixenvios-sub003/pkg/cte"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/tracking"
)

// InboundHeader carries the token shared with the CT-e issuer and the TMS.
const InboundHeader = "X-Webhook-Token"

// xmlLimit caps the size of CT-e XML documents.
const xmlLimit = 4 << 20

func isXML(c echo.Context) bool {
	mt, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil {
		return false
	}
	return mt == echo.MIMEApplicationXML || mt == echo.MIMETextXML || strings.HasSuffix(mt, "+xml")
}

// readCTe reads a CT-e from the request, in XML or in JSON.
func readCTe(c echo.Context) (db.CTe, error) {
	if isXML(c) {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, xmlLimit))
		if err != nil {
			return db.CTe{}, apierr.BadRequest("can not read the document", err)
		}
		doc, err := cte.ParseXML(body)
		if err != nil {
			return db.CTe{}, apierr.BadRequest("send a cteProc or CTe document", err)
		}
		return binding.BindDocument(doc), nil
	}

	n := apictes.Notice{}
	if err := decodeJSON(c, &n); err != nil {
		return db.CTe{}, err
	}
	doc, err := binding.BindNotice(n)
	if err != nil {
		if errors.Is(err, cte.ErrInvalidAccessKey) {
			return db.CTe{}, apierr.BadRequest("chave should be a 44 digits CT-e access key", err)
		}
		return db.CTe{}, apierr.BadRequest("check status of the document", err)
	}
	return doc, nil
}

// CTeWebhookHandler receives CT-e issued for shipments.
//
// Responds 201 for a new document, 200 for an update of a known one.
func CTeWebhookHandler(dbcte db.CTeInterface, token string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := checkToken(c, InboundHeader, token); err != nil {
			return err
		}
		doc, err := readCTe(c)
		if err != nil {
			return err
		}
		if doc.TrackingCode != "" {
			if code, err := tracking.Normalize(doc.TrackingCode); err == nil {
				doc.TrackingCode = code
			}
		}

		stored, isNew, err := dbcte.Upsert(c.Request().Context(), doc)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if stored.ShipmentId == "" {
			c.Logger().Infof("cte: %s is not linked to any shipment (tracking code %q)", stored.AccessKey, stored.TrackingCode)
		}

		status := http.StatusOK
		if isNew {
			status = http.StatusCreated
		}
		return c.JSON(status, binding.ComposeCTe(stored))
	}
}

func composeCTes(cs []db.CTe) []apictes.Detail {
	resp := make([]apictes.Detail, 0, len(cs))
	for _, d := range cs {
		resp = append(resp, binding.ComposeCTe(d))
	}
	return resp
}

// FindCTesHandler lists CT-e, for admins. "unlinked=true" narrows to documents without shipment.
func FindCTesHandler(dbcte db.CTeInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := page(c)
		if err != nil {
			return err
		}
		q := db.CTeQuery{Page: p}
		switch c.QueryParam("unlinked") {
		case "", "false":
		case "true":
			q.Unlinked = true
		default:
			return apierr.BadRequest(`unlinked should be "true" or "false"`, nil)
		}
		cs, err := dbcte.Find(c.Request().Context(), q)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, composeCTes(cs))
	}
}

// ShipmentCTesHandler lists CT-e of a shipment, for its owner and admins.
func ShipmentCTesHandler(dbshipment db.ShipmentInterface, dbcte db.CTeInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := getVisibleShipment(c, dbshipment, param)
		if err != nil {
			return err
		}
		cs, err := dbcte.Find(c.Request().Context(), db.CTeQuery{ShipmentId: s.Id})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, composeCTes(cs))
	}
}

// TrackingWebhookHandler receives tracking updates from the TMS.
func TrackingWebhookHandler(dbshipment db.ShipmentInterface, token string, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := checkToken(c, InboundHeader, token); err != nil {
			return err
		}
		n := apishipments.TrackingNotice{}
		if err := decodeJSON(c, &n); err != nil {
			return err
		}
		code, err := tracking.Normalize(n.TrackingCode)
		if err != nil {
			return apierr.BadRequest("tracking_code should be like CFX123456789BR", err)
		}
		n.Status = strings.ToLower(strings.TrimSpace(n.Status))
		if n.Status == "" {
			return apierr.BadRequest("status is required", nil)
		}
		n.Description = strings.TrimSpace(n.Description)
		n.Location = strings.TrimSpace(n.Location)

		s, err := dbshipment.Track(c.Request().Context(), code, binding.BindTrackingNotice(n, now()))
		if err != nil {
			return missingOr(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeShipment(s))
	}
}
