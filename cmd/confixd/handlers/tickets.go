package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/binding"
	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
	apitickets "github.com/confixenvios/confixenvios-sub003/pkg/api/types/tickets"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

// CreateTicketHandler opens a support ticket. A shipment, if any, should be the caller's.
func CreateTicketHandler(dbticket db.TicketInterface, dbshipment db.ShipmentInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := caller(c)
		if err != nil {
			return err
		}

		req := apitickets.CreateRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		nt := db.NewTicket{
			OwnerId:    u.Id,
			ShipmentId: strings.TrimSpace(req.ShipmentId),
			Subject:    strings.TrimSpace(req.Subject),
			Body:       strings.TrimSpace(req.Message),
		}
		if nt.Subject == "" || nt.Body == "" {
			return apierr.BadRequest("subject and message are required", nil)
		}
		if nt.Priority, err = db.AsTicketPriority(strings.TrimSpace(req.Priority)); err != nil {
			return apierr.BadRequest(`priority should be one of "low", "normal" or "high"`, err)
		}
		if nt.ShipmentId != "" {
			s, err := dbshipment.Get(ctx, nt.ShipmentId)
			if err != nil && !errors.Is(err, db.ErrMissing) {
				return apierr.InternalServerError(err)
			}
			if err != nil || (!u.IsAdmin() && s.OwnerId != u.Id) {
				return apierr.BadRequest("shipment is not found", err)
			}
		}

		t, err := dbticket.Create(ctx, nt)
		if err != nil {
			if errors.Is(err, db.ErrMissing) {
				return apierr.BadRequest("shipment is not found", err)
			}
			return apierr.InternalServerError(err)
		}
		_, msgs, err := dbticket.Get(ctx, t.Id)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusCreated, binding.ComposeTicket(t, msgs))
	}
}

func parseTicketQuery(c echo.Context) (db.TicketQuery, error) {
	q := db.TicketQuery{}
	if st := c.QueryParam("status"); st != "" {
		for _, s := range strings.Split(st, ",") {
			status, err := db.AsTicketStatus(strings.TrimSpace(s))
			if err != nil {
				return q, apierr.BadRequest("unknown status", err)
			}
			q.Status = append(q.Status, status)
		}
	}
	p, err := page(c)
	if err != nil {
		return q, err
	}
	q.Page = p
	return q, nil
}

func findTickets(c echo.Context, dbticket db.TicketInterface, q db.TicketQuery) error {
	ts, err := dbticket.Find(c.Request().Context(), q)
	if err != nil {
		return apierr.InternalServerError(err)
	}
	resp := make([]apitickets.Detail, 0, len(ts))
	for _, t := range ts {
		resp = append(resp, binding.ComposeTicket(t, nil))
	}
	return c.JSON(http.StatusOK, resp)
}

// ListMyTicketsHandler lists tickets of the caller.
func ListMyTicketsHandler(dbticket db.TicketInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := caller(c)
		if err != nil {
			return err
		}
		q, err := parseTicketQuery(c)
		if err != nil {
			return err
		}
		q.OwnerId = u.Id
		return findTickets(c, dbticket, q)
	}
}

// FindTicketsHandler lists tickets of everyone, for admins.
func FindTicketsHandler(dbticket db.TicketInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		q, err := parseTicketQuery(c)
		if err != nil {
			return err
		}
		return findTickets(c, dbticket, q)
	}
}

// GetTicketHandler shows a ticket with messages, to its owner and admins.
func GetTicketHandler(dbticket db.TicketInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := caller(c)
		if err != nil {
			return err
		}
		t, msgs, err := dbticket.Get(c.Request().Context(), c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		if !u.IsAdmin() && t.OwnerId != u.Id {
			return apierr.NotFound()
		}
		return c.JSON(http.StatusOK, binding.ComposeTicket(t, msgs))
	}
}

// AddMessageHandler posts a message to a ticket, by its owner or staff.
func AddMessageHandler(dbticket db.TicketInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := caller(c)
		if err != nil {
			return err
		}
		req := apitickets.MessageRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		body := strings.TrimSpace(req.Body)
		if body == "" {
			return apierr.BadRequest("body is required", nil)
		}

		t, _, err := dbticket.Get(ctx, c.Param(param))
		if err != nil {
			return missingOr(err)
		}
		if !u.IsAdmin() && t.OwnerId != u.Id {
			return apierr.NotFound()
		}

		m, err := dbticket.AddMessage(ctx, db.TicketMessage{
			TicketId:  t.Id,
			AuthorId:  u.Id,
			FromStaff: u.IsAdmin() && t.OwnerId != u.Id,
			Body:      body,
		})
		if err != nil {
			switch {
			case errors.Is(err, db.ErrTicketClosed):
				return apierr.Conflict(
					"the ticket is closed", apierr.WithAdvice("open a new ticket."), apierr.WithError(err),
				)
			case errors.Is(err, db.ErrMissing):
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusCreated, binding.ComposeMessage(m))
	}
}

// SetTicketStatusHandler changes the status of a ticket, for admins.
func SetTicketStatusHandler(dbticket db.TicketInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := apitickets.StatusRequest{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		status, err := db.AsTicketStatus(strings.TrimSpace(req.Status))
		if err != nil {
			return apierr.BadRequest("unknown status", err)
		}
		t, err := dbticket.SetStatus(c.Request().Context(), c.Param(param), status)
		if err != nil {
			return missingOr(err)
		}
		return c.JSON(http.StatusOK, binding.ComposeTicket(t, nil))
	}
}
