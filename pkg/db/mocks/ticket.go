package mocks

import (
	"context"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

type TicketInterface struct {
	Impl struct {
		Create     func(ctx context.Context, nt db.NewTicket) (db.Ticket, error)
		Get        func(ctx context.Context, ticketId string) (db.Ticket, []db.TicketMessage, error)
		Find       func(ctx context.Context, query db.TicketQuery) ([]db.Ticket, error)
		AddMessage func(ctx context.Context, msg db.TicketMessage) (db.TicketMessage, error)
		SetStatus  func(ctx context.Context, ticketId string, status db.TicketStatus) (db.Ticket, error)
	}
	Calls struct {
		Create     CallLog[db.NewTicket]
		Get        CallLog[string]
		Find       CallLog[db.TicketQuery]
		AddMessage CallLog[db.TicketMessage]
		SetStatus  CallLog[struct {
			TicketId string
			Status   db.TicketStatus
		}]
	}
}

func NewTicketInterface() *TicketInterface {
	return &TicketInterface{}
}

var _ db.TicketInterface = &TicketInterface{}

func (m *TicketInterface) Create(ctx context.Context, nt db.NewTicket) (db.Ticket, error) {
	m.Calls.Create = append(m.Calls.Create, nt)
	if m.Impl.Create == nil {
		notImplemented()
	}
	return m.Impl.Create(ctx, nt)
}

func (m *TicketInterface) Get(ctx context.Context, ticketId string) (db.Ticket, []db.TicketMessage, error) {
	m.Calls.Get = append(m.Calls.Get, ticketId)
	if m.Impl.Get == nil {
		notImplemented()
	}
	return m.Impl.Get(ctx, ticketId)
}

func (m *TicketInterface) Find(ctx context.Context, query db.TicketQuery) ([]db.Ticket, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		notImplemented()
	}
	return m.Impl.Find(ctx, query)
}

func (m *TicketInterface) AddMessage(ctx context.Context, msg db.TicketMessage) (db.TicketMessage, error) {
	m.Calls.AddMessage = append(m.Calls.AddMessage, msg)
	if m.Impl.AddMessage == nil {
		notImplemented()
	}
	return m.Impl.AddMessage(ctx, msg)
}

func (m *TicketInterface) SetStatus(ctx context.Context, ticketId string, status db.TicketStatus) (db.Ticket, error) {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		TicketId string
		Status   db.TicketStatus
	}{TicketId: ticketId, Status: status})
	if m.Impl.SetStatus == nil {
		notImplemented()
	}
	return m.Impl.SetStatus(ctx, ticketId, status)
}
