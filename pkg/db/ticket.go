package db

import (
	"context"
	"fmt"
	"time"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

func AsTicketStatus(s string) (TicketStatus, error) {
	switch st := TicketStatus(s); st {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return st, nil
	}
	return "", fmt.Errorf("unknown ticket status: %q", s)
}

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
)

// AsTicketPriority parses priorities. Empty means normal.
func AsTicketPriority(s string) (TicketPriority, error) {
	switch p := TicketPriority(s); p {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown ticket priority: %q", s)
}

type Ticket struct {
	Id         string
	OwnerId    string
	ShipmentId string
	Subject    string
	Status     TicketStatus
	Priority   TicketPriority
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type TicketMessage struct {
	Id        int64
	TicketId  string
	AuthorId  string
	FromStaff bool
	Body      string
	CreatedAt time.Time
}

type NewTicket struct {
	OwnerId    string
	ShipmentId string
	Subject    string
	Priority   TicketPriority

	// Body is the first message.
	Body string
}

type TicketQuery struct {
	// OwnerId narrows to tickets of the user. Empty means everyone.
	OwnerId string

	Status []TicketStatus

	Page
}

type TicketInterface interface {
	// Create opens a ticket with its first message, and enqueues ticket.created.
	//
	// Error: ErrMissing if ShipmentId is given and not found.
	Create(ctx context.Context, nt NewTicket) (Ticket, error)

	// Get returns a ticket with its messages, oldest first.
	//
	// Error: ErrMissing if no such ticket.
	Get(ctx context.Context, ticketId string) (Ticket, []TicketMessage, error)

	// Find lists tickets, recently updated first.
	Find(ctx context.Context, q TicketQuery) ([]Ticket, error)

	// AddMessage appends a message.
	//
	// A message from the owner reopens a resolved ticket.
	// A message from staff moves an open ticket to in_progress.
	//
	// Error:
	//
	// - ErrMissing: no such ticket.
	//
	// - ErrTicketClosed: the ticket is closed.
	AddMessage(ctx context.Context, msg TicketMessage) (TicketMessage, error)

	// SetStatus changes the status of a ticket.
	//
	// Error: ErrMissing if no such ticket.
	SetStatus(ctx context.Context, ticketId string, status TicketStatus) (Ticket, error)
}
