package binding

import (
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
	apitickets "github.com/confixenvios/confixenvios-sub003/pkg/api/types/tickets"
	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

func ComposeTicket(t db.Ticket, messages []db.TicketMessage) apitickets.Detail {
	var msgs []apitickets.Message
	for _, m := range messages {
		msgs = append(msgs, ComposeMessage(m))
	}
	return apitickets.Detail{
		TicketId:   t.Id,
		OwnerId:    t.OwnerId,
		ShipmentId: t.ShipmentId,
		Subject:    t.Subject,
		Status:     string(t.Status),
		Priority:   string(t.Priority),
		CreatedAt:  rfctime.New(t.CreatedAt),
		UpdatedAt:  rfctime.New(t.UpdatedAt),
		Messages:   msgs,
	}
}

func ComposeMessage(m db.TicketMessage) apitickets.Message {
	return apitickets.Message{
		MessageId: m.Id,
		AuthorId:  m.AuthorId,
		FromStaff: m.FromStaff,
		Body:      m.Body,
		CreatedAt: rfctime.New(m.CreatedAt),
	}
}
