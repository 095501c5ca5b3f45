package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

const publishTimeout = 10 * time.Second

// Notifier delivers ticket events to the notification side. Delivery is best
// effort.
type Notifier interface {
	Publish(ctx context.Context, event domain.Event) error
}

func receiptPath(ticketID uint) string {
	return fmt.Sprintf("/api/v1/tickets/%d/receipt", ticketID)
}

func newTicketEvent(t domain.Ticket, at time.Time) domain.Event {
	return domain.Event{
		Type:       domain.EventManagerNewTicket,
		StationID:  t.StationID,
		Ticket:     t,
		OccurredAt: at,
	}
}

func receiptReadyEvent(t domain.Ticket, at time.Time) domain.Event {
	return domain.Event{
		Type:        domain.EventCitizenReceiptReady,
		StationID:   t.StationID,
		Ticket:      t,
		ReceiptPath: receiptPath(t.ID),
		OccurredAt:  at,
	}
}

// publish hands the event to n in the background. Failures are logged and
// never reach the caller.
func publish(n Notifier, event domain.Event) {
	if n == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("notifier panicked", zap.Any("panic", r), zap.String("event", string(event.Type)))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := n.Publish(ctx, event); err != nil {
			zap.L().Error("failed to publish ticket event",
				zap.String("event", string(event.Type)),
				zap.String("ticket_number", event.Ticket.Number),
				zap.Error(err),
			)
		}
	}()
}
