package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

var errNumberSpaceExhausted = errors.New("could not generate a unique ticket number")

// NewTicketNumber returns an 8 character uppercase code taken from a random UUID.
func NewTicketNumber() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// issuer assigns the order and ticket numbers and persists a ticket. It must
// be called inside a transaction.
type issuer struct {
	tx       Transactor
	tickets  TicketRepository
	numbers  func() string
	attempts int
}

func (i *issuer) issue(ctx context.Context, t domain.Ticket) (domain.Ticket, error) {
	key := fmt.Sprintf("order:%d:%s", t.StationID, t.SupplyDate.Format(domain.DateLayout))
	if err := i.tx.AdvisoryLock(ctx, key); err != nil {
		return domain.Ticket{}, fmt.Errorf("i.tx.AdvisoryLock -> %w", err)
	}

	count, err := i.tickets.CountForStationDate(ctx, t.StationID, t.SupplyDate)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("i.tickets.CountForStationDate -> %w", err)
	}
	t.OrderNumber = domain.FormatOrderNumber(count + 1)

	for attempt := 0; attempt < max(1, i.attempts); attempt++ {
		t.Number = i.numbers()
		if t.Status == domain.StatusValidated {
			t.QRPayload = t.QRCodePayload()
		}

		created, err := i.tickets.Create(ctx, t)
		if errors.Is(err, domain.ErrTicketNumberExists) {
			continue
		}
		if err != nil {
			return domain.Ticket{}, fmt.Errorf("i.tickets.Create -> %w", err)
		}

		return created, nil
	}

	return domain.Ticket{}, errNumberSpaceExhausted
}
