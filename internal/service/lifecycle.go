package service

import (
	"context"
	"fmt"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

// UpdateStatus moves a ticket along the lifecycle table. Validation by a
// station manager or administrator stores the QR payload and announces the
// receipt once the change is committed.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, id uint, to domain.TicketStatus) (domain.Ticket, error) {
	if !to.Valid() {
		return domain.Ticket{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()

	var (
		updated   domain.Ticket
		validated bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.tickets.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("s.tickets.FindByIDForUpdate -> %w", err)
		}

		if err = CanTransition(actor, t, to); err != nil {
			return err
		}

		validated = t.Status == domain.StatusPending && to == domain.StatusValidated && isStaff(actor)
		t.Status = to
		t.UpdatedAt = now
		if validated {
			t.QRPayload = t.QRCodePayload()
		}

		updated, err = s.tickets.Update(ctx, t)
		if err != nil {
			return fmt.Errorf("s.tickets.Update -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	if validated {
		publish(s.notifier, receiptReadyEvent(updated, now))
	}

	return updated, nil
}

func (s *TicketService) Serve(ctx context.Context, actor domain.Actor, id uint) (domain.Ticket, error) {
	return s.UpdateStatus(ctx, actor, id, domain.StatusServed)
}

// Delete removes a pending ticket and gives its liters back to the schedule
// it was drawn from. Cancelling through UpdateStatus keeps the liters
// consumed.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.tickets.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("s.tickets.FindByIDForUpdate -> %w", err)
		}

		if err = CanDelete(actor, t); err != nil {
			return err
		}
		if t.Status != domain.StatusPending {
			return domain.ErrTicketNotDeletable
		}

		if t.CountsAgainstQuota() {
			if err = s.schedules.AdjustAvailable(ctx, *t.ScheduleID, t.Quantity); err != nil {
				return fmt.Errorf("s.schedules.AdjustAvailable -> %w", err)
			}
		}

		if err = s.tickets.Delete(ctx, t.ID); err != nil {
			return fmt.Errorf("s.tickets.Delete -> %w", err)
		}

		return nil
	})
}
