package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

type TicketRequest struct {
	StationID uint
	FuelType  domain.FuelType
	Quantity  float64
	// Date defaults to today.
	Date *time.Time
}

type CashTicketRequest struct {
	Citizen    domain.Citizen
	StationID  uint
	FuelType   domain.FuelType
	Quantity   float64
	AmountPaid float64
	Date       *time.Time
}

func validateFuelQuantity(fuelType domain.FuelType, quantity float64) error {
	if !fuelType.Valid() {
		return domain.ErrInvalidFuelType
	}
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	return nil
}

func (s *TicketService) supplyDate(now time.Time, requested *time.Time) (time.Time, error) {
	today := s.settings.today(now)
	if requested == nil {
		return today, nil
	}

	date := domain.DateOf(*requested)
	if date.Before(today) {
		return time.Time{}, domain.ErrDateInPast
	}

	return date, nil
}

// checkQuota applies the schedule limits in order: per ticket cap, tickets
// left, liters left.
func checkQuota(schedule domain.SaleSchedule, quantity float64) error {
	if quantity > schedule.MaxQuantityPerTicket {
		return domain.ErrQuantityAboveTicketLimit
	}
	if schedule.RemainingTickets() <= 0 {
		return domain.ErrNoTicketsLeft
	}
	if schedule.RemainingQuantity() < quantity {
		return domain.ErrNotEnoughQuota
	}

	return nil
}

// CreateTicket books quantity liters for the calling citizen on the first
// active schedule of the station, fuel type and date. The duplicate check,
// quota check and decrement happen in one transaction holding the citizen
// lock and the schedule row locks.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, req TicketRequest) (domain.Ticket, error) {
	if err := CanRequestTicket(actor); err != nil {
		return domain.Ticket{}, err
	}
	if err := validateFuelQuantity(req.FuelType, req.Quantity); err != nil {
		return domain.Ticket{}, err
	}

	now := s.clock.Now()
	date, err := s.supplyDate(now, req.Date)
	if err != nil {
		return domain.Ticket{}, err
	}

	citizen := actor.Citizen()

	var created domain.Ticket
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.guardOpenTicket(ctx, citizen); err != nil {
			return err
		}

		candidates, err := s.schedules.FindActiveForUpdate(ctx, req.StationID, req.FuelType, date)
		if err != nil {
			return fmt.Errorf("s.schedules.FindActiveForUpdate -> %w", err)
		}
		if len(candidates) == 0 {
			return domain.ErrNoActiveSchedule
		}
		schedule := candidates[0]

		if err = checkQuota(schedule, req.Quantity); err != nil {
			return err
		}

		if err = s.schedules.AdjustAvailable(ctx, schedule.ID, -req.Quantity); err != nil {
			return fmt.Errorf("s.schedules.AdjustAvailable -> %w", err)
		}

		created, err = s.issuer.issue(ctx, domain.Ticket{
			StationID:  req.StationID,
			ScheduleID: &schedule.ID,
			FuelType:   req.FuelType,
			Quantity:   req.Quantity,
			Status:     domain.StatusPending,
			Citizen:    citizen,
			SupplyDate: date,
			ExpiresAt:  now.Add(s.settings.validity()),
			CreatedAt:  now,
			UpdatedAt:  now,
		})

		return err
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	publish(s.notifier, newTicketEvent(created, now))

	return created, nil
}

// CreateCashTicket issues an already validated ticket to a walk-in citizen
// who paid at the counter. It consults the station stock but does not draw
// from any sale schedule.
func (s *TicketService) CreateCashTicket(ctx context.Context, actor domain.Actor, req CashTicketRequest) (domain.Ticket, error) {
	if err := CanManageStation(actor, req.StationID); err != nil {
		return domain.Ticket{}, err
	}
	if err := validateFuelQuantity(req.FuelType, req.Quantity); err != nil {
		return domain.Ticket{}, err
	}
	if req.Citizen.Email == "" || req.Citizen.FirstName == "" || req.Citizen.LastName == "" {
		return domain.Ticket{}, domain.ErrMissingContact
	}
	if req.AmountPaid < 0 {
		return domain.Ticket{}, domain.ErrInvalidPrice
	}

	now := s.clock.Now()
	date, err := s.supplyDate(now, req.Date)
	if err != nil {
		return domain.Ticket{}, err
	}

	citizen := req.Citizen
	citizen.UserID = nil
	amount := req.AmountPaid

	var created domain.Ticket
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.guardOpenTicket(ctx, citizen); err != nil {
			return err
		}

		stock, err := s.stocks.FindByStationFuel(ctx, req.StationID, req.FuelType)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrStationStockAbsent
			}

			return fmt.Errorf("s.stocks.FindByStationFuel -> %w", err)
		}
		if stock.Available < req.Quantity {
			return domain.ErrCashStockTooLow
		}

		created, err = s.issuer.issue(ctx, domain.Ticket{
			StationID:  req.StationID,
			FuelType:   req.FuelType,
			Quantity:   req.Quantity,
			AmountPaid: &amount,
			Status:     domain.StatusValidated,
			Citizen:    citizen,
			SupplyDate: date,
			ExpiresAt:  now.Add(s.settings.validity()),
			CashSale:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		})

		return err
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	publish(s.notifier, receiptReadyEvent(created, now))

	return created, nil
}

// guardOpenTicket serializes ticket creation per citizen and rejects a
// citizen who already holds an open ticket.
func (s *TicketService) guardOpenTicket(ctx context.Context, citizen domain.Citizen) error {
	if err := s.tx.AdvisoryLock(ctx, citizen.LockKey()); err != nil {
		return fmt.Errorf("s.tx.AdvisoryLock -> %w", err)
	}

	open, err := s.tickets.HasOpenTicket(ctx, citizen)
	if err != nil {
		return fmt.Errorf("s.tickets.HasOpenTicket -> %w", err)
	}
	if open {
		return domain.ErrOpenTicketExists
	}

	return nil
}
