package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/pkg/clock"
)

type ScheduleInput struct {
	StationID            uint
	FuelType             domain.FuelType
	SaleDate             time.Time
	StartTime            string
	EndTime              string
	AvailableQuantity    float64
	MaxQuantityPerTicket float64
	MaxTicketsPerDay     int
	IsActive             bool
}

type ScheduleService struct {
	tx        Transactor
	schedules SaleScheduleRepository
	stocks    FuelStockRepository
	clock     clock.Clock
	settings  Settings
}

func NewScheduleService(tx Transactor, schedules SaleScheduleRepository, stocks FuelStockRepository, clk clock.Clock, settings Settings) *ScheduleService {
	return &ScheduleService{
		tx:        tx,
		schedules: schedules,
		stocks:    stocks,
		clock:     clk,
		settings:  settings,
	}
}

func (s *ScheduleService) validate(in ScheduleInput) error {
	if !in.FuelType.Valid() {
		return domain.ErrInvalidFuelType
	}

	start, err := time.Parse(domain.TimeLayout, in.StartTime)
	if err != nil {
		return domain.ErrInvalidTimeRange
	}
	end, err := time.Parse(domain.TimeLayout, in.EndTime)
	if err != nil || !end.After(start) {
		return domain.ErrInvalidTimeRange
	}

	if in.AvailableQuantity <= 0 || in.MaxQuantityPerTicket <= 0 || in.MaxTicketsPerDay < 1 {
		return domain.ErrInvalidSchedule
	}

	if domain.DateOf(in.SaleDate).Before(s.settings.today(s.clock.Now())) {
		return domain.ErrDateInPast
	}

	return nil
}

// checkCapacity compares the window with the station's daily capacity for the
// fuel type. Stations without a stock row are not limited.
func (s *ScheduleService) checkCapacity(ctx context.Context, in ScheduleInput) error {
	stock, err := s.stocks.FindByStationFuel(ctx, in.StationID, in.FuelType)
	if err != nil {
		if isNotFound(err) {
			return nil
		}

		return fmt.Errorf("s.stocks.FindByStationFuel -> %w", err)
	}

	if stock.MaxCapacity > 0 && in.AvailableQuantity > stock.MaxCapacity {
		return domain.ErrAboveDailyCapacity
	}

	return nil
}

func (s *ScheduleService) checkUnique(ctx context.Context, stationID uint, fuelType domain.FuelType, date time.Time, excludeID uint) error {
	exists, err := s.schedules.ExistsActive(ctx, stationID, fuelType, date, excludeID)
	if err != nil {
		return fmt.Errorf("s.schedules.ExistsActive -> %w", err)
	}
	if exists {
		return domain.ErrScheduleExists
	}

	return nil
}

func (s *ScheduleService) Create(ctx context.Context, actor domain.Actor, in ScheduleInput) (domain.SaleSchedule, error) {
	if err := CanManageStation(actor, in.StationID); err != nil {
		return domain.SaleSchedule{}, err
	}
	if err := s.validate(in); err != nil {
		return domain.SaleSchedule{}, err
	}

	in.SaleDate = domain.DateOf(in.SaleDate)
	now := s.clock.Now()

	var created domain.SaleSchedule
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if in.IsActive {
			if err := s.checkUnique(ctx, in.StationID, in.FuelType, in.SaleDate, 0); err != nil {
				return err
			}
		}
		if err := s.checkCapacity(ctx, in); err != nil {
			return err
		}

		var err error
		created, err = s.schedules.Create(ctx, domain.SaleSchedule{
			StationID:            in.StationID,
			FuelType:             in.FuelType,
			SaleDate:             in.SaleDate,
			StartTime:            in.StartTime,
			EndTime:              in.EndTime,
			AvailableQuantity:    in.AvailableQuantity,
			MaxQuantityPerTicket: in.MaxQuantityPerTicket,
			MaxTicketsPerDay:     in.MaxTicketsPerDay,
			IsActive:             in.IsActive,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
		if err != nil {
			return fmt.Errorf("s.schedules.Create -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.SaleSchedule{}, err
	}

	return created, nil
}

// lockUntouched locks a schedule that the actor may manage and that has not
// issued any ticket yet.
func (s *ScheduleService) lockUntouched(ctx context.Context, actor domain.Actor, id uint) (domain.SaleSchedule, error) {
	existing, err := s.schedules.FindByIDForUpdate(ctx, id)
	if err != nil {
		return domain.SaleSchedule{}, fmt.Errorf("s.schedules.FindByIDForUpdate -> %w", err)
	}
	if err = CanManageStation(actor, existing.StationID); err != nil {
		return domain.SaleSchedule{}, err
	}

	count, err := s.schedules.CountTickets(ctx, id)
	if err != nil {
		return domain.SaleSchedule{}, fmt.Errorf("s.schedules.CountTickets -> %w", err)
	}
	if count > 0 {
		return domain.SaleSchedule{}, domain.ErrScheduleHasTickets
	}

	return existing, nil
}

func (s *ScheduleService) Update(ctx context.Context, actor domain.Actor, id uint, in ScheduleInput) (domain.SaleSchedule, error) {
	if err := CanManageStation(actor, in.StationID); err != nil {
		return domain.SaleSchedule{}, err
	}
	if err := s.validate(in); err != nil {
		return domain.SaleSchedule{}, err
	}

	in.SaleDate = domain.DateOf(in.SaleDate)

	var updated domain.SaleSchedule
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.lockUntouched(ctx, actor, id)
		if err != nil {
			return err
		}

		if in.IsActive {
			if err = s.checkUnique(ctx, in.StationID, in.FuelType, in.SaleDate, id); err != nil {
				return err
			}
		}
		if err = s.checkCapacity(ctx, in); err != nil {
			return err
		}

		existing.StationID = in.StationID
		existing.FuelType = in.FuelType
		existing.SaleDate = in.SaleDate
		existing.StartTime = in.StartTime
		existing.EndTime = in.EndTime
		existing.AvailableQuantity = in.AvailableQuantity
		existing.MaxQuantityPerTicket = in.MaxQuantityPerTicket
		existing.MaxTicketsPerDay = in.MaxTicketsPerDay
		existing.IsActive = in.IsActive
		existing.UpdatedAt = s.clock.Now()

		updated, err = s.schedules.Update(ctx, existing)
		if err != nil {
			return fmt.Errorf("s.schedules.Update -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.SaleSchedule{}, err
	}

	return updated, nil
}

func (s *ScheduleService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockUntouched(ctx, actor, id); err != nil {
			return err
		}

		if err := s.schedules.Delete(ctx, id); err != nil {
			return fmt.Errorf("s.schedules.Delete -> %w", err)
		}

		return nil
	})
}

// Toggle flips the active flag. It is allowed on schedules with tickets.
func (s *ScheduleService) Toggle(ctx context.Context, actor domain.Actor, id uint) (domain.SaleSchedule, error) {
	var updated domain.SaleSchedule
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.schedules.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("s.schedules.FindByIDForUpdate -> %w", err)
		}
		if err = CanManageStation(actor, existing.StationID); err != nil {
			return err
		}

		if !existing.IsActive {
			if err = s.checkUnique(ctx, existing.StationID, existing.FuelType, existing.SaleDate, id); err != nil {
				return err
			}
		}

		existing.IsActive = !existing.IsActive
		existing.UpdatedAt = s.clock.Now()

		updated, err = s.schedules.Update(ctx, existing)
		if err != nil {
			return fmt.Errorf("s.schedules.Update -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.SaleSchedule{}, err
	}

	return updated, nil
}

func (s *ScheduleService) Get(ctx context.Context, id uint) (domain.SaleSchedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return domain.SaleSchedule{}, fmt.Errorf("s.schedules.FindByID -> %w", err)
	}

	return schedule, nil
}

func (s *ScheduleService) find(ctx context.Context, filter domain.ScheduleFilter) ([]domain.SaleSchedule, error) {
	schedules, err := s.schedules.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("s.schedules.Find -> %w", err)
	}

	return schedules, nil
}

func (s *ScheduleService) ListByStation(ctx context.Context, stationID uint) ([]domain.SaleSchedule, error) {
	return s.find(ctx, domain.ScheduleFilter{StationID: stationID})
}

func (s *ScheduleService) ListByStationDate(ctx context.Context, stationID uint, date time.Time) ([]domain.SaleSchedule, error) {
	day := domain.DateOf(date)

	return s.find(ctx, domain.ScheduleFilter{StationID: stationID, From: &day, To: &day, ActiveOnly: true})
}

func (s *ScheduleService) ListByStationRange(ctx context.Context, stationID uint, from, to time.Time) ([]domain.SaleSchedule, error) {
	from, to = domain.DateOf(from), domain.DateOf(to)
	if to.Before(from) {
		return nil, domain.ErrInvalidTimeRange
	}

	return s.find(ctx, domain.ScheduleFilter{StationID: stationID, From: &from, To: &to, ActiveOnly: true})
}

// ListAvailable returns the active windows of a day that still have tickets
// and liters to give. fuelType may be empty.
func (s *ScheduleService) ListAvailable(ctx context.Context, stationID uint, date time.Time, fuelType domain.FuelType) ([]domain.SaleSchedule, error) {
	if fuelType != "" && !fuelType.Valid() {
		return nil, domain.ErrInvalidFuelType
	}

	day := domain.DateOf(date)
	schedules, err := s.find(ctx, domain.ScheduleFilter{StationID: stationID, FuelType: fuelType, From: &day, To: &day, ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	available := make([]domain.SaleSchedule, 0, len(schedules))
	for _, schedule := range schedules {
		if schedule.AvailableForSale() && schedule.RemainingTickets() > 0 {
			available = append(available, schedule)
		}
	}

	return available, nil
}

func (s *ScheduleService) PlannedDates(ctx context.Context, stationID uint) ([]time.Time, error) {
	dates, err := s.schedules.PlannedDates(ctx, stationID, s.settings.today(s.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("s.schedules.PlannedDates -> %w", err)
	}

	return dates, nil
}
