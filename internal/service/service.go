package service

import (
	"context"
	"errors"
	"time"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

// Transactor runs fn in one database transaction. Repository calls made with
// the context passed to fn take part in it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	AdvisoryLock(ctx context.Context, key string) error
}

type TicketRepository interface {
	Create(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
	FindByID(ctx context.Context, id uint) (domain.Ticket, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.Ticket, error)
	FindByNumber(ctx context.Context, number string) (domain.Ticket, error)
	HasOpenTicket(ctx context.Context, citizen domain.Citizen) (bool, error)
	CountForStationDate(ctx context.Context, stationID uint, date time.Time) (int64, error)
	Update(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
	Delete(ctx context.Context, id uint) error
	FindExpirable(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
	Find(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error)
}

type SaleScheduleRepository interface {
	Create(ctx context.Context, schedule domain.SaleSchedule) (domain.SaleSchedule, error)
	Update(ctx context.Context, schedule domain.SaleSchedule) (domain.SaleSchedule, error)
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (domain.SaleSchedule, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.SaleSchedule, error)
	FindActiveForUpdate(ctx context.Context, stationID uint, fuelType domain.FuelType, date time.Time) ([]domain.SaleSchedule, error)
	FindRenewalCandidatesForUpdate(ctx context.Context, stationID uint, fuelType domain.FuelType, from, to time.Time) ([]domain.SaleSchedule, error)
	ExistsActive(ctx context.Context, stationID uint, fuelType domain.FuelType, date time.Time, excludeID uint) (bool, error)
	CountTickets(ctx context.Context, id uint) (int64, error)
	AdjustAvailable(ctx context.Context, id uint, delta float64) error
	Find(ctx context.Context, filter domain.ScheduleFilter) ([]domain.SaleSchedule, error)
	PlannedDates(ctx context.Context, stationID uint, from time.Time) ([]time.Time, error)
}

type FuelStockRepository interface {
	Create(ctx context.Context, stock domain.FuelStock) (domain.FuelStock, error)
	Update(ctx context.Context, stock domain.FuelStock) (domain.FuelStock, error)
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (domain.FuelStock, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.FuelStock, error)
	FindByStationFuel(ctx context.Context, stationID uint, fuelType domain.FuelType) (domain.FuelStock, error)
	FindByStation(ctx context.Context, stationID uint, availableOnly bool) ([]domain.FuelStock, error)
	CreateMovement(ctx context.Context, movement domain.FuelMovement) (domain.FuelMovement, error)
	FindMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.FuelMovement, error)
}

// Settings holds the ticket lifecycle durations.
type Settings struct {
	ValidityDays       int
	RenewalWindowDays  int
	FallbackOffsetDays int
	NumberAttempts     int
	// Location is the zone calendar dates are taken in.
	Location *time.Location
}

func DefaultSettings() Settings {
	return Settings{
		ValidityDays:       5,
		RenewalWindowDays:  7,
		FallbackOffsetDays: 7,
		NumberAttempts:     10,
		Location:           time.Local,
	}
}

func (s Settings) today(now time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}

	return domain.DateOf(now.In(loc))
}

func (s Settings) validity() time.Duration {
	return time.Duration(s.ValidityDays) * 24 * time.Hour
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
