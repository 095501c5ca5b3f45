package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/repository/dao"
)

var (
	ErrScheduleNotFound = dao.ErrScheduleNotFound
	ErrScheduleExists   = dao.ErrScheduleExists
)

type SaleScheduleDAO interface {
	Insert(ctx context.Context, schedule dao.SaleSchedule) (dao.SaleSchedule, error)
	Update(ctx context.Context, schedule dao.SaleSchedule) (dao.SaleSchedule, error)
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (dao.SaleScheduleWithCounts, error)
	FindByIDForUpdate(ctx context.Context, id uint) (dao.SaleScheduleWithCounts, error)
	FindActiveForUpdate(ctx context.Context, stationID uint, fuelType string, date time.Time) ([]dao.SaleScheduleWithCounts, error)
	FindRenewalCandidatesForUpdate(ctx context.Context, stationID uint, fuelType string, from, to time.Time) ([]dao.SaleScheduleWithCounts, error)
	ExistsActive(ctx context.Context, stationID uint, fuelType string, date time.Time, excludeID uint) (bool, error)
	CountTickets(ctx context.Context, id uint) (int64, error)
	AdjustAvailable(ctx context.Context, id uint, delta float64) error
	Find(ctx context.Context, filter domain.ScheduleFilter) ([]dao.SaleScheduleWithCounts, error)
	PlannedDates(ctx context.Context, stationID uint, from time.Time) ([]time.Time, error)
}

type SaleScheduleRepository struct {
	dao SaleScheduleDAO
}

func NewSaleScheduleRepository(dao SaleScheduleDAO) *SaleScheduleRepository {
	return &SaleScheduleRepository{
		dao: dao,
	}
}

func (r *SaleScheduleRepository) Create(ctx context.Context, schedule domain.SaleSchedule) (domain.SaleSchedule, error) {
	created, err := r.dao.Insert(ctx, r.domainToDAO(schedule))
	if err != nil {
		return domain.SaleSchedule{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(dao.SaleScheduleWithCounts{SaleSchedule: created}), nil
}

func (r *SaleScheduleRepository) Update(ctx context.Context, schedule domain.SaleSchedule) (domain.SaleSchedule, error) {
	updated, err := r.dao.Update(ctx, r.domainToDAO(schedule))
	if err != nil {
		return domain.SaleSchedule{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(dao.SaleScheduleWithCounts{SaleSchedule: updated, ActiveTickets: schedule.ActiveTickets}), nil
}

func (r *SaleScheduleRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *SaleScheduleRepository) FindByID(ctx context.Context, id uint) (domain.SaleSchedule, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.SaleSchedule{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *SaleScheduleRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.SaleSchedule, error) {
	found, err := r.dao.FindByIDForUpdate(ctx, id)
	if err != nil {
		return domain.SaleSchedule{}, fmt.Errorf("r.dao.FindByIDForUpdate -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *SaleScheduleRepository) FindActiveForUpdate(ctx context.Context, stationID uint, fuelType domain.FuelType, date time.Time) ([]domain.SaleSchedule, error) {
	found, err := r.dao.FindActiveForUpdate(ctx, stationID, string(fuelType), date)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindActiveForUpdate -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *SaleScheduleRepository) FindRenewalCandidatesForUpdate(ctx context.Context, stationID uint, fuelType domain.FuelType, from, to time.Time) ([]domain.SaleSchedule, error) {
	found, err := r.dao.FindRenewalCandidatesForUpdate(ctx, stationID, string(fuelType), from, to)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindRenewalCandidatesForUpdate -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *SaleScheduleRepository) ExistsActive(ctx context.Context, stationID uint, fuelType domain.FuelType, date time.Time, excludeID uint) (bool, error) {
	exists, err := r.dao.ExistsActive(ctx, stationID, string(fuelType), date, excludeID)
	if err != nil {
		return false, fmt.Errorf("r.dao.ExistsActive -> %w", err)
	}

	return exists, nil
}

func (r *SaleScheduleRepository) CountTickets(ctx context.Context, id uint) (int64, error) {
	count, err := r.dao.CountTickets(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountTickets -> %w", err)
	}

	return count, nil
}

func (r *SaleScheduleRepository) AdjustAvailable(ctx context.Context, id uint, delta float64) error {
	if err := r.dao.AdjustAvailable(ctx, id, delta); err != nil {
		return fmt.Errorf("r.dao.AdjustAvailable -> %w", err)
	}

	return nil
}

func (r *SaleScheduleRepository) Find(ctx context.Context, filter domain.ScheduleFilter) ([]domain.SaleSchedule, error) {
	found, err := r.dao.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("r.dao.Find -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *SaleScheduleRepository) PlannedDates(ctx context.Context, stationID uint, from time.Time) ([]time.Time, error) {
	dates, err := r.dao.PlannedDates(ctx, stationID, from)
	if err != nil {
		return nil, fmt.Errorf("r.dao.PlannedDates -> %w", err)
	}

	return dates, nil
}

func (r *SaleScheduleRepository) domainToDAO(s domain.SaleSchedule) dao.SaleSchedule {
	return dao.SaleSchedule{
		ID:                   s.ID,
		StationID:            s.StationID,
		FuelType:             string(s.FuelType),
		SaleDate:             s.SaleDate,
		StartTime:            s.StartTime,
		EndTime:              s.EndTime,
		AvailableQuantity:    s.AvailableQuantity,
		MaxQuantityPerTicket: s.MaxQuantityPerTicket,
		MaxTicketsPerDay:     s.MaxTicketsPerDay,
		IsActive:             s.IsActive,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func (r *SaleScheduleRepository) daoToDomain(s dao.SaleScheduleWithCounts) domain.SaleSchedule {
	return domain.SaleSchedule{
		ID:                   s.ID,
		StationID:            s.StationID,
		FuelType:             domain.FuelType(s.FuelType),
		SaleDate:             s.SaleDate,
		StartTime:            s.StartTime,
		EndTime:              s.EndTime,
		AvailableQuantity:    s.AvailableQuantity,
		MaxQuantityPerTicket: s.MaxQuantityPerTicket,
		MaxTicketsPerDay:     s.MaxTicketsPerDay,
		IsActive:             s.IsActive,
		ActiveTickets:        s.ActiveTickets,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func (r *SaleScheduleRepository) daosToDomain(schedules []dao.SaleScheduleWithCounts) []domain.SaleSchedule {
	out := make([]domain.SaleSchedule, len(schedules))
	for i, s := range schedules {
		out[i] = r.daoToDomain(s)
	}

	return out
}
