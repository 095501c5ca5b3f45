package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/repository/dao"
)

var (
	ErrTicketNotFound     = dao.ErrTicketNotFound
	ErrTicketNumberExists = dao.ErrTicketNumberExists
)

type TicketDAO interface {
	Insert(ctx context.Context, ticket dao.Ticket) (dao.Ticket, error)
	FindByID(ctx context.Context, id uint) (dao.Ticket, error)
	FindByIDForUpdate(ctx context.Context, id uint) (dao.Ticket, error)
	FindByNumber(ctx context.Context, number string) (dao.Ticket, error)
	ExistsOpen(ctx context.Context, userID *uint, email string) (bool, error)
	CountByStationDate(ctx context.Context, stationID uint, date time.Time) (int64, error)
	Update(ctx context.Context, ticket dao.Ticket) (dao.Ticket, error)
	Delete(ctx context.Context, id uint) error
	FindExpirable(ctx context.Context, cutoff time.Time) ([]dao.Ticket, error)
	Find(ctx context.Context, filter domain.TicketFilter) ([]dao.Ticket, error)
}

type TicketRepository struct {
	dao TicketDAO
}

func NewTicketRepository(dao TicketDAO) *TicketRepository {
	return &TicketRepository{
		dao: dao,
	}
}

func (r *TicketRepository) Create(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	created, err := r.dao.Insert(ctx, r.domainToDAO(ticket))
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id uint) (domain.Ticket, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *TicketRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.Ticket, error) {
	found, err := r.dao.FindByIDForUpdate(ctx, id)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.FindByIDForUpdate -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *TicketRepository) FindByNumber(ctx context.Context, number string) (domain.Ticket, error) {
	found, err := r.dao.FindByNumber(ctx, number)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.FindByNumber -> %w", err)
	}

	return r.daoToDomain(found), nil
}

// HasOpenTicket checks by account for account holders and by email for
// citizens without one.
func (r *TicketRepository) HasOpenTicket(ctx context.Context, citizen domain.Citizen) (bool, error) {
	exists, err := r.dao.ExistsOpen(ctx, citizen.UserID, citizen.Email)
	if err != nil {
		return false, fmt.Errorf("r.dao.ExistsOpen -> %w", err)
	}

	return exists, nil
}

func (r *TicketRepository) CountForStationDate(ctx context.Context, stationID uint, date time.Time) (int64, error) {
	count, err := r.dao.CountByStationDate(ctx, stationID, date)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountByStationDate -> %w", err)
	}

	return count, nil
}

func (r *TicketRepository) Update(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	updated, err := r.dao.Update(ctx, r.domainToDAO(ticket))
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *TicketRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *TicketRepository) FindExpirable(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	found, err := r.dao.FindExpirable(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindExpirable -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *TicketRepository) Find(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	found, err := r.dao.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("r.dao.Find -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *TicketRepository) domainToDAO(t domain.Ticket) dao.Ticket {
	return dao.Ticket{
		ID:             t.ID,
		Number:         t.Number,
		OrderNumber:    t.OrderNumber,
		StationID:      t.StationID,
		SaleScheduleID: t.ScheduleID,
		FuelType:       string(t.FuelType),
		Quantity:       t.Quantity,
		AmountPaid:     t.AmountPaid,
		Status:         string(t.Status),
		UserID:         t.Citizen.UserID,
		Email:          t.Citizen.Email,
		FirstName:      t.Citizen.FirstName,
		LastName:       t.Citizen.LastName,
		Phone:          t.Citizen.Phone,
		SupplyDate:     t.SupplyDate,
		ExpiresAt:      t.ExpiresAt,
		PreviousNumber: t.PreviousNumber,
		IsExpired:      t.Expired,
		Unallocated:    t.Unallocated,
		CashSale:       t.CashSale,
		QRPayload:      t.QRPayload,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (r *TicketRepository) daoToDomain(t dao.Ticket) domain.Ticket {
	return domain.Ticket{
		ID:          t.ID,
		Number:      t.Number,
		OrderNumber: t.OrderNumber,
		StationID:   t.StationID,
		ScheduleID:  t.SaleScheduleID,
		FuelType:    domain.FuelType(t.FuelType),
		Quantity:    t.Quantity,
		AmountPaid:  t.AmountPaid,
		Status:      domain.TicketStatus(t.Status),
		Citizen: domain.Citizen{
			UserID:    t.UserID,
			Email:     t.Email,
			FirstName: t.FirstName,
			LastName:  t.LastName,
			Phone:     t.Phone,
		},
		SupplyDate:     t.SupplyDate,
		ExpiresAt:      t.ExpiresAt,
		PreviousNumber: t.PreviousNumber,
		Expired:        t.IsExpired,
		Unallocated:    t.Unallocated,
		CashSale:       t.CashSale,
		QRPayload:      t.QRPayload,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (r *TicketRepository) daosToDomain(tickets []dao.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(tickets))
	for i, t := range tickets {
		out[i] = r.daoToDomain(t)
	}

	return out
}
