package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/repository/dao"
)

var (
	ErrStockNotFound = dao.ErrStockNotFound
	ErrStockExists   = dao.ErrStockExists
)

type FuelStockDAO interface {
	Insert(ctx context.Context, stock dao.FuelStock) (dao.FuelStock, error)
	Update(ctx context.Context, stock dao.FuelStock) (dao.FuelStock, error)
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (dao.FuelStock, error)
	FindByIDForUpdate(ctx context.Context, id uint) (dao.FuelStock, error)
	FindByStationFuel(ctx context.Context, stationID uint, fuelType string) (dao.FuelStock, error)
	FindByStation(ctx context.Context, stationID uint, availableOnly bool) ([]dao.FuelStock, error)
}

type FuelMovementDAO interface {
	Insert(ctx context.Context, movement dao.FuelMovement) (dao.FuelMovement, error)
	Find(ctx context.Context, filter domain.MovementFilter) ([]dao.FuelMovement, error)
}

type FuelStockRepository struct {
	dao         FuelStockDAO
	movementDAO FuelMovementDAO
}

func NewFuelStockRepository(stockDAO FuelStockDAO, movementDAO FuelMovementDAO) *FuelStockRepository {
	return &FuelStockRepository{
		dao:         stockDAO,
		movementDAO: movementDAO,
	}
}

func (r *FuelStockRepository) Create(ctx context.Context, stock domain.FuelStock) (domain.FuelStock, error) {
	created, err := r.dao.Insert(ctx, r.domainToDAO(stock))
	if err != nil {
		return domain.FuelStock{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *FuelStockRepository) Update(ctx context.Context, stock domain.FuelStock) (domain.FuelStock, error) {
	updated, err := r.dao.Update(ctx, r.domainToDAO(stock))
	if err != nil {
		return domain.FuelStock{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *FuelStockRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *FuelStockRepository) FindByID(ctx context.Context, id uint) (domain.FuelStock, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.FuelStock{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *FuelStockRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.FuelStock, error) {
	found, err := r.dao.FindByIDForUpdate(ctx, id)
	if err != nil {
		return domain.FuelStock{}, fmt.Errorf("r.dao.FindByIDForUpdate -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *FuelStockRepository) FindByStationFuel(ctx context.Context, stationID uint, fuelType domain.FuelType) (domain.FuelStock, error) {
	found, err := r.dao.FindByStationFuel(ctx, stationID, string(fuelType))
	if err != nil {
		return domain.FuelStock{}, fmt.Errorf("r.dao.FindByStationFuel -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *FuelStockRepository) FindByStation(ctx context.Context, stationID uint, availableOnly bool) ([]domain.FuelStock, error) {
	found, err := r.dao.FindByStation(ctx, stationID, availableOnly)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByStation -> %w", err)
	}

	stocks := make([]domain.FuelStock, len(found))
	for i, s := range found {
		stocks[i] = r.daoToDomain(s)
	}

	return stocks, nil
}

func (r *FuelStockRepository) CreateMovement(ctx context.Context, movement domain.FuelMovement) (domain.FuelMovement, error) {
	created, err := r.movementDAO.Insert(ctx, dao.FuelMovement{
		StockID:     movement.StockID,
		StationID:   movement.StationID,
		FuelType:    string(movement.FuelType),
		Type:        string(movement.Type),
		Quantity:    movement.Quantity,
		UnitPrice:   movement.UnitPrice,
		TotalAmount: movement.TotalAmount,
		Description: movement.Description,
		CreatedBy:   movement.CreatedBy,
		CreatedAt:   movement.CreatedAt,
	})
	if err != nil {
		return domain.FuelMovement{}, fmt.Errorf("r.movementDAO.Insert -> %w", err)
	}

	return r.movementDAOToDomain(created), nil
}

func (r *FuelStockRepository) FindMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.FuelMovement, error) {
	found, err := r.movementDAO.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("r.movementDAO.Find -> %w", err)
	}

	movements := make([]domain.FuelMovement, len(found))
	for i, m := range found {
		movements[i] = r.movementDAOToDomain(m)
	}

	return movements, nil
}

func (r *FuelStockRepository) domainToDAO(s domain.FuelStock) dao.FuelStock {
	return dao.FuelStock{
		ID:          s.ID,
		StationID:   s.StationID,
		FuelType:    string(s.FuelType),
		Available:   s.Available,
		MaxCapacity: s.MaxCapacity,
		UnitPrice:   s.UnitPrice,
		IsAvailable: s.IsAvailable,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r *FuelStockRepository) daoToDomain(s dao.FuelStock) domain.FuelStock {
	return domain.FuelStock{
		ID:          s.ID,
		StationID:   s.StationID,
		FuelType:    domain.FuelType(s.FuelType),
		Available:   s.Available,
		MaxCapacity: s.MaxCapacity,
		UnitPrice:   s.UnitPrice,
		IsAvailable: s.IsAvailable,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r *FuelStockRepository) movementDAOToDomain(m dao.FuelMovement) domain.FuelMovement {
	return domain.FuelMovement{
		ID:          m.ID,
		StockID:     m.StockID,
		StationID:   m.StationID,
		FuelType:    domain.FuelType(m.FuelType),
		Type:        domain.MovementType(m.Type),
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TotalAmount: m.TotalAmount,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}
