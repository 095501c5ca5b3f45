package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/pkg/clock"
)

const recentMovementsWindow = 7 * 24 * time.Hour

type StockInput struct {
	FuelType    domain.FuelType
	Available   float64
	MaxCapacity float64
	UnitPrice   float64
	IsAvailable bool
}

// StockService keeps the physical per-station fuel stock and its movement
// log. Stock quantities are independent of sale schedule quotas.
type StockService struct {
	tx     Transactor
	stocks FuelStockRepository
	clock  clock.Clock
}

func NewStockService(tx Transactor, stocks FuelStockRepository, clk clock.Clock) *StockService {
	return &StockService{
		tx:     tx,
		stocks: stocks,
		clock:  clk,
	}
}

func (s *StockService) Create(ctx context.Context, actor domain.Actor, stationID uint, in StockInput) (domain.FuelStock, error) {
	if err := CanManageStation(actor, stationID); err != nil {
		return domain.FuelStock{}, err
	}
	if !in.FuelType.Valid() {
		return domain.FuelStock{}, domain.ErrInvalidFuelType
	}
	if in.Available < 0 || in.MaxCapacity < 0 {
		return domain.FuelStock{}, domain.ErrInvalidQuantity
	}
	if in.UnitPrice < 0 {
		return domain.FuelStock{}, domain.ErrInvalidPrice
	}

	now := s.clock.Now()

	var created domain.FuelStock
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.stocks.FindByStationFuel(ctx, stationID, in.FuelType)
		if err == nil {
			return domain.ErrStockExists
		}
		if !isNotFound(err) {
			return fmt.Errorf("s.stocks.FindByStationFuel -> %w", err)
		}

		created, err = s.stocks.Create(ctx, domain.FuelStock{
			StationID:   stationID,
			FuelType:    in.FuelType,
			Available:   in.Available,
			MaxCapacity: in.MaxCapacity,
			UnitPrice:   in.UnitPrice,
			IsAvailable: in.IsAvailable,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("s.stocks.Create -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.FuelStock{}, err
	}

	return created, nil
}

func (s *StockService) ListByStation(ctx context.Context, stationID uint) ([]domain.FuelStock, error) {
	stocks, err := s.stocks.FindByStation(ctx, stationID, false)
	if err != nil {
		return nil, fmt.Errorf("s.stocks.FindByStation -> %w", err)
	}

	return stocks, nil
}

func (s *StockService) ListAvailable(ctx context.Context, stationID uint) ([]domain.FuelStock, error) {
	stocks, err := s.stocks.FindByStation(ctx, stationID, true)
	if err != nil {
		return nil, fmt.Errorf("s.stocks.FindByStation -> %w", err)
	}

	return stocks, nil
}

// mutate locks the stock row, checks the actor manages its station and saves
// whatever fn changed.
func (s *StockService) mutate(ctx context.Context, actor domain.Actor, id uint, fn func(stock *domain.FuelStock) error) (domain.FuelStock, error) {
	var updated domain.FuelStock
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		stock, err := s.stocks.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("s.stocks.FindByIDForUpdate -> %w", err)
		}
		if err = CanManageStation(actor, stock.StationID); err != nil {
			return err
		}

		if err = fn(&stock); err != nil {
			return err
		}
		stock.UpdatedAt = s.clock.Now()

		updated, err = s.stocks.Update(ctx, stock)
		if err != nil {
			return fmt.Errorf("s.stocks.Update -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.FuelStock{}, err
	}

	return updated, nil
}

func (s *StockService) UpdatePrice(ctx context.Context, actor domain.Actor, id uint, price float64) (domain.FuelStock, error) {
	if price < 0 {
		return domain.FuelStock{}, domain.ErrInvalidPrice
	}

	return s.mutate(ctx, actor, id, func(stock *domain.FuelStock) error {
		stock.UnitPrice = price
		return nil
	})
}

func (s *StockService) Toggle(ctx context.Context, actor domain.Actor, id uint) (domain.FuelStock, error) {
	return s.mutate(ctx, actor, id, func(stock *domain.FuelStock) error {
		stock.IsAvailable = !stock.IsAvailable
		return nil
	})
}

func (s *StockService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		stock, err := s.stocks.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("s.stocks.FindByIDForUpdate -> %w", err)
		}
		if err = CanManageStation(actor, stock.StationID); err != nil {
			return err
		}

		if err = s.stocks.Delete(ctx, id); err != nil {
			return fmt.Errorf("s.stocks.Delete -> %w", err)
		}

		return nil
	})
}

// AddFuel increases the stock without any upper bound. MaxCapacity is a
// daily sale limit, not a tank size.
func (s *StockService) AddFuel(ctx context.Context, actor domain.Actor, id uint, quantity float64, description string) (domain.FuelStock, error) {
	if quantity <= 0 {
		return domain.FuelStock{}, domain.ErrInvalidQuantity
	}

	stock, err := s.mutate(ctx, actor, id, func(stock *domain.FuelStock) error {
		stock.Available += quantity
		return nil
	})
	if err != nil {
		return domain.FuelStock{}, err
	}

	s.recordMovement(ctx, actor, stock, domain.MovementIn, quantity, description)

	return stock, nil
}

// RemoveFuel rejects any removal that would leave the stock negative and
// leaves the stock untouched in that case.
func (s *StockService) RemoveFuel(ctx context.Context, actor domain.Actor, id uint, quantity float64, description string) (domain.FuelStock, error) {
	if quantity <= 0 {
		return domain.FuelStock{}, domain.ErrInvalidQuantity
	}

	stock, err := s.mutate(ctx, actor, id, func(stock *domain.FuelStock) error {
		if stock.Available-quantity < 0 {
			return domain.ErrStockWouldGoNegative
		}
		stock.Available -= quantity

		return nil
	})
	if err != nil {
		return domain.FuelStock{}, err
	}

	s.recordMovement(ctx, actor, stock, domain.MovementOut, quantity, description)

	return stock, nil
}

// recordMovement writes the audit row after the stock change has committed.
// A failure is logged and does not undo the stock change.
func (s *StockService) recordMovement(ctx context.Context, actor domain.Actor, stock domain.FuelStock, kind domain.MovementType, quantity float64, description string) {
	var createdBy *uint
	if actor.UserID != 0 {
		id := actor.UserID
		createdBy = &id
	}

	_, err := s.stocks.CreateMovement(ctx, domain.FuelMovement{
		StockID:     stock.ID,
		StationID:   stock.StationID,
		FuelType:    stock.FuelType,
		Type:        kind,
		Quantity:    quantity,
		UnitPrice:   stock.UnitPrice,
		TotalAmount: domain.MovementTotal(quantity, stock.UnitPrice),
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		zap.L().Error("failed to record fuel movement",
			zap.Uint("stock_id", stock.ID),
			zap.String("type", string(kind)),
			zap.Float64("quantity", quantity),
			zap.Error(err),
		)
	}
}

func (s *StockService) findMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.FuelMovement, error) {
	movements, err := s.stocks.FindMovements(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("s.stocks.FindMovements -> %w", err)
	}

	return movements, nil
}

// MovementsByStation lists a station's movements, newest first, optionally
// limited to [from, to).
func (s *StockService) MovementsByStation(ctx context.Context, actor domain.Actor, stationID uint, from, to *time.Time) ([]domain.FuelMovement, error) {
	if err := CanViewStation(actor, stationID); err != nil {
		return nil, err
	}

	return s.findMovements(ctx, domain.MovementFilter{StationIDs: []uint{stationID}, From: from, To: to})
}

func (s *StockService) MovementsByStock(ctx context.Context, actor domain.Actor, stockID uint) ([]domain.FuelMovement, error) {
	stock, err := s.stocks.FindByID(ctx, stockID)
	if err != nil {
		return nil, fmt.Errorf("s.stocks.FindByID -> %w", err)
	}
	if err = CanViewStation(actor, stock.StationID); err != nil {
		return nil, err
	}

	return s.findMovements(ctx, domain.MovementFilter{StockID: &stockID})
}

// MyMovements lists the last seven days of movements of the caller's
// stations.
func (s *StockService) MyMovements(ctx context.Context, actor domain.Actor) ([]domain.FuelMovement, error) {
	if actor.Role != domain.RoleStation {
		return nil, domain.ErrRoleNotAllowed
	}
	if len(actor.StationIDs) == 0 {
		return []domain.FuelMovement{}, nil
	}

	from := s.clock.Now().Add(-recentMovementsWindow)

	return s.findMovements(ctx, domain.MovementFilter{StationIDs: actor.StationIDs, From: &from})
}
