package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

var (
	ErrStockNotFound = domain.ErrStockNotFound
	ErrStockExists   = domain.ErrStockExists
)

const stationFuelConstraint = "uni_fuel_stocks_station_fuel"

type FuelStock struct {
	ID uint `gorm:"primaryKey"`

	StationID   uint    `gorm:"not null;uniqueIndex:uni_fuel_stocks_station_fuel"`
	FuelType    string  `gorm:"type:varchar(16);not null;uniqueIndex:uni_fuel_stocks_station_fuel"`
	Available   float64 `gorm:"not null;check:available >= 0"`
	MaxCapacity float64 `gorm:"not null"`
	UnitPrice   float64 `gorm:"type:numeric(12,2);not null"`
	IsAvailable bool    `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (FuelStock) TableName() string {
	return "fuel_stocks"
}

type FuelMovement struct {
	ID uint `gorm:"primaryKey"`

	StockID     uint            `gorm:"not null;index"`
	StationID   uint            `gorm:"not null;index:idx_fuel_movements_station_created"`
	FuelType    string          `gorm:"type:varchar(16);not null"`
	Type        string          `gorm:"type:varchar(8);not null"`
	Quantity    float64         `gorm:"not null"`
	UnitPrice   float64         `gorm:"type:numeric(12,2);not null"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Description string          `gorm:"type:text"`
	CreatedBy   *uint

	CreatedAt time.Time `gorm:"not null;index:idx_fuel_movements_station_created"`
}

func (FuelMovement) TableName() string {
	return "fuel_movements"
}

type FuelStockDAO struct {
	db *gorm.DB
}

func NewFuelStockDAO(db *gorm.DB) *FuelStockDAO {
	return &FuelStockDAO{
		db: db,
	}
}

func (d *FuelStockDAO) Insert(ctx context.Context, stock FuelStock) (FuelStock, error) {
	if err := conn(ctx, d.db).Create(&stock).Error; err != nil {
		if isUniqueViolation(err, stationFuelConstraint) {
			return FuelStock{}, ErrStockExists
		}

		return FuelStock{}, err
	}

	return stock, nil
}

func (d *FuelStockDAO) Update(ctx context.Context, stock FuelStock) (FuelStock, error) {
	if err := conn(ctx, d.db).Save(&stock).Error; err != nil {
		return FuelStock{}, err
	}

	return stock, nil
}

func (d *FuelStockDAO) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, d.db).Delete(&FuelStock{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStockNotFound
	}

	return nil
}

func (d *FuelStockDAO) FindByID(ctx context.Context, id uint) (FuelStock, error) {
	return d.first(conn(ctx, d.db).Where("id = ?", id))
}

func (d *FuelStockDAO) FindByIDForUpdate(ctx context.Context, id uint) (FuelStock, error) {
	return d.first(conn(ctx, d.db).Clauses(forUpdate).Where("id = ?", id))
}

func (d *FuelStockDAO) FindByStationFuel(ctx context.Context, stationID uint, fuelType string) (FuelStock, error) {
	return d.first(conn(ctx, d.db).Where("station_id = ? AND fuel_type = ?", stationID, fuelType))
}

func (d *FuelStockDAO) first(q *gorm.DB) (FuelStock, error) {
	var stock FuelStock

	result := q.First(&stock)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return FuelStock{}, ErrStockNotFound
		}

		return FuelStock{}, result.Error
	}

	return stock, nil
}

func (d *FuelStockDAO) FindByStation(ctx context.Context, stationID uint, availableOnly bool) ([]FuelStock, error) {
	q := conn(ctx, d.db).Where("station_id = ?", stationID)
	if availableOnly {
		q = q.Where("is_available AND available > 0")
	}

	var stocks []FuelStock
	if err := q.Order("fuel_type").Find(&stocks).Error; err != nil {
		return nil, err
	}

	return stocks, nil
}

type FuelMovementDAO struct {
	db *gorm.DB
}

func NewFuelMovementDAO(db *gorm.DB) *FuelMovementDAO {
	return &FuelMovementDAO{
		db: db,
	}
}

func (d *FuelMovementDAO) Insert(ctx context.Context, movement FuelMovement) (FuelMovement, error) {
	if err := conn(ctx, d.db).Create(&movement).Error; err != nil {
		return FuelMovement{}, err
	}

	return movement, nil
}

func (d *FuelMovementDAO) Find(ctx context.Context, filter domain.MovementFilter) ([]FuelMovement, error) {
	q := conn(ctx, d.db)
	if filter.StockID != nil {
		q = q.Where("stock_id = ?", *filter.StockID)
	}
	if len(filter.StationIDs) > 0 {
		q = q.Where("station_id IN ?", filter.StationIDs)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var movements []FuelMovement
	if err := q.Order("created_at DESC, id DESC").Find(&movements).Error; err != nil {
		return nil, err
	}

	return movements, nil
}
