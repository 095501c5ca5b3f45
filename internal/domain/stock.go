package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn  MovementType = "ENTREE"
	MovementOut MovementType = "SORTIE"
)

type FuelStock struct {
	ID          uint     `json:"id"`
	StationID   uint     `json:"station_id"`
	FuelType    FuelType `json:"fuel_type"`
	Available   float64  `json:"stock_disponible"`
	// MaxCapacity is the station's daily sale capacity for the fuel type.
	MaxCapacity float64   `json:"capacite_maximale"`
	UnitPrice   float64   `json:"prix_unitaire"`
	IsAvailable bool      `json:"is_disponible"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type FuelMovement struct {
	ID          uint            `json:"id"`
	StockID     uint            `json:"stock_id"`
	StationID   uint            `json:"station_id"`
	FuelType    FuelType        `json:"fuel_type"`
	Type        MovementType    `json:"type"`
	Quantity    float64         `json:"quantity"`
	UnitPrice   float64         `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Description string          `json:"description,omitempty"`
	CreatedBy   *uint           `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func MovementTotal(quantity, unitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2)
}

type MovementFilter struct {
	StockID    *uint
	StationIDs []uint
	From       *time.Time
	To         *time.Time
}
