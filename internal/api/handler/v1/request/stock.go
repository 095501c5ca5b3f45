package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

type CreateStockRequest struct {
	FuelType    string  `json:"fuel_type"`
	Available   float64 `json:"stock_disponible"`
	MaxCapacity float64 `json:"capacite_maximale"`
	UnitPrice   float64 `json:"prix_unitaire"`
	IsAvailable *bool   `json:"is_disponible,omitempty"`
}

func (req *CreateStockRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.FuelType, validation.Required, isFuelType),
		validation.Field(&req.Available, validation.Min(0.0)),
		validation.Field(&req.MaxCapacity, validation.Min(0.0)),
		validation.Field(&req.UnitPrice, validation.Min(0.0)),
	)
}

func (req *CreateStockRequest) ToInput() service.StockInput {
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	return service.StockInput{
		FuelType:    domain.FuelType(req.FuelType),
		Available:   req.Available,
		MaxCapacity: req.MaxCapacity,
		UnitPrice:   req.UnitPrice,
		IsAvailable: available,
	}
}

type UpdatePriceRequest struct {
	UnitPrice float64 `json:"prix_unitaire"`
}

func (req *UpdatePriceRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.UnitPrice, validation.Min(0.0)),
	)
}

type StockMovementRequest struct {
	Quantity    float64 `json:"quantity"`
	Description string  `json:"description,omitempty"`
}

func (req *StockMovementRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Quantity, validation.Required, validation.Min(0.01)),
		validation.Field(&req.Description, validation.Length(0, 255)),
	)
}
