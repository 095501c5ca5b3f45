package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

type ScheduleRequest struct {
	StationID            uint    `json:"station_id"`
	FuelType             string  `json:"fuel_type"`
	SaleDate             string  `json:"sale_date" format:"YYYY-MM-DD"`
	StartTime            string  `json:"start_time" format:"HH:MM"`
	EndTime              string  `json:"end_time" format:"HH:MM"`
	AvailableQuantity    float64 `json:"available_quantity"`
	MaxQuantityPerTicket float64 `json:"max_quantity_per_ticket"`
	MaxTicketsPerDay     int     `json:"max_tickets_per_day"`
	IsActive             *bool   `json:"is_active,omitempty"`
}

func (req *ScheduleRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.StationID, validation.Required),
		validation.Field(&req.FuelType, validation.Required, isFuelType),
		validation.Field(&req.SaleDate, validation.Required, isDate),
		validation.Field(&req.StartTime, validation.Required, isTime),
		validation.Field(&req.EndTime, validation.Required, isTime),
		validation.Field(&req.AvailableQuantity, validation.Required, validation.Min(0.01)),
		validation.Field(&req.MaxQuantityPerTicket, validation.Required, validation.Min(0.01)),
		validation.Field(&req.MaxTicketsPerDay, validation.Required, validation.Min(1)),
	)
}

// ToInput converts a validated request. Schedules are active unless the
// request says otherwise.
func (req *ScheduleRequest) ToInput() service.ScheduleInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	date, _ := domain.ParseDate(req.SaleDate)

	return service.ScheduleInput{
		StationID:            req.StationID,
		FuelType:             domain.FuelType(req.FuelType),
		SaleDate:             date,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		AvailableQuantity:    req.AvailableQuantity,
		MaxQuantityPerTicket: req.MaxQuantityPerTicket,
		MaxTicketsPerDay:     req.MaxTicketsPerDay,
		IsActive:             active,
	}
}
