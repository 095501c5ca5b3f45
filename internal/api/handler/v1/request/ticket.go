package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

type CreateTicketRequest struct {
	StationID uint    `json:"station_id"`
	FuelType  string  `json:"fuel_type"`
	Quantity  float64 `json:"quantity"`
	Date      string  `json:"date,omitempty" format:"YYYY-MM-DD"`
}

func (req *CreateTicketRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.StationID, validation.Required),
		validation.Field(&req.FuelType, validation.Required, isFuelType),
		validation.Field(&req.Quantity, validation.Required, validation.Min(0.01)),
		validation.Field(&req.Date, isDate),
	)
}

func (req *CreateTicketRequest) ToInput() service.TicketRequest {
	return service.TicketRequest{
		StationID: req.StationID,
		FuelType:  domain.FuelType(req.FuelType),
		Quantity:  req.Quantity,
		Date:      optionalDate(req.Date),
	}
}

type CreateCashTicketRequest struct {
	CreateTicketRequest
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Phone      string  `json:"phone,omitempty"`
	AmountPaid float64 `json:"amount_paid"`
}

func (req *CreateCashTicketRequest) Validate() error {
	if err := req.CreateTicketRequest.Validate(); err != nil {
		return err
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Phone, isPhone),
		validation.Field(&req.AmountPaid, validation.Min(0.0)),
	)
}

func (req *CreateCashTicketRequest) ToInput() service.CashTicketRequest {
	return service.CashTicketRequest{
		Citizen: domain.Citizen{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		},
		StationID:  req.StationID,
		FuelType:   domain.FuelType(req.FuelType),
		Quantity:   req.Quantity,
		AmountPaid: req.AmountPaid,
		Date:       optionalDate(req.Date),
	}
}

type UpdateTicketStatusRequest struct {
	Status string `json:"status"`
}

func (req *UpdateTicketStatusRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Status, validation.Required, validation.In(
			string(domain.StatusPending),
			string(domain.StatusValidated),
			string(domain.StatusServed),
			string(domain.StatusCancelled),
			string(domain.StatusExpired),
		)),
	)
}
