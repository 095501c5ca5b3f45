package response

import (
	"time"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

type Ticket struct {
	ID             uint                `json:"id"`
	Number         string              `json:"number"`
	OrderNumber    string              `json:"order_number"`
	StationID      uint                `json:"station_id"`
	ScheduleID     *uint               `json:"sale_schedule_id,omitempty"`
	FuelType       domain.FuelType     `json:"fuel_type"`
	Quantity       float64             `json:"quantity"`
	AmountPaid     *float64            `json:"amount_paid,omitempty"`
	Status         domain.TicketStatus `json:"status"`
	Citizen        domain.Citizen      `json:"citizen"`
	SupplyDate     string              `json:"supply_date"`
	ExpiresAt      time.Time           `json:"expires_at"`
	PreviousNumber string              `json:"previous_number,omitempty"`
	Expired        bool                `json:"expired"`
	Unallocated    bool                `json:"unallocated"`
	CashSale       bool                `json:"cash_sale"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func NewTicket(t domain.Ticket) Ticket {
	return Ticket{
		ID:             t.ID,
		Number:         t.Number,
		OrderNumber:    t.OrderNumber,
		StationID:      t.StationID,
		ScheduleID:     t.ScheduleID,
		FuelType:       t.FuelType,
		Quantity:       t.Quantity,
		AmountPaid:     t.AmountPaid,
		Status:         t.Status,
		Citizen:        t.Citizen,
		SupplyDate:     t.SupplyDate.Format(domain.DateLayout),
		ExpiresAt:      t.ExpiresAt,
		PreviousNumber: t.PreviousNumber,
		Expired:        t.Expired,
		Unallocated:    t.Unallocated,
		CashSale:       t.CashSale,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func NewTickets(tickets []domain.Ticket) []Ticket {
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicket(t))
	}

	return out
}

type Receipt struct {
	Ticket    Ticket `json:"ticket"`
	QRPayload string `json:"qr_payload"`
}

type HasOpenTicket struct {
	HasOpenTicket bool `json:"has_open_ticket"`
}

type Schedule struct {
	ID                   uint            `json:"id"`
	StationID            uint            `json:"station_id"`
	FuelType             domain.FuelType `json:"fuel_type"`
	SaleDate             string          `json:"sale_date"`
	StartTime            string          `json:"start_time"`
	EndTime              string          `json:"end_time"`
	AvailableQuantity    float64         `json:"available_quantity"`
	MaxQuantityPerTicket float64         `json:"max_quantity_per_ticket"`
	MaxTicketsPerDay     int             `json:"max_tickets_per_day"`
	IsActive             bool            `json:"is_active"`
	RemainingQuantity    float64         `json:"remaining_quantity"`
	RemainingTickets     int64           `json:"remaining_tickets"`
}

func NewSchedule(s domain.SaleSchedule) Schedule {
	return Schedule{
		ID:                   s.ID,
		StationID:            s.StationID,
		FuelType:             s.FuelType,
		SaleDate:             s.SaleDate.Format(domain.DateLayout),
		StartTime:            s.StartTime,
		EndTime:              s.EndTime,
		AvailableQuantity:    s.AvailableQuantity,
		MaxQuantityPerTicket: s.MaxQuantityPerTicket,
		MaxTicketsPerDay:     s.MaxTicketsPerDay,
		IsActive:             s.IsActive,
		RemainingQuantity:    s.RemainingQuantity(),
		RemainingTickets:     s.RemainingTickets(),
	}
}

func NewSchedules(schedules []domain.SaleSchedule) []Schedule {
	out := make([]Schedule, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, NewSchedule(s))
	}

	return out
}

func NewDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(domain.DateLayout))
	}

	return out
}
