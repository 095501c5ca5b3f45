package domain

import "time"

type SaleSchedule struct {
	ID                   uint      `json:"id"`
	StationID            uint      `json:"station_id"`
	FuelType             FuelType  `json:"fuel_type"`
	SaleDate             time.Time `json:"sale_date"`
	StartTime            string    `json:"start_time"`
	EndTime              string    `json:"end_time"`
	AvailableQuantity    float64   `json:"available_quantity"`
	MaxQuantityPerTicket float64   `json:"max_quantity_per_ticket"`
	MaxTicketsPerDay     int       `json:"max_tickets_per_day"`
	IsActive             bool      `json:"is_active"`
	// ActiveTickets counts the schedule's tickets that are not cancelled. It is
	// loaded together with the row, never lazily.
	ActiveTickets int64     `json:"active_tickets"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RemainingQuantity is the liters still open for allocation. AvailableQuantity
// is decremented on every allocation, so it already is the running quota.
func (s SaleSchedule) RemainingQuantity() float64 {
	return max(0, s.AvailableQuantity)
}

func (s SaleSchedule) RemainingTickets() int64 {
	return max(0, int64(s.MaxTicketsPerDay)-s.ActiveTickets)
}

func (s SaleSchedule) AvailableForSale() bool {
	return s.IsActive && s.AvailableQuantity > 0
}

// CanServe reports whether the schedule can take a ticket of quantity liters.
func (s SaleSchedule) CanServe(quantity float64) bool {
	return s.IsActive && s.RemainingTickets() > 0 && s.RemainingQuantity() >= quantity
}

type ScheduleFilter struct {
	StationID  uint
	FuelType   FuelType
	From       *time.Time
	To         *time.Time
	ActiveOnly bool
}
