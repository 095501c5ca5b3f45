package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	StatusPending   TicketStatus = "EN_ATTENTE"
	StatusValidated TicketStatus = "VALIDE"
	StatusServed    TicketStatus = "SERVI"
	StatusCancelled TicketStatus = "ANNULE"
	StatusExpired   TicketStatus = "EXPIRE"
)

var TicketStatuses = []TicketStatus{StatusPending, StatusValidated, StatusServed, StatusCancelled, StatusExpired}

// OpenStatuses block a citizen from requesting another ticket.
var OpenStatuses = []TicketStatus{StatusPending, StatusValidated}

var transitions = map[TicketStatus][]TicketStatus{
	StatusPending:   {StatusValidated, StatusCancelled},
	StatusValidated: {StatusServed, StatusCancelled},
}

func (s TicketStatus) Valid() bool {
	for _, st := range TicketStatuses {
		if s == st {
			return true
		}
	}

	return false
}

// CanTransitionTo reports whether the move is in the lifecycle table.
// EXPIRE is never a valid target; only the expiration job sets it.
func (s TicketStatus) CanTransitionTo(to TicketStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}

	return false
}

// Citizen is the identity snapshot stored on every ticket. UserID is nil for
// cash-sale tickets issued to people without an account.
type Citizen struct {
	UserID    *uint  `json:"user_id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// LockKey identifies the citizen for the one-open-ticket guard.
func (c Citizen) LockKey() string {
	if c.Email != "" {
		return "citizen:email:" + strings.ToLower(c.Email)
	}
	if c.UserID != nil {
		return fmt.Sprintf("citizen:user:%d", *c.UserID)
	}

	return "citizen:anonymous"
}

type Ticket struct {
	ID             uint         `json:"id"`
	Number         string       `json:"number"`
	OrderNumber    string       `json:"order_number"`
	StationID      uint         `json:"station_id"`
	ScheduleID     *uint        `json:"sale_schedule_id,omitempty"`
	FuelType       FuelType     `json:"fuel_type"`
	Quantity       float64      `json:"quantity"`
	AmountPaid     *float64     `json:"amount_paid,omitempty"`
	Status         TicketStatus `json:"status"`
	Citizen        Citizen      `json:"citizen"`
	SupplyDate     time.Time    `json:"supply_date"`
	ExpiresAt      time.Time    `json:"expires_at"`
	PreviousNumber string       `json:"previous_number,omitempty"`
	Expired        bool         `json:"expired"`
	Unallocated    bool         `json:"unallocated"`
	CashSale       bool         `json:"cash_sale"`
	QRPayload      string       `json:"qr_payload,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// CountsAgainstQuota reports whether deleting the ticket must give its
// quantity back to the linked schedule.
func (t Ticket) CountsAgainstQuota() bool {
	return t.ScheduleID != nil && !t.Unallocated && !t.CashSale
}

// QRCodePayload is the text encoded in the receipt QR code.
func (t Ticket) QRCodePayload() string {
	amount := decimal.Zero
	if t.AmountPaid != nil {
		amount = decimal.NewFromFloat(*t.AmountPaid)
	}

	return fmt.Sprintf("TICKET:%s;STATION:%d;DATE:%s;TYPE:%s;QTE:%s;MONTANT:%s;STATUT:%s",
		t.Number,
		t.StationID,
		t.SupplyDate.Format(DateLayout),
		t.FuelType,
		decimal.NewFromFloat(t.Quantity).String(),
		amount.StringFixed(2),
		t.Status,
	)
}

func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("%03d", n)
}

type TicketFilter struct {
	UserID    *uint
	Email     string
	StationID *uint
	Statuses  []TicketStatus
}

// ExpirationReport summarizes one run of the expiration job.
type ExpirationReport struct {
	Expired     int `json:"expired"`
	Renewed     int `json:"renewed"`
	Unallocated int `json:"unallocated"`
	Failed      int `json:"failed"`
}
