package domain

import "time"

type EventType string

const (
	EventManagerNewTicket    EventType = "manager.new_ticket"
	EventCitizenReceiptReady EventType = "citizen.receipt_ready"
)

type Event struct {
	Type        EventType `json:"type"`
	StationID   uint      `json:"station_id"`
	Ticket      Ticket    `json:"ticket"`
	ReceiptPath string    `json:"receipt_path,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
