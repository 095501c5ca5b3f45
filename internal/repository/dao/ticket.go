package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

var (
	ErrTicketNotFound     = domain.ErrTicketNotFound
	ErrTicketNumberExists = domain.ErrTicketNumberExists
)

const ticketNumberConstraint = "uni_tickets_number"

type Ticket struct {
	ID uint `gorm:"primaryKey"`

	Number         string   `gorm:"type:varchar(16);not null;uniqueIndex:uni_tickets_number"`
	OrderNumber    string   `gorm:"type:varchar(8);not null"`
	StationID      uint     `gorm:"not null;index:idx_tickets_station_date"`
	SaleScheduleID *uint    `gorm:"index"`
	FuelType       string   `gorm:"type:varchar(16);not null"`
	Quantity       float64  `gorm:"not null"`
	AmountPaid     *float64 `gorm:"type:numeric(14,2)"`
	Status         string   `gorm:"type:varchar(16);not null;index:idx_tickets_status_created"`

	UserID    *uint  `gorm:"index"`
	Email     string `gorm:"type:varchar(255);not null;index"`
	FirstName string `gorm:"type:varchar(100)"`
	LastName  string `gorm:"type:varchar(100)"`
	Phone     string `gorm:"type:varchar(32)"`

	SupplyDate     time.Time `gorm:"type:date;not null;index:idx_tickets_station_date"`
	ExpiresAt      time.Time `gorm:"not null"`
	PreviousNumber string    `gorm:"type:varchar(16);index"`
	IsExpired      bool      `gorm:"not null"`
	Unallocated    bool      `gorm:"not null"`
	CashSale       bool      `gorm:"not null"`
	QRPayload      string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index:idx_tickets_status_created"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Ticket) TableName() string {
	return "tickets"
}

type TicketDAO struct {
	db *gorm.DB
}

func NewTicketDAO(db *gorm.DB) *TicketDAO {
	return &TicketDAO{
		db: db,
	}
}

// Insert runs inside a savepoint so a number collision leaves the enclosing
// transaction usable for a retry.
func (d *TicketDAO) Insert(ctx context.Context, ticket Ticket) (Ticket, error) {
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&ticket).Error
	})
	if err != nil {
		if isUniqueViolation(err, ticketNumberConstraint) {
			return Ticket{}, ErrTicketNumberExists
		}

		return Ticket{}, err
	}

	return ticket, nil
}

func (d *TicketDAO) FindByID(ctx context.Context, id uint) (Ticket, error) {
	return d.first(conn(ctx, d.db).Where("id = ?", id))
}

func (d *TicketDAO) FindByIDForUpdate(ctx context.Context, id uint) (Ticket, error) {
	return d.first(conn(ctx, d.db).Clauses(forUpdate).Where("id = ?", id))
}

func (d *TicketDAO) FindByNumber(ctx context.Context, number string) (Ticket, error) {
	return d.first(conn(ctx, d.db).Where("number = ?", number))
}

func (d *TicketDAO) first(q *gorm.DB) (Ticket, error) {
	var ticket Ticket

	result := q.First(&ticket)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Ticket{}, ErrTicketNotFound
		}

		return Ticket{}, result.Error
	}

	return ticket, nil
}

// ExistsOpen looks for a pending or validated ticket of the citizen, by
// account when userID is set and by email otherwise.
func (d *TicketDAO) ExistsOpen(ctx context.Context, userID *uint, email string) (bool, error) {
	q := conn(ctx, d.db).Model(&Ticket{}).Where("status IN ?", statusStrings(domain.OpenStatuses))
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	} else {
		q = q.Where("LOWER(email) = LOWER(?)", email)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (d *TicketDAO) CountByStationDate(ctx context.Context, stationID uint, date time.Time) (int64, error) {
	var count int64

	result := conn(ctx, d.db).Model(&Ticket{}).
		Where("station_id = ? AND supply_date = ?", stationID, dateArg(date)).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func (d *TicketDAO) Update(ctx context.Context, ticket Ticket) (Ticket, error) {
	if err := conn(ctx, d.db).Save(&ticket).Error; err != nil {
		return Ticket{}, err
	}

	return ticket, nil
}

func (d *TicketDAO) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, d.db).Delete(&Ticket{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}

	return nil
}

// FindExpirable returns pending tickets created before cutoff, oldest first.
func (d *TicketDAO) FindExpirable(ctx context.Context, cutoff time.Time) ([]Ticket, error) {
	var tickets []Ticket

	result := conn(ctx, d.db).
		Where("status = ? AND created_at < ?", string(domain.StatusPending), cutoff).
		Order("created_at, id").
		Find(&tickets)
	if result.Error != nil {
		return nil, result.Error
	}

	return tickets, nil
}

func (d *TicketDAO) Find(ctx context.Context, filter domain.TicketFilter) ([]Ticket, error) {
	q := conn(ctx, d.db)
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Email != "" {
		q = q.Where("LOWER(email) = LOWER(?)", filter.Email)
	}
	if filter.StationID != nil {
		q = q.Where("station_id = ?", *filter.StationID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(filter.Statuses))
	}

	var tickets []Ticket
	if err := q.Order("created_at DESC, id DESC").Find(&tickets).Error; err != nil {
		return nil, err
	}

	return tickets, nil
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}

	return out
}
