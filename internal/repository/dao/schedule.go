package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

var (
	ErrScheduleNotFound = domain.ErrScheduleNotFound
	ErrScheduleExists   = domain.ErrScheduleExists
)

const activeScheduleConstraint = "uni_sale_schedules_active"

type SaleSchedule struct {
	ID uint `gorm:"primaryKey"`

	StationID            uint      `gorm:"not null;index:idx_sale_schedules_station_date;uniqueIndex:uni_sale_schedules_active,where:is_active"`
	FuelType             string    `gorm:"type:varchar(16);not null;uniqueIndex:uni_sale_schedules_active"`
	SaleDate             time.Time `gorm:"type:date;not null;index:idx_sale_schedules_station_date;uniqueIndex:uni_sale_schedules_active"`
	StartTime            string    `gorm:"type:varchar(5);not null"`
	EndTime              string    `gorm:"type:varchar(5);not null"`
	AvailableQuantity    float64   `gorm:"not null;check:available_quantity >= 0"`
	MaxQuantityPerTicket float64   `gorm:"not null"`
	MaxTicketsPerDay     int       `gorm:"not null"`
	IsActive             bool      `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (SaleSchedule) TableName() string {
	return "sale_schedules"
}

// SaleScheduleWithCounts is a schedule row together with the number of its
// tickets that are not cancelled, read in the same statement.
type SaleScheduleWithCounts struct {
	SaleSchedule  `gorm:"embedded"`
	ActiveTickets int64
}

type SaleScheduleDAO struct {
	db *gorm.DB
}

func NewSaleScheduleDAO(db *gorm.DB) *SaleScheduleDAO {
	return &SaleScheduleDAO{
		db: db,
	}
}

func (d *SaleScheduleDAO) withCounts(ctx context.Context) *gorm.DB {
	return conn(ctx, d.db).Model(&SaleSchedule{}).Select(
		"sale_schedules.*, (SELECT COUNT(*) FROM tickets t WHERE t.sale_schedule_id = sale_schedules.id AND t.status <> ?) AS active_tickets",
		string(domain.StatusCancelled),
	)
}

// lockAndLoad locks the rows matched by filter, then reads them with their
// ticket counts in a second statement. The counts then include tickets
// committed by any transaction that held the lock before us.
func (d *SaleScheduleDAO) lockAndLoad(ctx context.Context, filter func(q *gorm.DB) *gorm.DB, order string) ([]SaleScheduleWithCounts, error) {
	var ids []uint
	lock := filter(conn(ctx, d.db).Model(&SaleSchedule{})).Clauses(forUpdate).Order(order)
	if err := lock.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []SaleScheduleWithCounts
	if err := d.withCounts(ctx).Where("sale_schedules.id IN ?", ids).Order(order).Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (d *SaleScheduleDAO) Insert(ctx context.Context, schedule SaleSchedule) (SaleSchedule, error) {
	if err := conn(ctx, d.db).Create(&schedule).Error; err != nil {
		if isUniqueViolation(err, activeScheduleConstraint) {
			return SaleSchedule{}, ErrScheduleExists
		}

		return SaleSchedule{}, err
	}

	return schedule, nil
}

func (d *SaleScheduleDAO) Update(ctx context.Context, schedule SaleSchedule) (SaleSchedule, error) {
	if err := conn(ctx, d.db).Save(&schedule).Error; err != nil {
		if isUniqueViolation(err, activeScheduleConstraint) {
			return SaleSchedule{}, ErrScheduleExists
		}

		return SaleSchedule{}, err
	}

	return schedule, nil
}

func (d *SaleScheduleDAO) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, d.db).Delete(&SaleSchedule{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrScheduleNotFound
	}

	return nil
}

func (d *SaleScheduleDAO) FindByID(ctx context.Context, id uint) (SaleScheduleWithCounts, error) {
	var rows []SaleScheduleWithCounts
	if err := d.withCounts(ctx).Where("sale_schedules.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return SaleScheduleWithCounts{}, err
	}
	if len(rows) == 0 {
		return SaleScheduleWithCounts{}, ErrScheduleNotFound
	}

	return rows[0], nil
}

func (d *SaleScheduleDAO) FindByIDForUpdate(ctx context.Context, id uint) (SaleScheduleWithCounts, error) {
	rows, err := d.lockAndLoad(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("id = ?", id)
	}, "id")
	if err != nil {
		return SaleScheduleWithCounts{}, err
	}
	if len(rows) == 0 {
		return SaleScheduleWithCounts{}, ErrScheduleNotFound
	}

	return rows[0], nil
}

// FindActiveForUpdate locks the active schedules of a station, fuel type and
// date, earliest window first.
func (d *SaleScheduleDAO) FindActiveForUpdate(ctx context.Context, stationID uint, fuelType string, date time.Time) ([]SaleScheduleWithCounts, error) {
	return d.lockAndLoad(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("station_id = ? AND fuel_type = ? AND sale_date = ? AND is_active", stationID, fuelType, dateArg(date))
	}, "start_time, id")
}

// FindRenewalCandidatesForUpdate locks the active schedules of a station and
// fuel type with a sale date in [from, to], in date then window order.
func (d *SaleScheduleDAO) FindRenewalCandidatesForUpdate(ctx context.Context, stationID uint, fuelType string, from, to time.Time) ([]SaleScheduleWithCounts, error) {
	return d.lockAndLoad(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("station_id = ? AND fuel_type = ? AND is_active AND sale_date BETWEEN ? AND ?",
			stationID, fuelType, dateArg(from), dateArg(to))
	}, "sale_date, start_time, id")
}

func (d *SaleScheduleDAO) ExistsActive(ctx context.Context, stationID uint, fuelType string, date time.Time, excludeID uint) (bool, error) {
	q := conn(ctx, d.db).Model(&SaleSchedule{}).
		Where("station_id = ? AND fuel_type = ? AND sale_date = ? AND is_active", stationID, fuelType, dateArg(date))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// CountTickets counts every ticket ever drawn from the schedule, cancelled
// ones included.
func (d *SaleScheduleDAO) CountTickets(ctx context.Context, id uint) (int64, error) {
	var count int64

	result := conn(ctx, d.db).Model(&Ticket{}).Where("sale_schedule_id = ?", id).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func (d *SaleScheduleDAO) AdjustAvailable(ctx context.Context, id uint, delta float64) error {
	result := conn(ctx, d.db).Model(&SaleSchedule{}).
		Where("id = ?", id).
		Update("available_quantity", gorm.Expr("available_quantity + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrScheduleNotFound
	}

	return nil
}

func (d *SaleScheduleDAO) Find(ctx context.Context, filter domain.ScheduleFilter) ([]SaleScheduleWithCounts, error) {
	q := d.withCounts(ctx).Where("station_id = ?", filter.StationID)
	if filter.FuelType != "" {
		q = q.Where("fuel_type = ?", string(filter.FuelType))
	}
	if filter.From != nil {
		q = q.Where("sale_date >= ?", dateArg(*filter.From))
	}
	if filter.To != nil {
		q = q.Where("sale_date <= ?", dateArg(*filter.To))
	}
	if filter.ActiveOnly {
		q = q.Where("is_active")
	}

	var rows []SaleScheduleWithCounts
	if err := q.Order("sale_date, start_time, id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// PlannedDates lists the distinct dates from from onwards that have at least
// one active schedule at the station.
func (d *SaleScheduleDAO) PlannedDates(ctx context.Context, stationID uint, from time.Time) ([]time.Time, error) {
	var dates []time.Time

	result := conn(ctx, d.db).Model(&SaleSchedule{}).
		Distinct("sale_date").
		Where("station_id = ? AND is_active AND sale_date >= ?", stationID, dateArg(from)).
		Order("sale_date").
		Pluck("sale_date", &dates)
	if result.Error != nil {
		return nil, result.Error
	}

	return dates, nil
}
