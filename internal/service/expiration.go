package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/pkg/clock"
)

type renewalOutcome int

const (
	renewalSkipped renewalOutcome = iota
	renewalAllocated
	renewalUnallocated
)

// ExpirationService retires pending tickets older than the validity period
// and books a replacement for each one.
type ExpirationService struct {
	tx        Transactor
	tickets   TicketRepository
	schedules SaleScheduleRepository
	notifier  Notifier
	clock     clock.Clock
	settings  Settings
	issuer    *issuer
}

func NewExpirationService(
	tx Transactor,
	tickets TicketRepository,
	schedules SaleScheduleRepository,
	notifier Notifier,
	clk clock.Clock,
	settings Settings,
) *ExpirationService {
	return &ExpirationService{
		tx:        tx,
		tickets:   tickets,
		schedules: schedules,
		notifier:  notifier,
		clock:     clk,
		settings:  settings,
		issuer: &issuer{
			tx:       tx,
			tickets:  tickets,
			numbers:  NewTicketNumber,
			attempts: settings.NumberAttempts,
		},
	}
}

// Run expires every due ticket. Selection is by age and status only, so a
// second run over the same data finds nothing left to do.
func (s *ExpirationService) Run(ctx context.Context) (domain.ExpirationReport, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.settings.validity())

	due, err := s.tickets.FindExpirable(ctx, cutoff)
	if err != nil {
		return domain.ExpirationReport{}, fmt.Errorf("s.tickets.FindExpirable -> %w", err)
	}

	var report domain.ExpirationReport
	for _, t := range due {
		if err = ctx.Err(); err != nil {
			return report, err
		}

		outcome, renewed, err := s.expireAndRenew(ctx, t, now, cutoff)
		if err != nil {
			report.Failed++
			zap.L().Error("failed to expire ticket", zap.String("ticket_number", t.Number), zap.Error(err))
			continue
		}

		switch outcome {
		case renewalAllocated:
			report.Expired++
			report.Renewed++
		case renewalUnallocated:
			report.Expired++
			report.Unallocated++
			zap.L().Warn("renewed ticket without a sale schedule",
				zap.String("ticket_number", renewed.Number),
				zap.String("previous_number", t.Number),
			)
		default:
			continue
		}

		publish(s.notifier, newTicketEvent(renewed, now))
	}

	zap.L().Info("ticket expiration finished",
		zap.Int("expired", report.Expired),
		zap.Int("renewed", report.Renewed),
		zap.Int("unallocated", report.Unallocated),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

// expireAndRenew takes the same locks as ticket creation, citizen first and
// schedules after, so it cannot race a live request for the same window.
func (s *ExpirationService) expireAndRenew(ctx context.Context, due domain.Ticket, now, cutoff time.Time) (renewalOutcome, domain.Ticket, error) {
	outcome := renewalSkipped

	var renewed domain.Ticket
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.tx.AdvisoryLock(ctx, due.Citizen.LockKey()); err != nil {
			return fmt.Errorf("s.tx.AdvisoryLock -> %w", err)
		}

		t, err := s.tickets.FindByIDForUpdate(ctx, due.ID)
		if err != nil {
			if isNotFound(err) {
				return nil
			}

			return fmt.Errorf("s.tickets.FindByIDForUpdate -> %w", err)
		}
		if t.Status != domain.StatusPending || !t.CreatedAt.Before(cutoff) {
			return nil
		}

		t.Status = domain.StatusExpired
		t.Expired = true
		t.UpdatedAt = now
		if _, err = s.tickets.Update(ctx, t); err != nil {
			return fmt.Errorf("s.tickets.Update -> %w", err)
		}

		next := domain.Ticket{
			StationID:      t.StationID,
			FuelType:       t.FuelType,
			Quantity:       t.Quantity,
			AmountPaid:     t.AmountPaid,
			Status:         domain.StatusPending,
			Citizen:        t.Citizen,
			ExpiresAt:      now.Add(s.settings.validity()),
			PreviousNumber: t.Number,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		schedule, found, err := s.findRenewalSchedule(ctx, t, now)
		if err != nil {
			return err
		}
		if found {
			if err = s.schedules.AdjustAvailable(ctx, schedule.ID, -t.Quantity); err != nil {
				return fmt.Errorf("s.schedules.AdjustAvailable -> %w", err)
			}
			next.ScheduleID = &schedule.ID
			next.SupplyDate = schedule.SaleDate
			outcome = renewalAllocated
		} else {
			next.Unallocated = true
			next.SupplyDate = s.settings.today(now).AddDate(0, 0, s.settings.FallbackOffsetDays)
			outcome = renewalUnallocated
		}

		renewed, err = s.issuer.issue(ctx, next)

		return err
	})
	if err != nil {
		return renewalSkipped, domain.Ticket{}, err
	}

	return outcome, renewed, nil
}

// findRenewalSchedule returns the first schedule between tomorrow and the end
// of the renewal window that can take the ticket's quantity.
func (s *ExpirationService) findRenewalSchedule(ctx context.Context, t domain.Ticket, now time.Time) (domain.SaleSchedule, bool, error) {
	from := s.settings.today(now).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, s.settings.RenewalWindowDays)

	candidates, err := s.schedules.FindRenewalCandidatesForUpdate(ctx, t.StationID, t.FuelType, from, to)
	if err != nil {
		return domain.SaleSchedule{}, false, fmt.Errorf("s.schedules.FindRenewalCandidatesForUpdate -> %w", err)
	}

	for _, candidate := range candidates {
		if candidate.CanServe(t.Quantity) {
			return candidate, true, nil
		}
	}

	return domain.SaleSchedule{}, false, nil
}
