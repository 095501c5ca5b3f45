package service

import (
	"context"
	"fmt"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/pkg/clock"
)

type TicketService struct {
	tx        Transactor
	tickets   TicketRepository
	schedules SaleScheduleRepository
	stocks    FuelStockRepository
	notifier  Notifier
	clock     clock.Clock
	settings  Settings
	issuer    *issuer
}

type TicketServiceOption func(*TicketService)

// WithNumberGenerator replaces the random ticket number source.
func WithNumberGenerator(fn func() string) TicketServiceOption {
	return func(s *TicketService) {
		if fn != nil {
			s.issuer.numbers = fn
		}
	}
}

func NewTicketService(
	tx Transactor,
	tickets TicketRepository,
	schedules SaleScheduleRepository,
	stocks FuelStockRepository,
	notifier Notifier,
	clk clock.Clock,
	settings Settings,
	opts ...TicketServiceOption,
) *TicketService {
	s := &TicketService{
		tx:        tx,
		tickets:   tickets,
		schedules: schedules,
		stocks:    stocks,
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
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *TicketService) Get(ctx context.Context, actor domain.Actor, id uint) (domain.Ticket, error) {
	t, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("s.tickets.FindByID -> %w", err)
	}

	if err = CanViewTicket(actor, t); err != nil {
		return domain.Ticket{}, err
	}

	return t, nil
}

func (s *TicketService) GetByNumber(ctx context.Context, actor domain.Actor, number string) (domain.Ticket, error) {
	if !isStaff(actor) {
		return domain.Ticket{}, domain.ErrRoleNotAllowed
	}

	t, err := s.tickets.FindByNumber(ctx, number)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("s.tickets.FindByNumber -> %w", err)
	}

	if err = CanManageStation(actor, t.StationID); err != nil {
		return domain.Ticket{}, err
	}

	return t, nil
}

// ListMine returns the caller's own tickets, newest first.
func (s *TicketService) ListMine(ctx context.Context, actor domain.Actor, openOnly bool) ([]domain.Ticket, error) {
	if actor.Role != domain.RoleCitizen {
		return nil, domain.ErrRoleNotAllowed
	}

	filter := domain.TicketFilter{UserID: &actor.UserID}
	if openOnly {
		filter.Statuses = domain.OpenStatuses
	}

	tickets, err := s.tickets.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("s.tickets.Find -> %w", err)
	}

	return tickets, nil
}

func (s *TicketService) ListOpenByEmail(ctx context.Context, actor domain.Actor, email string) ([]domain.Ticket, error) {
	if !isStaff(actor) {
		return nil, domain.ErrRoleNotAllowed
	}
	if email == "" {
		return nil, domain.ErrMissingContact
	}

	tickets, err := s.tickets.Find(ctx, domain.TicketFilter{Email: email, Statuses: domain.OpenStatuses})
	if err != nil {
		return nil, fmt.Errorf("s.tickets.Find -> %w", err)
	}

	return tickets, nil
}

// HasOpenTicket reports whether a citizen holds a pending or validated ticket.
// An empty email checks the caller; staff may check any email.
func (s *TicketService) HasOpenTicket(ctx context.Context, actor domain.Actor, email string) (bool, error) {
	citizen := actor.Citizen()
	if email != "" {
		if !isStaff(actor) {
			return false, domain.ErrRoleNotAllowed
		}
		citizen = domain.Citizen{Email: email}
	} else if actor.Role != domain.RoleCitizen {
		return false, domain.ErrRoleNotAllowed
	}

	open, err := s.tickets.HasOpenTicket(ctx, citizen)
	if err != nil {
		return false, fmt.Errorf("s.tickets.HasOpenTicket -> %w", err)
	}

	return open, nil
}

func (s *TicketService) ListByStation(ctx context.Context, actor domain.Actor, stationID uint) ([]domain.Ticket, error) {
	if err := CanViewStation(actor, stationID); err != nil {
		return nil, err
	}

	tickets, err := s.tickets.Find(ctx, domain.TicketFilter{StationID: &stationID})
	if err != nil {
		return nil, fmt.Errorf("s.tickets.Find -> %w", err)
	}

	return tickets, nil
}

func (s *TicketService) ListAll(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domain.ErrRoleNotAllowed
	}

	tickets, err := s.tickets.Find(ctx, domain.TicketFilter{})
	if err != nil {
		return nil, fmt.Errorf("s.tickets.Find -> %w", err)
	}

	return tickets, nil
}

// Receipt returns the ticket with its QR payload for the receipt view. Only
// validated or served tickets have a receipt.
func (s *TicketService) Receipt(ctx context.Context, actor domain.Actor, id uint) (domain.Ticket, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return domain.Ticket{}, err
	}

	if t.Status != domain.StatusValidated && t.Status != domain.StatusServed {
		return domain.Ticket{}, domain.ErrNoReceipt
	}
	if t.QRPayload == "" {
		t.QRPayload = t.QRCodePayload()
	}

	return t, nil
}
