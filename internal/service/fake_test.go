package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

type txMarker struct{}

// memStore is an in-memory stand-in for the postgres repositories. A
// transaction holds txMu for its whole duration, which gives the same
// serialization the row and advisory locks give in the database, and rolls
// the data back when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID      uint
	tickets     map[uint]domain.Ticket
	schedules   map[uint]domain.SaleSchedule
	stocks      map[uint]domain.FuelStock
	movements   []domain.FuelMovement
	failMove    error
	lockedKeys  []string
	createCalls int
}

func newMemStore() *memStore {
	return &memStore{
		tickets:   map[uint]domain.Ticket{},
		schedules: map[uint]domain.SaleSchedule{},
		stocks:    map[uint]domain.FuelStock{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	tickets := copyMap(m.tickets)
	schedules := copyMap(m.schedules)
	stocks := copyMap(m.stocks)
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		m.mu.Lock()
		m.tickets, m.schedules, m.stocks = tickets, schedules, stocks
		m.mu.Unlock()

		return err
	}

	return nil
}

func (m *memStore) AdvisoryLock(ctx context.Context, key string) error {
	if ctx.Value(txMarker{}) == nil {
		return errors.New("advisory lock outside of a transaction")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedKeys = append(m.lockedKeys, key)

	return nil
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}

func (m *memStore) ticketRepo() *memTickets     { return &memTickets{m} }
func (m *memStore) scheduleRepo() *memSchedules { return &memSchedules{m} }
func (m *memStore) stockRepo() *memStocks       { return &memStocks{m} }

func (m *memStore) ticket(id uint) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tickets[id]
}

func (m *memStore) schedule(id uint) domain.SaleSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.withCounts(m.schedules[id])
}

func (m *memStore) stock(id uint) domain.FuelStock {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stocks[id]
}

func (m *memStore) allTickets() []domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func (m *memStore) addSchedule(s domain.SaleSchedule) domain.SaleSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.id()
	m.schedules[s.ID] = s

	return s
}

func (m *memStore) addStock(s domain.FuelStock) domain.FuelStock {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.id()
	m.stocks[s.ID] = s

	return s
}

func (m *memStore) addTicket(t domain.Ticket) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.id()
	m.tickets[t.ID] = t

	return t
}

// withCounts must be called with mu held.
func (m *memStore) withCounts(s domain.SaleSchedule) domain.SaleSchedule {
	s.ActiveTickets = 0
	for _, t := range m.tickets {
		if t.ScheduleID != nil && *t.ScheduleID == s.ID && t.Status != domain.StatusCancelled {
			s.ActiveTickets++
		}
	}

	return s
}

type memTickets struct{ m *memStore }

func (r *memTickets) Create(_ context.Context, t domain.Ticket) (domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.createCalls++
	for _, existing := range r.m.tickets {
		if existing.Number == t.Number {
			return domain.Ticket{}, domain.ErrTicketNumberExists
		}
	}

	t.ID = r.m.id()
	r.m.tickets[t.ID] = t

	return t, nil
}

func (r *memTickets) FindByID(_ context.Context, id uint) (domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}

	return t, nil
}

func (r *memTickets) FindByIDForUpdate(ctx context.Context, id uint) (domain.Ticket, error) {
	return r.FindByID(ctx, id)
}

func (r *memTickets) FindByNumber(_ context.Context, number string) (domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, t := range r.m.tickets {
		if t.Number == number {
			return t, nil
		}
	}

	return domain.Ticket{}, domain.ErrTicketNotFound
}

func isOpen(s domain.TicketStatus) bool {
	return s == domain.StatusPending || s == domain.StatusValidated
}

func (r *memTickets) HasOpenTicket(_ context.Context, c domain.Citizen) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, t := range r.m.tickets {
		if !isOpen(t.Status) {
			continue
		}
		if c.UserID != nil {
			if t.Citizen.UserID != nil && *t.Citizen.UserID == *c.UserID {
				return true, nil
			}
			continue
		}
		if strings.EqualFold(t.Citizen.Email, c.Email) {
			return true, nil
		}
	}

	return false, nil
}

func (r *memTickets) CountForStationDate(_ context.Context, stationID uint, date time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for _, t := range r.m.tickets {
		if t.StationID == stationID && t.SupplyDate.Equal(date) {
			n++
		}
	}

	return n, nil
}

func (r *memTickets) Update(_ context.Context, t domain.Ticket) (domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.tickets[t.ID]; !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	r.m.tickets[t.ID] = t

	return t, nil
}

func (r *memTickets) Delete(_ context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.tickets[id]; !ok {
		return domain.ErrTicketNotFound
	}
	delete(r.m.tickets, id)

	return nil
}

func (r *memTickets) FindExpirable(_ context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []domain.Ticket
	for _, t := range r.m.tickets {
		if t.Status == domain.StatusPending && t.CreatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *memTickets) Find(_ context.Context, f domain.TicketFilter) ([]domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []domain.Ticket
	for _, t := range r.m.tickets {
		if f.UserID != nil && (t.Citizen.UserID == nil || *t.Citizen.UserID != *f.UserID) {
			continue
		}
		if f.Email != "" && !strings.EqualFold(t.Citizen.Email, f.Email) {
			continue
		}
		if f.StationID != nil && t.StationID != *f.StationID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out, nil
}

func containsStatus(statuses []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}

	return false
}

type memSchedules struct{ m *memStore }

func (r *memSchedules) Create(ctx context.Context, s domain.SaleSchedule) (domain.SaleSchedule, error) {
	if s.IsActive {
		exists, _ := r.ExistsActive(ctx, s.StationID, s.FuelType, s.SaleDate, 0)
		if exists {
			return domain.SaleSchedule{}, domain.ErrScheduleExists
		}
	}

	return r.m.addSchedule(s), nil
}

func (r *memSchedules) Update(_ context.Context, s domain.SaleSchedule) (domain.SaleSchedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.schedules[s.ID]; !ok {
		return domain.SaleSchedule{}, domain.ErrScheduleNotFound
	}
	r.m.schedules[s.ID] = s

	return r.m.withCounts(s), nil
}

func (r *memSchedules) Delete(_ context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.schedules[id]; !ok {
		return domain.ErrScheduleNotFound
	}
	delete(r.m.schedules, id)

	return nil
}

func (r *memSchedules) FindByID(_ context.Context, id uint) (domain.SaleSchedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.schedules[id]
	if !ok {
		return domain.SaleSchedule{}, domain.ErrScheduleNotFound
	}

	return r.m.withCounts(s), nil
}

func (r *memSchedules) FindByIDForUpdate(ctx context.Context, id uint) (domain.SaleSchedule, error) {
	return r.FindByID(ctx, id)
}

func (r *memSchedules) selectSorted(keep func(domain.SaleSchedule) bool) []domain.SaleSchedule {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []domain.SaleSchedule
	for _, s := range r.m.schedules {
		if keep(s) {
			out = append(out, r.m.withCounts(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SaleDate.Equal(out[j].SaleDate) {
			return out[i].SaleDate.Before(out[j].SaleDate)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}

		return out[i].ID < out[j].ID
	})

	return out
}

func (r *memSchedules) FindActiveForUpdate(_ context.Context, stationID uint, fuelType domain.FuelType, date time.Time) ([]domain.SaleSchedule, error) {
	return r.selectSorted(func(s domain.SaleSchedule) bool {
		return s.IsActive && s.StationID == stationID && s.FuelType == fuelType && s.SaleDate.Equal(date)
	}), nil
}

func (r *memSchedules) FindRenewalCandidatesForUpdate(_ context.Context, stationID uint, fuelType domain.FuelType, from, to time.Time) ([]domain.SaleSchedule, error) {
	return r.selectSorted(func(s domain.SaleSchedule) bool {
		return s.IsActive && s.StationID == stationID && s.FuelType == fuelType &&
			!s.SaleDate.Before(from) && !s.SaleDate.After(to)
	}), nil
}

func (r *memSchedules) ExistsActive(_ context.Context, stationID uint, fuelType domain.FuelType, date time.Time, excludeID uint) (bool, error) {
	found := r.selectSorted(func(s domain.SaleSchedule) bool {
		return s.ID != excludeID && s.IsActive && s.StationID == stationID && s.FuelType == fuelType && s.SaleDate.Equal(date)
	})

	return len(found) > 0, nil
}

func (r *memSchedules) CountTickets(_ context.Context, id uint) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for _, t := range r.m.tickets {
		if t.ScheduleID != nil && *t.ScheduleID == id {
			n++
		}
	}

	return n, nil
}

func (r *memSchedules) AdjustAvailable(_ context.Context, id uint, delta float64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.schedules[id]
	if !ok {
		return domain.ErrScheduleNotFound
	}
	s.AvailableQuantity += delta
	r.m.schedules[id] = s

	return nil
}

func (r *memSchedules) Find(_ context.Context, f domain.ScheduleFilter) ([]domain.SaleSchedule, error) {
	return r.selectSorted(func(s domain.SaleSchedule) bool {
		if f.StationID != 0 && s.StationID != f.StationID {
			return false
		}
		if f.FuelType != "" && s.FuelType != f.FuelType {
			return false
		}
		if f.From != nil && s.SaleDate.Before(*f.From) {
			return false
		}
		if f.To != nil && s.SaleDate.After(*f.To) {
			return false
		}

		return !f.ActiveOnly || s.IsActive
	}), nil
}

func (r *memSchedules) PlannedDates(_ context.Context, stationID uint, from time.Time) ([]time.Time, error) {
	seen := map[time.Time]bool{}
	var dates []time.Time
	for _, s := range r.selectSorted(func(s domain.SaleSchedule) bool {
		return s.IsActive && s.StationID == stationID && !s.SaleDate.Before(from)
	}) {
		if !seen[s.SaleDate] {
			seen[s.SaleDate] = true
			dates = append(dates, s.SaleDate)
		}
	}

	return dates, nil
}

type memStocks struct{ m *memStore }

func (r *memStocks) Create(ctx context.Context, s domain.FuelStock) (domain.FuelStock, error) {
	if _, err := r.FindByStationFuel(ctx, s.StationID, s.FuelType); err == nil {
		return domain.FuelStock{}, domain.ErrStockExists
	}

	return r.m.addStock(s), nil
}

func (r *memStocks) Update(_ context.Context, s domain.FuelStock) (domain.FuelStock, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.stocks[s.ID]; !ok {
		return domain.FuelStock{}, domain.ErrStockNotFound
	}
	r.m.stocks[s.ID] = s

	return s, nil
}

func (r *memStocks) Delete(_ context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.stocks[id]; !ok {
		return domain.ErrStockNotFound
	}
	delete(r.m.stocks, id)

	return nil
}

func (r *memStocks) FindByID(_ context.Context, id uint) (domain.FuelStock, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.stocks[id]
	if !ok {
		return domain.FuelStock{}, domain.ErrStockNotFound
	}

	return s, nil
}

func (r *memStocks) FindByIDForUpdate(ctx context.Context, id uint) (domain.FuelStock, error) {
	return r.FindByID(ctx, id)
}

func (r *memStocks) FindByStationFuel(_ context.Context, stationID uint, fuelType domain.FuelType) (domain.FuelStock, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, s := range r.m.stocks {
		if s.StationID == stationID && s.FuelType == fuelType {
			return s, nil
		}
	}

	return domain.FuelStock{}, domain.ErrStockNotFound
}

func (r *memStocks) FindByStation(_ context.Context, stationID uint, availableOnly bool) ([]domain.FuelStock, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []domain.FuelStock
	for _, s := range r.m.stocks {
		if s.StationID == stationID && (!availableOnly || s.IsAvailable) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FuelType < out[j].FuelType })

	return out, nil
}

func (r *memStocks) CreateMovement(_ context.Context, mv domain.FuelMovement) (domain.FuelMovement, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.failMove != nil {
		return domain.FuelMovement{}, r.m.failMove
	}
	mv.ID = r.m.id()
	r.m.movements = append(r.m.movements, mv)

	return mv, nil
}

func (r *memStocks) FindMovements(_ context.Context, f domain.MovementFilter) ([]domain.FuelMovement, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []domain.FuelMovement
	for _, mv := range r.m.movements {
		if f.StockID != nil && mv.StockID != *f.StockID {
			continue
		}
		if len(f.StationIDs) > 0 && !containsUint(f.StationIDs, mv.StationID) {
			continue
		}
		if f.From != nil && mv.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !mv.CreatedAt.Before(*f.To) {
			continue
		}
		out = append(out, mv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

func containsUint(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}

// fixedClock returns a settable instant.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// recordingNotifier keeps every published event and can be told to fail.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
	panics bool
}

func (n *recordingNotifier) Publish(_ context.Context, e domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, e)
	if n.panics {
		panic("notifier down")
	}

	return n.err
}

func (n *recordingNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]domain.Event(nil), n.events...)
}

func (n *recordingNotifier) count(kind domain.EventType) int {
	c := 0
	for _, e := range n.Events() {
		if e.Type == kind {
			c++
		}
	}

	return c
}

var (
	testNow  = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	testDay  = domain.DateOf(testNow)
	citizenA = domain.Actor{UserID: 1, Role: domain.RoleCitizen, Email: "a@example.com", FirstName: "Ama", LastName: "Kone"}
	citizenB = domain.Actor{UserID: 2, Role: domain.RoleCitizen, Email: "b@example.com", FirstName: "Bile", LastName: "Traore"}
	manager  = domain.Actor{UserID: 10, Role: domain.RoleStation, Email: "m@example.com", StationIDs: []uint{1}}
	stranger = domain.Actor{UserID: 11, Role: domain.RoleStation, Email: "s@example.com", StationIDs: []uint{2}}
	admin    = domain.Actor{UserID: 20, Role: domain.RoleAdmin, Email: "admin@example.com"}
	overseer = domain.Actor{UserID: 30, Role: domain.RoleSupervisor, Email: "g@example.com"}
)

func utcSettings() Settings {
	s := DefaultSettings()
	s.Location = time.UTC

	return s
}

type testEnv struct {
	store    *memStore
	clock    *fixedClock
	notifier *recordingNotifier
	tickets  *TicketService
	expiry   *ExpirationService
	sched    *ScheduleService
	stocks   *StockService
}

func newTestEnv(opts ...TicketServiceOption) *testEnv {
	store := newMemStore()
	clk := newFixedClock(testNow)
	n := &recordingNotifier{}
	settings := utcSettings()

	return &testEnv{
		store:    store,
		clock:    clk,
		notifier: n,
		tickets:  NewTicketService(store, store.ticketRepo(), store.scheduleRepo(), store.stockRepo(), n, clk, settings, opts...),
		expiry:   NewExpirationService(store, store.ticketRepo(), store.scheduleRepo(), n, clk, settings),
		sched:    NewScheduleService(store, store.scheduleRepo(), store.stockRepo(), clk, settings),
		stocks:   NewStockService(store, store.stockRepo(), clk),
	}
}

func (e *testEnv) schedule(day time.Time, start string, quantity, perTicket float64, maxTickets int) domain.SaleSchedule {
	return e.store.addSchedule(domain.SaleSchedule{
		StationID:            1,
		FuelType:             domain.FuelEssence,
		SaleDate:             day,
		StartTime:            start,
		EndTime:              "18:00",
		AvailableQuantity:    quantity,
		MaxQuantityPerTicket: perTicket,
		MaxTicketsPerDay:     maxTickets,
		IsActive:             true,
	})
}
