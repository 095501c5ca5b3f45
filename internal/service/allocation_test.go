package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

func citizen(n uint) domain.Actor {
	return domain.Actor{
		UserID:    100 + n,
		Role:      domain.RoleCitizen,
		Email:     fmt.Sprintf("citizen%d@example.com", n),
		FirstName: "Citizen",
		LastName:  fmt.Sprint(n),
	}
}

func essence(quantity float64) TicketRequest {
	return TicketRequest{StationID: 1, FuelType: domain.FuelEssence, Quantity: quantity}
}

func TestCreateTicket_DecrementsQuota(t *testing.T) {
	env := newTestEnv()
	schedule := env.schedule(testDay, "08:00", 100, 30, 3)

	ticket, err := env.tickets.CreateTicket(context.Background(), citizenA, essence(20))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, ticket.Status)
	assert.Len(t, ticket.Number, 8)
	assert.Equal(t, "001", ticket.OrderNumber)
	assert.Equal(t, testDay, ticket.SupplyDate)
	assert.Equal(t, testNow.Add(5*24*time.Hour), ticket.ExpiresAt)
	require.NotNil(t, ticket.ScheduleID)
	assert.Equal(t, schedule.ID, *ticket.ScheduleID)
	require.NotNil(t, ticket.Citizen.UserID)
	assert.Equal(t, citizenA.UserID, *ticket.Citizen.UserID)
	assert.Empty(t, ticket.QRPayload)

	got := env.store.schedule(schedule.ID)
	assert.Equal(t, 80.0, got.AvailableQuantity)
	assert.Equal(t, int64(2), got.RemainingTickets())

	assert.Eventually(t, func() bool {
		return env.notifier.count(domain.EventManagerNewTicket) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCreateTicket_TicketLimitBeforeQuantity(t *testing.T) {
	env := newTestEnv()
	schedule := env.schedule(testDay, "08:00", 100, 30, 3)
	ctx := context.Background()

	for i := uint(1); i <= 3; i++ {
		_, err := env.tickets.CreateTicket(ctx, citizen(i), essence(30))
		require.NoError(t, err)
	}

	got := env.store.schedule(schedule.ID)
	assert.Equal(t, 10.0, got.RemainingQuantity())
	assert.Equal(t, int64(0), got.RemainingTickets())

	_, err := env.tickets.CreateTicket(ctx, citizen(4), essence(10))
	assert.ErrorIs(t, err, domain.ErrNoTicketsLeft)
	assert.ErrorIs(t, err, domain.ErrCapacity)
	assert.Equal(t, 10.0, env.store.schedule(schedule.ID).AvailableQuantity)
}

func TestCreateTicket_Rejections(t *testing.T) {
	yesterday := testDay.AddDate(0, 0, -1)

	tests := []struct {
		name  string
		actor domain.Actor
		req   TicketRequest
		want  error
		class error
	}{
		{"manager cannot request", manager, essence(10), domain.ErrRoleNotAllowed, domain.ErrAuthorization},
		{"zero quantity", citizenA, essence(0), domain.ErrInvalidQuantity, domain.ErrValidation},
		{"unknown fuel", citizenA, TicketRequest{StationID: 1, FuelType: "JET", Quantity: 5}, domain.ErrInvalidFuelType, domain.ErrValidation},
		{"date in the past", citizenA, TicketRequest{StationID: 1, FuelType: domain.FuelEssence, Quantity: 5, Date: &yesterday}, domain.ErrDateInPast, domain.ErrValidation},
		{"above per ticket cap", citizenA, essence(31), domain.ErrQuantityAboveTicketLimit, domain.ErrCapacity},
		{"other station", citizenA, TicketRequest{StationID: 2, FuelType: domain.FuelEssence, Quantity: 5}, domain.ErrNoActiveSchedule, domain.ErrNotFound},
		{"other fuel", citizenA, TicketRequest{StationID: 1, FuelType: domain.FuelDiesel, Quantity: 5}, domain.ErrNoActiveSchedule, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			schedule := env.schedule(testDay, "08:00", 100, 30, 3)

			_, err := env.tickets.CreateTicket(context.Background(), tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.class)
			assert.Equal(t, 100.0, env.store.schedule(schedule.ID).AvailableQuantity)
			assert.Empty(t, env.store.allTickets())
		})
	}
}

func TestCreateTicket_NotEnoughQuota(t *testing.T) {
	env := newTestEnv()
	schedule := env.schedule(testDay, "08:00", 15, 30, 3)

	_, err := env.tickets.CreateTicket(context.Background(), citizenA, essence(20))
	assert.ErrorIs(t, err, domain.ErrNotEnoughQuota)
	assert.Equal(t, 15.0, env.store.schedule(schedule.ID).AvailableQuantity)
}

func TestCreateTicket_InactiveScheduleIsIgnored(t *testing.T) {
	env := newTestEnv()
	schedule := env.schedule(testDay, "08:00", 100, 30, 3)
	schedule.IsActive = false
	_, err := env.store.scheduleRepo().Update(context.Background(), schedule)
	require.NoError(t, err)

	_, err = env.tickets.CreateTicket(context.Background(), citizenA, essence(10))
	assert.ErrorIs(t, err, domain.ErrNoActiveSchedule)
}

func TestCreateTicket_PicksEarliestWindow(t *testing.T) {
	env := newTestEnv()
	late := env.schedule(testDay, "14:00", 100, 30, 3)
	early := env.schedule(testDay, "07:00", 100, 30, 3)

	ticket, err := env.tickets.CreateTicket(context.Background(), citizenA, essence(10))
	require.NoError(t, err)

	require.NotNil(t, ticket.ScheduleID)
	assert.Equal(t, early.ID, *ticket.ScheduleID)
	assert.Equal(t, 100.0, env.store.schedule(late.ID).AvailableQuantity)
}

func TestCreateTicket_FutureDate(t *testing.T) {
	env := newTestEnv()
	day := testDay.AddDate(0, 0, 2)
	env.schedule(day, "08:00", 100, 30, 3)

	req := essence(10)
	req.Date = &day
	ticket, err := env.tickets.CreateTicket(context.Background(), citizenA, req)
	require.NoError(t, err)
	assert.Equal(t, day, ticket.SupplyDate)
}

func TestCreateTicket_OneOpenTicketPerCitizen(t *testing.T) {
	env := newTestEnv()
	env.schedule(testDay, "08:00", 100, 30, 5)
	ctx := context.Background()

	first, err := env.tickets.CreateTicket(ctx, citizenA, essence(10))
	require.NoError(t, err)

	_, err = env.tickets.CreateTicket(ctx, citizenA, essence(10))
	assert.ErrorIs(t, err, domain.ErrOpenTicketExists)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = env.tickets.UpdateStatus(ctx, manager, first.ID, domain.StatusValidated)
	require.NoError(t, err)

	_, err = env.tickets.CreateTicket(ctx, citizenA, essence(10))
	assert.ErrorIs(t, err, domain.ErrOpenTicketExists)

	_, err = env.tickets.Serve(ctx, manager, first.ID)
	require.NoError(t, err)

	second, err := env.tickets.CreateTicket(ctx, citizenA, essence(10))
	require.NoError(t, err)
	assert.Equal(t, "002", second.OrderNumber)
}

func TestCreateTicket_ConcurrentFullQuantity(t *testing.T) {
	env := newTestEnv()
	schedule := env.schedule(testDay, "08:00", 30, 30, 10)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.tickets.CreateTicket(context.Background(), citizen(uint(i+1)), essence(30))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCapacity)
	}
	assert.Equal(t, 1, succeeded)

	got := env.store.schedule(schedule.ID)
	assert.Equal(t, 0.0, got.AvailableQuantity)
	assert.Len(t, env.store.allTickets(), 1)
}

func TestCreateTicket_ConcurrentSameCitizen(t *testing.T) {
	env := newTestEnv()
	schedule := env.schedule(testDay, "08:00", 100, 10, 10)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.tickets.CreateTicket(context.Background(), citizenA, essence(10))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	duplicates := 0
	for err := range errs {
		if errors.Is(err, domain.ErrOpenTicketExists) {
			duplicates++
		}
	}
	assert.Equal(t, 4, duplicates)
	assert.Equal(t, 90.0, env.store.schedule(schedule.ID).AvailableQuantity)
}

func TestCreateTicket_RetriesNumberCollision(t *testing.T) {
	numbers := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()

		n := numbers[0]
		if len(numbers) > 1 {
			numbers = numbers[1:]
		}

		return n
	}

	env := newTestEnv(WithNumberGenerator(next))
	env.schedule(testDay, "08:00", 100, 30, 3)
	ctx := context.Background()

	first, err := env.tickets.CreateTicket(ctx, citizenA, essence(10))
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAA", first.Number)

	second, err := env.tickets.CreateTicket(ctx, citizenB, essence(10))
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", second.Number)
}

func TestCreateTicket_NumberSpaceExhausted(t *testing.T) {
	env := newTestEnv(WithNumberGenerator(func() string { return "SAMESAME" }))
	schedule := env.schedule(testDay, "08:00", 100, 30, 3)
	ctx := context.Background()

	_, err := env.tickets.CreateTicket(ctx, citizenA, essence(10))
	require.NoError(t, err)

	_, err = env.tickets.CreateTicket(ctx, citizenB, essence(10))
	assert.ErrorIs(t, err, errNumberSpaceExhausted)
	assert.Equal(t, 90.0, env.store.schedule(schedule.ID).AvailableQuantity)
}

func TestCreateTicket_NotifierFailureDoesNotFail(t *testing.T) {
	env := newTestEnv()
	env.notifier.err = errors.New("broker down")
	env.schedule(testDay, "08:00", 100, 30, 3)

	_, err := env.tickets.CreateTicket(context.Background(), citizenA, essence(10))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(env.notifier.Events()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Len(t, env.store.allTickets(), 1)
}

func TestCreateTicket_NotifierPanicIsContained(t *testing.T) {
	env := newTestEnv()
	env.notifier.panics = true
	env.schedule(testDay, "08:00", 100, 30, 3)

	_, err := env.tickets.CreateTicket(context.Background(), citizenA, essence(10))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(env.notifier.Events()) == 1
	}, time.Second, 10*time.Millisecond)
}

func cashRequest(quantity float64) CashTicketRequest {
	return CashTicketRequest{
		Citizen:    domain.Citizen{Email: "walkin@example.com", FirstName: "Awa", LastName: "Diallo", Phone: "+2250700000000"},
		StationID:  1,
		FuelType:   domain.FuelDiesel,
		Quantity:   quantity,
		AmountPaid: 12500,
	}
}

func TestCreateCashTicket(t *testing.T) {
	env := newTestEnv()
	stock := env.store.addStock(domain.FuelStock{StationID: 1, FuelType: domain.FuelDiesel, Available: 500, IsAvailable: true})

	ticket, err := env.tickets.CreateCashTicket(context.Background(), manager, cashRequest(20))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusValidated, ticket.Status)
	assert.True(t, ticket.CashSale)
	assert.Nil(t, ticket.ScheduleID)
	assert.Nil(t, ticket.Citizen.UserID)
	require.NotNil(t, ticket.AmountPaid)
	assert.Equal(t, 12500.0, *ticket.AmountPaid)
	assert.Equal(t, ticket.QRCodePayload(), ticket.QRPayload)
	assert.Equal(t, 500.0, env.store.stock(stock.ID).Available)

	assert.Eventually(t, func() bool {
		return env.notifier.count(domain.EventCitizenReceiptReady) == 1
	}, time.Second, 10*time.Millisecond)

	_, err = env.tickets.CreateCashTicket(context.Background(), manager, cashRequest(5))
	assert.ErrorIs(t, err, domain.ErrOpenTicketExists)
}

func TestCreateCashTicket_Rejections(t *testing.T) {
	noContact := cashRequest(10)
	noContact.Citizen.LastName = ""

	tests := []struct {
		name  string
		actor domain.Actor
		req   CashTicketRequest
		want  error
	}{
		{"citizen cannot sell", citizenA, cashRequest(10), domain.ErrRoleNotAllowed},
		{"other station manager", stranger, cashRequest(10), domain.ErrNotStationManager},
		{"missing contact", manager, noContact, domain.ErrMissingContact},
		{"stock too low", manager, cashRequest(600), domain.ErrCashStockTooLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.store.addStock(domain.FuelStock{StationID: 1, FuelType: domain.FuelDiesel, Available: 500, IsAvailable: true})

			_, err := env.tickets.CreateCashTicket(context.Background(), tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, env.store.allTickets())
		})
	}

	t.Run("no stock row", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.tickets.CreateCashTicket(context.Background(), admin, cashRequest(10))
		assert.ErrorIs(t, err, domain.ErrStationStockAbsent)
	})
}
