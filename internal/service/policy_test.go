package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

func TestCanManageStation(t *testing.T) {
	assert.NoError(t, CanManageStation(admin, 99))
	assert.NoError(t, CanManageStation(manager, 1))
	assert.ErrorIs(t, CanManageStation(manager, 2), domain.ErrNotStationManager)
	assert.ErrorIs(t, CanManageStation(overseer, 1), domain.ErrRoleNotAllowed)
	assert.ErrorIs(t, CanManageStation(citizenA, 1), domain.ErrRoleNotAllowed)
}

func TestCanViewStation(t *testing.T) {
	assert.NoError(t, CanViewStation(overseer, 1))
	assert.NoError(t, CanViewStation(manager, 1))
	assert.ErrorIs(t, CanViewStation(citizenA, 1), domain.ErrAuthorization)
}

func TestCanViewTicket(t *testing.T) {
	id := citizenA.UserID
	ticket := domain.Ticket{StationID: 1, Citizen: domain.Citizen{UserID: &id}}
	cash := domain.Ticket{StationID: 1, CashSale: true}

	assert.NoError(t, CanViewTicket(citizenA, ticket))
	assert.ErrorIs(t, CanViewTicket(citizenB, ticket), domain.ErrNotTicketOwner)
	assert.ErrorIs(t, CanViewTicket(citizenA, cash), domain.ErrNotTicketOwner)
	assert.NoError(t, CanViewTicket(manager, cash))
	assert.ErrorIs(t, CanViewTicket(stranger, ticket), domain.ErrNotStationManager)
	assert.NoError(t, CanViewTicket(overseer, ticket))
}

func TestCanRequestTicket(t *testing.T) {
	assert.NoError(t, CanRequestTicket(citizenA))
	for _, actor := range []domain.Actor{manager, admin, overseer} {
		assert.ErrorIs(t, CanRequestTicket(actor), domain.ErrRoleNotAllowed, actor.Role)
	}
}
