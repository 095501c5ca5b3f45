package service

import (
	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

// The functions below are the authorization rules of the core operations.
// They return nil when the actor is allowed and an ErrAuthorization or
// ErrTransition class error otherwise.

func ownsTicket(actor domain.Actor, t domain.Ticket) bool {
	return t.Citizen.UserID != nil && *t.Citizen.UserID == actor.UserID
}

func CanRequestTicket(actor domain.Actor) error {
	if actor.Role != domain.RoleCitizen {
		return domain.ErrRoleNotAllowed
	}

	return nil
}

// CanManageStation allows administrators everywhere and station managers on
// the stations they run.
func CanManageStation(actor domain.Actor, stationID uint) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleStation:
		if actor.ManagesStation(stationID) {
			return nil
		}

		return domain.ErrNotStationManager
	default:
		return domain.ErrRoleNotAllowed
	}
}

// CanViewStation adds read access for supervisors to CanManageStation.
func CanViewStation(actor domain.Actor, stationID uint) error {
	if actor.Role == domain.RoleSupervisor {
		return nil
	}

	return CanManageStation(actor, stationID)
}

func CanViewTicket(actor domain.Actor, t domain.Ticket) error {
	if actor.Role == domain.RoleCitizen {
		if ownsTicket(actor, t) {
			return nil
		}

		return domain.ErrNotTicketOwner
	}

	return CanViewStation(actor, t.StationID)
}

// CanTransition checks the lifecycle table before any role rule, so a move
// outside the table is a transition error for every caller.
func CanTransition(actor domain.Actor, t domain.Ticket, to domain.TicketStatus) error {
	if !t.Status.CanTransitionTo(to) {
		return domain.ErrInvalidTransition
	}

	switch actor.Role {
	case domain.RoleCitizen:
		if !ownsTicket(actor, t) {
			return domain.ErrNotTicketOwner
		}
		if t.Status != domain.StatusPending || to != domain.StatusCancelled {
			return domain.ErrCitizenCancelOnly
		}

		return nil
	case domain.RoleStation, domain.RoleAdmin:
		return CanManageStation(actor, t.StationID)
	default:
		return domain.ErrRoleNotAllowed
	}
}

func CanDelete(actor domain.Actor, t domain.Ticket) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleCitizen:
		if ownsTicket(actor, t) {
			return nil
		}

		return domain.ErrNotTicketOwner
	default:
		return domain.ErrRoleNotAllowed
	}
}

func isStaff(actor domain.Actor) bool {
	return actor.Role == domain.RoleStation || actor.Role == domain.RoleAdmin
}
