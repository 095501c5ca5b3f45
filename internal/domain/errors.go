package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every failure below wraps exactly one of them so callers can
// branch on the class with errors.Is while keeping a specific message.
var (
	ErrValidation        = errors.New("validation error")
	ErrCapacity          = errors.New("capacity error")
	ErrDuplicate         = errors.New("duplicate error")
	ErrNotFound          = errors.New("not found")
	ErrAuthorization     = errors.New("authorization error")
	ErrTransition        = errors.New("transition error")
	ErrInsufficientStock = errors.New("insufficient stock")
)

var (
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	ErrInvalidFuelType  = fmt.Errorf("%w: unknown fuel type", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: unknown ticket status", ErrValidation)
	ErrDateInPast       = fmt.Errorf("%w: the requested date is in the past", ErrValidation)
	ErrInvalidTimeRange = fmt.Errorf("%w: the end time must be after the start time", ErrValidation)
	ErrInvalidPrice     = fmt.Errorf("%w: price cannot be negative", ErrValidation)
	ErrInvalidSchedule  = fmt.Errorf("%w: schedule quantities and limits must be positive", ErrValidation)
	ErrMissingContact   = fmt.Errorf("%w: citizen email, first name and last name are required", ErrValidation)

	ErrScheduleHasTickets = fmt.Errorf("%w: the sale schedule already has tickets and cannot be changed", ErrValidation)

	ErrQuantityAboveTicketLimit = fmt.Errorf("%w: the quantity exceeds the maximum allowed per ticket", ErrCapacity)
	ErrNoTicketsLeft            = fmt.Errorf("%w: no tickets left for this sale schedule", ErrCapacity)
	ErrNotEnoughQuota           = fmt.Errorf("%w: not enough fuel left for this sale schedule", ErrCapacity)
	ErrAboveDailyCapacity       = fmt.Errorf("%w: the available quantity exceeds the station's daily capacity", ErrCapacity)

	ErrOpenTicketExists   = fmt.Errorf("%w: the citizen already has a pending or validated ticket", ErrDuplicate)
	ErrScheduleExists     = fmt.Errorf("%w: an active sale schedule already exists for this station, date and fuel type", ErrDuplicate)
	ErrStockExists        = fmt.Errorf("%w: a fuel stock already exists for this station and fuel type", ErrDuplicate)
	ErrTicketNumberExists = fmt.Errorf("%w: ticket number already taken", ErrDuplicate)
	ErrExpirationRunning  = fmt.Errorf("%w: the expiration job is already running", ErrDuplicate)

	ErrTicketNotFound     = fmt.Errorf("%w: ticket not found", ErrNotFound)
	ErrScheduleNotFound   = fmt.Errorf("%w: sale schedule not found", ErrNotFound)
	ErrNoActiveSchedule   = fmt.Errorf("%w: no active sale schedule for this station, fuel type and date", ErrNotFound)
	ErrStockNotFound      = fmt.Errorf("%w: fuel stock not found", ErrNotFound)
	ErrStationStockAbsent = fmt.Errorf("%w: the station has no stock for this fuel type", ErrNotFound)

	ErrRoleNotAllowed    = fmt.Errorf("%w: the caller's role is not allowed to perform this operation", ErrAuthorization)
	ErrNotTicketOwner    = fmt.Errorf("%w: the ticket belongs to another citizen", ErrAuthorization)
	ErrNotStationManager = fmt.Errorf("%w: the caller does not manage this station", ErrAuthorization)
	ErrCitizenCancelOnly = fmt.Errorf("%w: a citizen may only cancel a pending ticket", ErrAuthorization)

	ErrInvalidTransition  = fmt.Errorf("%w: this status change is not allowed", ErrTransition)
	ErrTicketNotDeletable = fmt.Errorf("%w: only a pending ticket can be deleted", ErrTransition)
	ErrNoReceipt          = fmt.Errorf("%w: only validated or served tickets have a receipt", ErrTransition)

	ErrStockWouldGoNegative = fmt.Errorf("%w: removing this quantity would make the stock negative", ErrInsufficientStock)
	ErrCashStockTooLow      = fmt.Errorf("%w: the station does not hold enough fuel for this cash sale", ErrInsufficientStock)
)
