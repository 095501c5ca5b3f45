package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/fuelticket-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/fuelticket-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

type TicketService interface {
	CreateTicket(ctx context.Context, actor domain.Actor, req service.TicketRequest) (domain.Ticket, error)
	CreateCashTicket(ctx context.Context, actor domain.Actor, req service.CashTicketRequest) (domain.Ticket, error)
	Get(ctx context.Context, actor domain.Actor, id uint) (domain.Ticket, error)
	GetByNumber(ctx context.Context, actor domain.Actor, number string) (domain.Ticket, error)
	ListMine(ctx context.Context, actor domain.Actor, openOnly bool) ([]domain.Ticket, error)
	ListOpenByEmail(ctx context.Context, actor domain.Actor, email string) ([]domain.Ticket, error)
	HasOpenTicket(ctx context.Context, actor domain.Actor, email string) (bool, error)
	ListByStation(ctx context.Context, actor domain.Actor, stationID uint) ([]domain.Ticket, error)
	ListAll(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error)
	Receipt(ctx context.Context, actor domain.Actor, id uint) (domain.Ticket, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, id uint, to domain.TicketStatus) (domain.Ticket, error)
	Serve(ctx context.Context, actor domain.Actor, id uint) (domain.Ticket, error)
	Delete(ctx context.Context, actor domain.Actor, id uint) error
}

type TicketHandler struct {
	svc TicketService
}

func NewTicketHandler(svc TicketService) *TicketHandler {
	return &TicketHandler{
		svc: svc,
	}
}

// HandleCreateTicket godoc
// @Summary      Request a fuel ticket
// @Description  Books the quantity on the first active sale schedule of the station, fuel type and date. Citizens only.
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateTicketRequest  true  "ticket request"
// @Success      201      {object}  response.Ticket
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /tickets [post]
// @Security BearerAuth
func (h *TicketHandler) HandleCreateTicket(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	ticket, err := h.svc.CreateTicket(ctx.Request.Context(), actor, req.ToInput())
	if err != nil {
		renderServiceErr(ctx, "HandleCreateTicket -> h.svc.CreateTicket", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.NewTicket(ticket))
}

// HandleCreateCashTicket godoc
// @Summary      Sell a ticket at the counter
// @Description  Issues an already validated ticket to a walk-in citizen. Station managers of the station and administrators only.
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateCashTicketRequest  true  "cash sale"
// @Success      201      {object}  response.Ticket
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /tickets/cash [post]
// @Security BearerAuth
func (h *TicketHandler) HandleCreateCashTicket(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateCashTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	ticket, err := h.svc.CreateCashTicket(ctx.Request.Context(), actor, req.ToInput())
	if err != nil {
		renderServiceErr(ctx, "HandleCreateCashTicket -> h.svc.CreateCashTicket", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.NewTicket(ticket))
}

// HandleListTickets godoc
// @Summary      List every ticket
// @Tags         tickets
// @Produce      json
// @Success      200  {array}   response.Ticket
// @Failure      403  {object}  response.Err
// @Router       /tickets [get]
// @Security BearerAuth
func (h *TicketHandler) HandleListTickets(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	tickets, err := h.svc.ListAll(ctx.Request.Context(), actor)
	if err != nil {
		renderServiceErr(ctx, "HandleListTickets -> h.svc.ListAll", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTickets(tickets))
}

// HandleGetTicket godoc
// @Summary      Get a ticket
// @Tags         tickets
// @Produce      json
// @Param        id   path      int  true  "ticket id"
// @Success      200  {object}  response.Ticket
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /tickets/{id} [get]
// @Security BearerAuth
func (h *TicketHandler) HandleGetTicket(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id, respErr := parseUintParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ticket, err := h.svc.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		renderServiceErr(ctx, "HandleGetTicket -> h.svc.Get", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTicket(ticket))
}

// HandleGetTicketByNumber godoc
// @Summary      Find a ticket by its number
// @Tags         tickets
// @Produce      json
// @Param        number  path      string  true  "ticket number"
// @Success      200     {object}  response.Ticket
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Router       /tickets/by-number/{number} [get]
// @Security BearerAuth
func (h *TicketHandler) HandleGetTicketByNumber(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ticket, err := h.svc.GetByNumber(ctx.Request.Context(), actor, ctx.Param("number"))
	if err != nil {
		renderServiceErr(ctx, "HandleGetTicketByNumber -> h.svc.GetByNumber", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTicket(ticket))
}

func (h *TicketHandler) listMine(ctx *gin.Context, openOnly bool) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	tickets, err := h.svc.ListMine(ctx.Request.Context(), actor, openOnly)
	if err != nil {
		renderServiceErr(ctx, "HandleListMyTickets -> h.svc.ListMine", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTickets(tickets))
}

// HandleListMyTickets godoc
// @Summary      List the caller's tickets
// @Tags         tickets
// @Produce      json
// @Success      200  {array}   response.Ticket
// @Failure      403  {object}  response.Err
// @Router       /tickets/mine [get]
// @Security BearerAuth
func (h *TicketHandler) HandleListMyTickets(ctx *gin.Context) {
	h.listMine(ctx, false)
}

// HandleListMyOpenTickets godoc
// @Summary      List the caller's pending and validated tickets
// @Tags         tickets
// @Produce      json
// @Success      200  {array}   response.Ticket
// @Failure      403  {object}  response.Err
// @Router       /tickets/mine/open [get]
// @Security BearerAuth
func (h *TicketHandler) HandleListMyOpenTickets(ctx *gin.Context) {
	h.listMine(ctx, true)
}

// HandleListOpenByEmail godoc
// @Summary      List the open tickets of a citizen
// @Tags         tickets
// @Produce      json
// @Param        email  query     string  true  "citizen email"
// @Success      200    {array}   response.Ticket
// @Failure      400    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Router       /tickets/open [get]
// @Security BearerAuth
func (h *TicketHandler) HandleListOpenByEmail(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	tickets, err := h.svc.ListOpenByEmail(ctx.Request.Context(), actor, ctx.Query("email"))
	if err != nil {
		renderServiceErr(ctx, "HandleListOpenByEmail -> h.svc.ListOpenByEmail", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTickets(tickets))
}

// HandleHasOpenTicket godoc
// @Summary      Check whether a citizen holds an open ticket
// @Description  Without email the caller is checked. Staff may pass any email.
// @Tags         tickets
// @Produce      json
// @Param        email  query     string  false  "citizen email"
// @Success      200    {object}  response.HasOpenTicket
// @Failure      403    {object}  response.Err
// @Router       /tickets/has-open [get]
// @Security BearerAuth
func (h *TicketHandler) HandleHasOpenTicket(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	open, err := h.svc.HasOpenTicket(ctx.Request.Context(), actor, ctx.Query("email"))
	if err != nil {
		renderServiceErr(ctx, "HandleHasOpenTicket -> h.svc.HasOpenTicket", err)
		return
	}

	ctx.JSON(http.StatusOK, response.HasOpenTicket{HasOpenTicket: open})
}

// HandleListStationTickets godoc
// @Summary      List the tickets of a station
// @Tags         tickets
// @Produce      json
// @Param        stationID  path      int  true  "station id"
// @Success      200        {array}   response.Ticket
// @Failure      403        {object}  response.Err
// @Router       /tickets/stations/{stationID} [get]
// @Security BearerAuth
func (h *TicketHandler) HandleListStationTickets(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	tickets, err := h.svc.ListByStation(ctx.Request.Context(), actor, stationID)
	if err != nil {
		renderServiceErr(ctx, "HandleListStationTickets -> h.svc.ListByStation", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTickets(tickets))
}

// HandleGetReceipt godoc
// @Summary      Get the receipt of a validated ticket
// @Tags         tickets
// @Produce      json
// @Param        id   path      int  true  "ticket id"
// @Success      200  {object}  response.Receipt
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /tickets/{id}/receipt [get]
// @Security BearerAuth
func (h *TicketHandler) HandleGetReceipt(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id, respErr := parseUintParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ticket, err := h.svc.Receipt(ctx.Request.Context(), actor, id)
	if err != nil {
		renderServiceErr(ctx, "HandleGetReceipt -> h.svc.Receipt", err)
		return
	}

	ctx.JSON(http.StatusOK, response.Receipt{Ticket: response.NewTicket(ticket), QRPayload: ticket.QRPayload})
}

// HandleUpdateTicketStatus godoc
// @Summary      Change the status of a ticket
// @Description  Allowed moves: EN_ATTENTE to VALIDE or ANNULE, VALIDE to SERVI or ANNULE. Citizens may only cancel their own pending ticket.
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Param        id       path      int                                true  "ticket id"
// @Param        request  body      request.UpdateTicketStatusRequest  true  "target status"
// @Success      200      {object}  response.Ticket
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /tickets/{id}/status [put]
// @Security BearerAuth
func (h *TicketHandler) HandleUpdateTicketStatus(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id, respErr := parseUintParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.UpdateTicketStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	ticket, err := h.svc.UpdateStatus(ctx.Request.Context(), actor, id, domain.TicketStatus(req.Status))
	if err != nil {
		renderServiceErr(ctx, "HandleUpdateTicketStatus -> h.svc.UpdateStatus", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTicket(ticket))
}

// HandleServeTicket godoc
// @Summary      Mark a validated ticket as served
// @Tags         tickets
// @Produce      json
// @Param        id   path      int  true  "ticket id"
// @Success      200  {object}  response.Ticket
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /tickets/{id}/serve [put]
// @Security BearerAuth
func (h *TicketHandler) HandleServeTicket(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id, respErr := parseUintParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ticket, err := h.svc.Serve(ctx.Request.Context(), actor, id)
	if err != nil {
		renderServiceErr(ctx, "HandleServeTicket -> h.svc.Serve", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewTicket(ticket))
}

// HandleDeleteTicket godoc
// @Summary      Delete a pending ticket
// @Description  Gives the ticket's quantity back to its sale schedule.
// @Tags         tickets
// @Param        id   path  int  true  "ticket id"
// @Success      204
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /tickets/{id} [delete]
// @Security BearerAuth
func (h *TicketHandler) HandleDeleteTicket(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id, respErr := parseUintParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), actor, id); err != nil {
		renderServiceErr(ctx, "HandleDeleteTicket -> h.svc.Delete", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
