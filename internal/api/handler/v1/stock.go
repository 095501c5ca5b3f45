package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/fuelticket-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/fuelticket-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

type StockService interface {
	Create(ctx context.Context, actor domain.Actor, stationID uint, in service.StockInput) (domain.FuelStock, error)
	ListByStation(ctx context.Context, stationID uint) ([]domain.FuelStock, error)
	ListAvailable(ctx context.Context, stationID uint) ([]domain.FuelStock, error)
	UpdatePrice(ctx context.Context, actor domain.Actor, id uint, price float64) (domain.FuelStock, error)
	Toggle(ctx context.Context, actor domain.Actor, id uint) (domain.FuelStock, error)
	Delete(ctx context.Context, actor domain.Actor, id uint) error
	AddFuel(ctx context.Context, actor domain.Actor, id uint, quantity float64, description string) (domain.FuelStock, error)
	RemoveFuel(ctx context.Context, actor domain.Actor, id uint, quantity float64, description string) (domain.FuelStock, error)
	MovementsByStation(ctx context.Context, actor domain.Actor, stationID uint, from, to *time.Time) ([]domain.FuelMovement, error)
	MovementsByStock(ctx context.Context, actor domain.Actor, stockID uint) ([]domain.FuelMovement, error)
	MyMovements(ctx context.Context, actor domain.Actor) ([]domain.FuelMovement, error)
}

type StockHandler struct {
	svc StockService
}

func NewStockHandler(svc StockService) *StockHandler {
	return &StockHandler{
		svc: svc,
	}
}

// HandleCreateStock godoc
// @Summary      Open a fuel stock for a station
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Param        stationID  path      int                         true  "station id"
// @Param        request    body      request.CreateStockRequest  true  "stock"
// @Success      201        {object}  domain.FuelStock
// @Failure      400        {object}  response.Err
// @Failure      403        {object}  response.Err
// @Failure      409        {object}  response.Err
// @Router       /fuel-stocks/stations/{stationID} [post]
// @Security BearerAuth
func (h *StockHandler) HandleCreateStock(ctx *gin.Context) {
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

	var req request.CreateStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stock, err := h.svc.Create(ctx.Request.Context(), actor, stationID, req.ToInput())
	if err != nil {
		renderServiceErr(ctx, "HandleCreateStock -> h.svc.Create", err)
		return
	}

	ctx.JSON(http.StatusCreated, stock)
}

// HandleListStationStocks godoc
// @Summary      List the fuel stocks of a station
// @Tags         stocks
// @Produce      json
// @Param        stationID  path      int  true  "station id"
// @Success      200        {array}   domain.FuelStock
// @Router       /fuel-stocks/stations/{stationID} [get]
// @Security BearerAuth
func (h *StockHandler) HandleListStationStocks(ctx *gin.Context) {
	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	stocks, err := h.svc.ListByStation(ctx.Request.Context(), stationID)
	if err != nil {
		renderServiceErr(ctx, "HandleListStationStocks -> h.svc.ListByStation", err)
		return
	}

	ctx.JSON(http.StatusOK, stocks)
}

// HandleListAvailableStocks godoc
// @Summary      List the fuel stocks of a station that are on sale
// @Tags         stocks
// @Produce      json
// @Param        stationID  path      int  true  "station id"
// @Success      200        {array}   domain.FuelStock
// @Router       /fuel-stocks/stations/{stationID}/available [get]
// @Security BearerAuth
func (h *StockHandler) HandleListAvailableStocks(ctx *gin.Context) {
	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	stocks, err := h.svc.ListAvailable(ctx.Request.Context(), stationID)
	if err != nil {
		renderServiceErr(ctx, "HandleListAvailableStocks -> h.svc.ListAvailable", err)
		return
	}

	ctx.JSON(http.StatusOK, stocks)
}

// HandleUpdateStockPrice godoc
// @Summary      Change the unit price of a stock
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Param        id       path      int                         true  "stock id"
// @Param        request  body      request.UpdatePriceRequest  true  "price"
// @Success      200      {object}  domain.FuelStock
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /fuel-stocks/{id}/price [put]
// @Security BearerAuth
func (h *StockHandler) HandleUpdateStockPrice(ctx *gin.Context) {
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

	var req request.UpdatePriceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stock, err := h.svc.UpdatePrice(ctx.Request.Context(), actor, id, req.UnitPrice)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdateStockPrice -> h.svc.UpdatePrice", err)
		return
	}

	ctx.JSON(http.StatusOK, stock)
}

// HandleToggleStock godoc
// @Summary      Put a stock on or off sale
// @Tags         stocks
// @Produce      json
// @Param        id   path      int  true  "stock id"
// @Success      200  {object}  domain.FuelStock
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /fuel-stocks/{id}/toggle [put]
// @Security BearerAuth
func (h *StockHandler) HandleToggleStock(ctx *gin.Context) {
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

	stock, err := h.svc.Toggle(ctx.Request.Context(), actor, id)
	if err != nil {
		renderServiceErr(ctx, "HandleToggleStock -> h.svc.Toggle", err)
		return
	}

	ctx.JSON(http.StatusOK, stock)
}

// HandleDeleteStock godoc
// @Summary      Delete a stock
// @Tags         stocks
// @Param        id   path  int  true  "stock id"
// @Success      204
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /fuel-stocks/{id} [delete]
// @Security BearerAuth
func (h *StockHandler) HandleDeleteStock(ctx *gin.Context) {
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
		renderServiceErr(ctx, "HandleDeleteStock -> h.svc.Delete", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

type movementFunc func(ctx context.Context, actor domain.Actor, id uint, quantity float64, description string) (domain.FuelStock, error)

func (h *StockHandler) move(ctx *gin.Context, op string, fn movementFunc) {
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

	var req request.StockMovementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stock, err := fn(ctx.Request.Context(), actor, id, req.Quantity, req.Description)
	if err != nil {
		renderServiceErr(ctx, op, err)
		return
	}

	ctx.JSON(http.StatusOK, stock)
}

// HandleAddFuel godoc
// @Summary      Record a fuel delivery
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true  "stock id"
// @Param        request  body      request.StockMovementRequest  true  "liters delivered"
// @Success      200      {object}  domain.FuelStock
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /fuel-stocks/{id}/add [post]
// @Security BearerAuth
func (h *StockHandler) HandleAddFuel(ctx *gin.Context) {
	h.move(ctx, "HandleAddFuel -> h.svc.AddFuel", h.svc.AddFuel)
}

// HandleRemoveFuel godoc
// @Summary      Record fuel leaving the stock
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true  "stock id"
// @Param        request  body      request.StockMovementRequest  true  "liters removed"
// @Success      200      {object}  domain.FuelStock
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Router       /fuel-stocks/{id}/remove [post]
// @Security BearerAuth
func (h *StockHandler) HandleRemoveFuel(ctx *gin.Context) {
	h.move(ctx, "HandleRemoveFuel -> h.svc.RemoveFuel", h.svc.RemoveFuel)
}

// HandleListStationMovements godoc
// @Summary      List the stock movements of a station
// @Tags         stocks
// @Produce      json
// @Param        stationID  path      int     true   "station id"
// @Param        start      query     string  false  "from day as YYYY-MM-DD"
// @Param        end        query     string  false  "to day as YYYY-MM-DD"
// @Success      200        {array}   domain.FuelMovement
// @Failure      400        {object}  response.Err
// @Failure      403        {object}  response.Err
// @Router       /fuel-movements/stations/{stationID} [get]
// @Security BearerAuth
func (h *StockHandler) HandleListStationMovements(ctx *gin.Context) {
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

	from, respErr := parseOptionalDate("start", ctx.Query("start"))
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	to, respErr := parseOptionalDate("end", ctx.Query("end"))
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	movements, err := h.svc.MovementsByStation(ctx.Request.Context(), actor, stationID, from, to)
	if err != nil {
		renderServiceErr(ctx, "HandleListStationMovements -> h.svc.MovementsByStation", err)
		return
	}

	ctx.JSON(http.StatusOK, movements)
}

// HandleListStockMovements godoc
// @Summary      List the movements of a stock
// @Tags         stocks
// @Produce      json
// @Param        stockID  path      int  true  "stock id"
// @Success      200      {array}   domain.FuelMovement
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /fuel-movements/stocks/{stockID} [get]
// @Security BearerAuth
func (h *StockHandler) HandleListStockMovements(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	stockID, respErr := parseUintParam(ctx, "stockID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	movements, err := h.svc.MovementsByStock(ctx.Request.Context(), actor, stockID)
	if err != nil {
		renderServiceErr(ctx, "HandleListStockMovements -> h.svc.MovementsByStock", err)
		return
	}

	ctx.JSON(http.StatusOK, movements)
}

// HandleListMyMovements godoc
// @Summary      List the last week of movements of the caller's stations
// @Tags         stocks
// @Produce      json
// @Success      200  {array}   domain.FuelMovement
// @Failure      403  {object}  response.Err
// @Router       /fuel-movements/mine [get]
// @Security BearerAuth
func (h *StockHandler) HandleListMyMovements(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	movements, err := h.svc.MyMovements(ctx.Request.Context(), actor)
	if err != nil {
		renderServiceErr(ctx, "HandleListMyMovements -> h.svc.MyMovements", err)
		return
	}

	ctx.JSON(http.StatusOK, movements)
}
