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

type ScheduleService interface {
	Create(ctx context.Context, actor domain.Actor, in service.ScheduleInput) (domain.SaleSchedule, error)
	Update(ctx context.Context, actor domain.Actor, id uint, in service.ScheduleInput) (domain.SaleSchedule, error)
	Delete(ctx context.Context, actor domain.Actor, id uint) error
	Toggle(ctx context.Context, actor domain.Actor, id uint) (domain.SaleSchedule, error)
	Get(ctx context.Context, id uint) (domain.SaleSchedule, error)
	ListByStation(ctx context.Context, stationID uint) ([]domain.SaleSchedule, error)
	ListByStationDate(ctx context.Context, stationID uint, date time.Time) ([]domain.SaleSchedule, error)
	ListByStationRange(ctx context.Context, stationID uint, from, to time.Time) ([]domain.SaleSchedule, error)
	ListAvailable(ctx context.Context, stationID uint, date time.Time, fuelType domain.FuelType) ([]domain.SaleSchedule, error)
	PlannedDates(ctx context.Context, stationID uint) ([]time.Time, error)
}

type ScheduleHandler struct {
	svc ScheduleService
}

func NewScheduleHandler(svc ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		svc: svc,
	}
}

func bindSchedule(ctx *gin.Context) (service.ScheduleInput, *response.Err) {
	var req request.ScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return service.ScheduleInput{}, response.ErrBadRequest(err)
	}
	if err := req.Validate(); err != nil {
		return service.ScheduleInput{}, response.ErrBadRequest(err)
	}

	return req.ToInput(), nil
}

// HandleCreateSchedule godoc
// @Summary      Create a sale schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        request  body      request.ScheduleRequest  true  "sale window"
// @Success      201      {object}  response.Schedule
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /sale-schedules [post]
// @Security BearerAuth
func (h *ScheduleHandler) HandleCreateSchedule(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	in, respErr := bindSchedule(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	schedule, err := h.svc.Create(ctx.Request.Context(), actor, in)
	if err != nil {
		renderServiceErr(ctx, "HandleCreateSchedule -> h.svc.Create", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.NewSchedule(schedule))
}

// HandleUpdateSchedule godoc
// @Summary      Update a sale schedule without tickets
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        id       path      int                      true  "schedule id"
// @Param        request  body      request.ScheduleRequest  true  "sale window"
// @Success      200      {object}  response.Schedule
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Router       /sale-schedules/{id} [put]
// @Security BearerAuth
func (h *ScheduleHandler) HandleUpdateSchedule(ctx *gin.Context) {
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

	in, respErr := bindSchedule(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	schedule, err := h.svc.Update(ctx.Request.Context(), actor, id, in)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdateSchedule -> h.svc.Update", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSchedule(schedule))
}

// HandleDeleteSchedule godoc
// @Summary      Delete a sale schedule without tickets
// @Tags         schedules
// @Param        id   path  int  true  "schedule id"
// @Success      204
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Router       /sale-schedules/{id} [delete]
// @Security BearerAuth
func (h *ScheduleHandler) HandleDeleteSchedule(ctx *gin.Context) {
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
		renderServiceErr(ctx, "HandleDeleteSchedule -> h.svc.Delete", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleToggleSchedule godoc
// @Summary      Switch a sale schedule on or off
// @Tags         schedules
// @Produce      json
// @Param        id   path      int  true  "schedule id"
// @Success      200  {object}  response.Schedule
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Router       /sale-schedules/{id}/toggle [put]
// @Security BearerAuth
func (h *ScheduleHandler) HandleToggleSchedule(ctx *gin.Context) {
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

	schedule, err := h.svc.Toggle(ctx.Request.Context(), actor, id)
	if err != nil {
		renderServiceErr(ctx, "HandleToggleSchedule -> h.svc.Toggle", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSchedule(schedule))
}

// HandleGetSchedule godoc
// @Summary      Get a sale schedule
// @Tags         schedules
// @Produce      json
// @Param        id   path      int  true  "schedule id"
// @Success      200  {object}  response.Schedule
// @Failure      404  {object}  response.Err
// @Router       /sale-schedules/{id} [get]
// @Security BearerAuth
func (h *ScheduleHandler) HandleGetSchedule(ctx *gin.Context) {
	id, respErr := parseUintParam(ctx, "id")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	schedule, err := h.svc.Get(ctx.Request.Context(), id)
	if err != nil {
		renderServiceErr(ctx, "HandleGetSchedule -> h.svc.Get", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSchedule(schedule))
}

// HandleListStationSchedules godoc
// @Summary      List the sale schedules of a station
// @Tags         schedules
// @Produce      json
// @Param        stationID  path      int  true  "station id"
// @Success      200        {array}   response.Schedule
// @Failure      400        {object}  response.Err
// @Router       /sale-schedules/stations/{stationID} [get]
// @Security BearerAuth
func (h *ScheduleHandler) HandleListStationSchedules(ctx *gin.Context) {
	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	schedules, err := h.svc.ListByStation(ctx.Request.Context(), stationID)
	if err != nil {
		renderServiceErr(ctx, "HandleListStationSchedules -> h.svc.ListByStation", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSchedules(schedules))
}

// HandleListSchedulesByDate godoc
// @Summary      List the active sale schedules of a station for one day
// @Tags         schedules
// @Produce      json
// @Param        stationID  path      int     true  "station id"
// @Param        date       path      string  true  "day as YYYY-MM-DD"
// @Success      200        {array}   response.Schedule
// @Failure      400        {object}  response.Err
// @Router       /sale-schedules/stations/{stationID}/date/{date} [get]
// @Security BearerAuth
func (h *ScheduleHandler) HandleListSchedulesByDate(ctx *gin.Context) {
	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	date, respErr := parseDate("date", ctx.Param("date"))
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	schedules, err := h.svc.ListByStationDate(ctx.Request.Context(), stationID, date)
	if err != nil {
		renderServiceErr(ctx, "HandleListSchedulesByDate -> h.svc.ListByStationDate", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSchedules(schedules))
}

// HandleListSchedulesInRange godoc
// @Summary      List the active sale schedules of a station between two days
// @Tags         schedules
// @Produce      json
// @Param        stationID  path      int     true  "station id"
// @Param        start      query     string  true  "first day as YYYY-MM-DD"
// @Param        end        query     string  true  "last day as YYYY-MM-DD"
// @Success      200        {array}   response.Schedule
// @Failure      400        {object}  response.Err
// @Router       /sale-schedules/stations/{stationID}/range [get]
// @Security BearerAuth
func (h *ScheduleHandler) HandleListSchedulesInRange(ctx *gin.Context) {
	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	from, respErr := parseDate("start", ctx.Query("start"))
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	to, respErr := parseDate("end", ctx.Query("end"))
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	schedules, err := h.svc.ListByStationRange(ctx.Request.Context(), stationID, from, to)
	if err != nil {
		renderServiceErr(ctx, "HandleListSchedulesInRange -> h.svc.ListByStationRange", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSchedules(schedules))
}

// HandleListAvailableSchedules godoc
// @Summary      List the windows of a day that can still take tickets
// @Tags         schedules
// @Produce      json
// @Param        stationID  path      int     true   "station id"
// @Param        date       query     string  true   "day as YYYY-MM-DD"
// @Param        fuel_type  query     string  false  "ESSENCE, DIESEL, GPL or KEROSENE"
// @Success      200        {array}   response.Schedule
// @Failure      400        {object}  response.Err
// @Router       /sale-schedules/stations/{stationID}/available [get]
// @Security BearerAuth
func (h *ScheduleHandler) HandleListAvailableSchedules(ctx *gin.Context) {
	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	date, respErr := parseDate("date", ctx.Query("date"))
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	schedules, err := h.svc.ListAvailable(ctx.Request.Context(), stationID, date, domain.FuelType(ctx.Query("fuel_type")))
	if err != nil {
		renderServiceErr(ctx, "HandleListAvailableSchedules -> h.svc.ListAvailable", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewSchedules(schedules))
}

// HandleListPlannedDates godoc
// @Summary      List the upcoming days with an active sale schedule
// @Tags         schedules
// @Produce      json
// @Param        stationID  path      int  true  "station id"
// @Success      200        {array}   string
// @Router       /sale-schedules/stations/{stationID}/planned-dates [get]
// @Security BearerAuth
func (h *ScheduleHandler) HandleListPlannedDates(ctx *gin.Context) {
	stationID, respErr := parseUintParam(ctx, "stationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	dates, err := h.svc.PlannedDates(ctx.Request.Context(), stationID)
	if err != nil {
		renderServiceErr(ctx, "HandleListPlannedDates -> h.svc.PlannedDates", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewDates(dates))
}
