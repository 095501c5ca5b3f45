package v1

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

type FeedHub interface {
	Serve(conn *websocket.Conn, stationID uint) error
}

type FeedHandler struct {
	hub      FeedHub
	upgrader websocket.Upgrader
}

// NewFeedHandler accepts browser connections from allowedOrigins only.
// Requests without an Origin header, like native clients, are accepted.
func NewFeedHandler(hub FeedHub, allowedOrigins []string) *FeedHandler {
	return &FeedHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleStationFeed godoc
// @Summary      Follow the ticket events of a station
// @Description  Upgrades to a WebSocket that receives new_ticket, status_changed, ticket_expired and receipt_ready events. The token may be passed as access_token query parameter.
// @Tags         stations
// @Param        stationID     path   int     true   "station id"
// @Param        access_token  query  string  false  "bearer token"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Router       /stations/{stationID}/feed [get]
// @Security BearerAuth
func (h *FeedHandler) HandleStationFeed(ctx *gin.Context) {
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

	if err := service.CanManageStation(actor, stationID); err != nil {
		renderServiceErr(ctx, "HandleStationFeed -> service.CanManageStation", err)
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade already answered the client.
		zap.L().Debug("websocket upgrade failed", zap.Uint("station_id", stationID), zap.Error(err))
		return
	}

	if err := h.hub.Serve(conn, stationID); err != nil {
		zap.L().Warn("station feed rejected", zap.Uint("station_id", stationID), zap.Error(err))
	}
}
