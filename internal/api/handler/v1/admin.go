package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

type ExpirationTrigger interface {
	Trigger(ctx context.Context) (domain.ExpirationReport, error)
}

type AdminHandler struct {
	expiration ExpirationTrigger
}

func NewAdminHandler(expiration ExpirationTrigger) *AdminHandler {
	return &AdminHandler{
		expiration: expiration,
	}
}

// HandleExpireTickets godoc
// @Summary      Run the ticket expiration job now
// @Description  Expires pending tickets older than the validity period and renews them. Answers 409 while a run is in progress.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  domain.ExpirationReport
// @Failure      403  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /admin/tickets/expire [post]
// @Security BearerAuth
func (h *AdminHandler) HandleExpireTickets(ctx *gin.Context) {
	report, err := h.expiration.Trigger(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "HandleExpireTickets -> h.expiration.Trigger", err)
		return
	}

	ctx.JSON(http.StatusOK, report)
}
