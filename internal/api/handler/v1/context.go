package v1

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/fuelticket-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/fuelticket-api/internal/api/middleware"
	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

var errNoActor = errors.New("no authenticated user in context")

func getActorFromContext(ctx *gin.Context) (domain.Actor, *response.Err) {
	value, ok := ctx.Get(middleware.ActorKey)
	if !ok {
		return domain.Actor{}, response.ErrUnauthorized(errNoActor)
	}

	actor, ok := value.(domain.Actor)
	if !ok {
		return domain.Actor{}, response.ErrInternalServerError(fmt.Errorf("unexpected actor type %T", value))
	}

	return actor, nil
}

func parseUintParam(ctx *gin.Context, name string) (uint, *response.Err) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid %s %q", name, ctx.Param(name)))
	}

	return uint(id), nil
}

func parseDate(name, value string) (time.Time, *response.Err) {
	d, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, response.ErrBadRequest(fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, value))
	}

	return d, nil
}

// parseOptionalDate returns nil for an empty value.
func parseOptionalDate(name, value string) (*time.Time, *response.Err) {
	if value == "" {
		return nil, nil
	}

	d, respErr := parseDate(name, value)
	if respErr != nil {
		return nil, respErr
	}

	return &d, nil
}

// renderServiceErr maps a service error to its response. Breadcrumbs are
// only kept for server side failures.
func renderServiceErr(ctx *gin.Context, op string, err error) {
	e := response.FromDomain(err)
	if e.StatusCode >= 500 {
		e.Err = fmt.Errorf("%s -> %w", op, err)
	}

	response.RenderErr(ctx, e)
}
