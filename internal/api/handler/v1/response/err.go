package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

type Err struct {
	Err        error       `json:"-"`
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *Err) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return e.Message
}

// RenderErr writes e and aborts the request. Server side failures are logged
// with their full error chain and answered with a generic message.
func RenderErr(ctx *gin.Context, e *Err) {
	if e.StatusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(e.Err),
		)
	}

	ctx.AbortWithStatusJSON(e.StatusCode, e)
}

func ErrBadRequest(err error) *Err {
	e := &Err{
		Err:        err,
		StatusCode: http.StatusBadRequest,
		ErrorCode:  "BAD_REQUEST",
		Message:    err.Error(),
	}

	var fields validation.Errors
	if errors.As(err, &fields) {
		e.ErrorCode = "VALIDATION_ERROR"
		e.Message = "invalid request"
		e.Details = fields
	}

	return e
}

func ErrNotFound(resource, key string, value any) *Err {
	err := fmt.Errorf("%s with %s %v not found", resource, key, value)

	return &Err{
		Err:        err,
		StatusCode: http.StatusNotFound,
		ErrorCode:  "NOT_FOUND",
		Message:    err.Error(),
	}
}

func ErrUnauthorized(err error) *Err {
	return &Err{
		Err:        err,
		StatusCode: http.StatusUnauthorized,
		ErrorCode:  "UNAUTHORIZED",
		Message:    err.Error(),
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		Err:        err,
		StatusCode: http.StatusForbidden,
		ErrorCode:  "PERMISSION_DENIED",
		Message:    err.Error(),
	}
}

func ErrConflict(err error) *Err {
	return &Err{
		Err:        err,
		StatusCode: http.StatusConflict,
		ErrorCode:  "CONFLICT",
		Message:    err.Error(),
	}
}

func ErrInternalServerError(err error) *Err {
	return &Err{
		Err:        err,
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  "INTERNAL_SERVER_ERROR",
		Message:    "internal server error",
	}
}

// classes maps the domain error classes to a status and a code. The message
// shown is the specific error's own.
var classes = []struct {
	class  error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{domain.ErrCapacity, http.StatusBadRequest, "CAPACITY_EXCEEDED"},
	{domain.ErrTransition, http.StatusBadRequest, "TRANSITION_NOT_ALLOWED"},
	{domain.ErrInsufficientStock, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
	{domain.ErrDuplicate, http.StatusConflict, "DUPLICATE"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrAuthorization, http.StatusForbidden, "PERMISSION_DENIED"},
}

// FromDomain turns an error returned by a service into a response. Errors of
// no known class become 500s.
func FromDomain(err error) *Err {
	for _, c := range classes {
		if errors.Is(err, c.class) {
			return &Err{
				Err:        err,
				StatusCode: c.status,
				ErrorCode:  c.code,
				Message:    specificMessage(err),
			}
		}
	}

	return ErrInternalServerError(err)
}

// specificMessage drops the breadcrumbs the layers add on the way up and
// keeps the innermost domain message.
func specificMessage(err error) string {
	msg := err.Error()
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return msg
		}
		for _, c := range classes {
			if next == c.class {
				return msg
			}
		}
		err, msg = next, next.Error()
	}
}
