package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/fuelticket-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/pkg/jwthelper"
)

// ActorKey is the gin context key holding the authenticated domain.Actor.
const ActorKey = "actor"

var (
	errMissingToken  = errors.New("missing bearer token")
	errRoleForbidden = errors.New("your role is not allowed to use this endpoint")
)

type Authenticator struct {
	signingKey []byte
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{signingKey: []byte(signingKey)}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	// Browsers cannot set headers on a websocket handshake.
	return ctx.Query("access_token")
}

func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		claims, err := jwthelper.ParseToken(a.signingKey, token)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(fmt.Errorf("invalid token: %w", err)))
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			return
		}

		ctx.Set(ActorKey, actor)
		ctx.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after
// VerifyJWT.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, ok := ctx.Get(ActorKey)
		if !ok {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		actor, _ := value.(domain.Actor)
		for _, role := range roles {
			if actor.Role == role {
				ctx.Next()
				return
			}
		}

		response.RenderErr(ctx, response.ErrPermissionDenied(errRoleForbidden))
	}
}
