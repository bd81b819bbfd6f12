package access

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/mkravets/travelbooking/internal/domain"
)

const principalKey = "principal"

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// RoleSource resolves the principal's current role from session state, so
// a role change (e.g. logout in another tab) is seen on the next request.
// A subject with no session entry reports found=false and keeps the role
// baked into its token.
type RoleSource interface {
	SessionRole(ctx context.Context, subject string) (role string, found bool, err error)
}

// Authenticate resolves the request principal from a Bearer token. A
// missing header leaves the principal anonymous; a malformed or invalid
// token is rejected outright.
func Authenticate(secret []byte, roles RoleSource) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearer := ctx.Request.Header.Get("Authorization")
		if !strings.HasPrefix(bearer, "Bearer ") {
			ctx.Set(principalKey, domain.Principal{})
			return
		}
		reqToken := strings.TrimPrefix(bearer, "Bearer ")

		claims := &Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil || !tkn.Valid {
			if err != nil {
				log.Printf("token error: %s", err.Error())
			}
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		p := domain.Principal{
			Subject: claims.Subject,
			Email:   claims.Email,
			Role:    claims.Role,
		}
		if roles != nil {
			// an existing session entry wins over the claim baked into
			// the token; absence means the claim stands
			if role, found, err := roles.SessionRole(ctx.Request.Context(), claims.Subject); err == nil && found {
				p.Role = role
			}
		}
		ctx.Set(principalKey, p)
	}
}

// RequireRole gates a protected view. On denial the request is redirected
// to the unauthorized destination and the protected handler never runs.
func RequireRole(unauthorizedPath string, required ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !Authorize(CurrentPrincipal(ctx), required) {
			ctx.Redirect(http.StatusSeeOther, unauthorizedPath)
			ctx.Abort()
			return
		}
	}
}

// CurrentPrincipal returns the principal resolved for this request, or an
// anonymous one.
func CurrentPrincipal(ctx *gin.Context) domain.Principal {
	if v, ok := ctx.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{}
}
