package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "educonnect/internal/errors"
)

const (
	contextKey  = "user"
	tokenLookup = "header:Authorization:Bearer ,query:access_token"
)

// Middleware verifies the bearer token and rejects blacklisted or revoked tokens.
// With optional set, requests without any token pass through anonymously.
func Middleware(jwtSvc *JWTService, store TokenStoreInterface, optional bool) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey:  jwtSvc.Secret(),
		ContextKey:  contextKey,
		TokenLookup: tokenLookup,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return NewClaims()
		},
		Skipper: func(c echo.Context) bool {
			return optional && !hasToken(c)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			claims, ok := CurrentPrincipal(c)
			if !ok {
				if optional {
					return next(c)
				}
				return unauthorized("invalid or expired jwt")
			}

			ctx := c.Request().Context()
			if blacklisted, _ := store.IsAccessTokenBlacklisted(ctx, claims.ID); blacklisted {
				return unauthorized("token has been revoked")
			}
			revokedAt, err := store.RevokedBefore(ctx, claims.PrincipalID)
			if err == nil && claims.RevokedBy(revokedAt) {
				return unauthorized("token has been revoked")
			}
			return next(c)
		})
	}
}

func hasToken(c echo.Context) bool {
	return c.Request().Header.Get(echo.HeaderAuthorization) != "" || c.QueryParam("access_token") != ""
}

func unauthorized(msg string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
		Error: msg,
		Code:  "UNAUTHORIZED",
	})
}

// CurrentPrincipal returns the verified claims of the request, if any.
func CurrentPrincipal(c echo.Context) (*Claims, bool) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.PrincipalID == "" {
		return nil, false
	}
	return claims, true
}
