package mw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ContextKeyDevice is the echo.Context key holding the authenticated device id.
const ContextKeyDevice = "deviceID"

// DeviceClaims are carried by the HS256 tokens issued to attached devices.
type DeviceClaims struct {
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token against the shared secret and stores the token
// subject as the device id. The SSE stream may pass the token as ?access_token= because
// EventSource cannot set headers.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := bearerToken(c)
			if tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			var claims DeviceClaims
			_, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				log.Warn().Err(err).Msg("JWT verification failed")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			c.Set(ContextKeyDevice, claims.Subject)
			return next(c)
		}
	}
}

// DeviceID returns the device id stored by JWTAuth.
func DeviceID(c echo.Context) string {
	id, _ := c.Get(ContextKeyDevice).(string)
	return id
}

func bearerToken(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.QueryParam("access_token")
}
