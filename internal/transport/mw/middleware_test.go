package mw_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notification-pipeline/internal/transport/mw"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, target, authHeader string) (int, string) {
	t.Helper()
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, mw.DeviceID(c))
	}, mw.JWTAuth(secret))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func claims(sub string, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, secret, claims("device-1", time.Now().Add(time.Hour)))

	code, body := serve(t, "/", "Bearer "+tok)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "device-1", body)
}

func TestJWTAuth_QueryToken(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, secret, claims("device-2", time.Now().Add(time.Hour)))

	code, body := serve(t, "/?access_token="+tok, "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "device-2", body)
}

func TestJWTAuth_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing":       "",
		"wrong secret":  "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), claims("d", time.Now().Add(time.Hour))),
		"expired":       "Bearer " + sign(t, jwt.SigningMethodHS256, secret, claims("d", time.Now().Add(-time.Minute))),
		"no expiry":     "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{Subject: "d"}),
		"no subject":    "Bearer " + sign(t, jwt.SigningMethodHS256, secret, claims("", time.Now().Add(time.Hour))),
		"wrong method":  "Bearer " + sign(t, jwt.SigningMethodHS512, secret, claims("d", time.Now().Add(time.Hour))),
		"garbage token": "Bearer not.a.jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			code, _ := serve(t, "/", header)
			assert.Equal(t, http.StatusUnauthorized, code)
		})
	}
}
