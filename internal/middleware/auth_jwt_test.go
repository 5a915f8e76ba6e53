package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, claims)
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID int64, role model.Role) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
	}
}

func runAuth(t *testing.T, authz string) (*httptest.ResponseRecorder, usecase.Principal, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got usecase.Principal
	var reached bool
	h := AuthJWT(config.Config{JWTSecret: testSecret})(func(c echo.Context) error {
		got, reached = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, got, reached
}

func TestAuthJWT_ValidToken(t *testing.T) {
	tok := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(42, model.RoleCustomer))

	rec, p, reached := runAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, reached)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, model.RoleCustomer, p.Role)
}

func TestAuthJWT_MissingHeader(t *testing.T) {
	rec, _, reached := runAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthJWT_WrongSecret(t *testing.T) {
	tok := signToken(t, "other-secret", jwt.SigningMethodHS256, validClaims(42, model.RoleCustomer))

	rec, _, reached := runAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthJWT_ExpiredToken(t *testing.T) {
	claims := validClaims(42, model.RoleCustomer)
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	tok := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	rec, _, _ := runAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// HS256以外（alg none相当の差し替え）は拒否する
func TestAuthJWT_RejectsOtherAlg(t *testing.T) {
	tok := signToken(t, testSecret, jwt.SigningMethodHS512, validClaims(42, model.RoleCustomer))

	rec, _, _ := runAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_UnknownRole(t *testing.T) {
	claims := validClaims(42, model.RoleCustomer)
	claims["role"] = "WIZARD"
	tok := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	rec, _, _ := runAuth(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	e := echo.New()

	run := func(p *usecase.Principal, roles ...model.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if p != nil {
			c.Set(CtxPrincipalKey, *p)
		}
		h := RequireRoles(roles...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		return rec
	}

	retailer := &usecase.Principal{UserID: 200, Role: model.RoleRetailer}

	rec := run(retailer, model.RoleRetailer)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = run(retailer, model.RoleAdmin, model.RoleDistributor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = run(nil, model.RoleRetailer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
