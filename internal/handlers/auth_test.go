package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/models"
	"github.com/velobay/bikeshop/internal/mykafka"
)

func newAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		DB:            db,
		JWTSecret:     []byte("test-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Producer:      &mykafka.Producer{},
	}
}

func TestRegister(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()

	c, rec := newContext(e, http.MethodPost, "/api/register", `{"username": "casey", "password": "hunter22"}`, 0, "")
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, db.Where("username = ?", "casey").First(&user).Error)
	require.Equal(t, "user", user.Role)
	require.NotEqual(t, "hunter22", user.PasswordHash)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()

	c, _ := newContext(e, http.MethodPost, "/api/register", `{"username": "casey", "password": "hunter22"}`, 0, "")
	require.NoError(t, h.Register(c))

	c, _ = newContext(e, http.MethodPost, "/api/register", `{"username": "casey", "password": "other"}`, 0, "")
	err := h.Register(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestLoginSetsCookiesAndTokens(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()

	c, _ := newContext(e, http.MethodPost, "/api/register", `{"username": "casey", "password": "hunter22"}`, 0, "")
	require.NoError(t, h.Register(c))

	c, rec := newContext(e, http.MethodPost, "/api/login", `{"username": "casey", "password": "hunter22"}`, 0, "")
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		IsAdmin      bool   `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.False(t, resp.IsAdmin)

	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = true
		require.True(t, ck.HttpOnly)
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	var saved models.RefreshToken
	require.NoError(t, db.Where("token = ?", resp.RefreshToken).First(&saved).Error)
	require.False(t, saved.Revoked)
}

func TestLoginWrongPassword(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)
	e := echo.New()

	c, _ := newContext(e, http.MethodPost, "/api/register", `{"username": "casey", "password": "hunter22"}`, 0, "")
	require.NoError(t, h.Register(c))

	c, _ = newContext(e, http.MethodPost, "/api/login", `{"username": "casey", "password": "wrong"}`, 0, "")
	err := h.Login(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}
