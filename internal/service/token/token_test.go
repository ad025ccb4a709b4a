package token

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/config"
	"github.com/velobay/bikeshop/internal/models"
)

var (
	testJWTSecret     = []byte("test-secret")
	testRefreshSecret = []byte("test-refresh-secret")
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func newTokenService(db *gorm.DB) *TokenService {
	return &TokenService{DB: db, JWTSecret: testJWTSecret, RefreshSecret: testRefreshSecret}
}

func issueRefresh(t *testing.T, db *gorm.DB, userID uint, role string) string {
	refresh, err := SignRefreshToken(userID, role, testRefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(db, refresh, userID, role))
	return refresh
}

func TestRotateTokenRevokesOld(t *testing.T) {
	db := initTestDB(t)
	svc := newTokenService(db)

	refresh := issueRefresh(t, db, 7, "user")

	access, newRefresh, err := svc.RotateToken(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEqual(t, refresh, newRefresh)

	var old models.RefreshToken
	require.NoError(t, db.Where("token = ?", refresh).First(&old).Error)
	require.True(t, old.Revoked)

	// The old token cannot be rotated again.
	_, _, err = svc.RotateToken(refresh)
	require.Error(t, err)

	// The new one can.
	_, _, err = svc.RotateToken(newRefresh)
	require.NoError(t, err)
}

func TestRotateTokenRejectsAccessToken(t *testing.T) {
	db := initTestDB(t)
	svc := newTokenService(db)

	// An access token signed with the refresh secret still lacks typ=refresh.
	access, err := SignAccessToken(7, "user", testRefreshSecret)
	require.NoError(t, err)

	_, _, err = svc.RotateToken(access)
	require.Error(t, err)
}

func TestRotateTokenUnknownToken(t *testing.T) {
	db := initTestDB(t)
	svc := newTokenService(db)

	refresh, err := SignRefreshToken(7, "user", testRefreshSecret)
	require.NoError(t, err)

	// Signed correctly but never saved.
	_, _, err = svc.RotateToken(refresh)
	require.Error(t, err)
}

func callWithCookies(mw echo.MiddlewareFunc, cookies ...*http.Cookie) (echo.Context, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return c, handler(c)
}

func TestMiddlewareSetsUserContext(t *testing.T) {
	db := initTestDB(t)
	svc := newTokenService(db)

	access, err := SignAccessToken(7, "user", testJWTSecret)
	require.NoError(t, err)

	c, err := callWithCookies(svc.AutoRefreshMiddleware, &http.Cookie{Name: "accessToken", Value: access})
	require.NoError(t, err)
	require.Equal(t, uint(7), c.Get("userID"))
	require.Equal(t, "user", c.Get("role"))
}

func TestMiddlewareRotatesWithRefreshCookie(t *testing.T) {
	db := initTestDB(t)
	svc := newTokenService(db)

	refresh := issueRefresh(t, db, 7, "user")

	// No access token at all forces the refresh path.
	c, err := callWithCookies(svc.AutoRefreshMiddleware, &http.Cookie{Name: "refreshToken", Value: refresh})
	require.NoError(t, err)
	require.Equal(t, uint(7), c.Get("userID"))

	var old models.RefreshToken
	require.NoError(t, db.Where("token = ?", refresh).First(&old).Error)
	require.True(t, old.Revoked)
}

func TestMiddlewareRejectsMissingCookies(t *testing.T) {
	db := initTestDB(t)
	svc := newTokenService(db)

	_, err := callWithCookies(svc.AutoRefreshMiddleware)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAdminMiddlewareRejectsUserRole(t *testing.T) {
	db := initTestDB(t)
	svc := newTokenService(db)

	access, err := SignAccessToken(7, "user", testJWTSecret)
	require.NoError(t, err)

	_, err = callWithCookies(svc.AutoRefreshMiddlewareAdmin, &http.Cookie{Name: "accessToken", Value: access})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Code)

	adminAccess, err := SignAccessToken(8, "admin", testJWTSecret)
	require.NoError(t, err)

	c, err := callWithCookies(svc.AutoRefreshMiddlewareAdmin, &http.Cookie{Name: "accessToken", Value: adminAccess})
	require.NoError(t, err)
	require.Equal(t, uint(8), c.Get("userID"))
}
