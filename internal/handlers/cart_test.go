package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/config"
	"github.com/velobay/bikeshop/internal/models"
	"github.com/velobay/bikeshop/internal/mykafka"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

// newContext builds an echo context the way the auth middleware would leave
// it: userID and role already set.
func newContext(e *echo.Echo, method, target, body string, userID uint, role string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", userID)
	c.Set("role", role)
	return c, rec
}

func seedCartBike(t *testing.T, db *gorm.DB) models.Bike {
	bike := models.Bike{Name: "Roadster", Type: "road", Price: 750, RentalPrice: 30, PurchaseStock: 4}
	require.NoError(t, db.Create(&bike).Error)
	return bike
}

func TestAddToCartCreatesItem(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	body := fmt.Sprintf(`{"bike_id": %d, "item_type": "purchase", "quantity": 2}`, bike.ID)
	c, rec := newContext(e, http.MethodPost, "/api/cart", body, 1, "user")

	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, bike.ID, item.BikeID)
	require.EqualValues(t, 2, item.Quantity)
}

func TestAddToCartMergesEquivalentItem(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	body := fmt.Sprintf(`{"bike_id": %d, "item_type": "purchase", "quantity": 1}`, bike.ID)
	for i := 0; i < 2; i++ {
		c, rec := newContext(e, http.MethodPost, "/api/cart", body, 1, "user")
		require.NoError(t, h.AddToCart(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var items []models.CartItem
	require.NoError(t, db.Where("user_id = ?", 1).Find(&items).Error)
	require.Len(t, items, 1)
	require.EqualValues(t, 2, items[0].Quantity)
}

func TestAddToCartRentalRequiresDetails(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	body := fmt.Sprintf(`{"bike_id": %d, "item_type": "rental"}`, bike.ID)
	c, _ := newContext(e, http.MethodPost, "/api/cart", body, 1, "user")

	err := h.AddToCart(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAddToCartRentalDoesNotMergeDifferentDates(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	loc := models.Location{Code: "DT-01", Name: "Downtown"}
	require.NoError(t, db.Create(&loc).Error)
	require.NoError(t, db.Create(&models.RentalInventory{BikeID: bike.ID, LocationID: loc.ID, Stock: 2}).Error)

	add := func(start, end time.Time) {
		body := fmt.Sprintf(
			`{"bike_id": %d, "item_type": "rental", "start_date": %q, "end_date": %q, "location_id": %d}`,
			bike.ID, start.Format(time.RFC3339), end.Format(time.RFC3339), loc.ID,
		)
		c, rec := newContext(e, http.MethodPost, "/api/cart", body, 1, "user")
		require.NoError(t, h.AddToCart(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	day1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	add(day1, day1.AddDate(0, 0, 2))
	add(day1.AddDate(0, 0, 7), day1.AddDate(0, 0, 9))

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAddToCartUnknownBike(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()

	c, _ := newContext(e, http.MethodPost, "/api/cart", `{"bike_id": 99, "item_type": "purchase"}`, 1, "user")

	err := h.AddToCart(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestUpdateQuantity(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	item := models.CartItem{UserID: 1, BikeID: bike.ID, ItemType: models.ItemTypePurchase, Quantity: 1}
	require.NoError(t, db.Create(&item).Error)

	c, rec := newContext(e, http.MethodPut, "/api/cart/1", `{"quantity": 3}`, 1, "user")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))

	require.NoError(t, h.UpdateQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh models.CartItem
	require.NoError(t, db.First(&fresh, item.ID).Error)
	require.EqualValues(t, 3, fresh.Quantity)
}

func TestUpdateQuantityZeroDeletes(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	item := models.CartItem{UserID: 1, BikeID: bike.ID, ItemType: models.ItemTypePurchase, Quantity: 2}
	require.NoError(t, db.Create(&item).Error)

	c, rec := newContext(e, http.MethodPut, "/api/cart/1", `{"quantity": 0}`, 1, "user")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))

	require.NoError(t, h.UpdateQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestDeleteFromCartEnforcesOwnership(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	item := models.CartItem{UserID: 1, BikeID: bike.ID, ItemType: models.ItemTypePurchase, Quantity: 1}
	require.NoError(t, db.Create(&item).Error)

	// Another user cannot delete it.
	c, _ := newContext(e, http.MethodDelete, "/api/cart/1", "", 2, "user")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))

	err := h.DeleteFromCart(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusNotFound, he.Code)

	// The owner can.
	c, rec := newContext(e, http.MethodDelete, "/api/cart/1", "", 1, "user")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))

	require.NoError(t, h.DeleteFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClearCart(t *testing.T) {
	db := initTestDB(t)
	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}
	e := echo.New()
	bike := seedCartBike(t, db)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.CartItem{
			UserID: 1, BikeID: bike.ID, ItemType: models.ItemTypePurchase, Quantity: uint(i + 1),
		}).Error)
	}
	require.NoError(t, db.Create(&models.CartItem{
		UserID: 2, BikeID: bike.ID, ItemType: models.ItemTypePurchase, Quantity: 1,
	}).Error)

	c, rec := newContext(e, http.MethodDelete, "/api/cart", "", 1, "user")
	require.NoError(t, h.ClearCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var mine, theirs int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&mine).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 2).Count(&theirs).Error)
	require.EqualValues(t, 0, mine)
	require.EqualValues(t, 1, theirs)
}
