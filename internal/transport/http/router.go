package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/velobay/bikeshop/internal/handlers"
	"github.com/velobay/bikeshop/internal/service/token"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	BikeHandler     *handlers.BikeHandler
	LocationHandler *handlers.LocationHandler
	CartHandler     *handlers.CartHandler
	OrderHandler    *handlers.OrderHandler
	ReviewHandler   *handlers.ReviewHandler
	StatsHandler    *handlers.StatsHandler
	SearchHandler   *handlers.SearchHandler
	TokenService    *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	api.POST("/register", d.AuthHandler.Register)
	api.POST("/login", d.AuthHandler.Login)
	api.POST("/auth/refresh", d.AuthHandler.Refresh)

	bikes := api.Group("/bikes")
	bikes.GET("/search", d.SearchHandler.Search)
	bikes.GET("", d.BikeHandler.GetBikes)
	bikes.GET("/:id", d.BikeHandler.GetBike)
	bikes.GET("/:id/reviews", d.ReviewHandler.GetBikeReviews)

	locations := api.Group("/locations")
	locations.GET("", d.LocationHandler.GetLocations)
	locations.GET("/:id", d.LocationHandler.GetLocation)

	auth := api.Group("", d.TokenService.AutoRefreshMiddleware)
	auth.POST("/logout", d.AuthHandler.LogOut)

	auth.GET("/cart", d.CartHandler.GetCart)
	auth.POST("/cart", d.CartHandler.AddToCart)
	auth.PUT("/cart/:id", d.CartHandler.UpdateQuantity)
	auth.DELETE("/cart/:id", d.CartHandler.DeleteFromCart)
	auth.DELETE("/cart", d.CartHandler.ClearCart)

	auth.GET("/orders", d.OrderHandler.GetOrders)
	auth.POST("/orders", d.OrderHandler.CreateOrder)
	auth.GET("/orders/user/rentals", d.OrderHandler.GetActiveRentals)
	auth.GET("/orders/:id", d.OrderHandler.GetOrder)

	auth.POST("/bikes/:id/reviews", d.ReviewHandler.CreateReview)
	auth.PUT("/reviews/:id", d.ReviewHandler.UpdateReview)
	auth.DELETE("/reviews/:id", d.ReviewHandler.DeleteReview)

	admin := api.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.POST("/bikes", d.BikeHandler.CreateBike)
	admin.PATCH("/bikes/:id", d.BikeHandler.PatchBike)
	admin.PUT("/bikes/:id/inventory", d.BikeHandler.SetRentalStock)
	admin.DELETE("/bikes/:id", d.BikeHandler.DeleteBike)
	admin.POST("/locations", d.LocationHandler.CreateLocation)
	admin.PATCH("/locations/:id", d.LocationHandler.PatchLocation)
	admin.DELETE("/locations/:id", d.LocationHandler.DeleteLocation)
	admin.GET("/stats", d.StatsHandler.GetStats)

	adminOrders := api.Group("/orders", d.TokenService.AutoRefreshMiddlewareAdmin)
	adminOrders.PUT("/:id", d.OrderHandler.UpdateStatus)
	adminOrders.GET("/recent", d.OrderHandler.GetRecentOrders)
}
