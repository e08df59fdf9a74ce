package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"restaurant-admin-backend/config"
	"restaurant-admin-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	caching := mw.Cache(handler.historyCache, cfg.CacheTTL)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if handler.hub != nil {
		r.GET("/ws", handler.ServeDashboard)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/tables", handler.GetTables)
		api.GET("/tables/:id", handler.GetTable)
		api.GET("/tables/:id/bill", handler.GetBill)
		api.POST("/tables/:id/cycle", handler.CycleTable)
		api.POST("/tables/:id/orders/:lineId/served", handler.ToggleServed)
		api.POST("/tables/:id/otp", handler.GenerateOTP)
		api.POST("/tables/:id/checkout", handler.Checkout)

		api.GET("/order-history", caching, handler.GetOrderHistory)
		api.PUT("/order-history/:id", handler.UpdateOrderHistory)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
