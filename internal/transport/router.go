package transport

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the HTTP API used by the UI.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), SecurityHeaders())

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", h.health)

	api := r.Group("/api")
	{
		api.GET("/customers", h.listCustomers)
		api.POST("/customers", h.createCustomer)
		api.GET("/customers/:id", h.getCustomer)

		api.GET("/orders", h.listOrders)
		api.POST("/orders", h.placeOrder)
		api.GET("/orders/:id", h.getOrder)
		api.PATCH("/orders/:id/status", h.setOrderStatus)
		api.GET("/orders/:id/receipt", h.receipt)

		api.GET("/reports/dashboard", h.dashboard)
		api.GET("/reports/daily", h.dailySales)
		api.GET("/reports/trend", h.salesTrend)
		api.GET("/reports/debts", h.debts)

		api.GET("/goods", h.listGoods)
		api.POST("/goods", h.addGoods)

		api.GET("/settings", h.getSettings)
		api.PUT("/settings", h.saveSettings)

		api.POST("/assistant/recognize", h.recognize)
		api.POST("/assistant/analyze", h.analyze)

		api.DELETE("/data", h.reset)
	}
	return r
}
