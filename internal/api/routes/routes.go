package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/review-widget-backend/internal/api/handlers"
	"github.com/princeprakhar/review-widget-backend/internal/api/middleware"
	"github.com/princeprakhar/review-widget-backend/internal/config"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Widget *handlers.WidgetHandler
	Admin  *handlers.AdminHandler
}

func SetupRoutes(router *gin.Engine, cfg *config.Config, h Handlers) {
	// Middleware
	router.Use(middleware.RequestID())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Widget routes. The script and payload routes are public and embedded on customer sites.
	widget := api.Group("/widget")
	limit := middleware.RateLimitMiddleware(cfg)
	{
		widget.GET("/reviews.js", limit, h.Widget.GetWidgetScript)
		widget.GET("/:widget_id/reviews", limit, h.Widget.GetWidgetReviews)
		widget.GET("/fetch/:widget_id", h.Widget.GetStoredReviews)

		widget.POST("/create", middleware.AuthMiddleware(cfg), h.Widget.CreateWidget)
		widget.GET("/user-widgets", middleware.AuthMiddleware(cfg), h.Widget.GetUserWidgets)
		widget.PUT("/:widget_id/layout", middleware.AuthMiddleware(cfg), h.Widget.UpdateLayout)
		widget.POST("/:widget_id/refresh", middleware.AuthMiddleware(cfg), h.Widget.RefreshWidget)
	}

	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminOnly())
	{
		admin.POST("/sweep", h.Admin.TriggerSweep)
		admin.GET("/api-consumption", h.Admin.GetConsumption)
		admin.GET("/api-consumption/:user_id", h.Admin.GetConsumption)
	}

	logger.Info("Routes initialized successfully")
}
