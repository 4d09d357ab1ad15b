package api

import (
	"net/http"

	analyticsHandler "popup-server/internal/analytics/handler"
	authHandler "popup-server/internal/auth/handler"
	"popup-server/internal/ratelimit"
	settingsHandler "popup-server/internal/settings/handler"
	subscribeHandler "popup-server/internal/subscribe/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router           *gin.RouterGroup
	authHandler      authHandler.Handler
	settingsHandler  settingsHandler.Handler
	subscribeHandler subscribeHandler.Handler
	analyticsHandler analyticsHandler.Handler
	rateLimiter      *ratelimit.Service
	subscribeRPM     int
	analyticsRPM     int
}

func New(router *gin.RouterGroup, authHandler authHandler.Handler, settingsHandler settingsHandler.Handler,
	subscribeHandler subscribeHandler.Handler, analyticsHandler analyticsHandler.Handler,
	rateLimiter *ratelimit.Service, subscribeRPM, analyticsRPM int) API {
	return API{
		router:           router,
		authHandler:      authHandler,
		settingsHandler:  settingsHandler,
		subscribeHandler: subscribeHandler,
		analyticsHandler: analyticsHandler,
		rateLimiter:      rateLimiter,
		subscribeRPM:     subscribeRPM,
		analyticsRPM:     analyticsRPM,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api")
	{
		// Public storefront endpoints, called by the theme extension
		apiGroup.GET("/popup-settings", a.settingsHandler.HandlePublicSettings)
		apiGroup.POST("/subscribe",
			a.rateLimiter.Middleware("subscribe", a.subscribeRPM),
			a.subscribeHandler.HandleSubscribe)
		apiGroup.POST("/analytics",
			a.rateLimiter.Middleware("analytics", a.analyticsRPM),
			a.analyticsHandler.HandleRecordEvent)
	}
	// Embedded admin endpoints, authenticated by App Bridge session token
	adminGroup := a.router.Group("/api", a.authHandler.HandleSessionTokenMiddleware)
	{
		adminGroup.GET("/settings", a.settingsHandler.HandleGetSettings)
		adminGroup.POST("/popup-settings", a.settingsHandler.HandleUpdateSettings)
		adminGroup.GET("/analytics-data", a.analyticsHandler.HandleGetAnalyticsData)
		adminGroup.GET("/subscribers", a.subscribeHandler.HandleGetSubscribers)
		adminGroup.DELETE("/subscribers/:id", a.subscribeHandler.HandleRemoveSubscriber)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
