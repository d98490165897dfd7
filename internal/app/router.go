package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"lovealarm/internal/handler"
	"lovealarm/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	UserHandler    *handler.UserHandler
	SignalHandler  *handler.SignalHandler
	LoveHandler    *handler.LoveHandler
	AlarmHandler   *handler.AlarmHandler
	RedisClient    *redis.Client // nil disables idempotency
	NewRelicApp    *newrelic.Application
	AllowedOrigins []string
	IdempotencyTTL time.Duration
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.IdempotencyTTL))
	{
		v1.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "Love Alarm API v1 is running!"})
		})

		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.GET("", deps.UserHandler.GetAll)
			users.GET("/:id", deps.UserHandler.GetUser)
			users.PUT("/:id/location", deps.UserHandler.UpdateLocation)

			users.POST("/:id/signal", deps.SignalHandler.Activate)
			users.DELETE("/:id/signal", deps.SignalHandler.Deactivate)
			users.GET("/:id/nearby", deps.SignalHandler.Nearby)

			users.GET("/:id/alarms", deps.AlarmHandler.Stream)
		}

		v1.POST("/interactions", deps.LoveHandler.RecordInteraction)
		v1.GET("/check-love/:id", deps.LoveHandler.CheckLove)
	}

	return router
}
