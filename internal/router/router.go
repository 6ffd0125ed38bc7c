package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tgexam/backend/internal/config"
	"github.com/tgexam/backend/internal/handler"
	"github.com/tgexam/backend/internal/middleware"
	"github.com/tgexam/backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Admin   *handler.AdminHandler
	Monitor *handler.MonitorHub
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-API-Key", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Session issuing is the only unauthenticated write without a session id,
	// so it gets its own limiter (30 per minute per IP).
	createLimiter := middleware.NewRateLimiter(30, time.Minute)

	sessions := router.Group("/api/v1/sessions")
	{
		sessions.POST("", createLimiter.Middleware(), handlers.Session.CreateSession)
		sessions.POST("/:id/start", handlers.Session.StartAttempt)
		sessions.PUT("/:id/answers", handlers.Session.SaveAnswer)
		sessions.POST("/:id/events", handlers.Session.PostEvent)
		sessions.POST("/:id/submit", handlers.Session.Submit)
		sessions.POST("/:id/retake", handlers.Session.Retake)
	}

	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.RequireAPIKey(cfg.ReportAPIKey))
	{
		admin.GET("/results", handlers.Admin.ListResults)
		admin.GET("/results.csv", handlers.Admin.ExportCSV)
		admin.DELETE("/results/:id", handlers.Admin.DeleteResult)
		admin.GET("/sessions", handlers.Admin.ListSessions)
	}

	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAPIKey(cfg.ReportAPIKey))
	{
		ws.GET("/admin/monitor", handlers.Monitor.Serve)
	}

	return router
}
