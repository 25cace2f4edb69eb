// Package httpapi assembles the gin engine from handlers and middleware.
package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/journeylog/journeylog-backend/internal/httpapi/handlers"
	"github.com/journeylog/journeylog-backend/internal/httpapi/middleware"
)

type RouterConfig struct {
	ServiceName string
	Environment string
	CORSOrigins []string

	CharacterHandler *handlers.CharacterHandler
	NarrativeHandler *handlers.NarrativeHandler
	CombatHandler    *handlers.CombatHandler
	QuestHandler     *handlers.QuestHandler
	POIHandler       *handlers.POIHandler
	ContextHandler   *handlers.ContextHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-User-Id", "X-Request-Id"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", handlers.HealthCheck)

	characters := router.Group("/characters")
	{
		characters.POST("", cfg.CharacterHandler.Create)
		characters.GET("", cfg.CharacterHandler.List)
		characters.GET("/:id", cfg.CharacterHandler.Get)

		characters.POST("/:id/narrative", cfg.NarrativeHandler.Append)
		characters.GET("/:id/narrative", cfg.NarrativeHandler.Recent)

		characters.PUT("/:id/combat", cfg.CombatHandler.Update)
		characters.GET("/:id/combat", cfg.CombatHandler.Get)

		characters.PUT("/:id/quest", cfg.QuestHandler.Set)
		characters.GET("/:id/quest", cfg.QuestHandler.Get)
		characters.DELETE("/:id/quest", cfg.QuestHandler.Delete)

		characters.POST("/:id/pois", cfg.POIHandler.Create)
		characters.GET("/:id/pois", cfg.POIHandler.List)
		characters.GET("/:id/pois/summary", cfg.POIHandler.Summary)

		characters.GET("/:id/context", cfg.ContextHandler.Get)
	}

	return router
}
