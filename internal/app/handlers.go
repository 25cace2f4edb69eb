package app

import (
	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/httpapi"
	"github.com/journeylog/journeylog-backend/internal/httpapi/handlers"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, svcs Services) *gin.Engine {
	resp := handlers.NewResponder(log, cfg.Environment)
	return httpapi.NewRouter(httpapi.RouterConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		CORSOrigins: cfg.CORSOrigins,

		CharacterHandler: handlers.NewCharacterHandler(svcs.Character, resp),
		NarrativeHandler: handlers.NewNarrativeHandler(svcs.Narrative, cfg.NarrativeDefaultN, resp),
		CombatHandler:    handlers.NewCombatHandler(svcs.Combat, resp),
		QuestHandler:     handlers.NewQuestHandler(svcs.Quest, resp),
		POIHandler:       handlers.NewPOIHandler(svcs.POI, cfg.POIDefaultN, resp),
		ContextHandler:   handlers.NewContextHandler(svcs.Context, cfg.ContextDefaultN, resp),
	})
}
