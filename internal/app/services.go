package app

import (
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/services"
	"github.com/journeylog/journeylog-backend/internal/store"
)

type Services struct {
	Character services.CharacterService
	Narrative services.NarrativeService
	Combat    services.CombatService
	Quest     services.QuestService
	POI       services.POIService
	Context   services.ContextService
}

func wireServices(gw store.Gateway, log *logger.Logger, cfg services.Config) Services {
	return Services{
		Character: services.NewCharacterService(gw, log, cfg),
		Narrative: services.NewNarrativeService(gw, log, cfg),
		Combat:    services.NewCombatService(gw, log, cfg),
		Quest:     services.NewQuestService(gw, log, cfg),
		POI:       services.NewPOIService(gw, log, cfg),
		Context:   services.NewContextService(gw, log, cfg),
	}
}
