package services

import (
	"context"
	"fmt"
	"time"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

type QuestService interface {
	// Set installs the active quest. If one already exists the caller must
	// delete it first; replacement is not implicit.
	Set(ctx context.Context, characterID string, owner *string, quest *domain.Quest) (*domain.Quest, error)
	Get(ctx context.Context, characterID string, owner *string) (*domain.Quest, error)
	// Delete clears the active quest and archives it with a cleared_at
	// timestamp, keeping at most the newest 50 archive entries.
	Delete(ctx context.Context, characterID string, owner *string) (*domain.Quest, error)
}

type questService struct {
	gw  store.Gateway
	log *logger.Logger
	cfg Config
}

func NewQuestService(gw store.Gateway, baseLog *logger.Logger, cfg Config) QuestService {
	return &questService{
		gw:  gw,
		log: baseLog.With("service", "QuestService"),
		cfg: cfg,
	}
}

func (s *questService) Set(ctx context.Context, characterID string, owner *string, quest *domain.Quest) (*domain.Quest, error) {
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, err
	}
	requester, err := requireOwner(owner)
	if err != nil {
		return nil, err
	}
	if quest == nil {
		return nil, apierr.Validation("quest body is required")
	}
	if err := quest.Validate(); err != nil {
		return nil, err
	}
	quest.UpdatedAt = time.Now().UTC()
	quest.ClearedAt = nil

	err = s.gw.RunAtomic(ctx, func(tx store.Tx) error {
		rec, err := tx.Get(s.cfg.CharactersCollection, characterID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
		}
		storedOwner, _ := rec.Data["owner_user_id"].(string)
		if err := checkOwnership(storedOwner, requester); err != nil {
			return err
		}
		if rec.Data["active_quest"] != nil {
			return apierr.Conflict("an active quest already exists for this character; delete the existing quest before setting a new one")
		}
		return tx.Update(s.cfg.CharactersCollection, characterID, []store.Update{
			{Field: "active_quest", Value: domain.QuestToStored(quest)},
			{Field: "updated_at", Value: store.ServerTimestamp},
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("set_quest_success", "character_id", characterID, "quest_name", quest.Name)
	return quest, nil
}

func (s *questService) Get(ctx context.Context, characterID string, owner *string) (*domain.Quest, error) {
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, err
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return nil, err
	}
	rec, err := s.gw.GetDocument(ctx, s.cfg.CharactersCollection, characterID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
	}
	if supplied {
		storedOwner, _ := rec.Data["owner_user_id"].(string)
		if err := checkOwnership(storedOwner, requester); err != nil {
			return nil, err
		}
	}
	raw, _ := rec.Data["active_quest"].(map[string]interface{})
	if raw == nil {
		return nil, nil
	}
	return domain.QuestFromStored(raw)
}

func (s *questService) Delete(ctx context.Context, characterID string, owner *string) (*domain.Quest, error) {
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, err
	}
	requester, err := requireOwner(owner)
	if err != nil {
		return nil, err
	}

	var archived *domain.Quest
	err = s.gw.RunAtomic(ctx, func(tx store.Tx) error {
		archived = nil
		rec, err := tx.Get(s.cfg.CharactersCollection, characterID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
		}
		storedOwner, _ := rec.Data["owner_user_id"].(string)
		if err := checkOwnership(storedOwner, requester); err != nil {
			return err
		}
		raw, _ := rec.Data["active_quest"].(map[string]interface{})
		if raw == nil {
			return apierr.NotFound("no active quest exists for this character")
		}
		quest, err := domain.QuestFromStored(raw)
		if err != nil {
			return err
		}
		clearedAt := time.Now().UTC()
		quest.ClearedAt = &clearedAt

		var archive []domain.Quest
		rawArchive, _ := rec.Data["archived_quests"].([]interface{})
		for i, entry := range rawArchive {
			entryMap, _ := entry.(map[string]interface{})
			q, err := domain.QuestFromStored(entryMap)
			if err != nil {
				return apierr.Serialization(fmt.Sprintf("archived quest %d is invalid", i), err)
			}
			archive = append(archive, *q)
		}
		archive = domain.ArchiveQuest(archive, *quest)
		stored := make([]interface{}, 0, len(archive))
		for i := range archive {
			stored = append(stored, domain.QuestToStored(&archive[i]))
		}
		archived = quest
		return tx.Update(s.cfg.CharactersCollection, characterID, []store.Update{
			{Field: "active_quest", Value: store.DeleteField},
			{Field: "archived_quests", Value: stored},
			{Field: "updated_at", Value: store.ServerTimestamp},
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("delete_quest_success", "character_id", characterID, "quest_name", archived.Name)
	return archived, nil
}
