package services

import (
	"context"
	"fmt"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

// CombatEnvelope is the fixed-shape combat response: callers render activity
// via Active, never via State's presence.
type CombatEnvelope struct {
	Active bool                `json:"active"`
	State  *domain.CombatState `json:"state"`
}

type CombatService interface {
	// Update replaces combat_state wholesale, or clears it when state is nil.
	Update(ctx context.Context, characterID string, owner *string, state *domain.CombatState) (CombatEnvelope, error)
	Get(ctx context.Context, characterID string, owner *string) (CombatEnvelope, error)
}

type combatService struct {
	gw  store.Gateway
	log *logger.Logger
	cfg Config
}

func NewCombatService(gw store.Gateway, baseLog *logger.Logger, cfg Config) CombatService {
	return &combatService{
		gw:  gw,
		log: baseLog.With("service", "CombatService"),
		cfg: cfg,
	}
}

func (s *combatService) Update(ctx context.Context, characterID string, owner *string, state *domain.CombatState) (CombatEnvelope, error) {
	var env CombatEnvelope
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return env, err
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return env, err
	}
	if state != nil {
		if err := state.Validate(); err != nil {
			return env, err
		}
	}

	err = s.gw.RunAtomic(ctx, func(tx store.Tx) error {
		rec, err := tx.Get(s.cfg.CharactersCollection, characterID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
		}
		if supplied {
			storedOwner, _ := rec.Data["owner_user_id"].(string)
			if err := checkOwnership(storedOwner, requester); err != nil {
				return err
			}
		}
		// A malformed stored combat_state never blocks the write: the update
		// proceeds on the strength of the new state's validity alone.
		updates := []store.Update{{Field: "updated_at", Value: store.ServerTimestamp}}
		if state == nil {
			updates = append(updates, store.Update{Field: "combat_state", Value: store.DeleteField})
		} else {
			updates = append(updates, store.Update{Field: "combat_state", Value: domain.CombatToStored(state)})
		}
		return tx.Update(s.cfg.CharactersCollection, characterID, updates)
	})
	if err != nil {
		return env, err
	}

	env = CombatEnvelope{Active: state.IsActive(), State: state}
	s.log.Info("update_combat_success",
		"character_id", characterID,
		"active", env.Active,
		"cleared", state == nil,
	)
	return env, nil
}

func (s *combatService) Get(ctx context.Context, characterID string, owner *string) (CombatEnvelope, error) {
	var env CombatEnvelope
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return env, err
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return env, err
	}
	rec, err := s.gw.GetDocument(ctx, s.cfg.CharactersCollection, characterID)
	if err != nil {
		return env, err
	}
	if rec == nil {
		return env, apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
	}
	if supplied {
		storedOwner, _ := rec.Data["owner_user_id"].(string)
		if err := checkOwnership(storedOwner, requester); err != nil {
			return env, err
		}
	}
	raw, _ := rec.Data["combat_state"].(map[string]interface{})
	if raw == nil {
		return CombatEnvelope{Active: false, State: nil}, nil
	}
	state, err := domain.CombatFromStored(raw)
	if err != nil {
		// Tolerate broken stored values on read; the next valid update
		// overwrites them.
		s.log.Warn("get_combat_malformed_state", "character_id", characterID, "error", err)
		return CombatEnvelope{Active: false, State: nil}, nil
	}
	if !state.IsActive() {
		return CombatEnvelope{Active: false, State: nil}, nil
	}
	return CombatEnvelope{Active: true, State: state}, nil
}
