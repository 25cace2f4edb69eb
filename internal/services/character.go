package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

type CreateCharacterInput struct {
	Name                string
	Race                string
	Class               string
	AdventurePrompt     string
	Owner               string
	LocationID          string
	LocationDisplayName string
}

type CharacterService interface {
	Create(ctx context.Context, in CreateCharacterInput) (*domain.CharacterDocument, error)
	Get(ctx context.Context, id string, owner *string) (*domain.CharacterDocument, error)
	List(ctx context.Context, owner string, limit, offset int) ([]domain.CharacterSummary, error)
}

type characterService struct {
	gw  store.Gateway
	log *logger.Logger
	cfg Config
}

func NewCharacterService(gw store.Gateway, baseLog *logger.Logger, cfg Config) CharacterService {
	return &characterService{
		gw:  gw,
		log: baseLog.With("service", "CharacterService"),
		cfg: cfg,
	}
}

func (cs *characterService) Create(ctx context.Context, in CreateCharacterInput) (*domain.CharacterDocument, error) {
	owner := strings.TrimSpace(in.Owner)
	if owner == "" {
		return nil, apierr.Validation("user id is required")
	}
	identity, err := domain.NewCharacterIdentity(in.Name, in.Race, in.Class)
	if err != nil {
		return nil, err
	}
	prompt, err := domain.ValidateAdventurePrompt(in.AdventurePrompt)
	if err != nil {
		return nil, err
	}
	location, err := resolveLocationOverride(in.LocationID, in.LocationDisplayName)
	if err != nil {
		return nil, err
	}

	// Generated outside the transaction closure: the store may re-run the
	// closure on contention and the id must be stable across attempts.
	characterID := strings.ToLower(uuid.NewString())
	doc := &domain.CharacterDocument{
		CharacterID:             characterID,
		OwnerUserID:             owner,
		AdventurePrompt:         prompt,
		PlayerState:             domain.NewPlayerState(identity, location),
		NarrativeTurnsReference: domain.NarrativeTurnsReference(characterID),
		WorldPOIsReference:      domain.WorldPOIsReference(characterID),
		SchemaVersion:           domain.SchemaVersion,
		WorldState:              map[string]interface{}{},
		AdditionalMetadata:      map[string]interface{}{},
	}

	cs.log.Info("create_character_attempt",
		"character_id", characterID,
		"owner_user_id", owner,
		"name", identity.Name,
	)

	err = cs.gw.RunAtomic(ctx, func(tx store.Tx) error {
		existing, err := tx.Query(store.Query{
			Path: cs.cfg.CharactersCollection,
			Filters: []store.Filter{
				{Field: "owner_user_id", Op: "==", Value: owner},
				{Field: "player_state.identity.name", Op: "==", Value: identity.Name},
				{Field: "player_state.identity.race", Op: "==", Value: identity.Race},
				{Field: "player_state.identity.class", Op: "==", Value: identity.CharacterClass},
			},
			Limit: 1,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return apierr.Conflict(fmt.Sprintf(
				"character with name %q, race %q, and class %q already exists for this user",
				identity.Name, identity.Race, identity.CharacterClass))
		}
		data := domain.CharacterToStored(doc)
		data["created_at"] = store.ServerTimestamp
		data["updated_at"] = store.ServerTimestamp
		return tx.Create(cs.cfg.CharactersCollection, characterID, data)
	})
	if err != nil {
		return nil, err
	}

	// Re-read to materialize the server-resolved timestamps.
	rec, err := cs.gw.GetDocument(ctx, cs.cfg.CharactersCollection, characterID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apierr.Infrastructure("character vanished after create", nil)
	}
	created, err := domain.CharacterFromStored(rec.ID, rec.Data)
	if err != nil {
		return nil, err
	}
	cs.log.Info("create_character_success", "character_id", characterID, "owner_user_id", owner)
	return created, nil
}

func (cs *characterService) Get(ctx context.Context, id string, owner *string) (*domain.CharacterDocument, error) {
	characterID, err := NormalizeCharacterID(id)
	if err != nil {
		return nil, err
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return nil, err
	}
	rec, err := cs.gw.GetDocument(ctx, cs.cfg.CharactersCollection, characterID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
	}
	doc, err := domain.CharacterFromStored(rec.ID, rec.Data)
	if err != nil {
		return nil, err
	}
	if supplied {
		if err := checkOwnership(doc.OwnerUserID, requester); err != nil {
			cs.log.Warn("get_character_access_denied", "character_id", characterID, "requested_user_id", requester)
			return nil, err
		}
	}
	return doc, nil
}

func (cs *characterService) List(ctx context.Context, owner string, limit, offset int) ([]domain.CharacterSummary, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, apierr.Validation("user id is required")
	}
	if limit < 0 || offset < 0 {
		return nil, apierr.Validation("limit and offset cannot be negative")
	}
	recs, err := cs.gw.QueryOrdered(ctx, store.Query{
		Path:      cs.cfg.CharactersCollection,
		Filters:   []store.Filter{{Field: "owner_user_id", Op: "==", Value: owner}},
		OrderBy:   "updated_at",
		Direction: store.Descending,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.CharacterSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, summaryFromRecord(rec))
	}
	return summaries, nil
}

// summaryFromRecord is deliberately lenient: list views tolerate legacy
// documents that would fail full deserialization. Missing status defaults to
// Healthy.
func summaryFromRecord(rec store.Record) domain.CharacterSummary {
	data := rec.Data
	state, _ := data["player_state"].(map[string]interface{})
	identity, _ := state["identity"].(map[string]interface{})
	summary := domain.CharacterSummary{
		CharacterID: rec.ID,
		Status:      domain.StatusHealthy,
	}
	if name, ok := identity["name"].(string); ok {
		summary.Name = name
	}
	if race, ok := identity["race"].(string); ok {
		summary.Race = race
	}
	if class, ok := identity["class"].(string); ok {
		summary.CharacterClass = class
	}
	if raw, ok := state["status"].(string); ok {
		if status := domain.Status(raw); status.Valid() {
			summary.Status = status
		}
	}
	if created, err := domain.TimestampFromStored(data["created_at"]); err == nil {
		summary.CreatedAt = created
	}
	if updated, err := domain.TimestampFromStored(data["updated_at"]); err == nil {
		summary.UpdatedAt = updated
	}
	return summary
}

func resolveLocationOverride(id, displayName string) (domain.Location, error) {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)
	switch {
	case id == "" && displayName == "":
		return domain.DefaultLocation(), nil
	case id != "" && displayName != "":
		return domain.NewLocation(id, displayName)
	default:
		return domain.Location{}, apierr.Invalid(apierr.Field(
			"location_id",
			"location_id and location_display_name must be supplied together",
			"value_error",
		))
	}
}
