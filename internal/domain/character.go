package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

const (
	SchemaVersion = "1.0.0"

	MaxIdentityFieldLen = 64
	MaxArchivedQuests   = 50
	MaxEmbeddedPOIs     = 200
)

// DeprecatedPlayerFields are numeric legacy fields recognized under
// player_state on read, silently dropped, and never re-written.
var DeprecatedPlayerFields = []string{
	"level",
	"experience",
	"stats",
	"current_hp",
	"max_hp",
	"current_health",
	"max_health",
	"health",
}

// CollapseWhitespace folds every whitespace run to a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}

type CharacterIdentity struct {
	Name           string `json:"name"`
	Race           string `json:"race"`
	CharacterClass string `json:"class"`
}

// NewCharacterIdentity validates and normalizes the three identity fields:
// whitespace-collapsed, 1-64 characters each.
func NewCharacterIdentity(name, race, class string) (CharacterIdentity, error) {
	var fields []apierr.FieldError
	name = CollapseWhitespace(name)
	race = CollapseWhitespace(race)
	class = CollapseWhitespace(class)
	for loc, v := range map[string]string{"name": name, "race": race, "class": class} {
		if v == "" {
			fields = append(fields, apierr.Field(loc, loc+" cannot be empty", "value_error"))
		} else if utf8.RuneCountInString(v) > MaxIdentityFieldLen {
			fields = append(fields, apierr.Field(loc,
				fmt.Sprintf("%s exceeds %d characters", loc, MaxIdentityFieldLen), "string_too_long"))
		}
	}
	if len(fields) > 0 {
		return CharacterIdentity{}, apierr.Invalid(fields...)
	}
	return CharacterIdentity{Name: name, Race: race, CharacterClass: class}, nil
}

// Weapon damage and effects are flexible by contract: damage may be a dice
// expression string or a flat number, effects a string or structured map.
type Weapon struct {
	Name           string      `json:"name"`
	Damage         interface{} `json:"damage"`
	SpecialEffects interface{} `json:"special_effects,omitempty"`
}

type InventoryItem struct {
	Name     string      `json:"name"`
	Quantity int         `json:"quantity"`
	Effect   interface{} `json:"effect,omitempty"`
}

// Health is the internal numeric record retained only for storage/legacy
// compatibility. It must never be serialized into the public API surface.
type Health struct {
	Current int
	Max     int
}

func (h Health) Valid() bool {
	return h.Current >= 0 && h.Max >= 0 && h.Current <= h.Max
}

type PlayerState struct {
	Identity  CharacterIdentity `json:"identity"`
	Status    Status            `json:"status"`
	Equipment []Weapon          `json:"equipment"`
	Inventory []InventoryItem   `json:"inventory"`
	Location  Location          `json:"location"`
	// AdditionalFields is an open map for game-specific data.
	AdditionalFields map[string]interface{} `json:"additional_fields"`
}

// NewPlayerState builds the default state for a freshly created character.
func NewPlayerState(identity CharacterIdentity, location Location) PlayerState {
	return PlayerState{
		Identity:         identity,
		Status:           StatusHealthy,
		Equipment:        []Weapon{},
		Inventory:        []InventoryItem{},
		Location:         location,
		AdditionalFields: map[string]interface{}{},
	}
}

// CharacterDocument is the aggregate root persisted one-per-character.
// Narrative turns and POIs live in subcollections referenced by path.
type CharacterDocument struct {
	CharacterID              string                 `json:"character_id"`
	OwnerUserID              string                 `json:"owner_user_id"`
	AdventurePrompt          string                 `json:"adventure_prompt"`
	PlayerState              PlayerState            `json:"player_state"`
	NarrativeTurnsReference  string                 `json:"narrative_turns_reference"`
	WorldPOIsReference       string                 `json:"world_pois_reference"`
	SchemaVersion            string                 `json:"schema_version"`
	CreatedAt                time.Time              `json:"created_at"`
	UpdatedAt                time.Time              `json:"updated_at"`
	WorldState               map[string]interface{} `json:"world_state"`
	ActiveQuest              *Quest                 `json:"active_quest"`
	ArchivedQuests           []Quest                `json:"archived_quests"`
	CombatState              *CombatState           `json:"combat_state"`
	WorldPOIs                []EmbeddedPOI          `json:"world_pois,omitempty"`
	AdditionalMetadata       map[string]interface{} `json:"additional_metadata"`
}

// CharacterSummary is the lightweight list projection: never the full
// document.
type CharacterSummary struct {
	CharacterID    string    `json:"character_id"`
	Name           string    `json:"name"`
	Race           string    `json:"race"`
	CharacterClass string    `json:"class"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func ValidateAdventurePrompt(prompt string) (string, error) {
	prompt = CollapseWhitespace(prompt)
	if prompt == "" {
		return "", apierr.Invalid(apierr.Field("adventure_prompt", "adventure_prompt cannot be empty", "value_error"))
	}
	return prompt, nil
}

func NarrativeTurnsReference(characterID string) string {
	return fmt.Sprintf("characters/%s/narrative_turns", characterID)
}

func WorldPOIsReference(characterID string) string {
	return fmt.Sprintf("characters/%s/pois", characterID)
}
