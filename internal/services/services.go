// Package services holds the application logic between the HTTP boundary and
// the document store gateway. Each service is constructed once at startup
// with its dependencies and is safe for concurrent use.
package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

// Config carries collection names and read caps shared across services.
type Config struct {
	CharactersCollection string
	NarrativeSub         string
	POISub               string

	NarrativeDefaultN int
	NarrativeMaxN     int
	ContextDefaultN   int
	ContextMaxN       int

	POIDefaultN         int
	POIMaxN             int
	POISampleCap        int
	POIEmbeddedFallback bool
	POIMigrationEnabled bool
}

func DefaultConfig() Config {
	return Config{
		CharactersCollection: "characters",
		NarrativeSub:         "narrative_turns",
		POISub:               "pois",
		NarrativeDefaultN:    10,
		NarrativeMaxN:        100,
		ContextDefaultN:      20,
		ContextMaxN:          100,
		POIDefaultN:          10,
		POIMaxN:              100,
		POISampleCap:         3,
		POIEmbeddedFallback:  true,
		POIMigrationEnabled:  true,
	}
}

func (c Config) narrativePath(characterID string) string {
	return c.CharactersCollection + "/" + characterID + "/" + c.NarrativeSub
}

func (c Config) poiPath(characterID string) string {
	return c.CharactersCollection + "/" + characterID + "/" + c.POISub
}

// NormalizeCharacterID accepts any UUID casing and returns the canonical
// lowercase form. Malformed ids are a schema-level validation failure.
func NormalizeCharacterID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", apierr.Invalid(apierr.Field("character_id", "character_id is not a valid UUID", "uuid_parsing"))
	}
	return strings.ToLower(parsed.String()), nil
}

// resolveOwner distinguishes the three caller-identity cases: absent (nil,
// anonymous allowed), supplied-but-blank (validation failure), and supplied.
func resolveOwner(owner *string) (string, bool, error) {
	if owner == nil {
		return "", false, nil
	}
	trimmed := strings.TrimSpace(*owner)
	if trimmed == "" {
		return "", false, apierr.Validation("user id cannot be empty")
	}
	return trimmed, true, nil
}

// requireOwner is resolveOwner for operations where anonymous access is not
// allowed.
func requireOwner(owner *string) (string, error) {
	id, supplied, err := resolveOwner(owner)
	if err != nil {
		return "", err
	}
	if !supplied {
		return "", apierr.Validation("user id is required")
	}
	return id, nil
}

func checkOwnership(storedOwner, requester string) error {
	if storedOwner != requester {
		return apierr.Forbidden("access denied: user id does not match character owner")
	}
	return nil
}
