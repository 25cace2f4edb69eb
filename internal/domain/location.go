package domain

import (
	"encoding/json"
	"strings"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

// Starting location for newly created characters.
const (
	DefaultLocationID          = "origin:nexus"
	DefaultLocationDisplayName = "The Nexus"
)

type LocationKind int

const (
	LocationStructured LocationKind = iota
	LocationLegacyText
	LocationLegacyMap
)

// Location is a tagged union. New writes always produce the structured
// variant; the two legacy variants survive only on read for documents that
// predate the structured form.
type Location struct {
	Kind        LocationKind
	ID          string
	DisplayName string
	LegacyText  string
	LegacyMap   map[string]interface{}
}

// NewLocation builds the structured variant. Both fields are required
// together and must be non-empty after trimming.
func NewLocation(id, displayName string) (Location, error) {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)
	if id == "" {
		return Location{}, apierr.Invalid(apierr.Field("location.id", "location id cannot be empty", "value_error"))
	}
	if displayName == "" {
		return Location{}, apierr.Invalid(apierr.Field("location.display_name", "location display_name cannot be empty", "value_error"))
	}
	return Location{Kind: LocationStructured, ID: id, DisplayName: displayName}, nil
}

func DefaultLocation() Location {
	return Location{Kind: LocationStructured, ID: DefaultLocationID, DisplayName: DefaultLocationDisplayName}
}

// LocationFromStored dispatches on the persisted shape: a structured
// {id, display_name} map, a free-form map, or a bare string.
func LocationFromStored(v interface{}) (Location, error) {
	switch t := v.(type) {
	case nil:
		return Location{}, apierr.Serialization("location is missing", nil)
	case string:
		return Location{Kind: LocationLegacyText, LegacyText: t}, nil
	case map[string]interface{}:
		id, idOK := t["id"].(string)
		name, nameOK := t["display_name"].(string)
		if idOK && nameOK && strings.TrimSpace(id) != "" && strings.TrimSpace(name) != "" {
			return Location{Kind: LocationStructured, ID: strings.TrimSpace(id), DisplayName: strings.TrimSpace(name)}, nil
		}
		return Location{Kind: LocationLegacyMap, LegacyMap: t}, nil
	default:
		return Location{}, apierr.Serialization("location has an unsupported stored type", nil)
	}
}

// ToStored returns the persisted representation for the active variant.
func (l Location) ToStored() interface{} {
	switch l.Kind {
	case LocationLegacyText:
		return l.LegacyText
	case LocationLegacyMap:
		return l.LegacyMap
	default:
		return map[string]interface{}{"id": l.ID, "display_name": l.DisplayName}
	}
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.ToStored())
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	loc, err := LocationFromStored(raw)
	if err != nil {
		return err
	}
	*l = loc
	return nil
}
