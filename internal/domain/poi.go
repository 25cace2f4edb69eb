package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

const (
	MaxPOINameLen        = 200
	MaxPOIDescriptionLen = 2000
	MaxPOITags           = 20
	MaxPOITagLen         = 50

	DefaultPOISampleCap = 3
)

// POI is a discovered point of interest. Canonical storage is the per-character
// "pois" subcollection; older documents carry an embedded world_pois list that
// is migrated copy-on-write.
type POI struct {
	POIID               string                 `json:"poi_id"`
	Name                string                 `json:"name"`
	Description         string                 `json:"description"`
	Type                string                 `json:"type,omitempty"`
	Location            *Location              `json:"location,omitempty"`
	Notes               string                 `json:"notes,omitempty"`
	Tags                []string               `json:"tags"`
	Visited             bool                   `json:"visited"`
	TimestampDiscovered time.Time              `json:"timestamp_discovered"`
	LastVisited         *time.Time             `json:"last_visited,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// Length limits are counted in characters, not bytes.
func (p *POI) Validate() error {
	var fields []apierr.FieldError
	name := strings.TrimSpace(p.Name)
	if name == "" {
		fields = append(fields, apierr.Field("poi.name", "name cannot be empty", "value_error"))
	} else if n := utf8.RuneCountInString(p.Name); n > MaxPOINameLen {
		fields = append(fields, apierr.Field("poi.name",
			fmt.Sprintf("name is %d characters, maximum is %d", n, MaxPOINameLen), "too_long"))
	}
	if strings.TrimSpace(p.Description) == "" {
		fields = append(fields, apierr.Field("poi.description", "description cannot be empty", "value_error"))
	} else if n := utf8.RuneCountInString(p.Description); n > MaxPOIDescriptionLen {
		fields = append(fields, apierr.Field("poi.description",
			fmt.Sprintf("description is %d characters, maximum is %d", n, MaxPOIDescriptionLen), "too_long"))
	}
	if len(p.Tags) > MaxPOITags {
		fields = append(fields, apierr.Field("poi.tags",
			fmt.Sprintf("too many tags: %d exceeds the maximum of %d", len(p.Tags), MaxPOITags), "too_long"))
	}
	for i, tag := range p.Tags {
		if strings.TrimSpace(tag) == "" {
			fields = append(fields, apierr.Field(fmt.Sprintf("poi.tags.%d", i), "tags cannot be empty", "value_error"))
		} else if n := utf8.RuneCountInString(tag); n > MaxPOITagLen {
			fields = append(fields, apierr.Field(fmt.Sprintf("poi.tags.%d", i),
				fmt.Sprintf("tag is %d characters, maximum is %d", n, MaxPOITagLen), "too_long"))
		}
	}
	if len(fields) > 0 {
		return apierr.Invalid(fields...)
	}
	return nil
}

// EmbeddedPOI is the legacy representation carried inline on the character
// document under world_pois. Its wire names differ from the subcollection
// form: "id" instead of "poi_id" and "created_at" instead of
// "timestamp_discovered".
type EmbeddedPOI struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Location    *Location              `json:"location,omitempty"`
	Tags        []string               `json:"tags"`
	CreatedAt   time.Time              `json:"created_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ToPOI converts the embedded form to the canonical subcollection form,
// preserving identifiers and timestamps across the rename.
func (e EmbeddedPOI) ToPOI() POI {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return POI{
		POIID:               e.ID,
		Name:                e.Name,
		Description:         e.Description,
		Location:            e.Location,
		Tags:                tags,
		TimestampDiscovered: e.CreatedAt,
		Metadata:            e.Metadata,
	}
}

// POISummary is the lightweight projection used by list summaries and the
// context endpoint sample.
type POISummary struct {
	POIID string   `json:"poi_id"`
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
}

func (p *POI) Summary() POISummary {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return POISummary{POIID: p.POIID, Name: p.Name, Tags: tags}
}
