package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

const MaxCombatEnemies = 5

type Enemy struct {
	EnemyID  string                 `json:"enemy_id"`
	Name     string                 `json:"name"`
	Status   Status                 `json:"status"`
	Weapon   string                 `json:"weapon,omitempty"`
	Traits   []string               `json:"traits"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type CombatState struct {
	CombatID  string    `json:"combat_id"`
	StartedAt time.Time `json:"started_at"`
	Turn      int       `json:"turn"`
	Enemies   []Enemy   `json:"enemies"`
}

// IsActive is the single source of truth for "currently in combat": the
// enemy list is non-empty and at least one enemy is not Dead. It is derived,
// never stored.
func (c *CombatState) IsActive() bool {
	if c == nil {
		return false
	}
	for _, e := range c.Enemies {
		if e.Status != StatusDead {
			return true
		}
	}
	return false
}

func (c *CombatState) Validate() error {
	var fields []apierr.FieldError
	if strings.TrimSpace(c.CombatID) == "" {
		fields = append(fields, apierr.Field("combat_state.combat_id", "combat_id cannot be empty", "value_error"))
	}
	if c.StartedAt.IsZero() {
		fields = append(fields, apierr.Field("combat_state.started_at", "started_at is required", "value_error"))
	}
	if c.Turn < 1 {
		fields = append(fields, apierr.Field("combat_state.turn", "turn must be at least 1", "greater_than_equal"))
	}
	if len(c.Enemies) > MaxCombatEnemies {
		fields = append(fields, apierr.Field("combat_state.enemies",
			fmt.Sprintf("too many enemies: %d exceeds the maximum of %d", len(c.Enemies), MaxCombatEnemies), "too_long"))
	}
	for i, e := range c.Enemies {
		loc := fmt.Sprintf("combat_state.enemies.%d", i)
		if strings.TrimSpace(e.EnemyID) == "" {
			fields = append(fields, apierr.Field(loc+".enemy_id", "enemy_id cannot be empty", "value_error"))
		}
		if strings.TrimSpace(e.Name) == "" {
			fields = append(fields, apierr.Field(loc+".name", "name cannot be empty", "value_error"))
		}
		if !e.Status.Valid() {
			fields = append(fields, apierr.Field(loc+".status",
				fmt.Sprintf("invalid status %q: must be one of Healthy, Wounded, Dead", e.Status), "enum"))
		}
	}
	if len(fields) > 0 {
		return apierr.Invalid(fields...)
	}
	return nil
}
