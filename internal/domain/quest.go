package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

// QuestRewards carries item, currency, and experience payouts. Currency is
// keyed by currency name; values are non-negative integers.
type QuestRewards struct {
	Items      []string       `json:"items"`
	Currency   map[string]int `json:"currency"`
	Experience *int           `json:"experience,omitempty"`
}

type Quest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Requirements    []string        `json:"requirements"`
	Rewards         QuestRewards    `json:"rewards"`
	CompletionState CompletionState `json:"completion_state"`
	UpdatedAt       time.Time       `json:"updated_at"`
	// ClearedAt is set only on archived quests, at the moment the quest was
	// removed from the active slot.
	ClearedAt *time.Time `json:"cleared_at,omitempty"`
}

func (q *Quest) Validate() error {
	var fields []apierr.FieldError
	if strings.TrimSpace(q.Name) == "" {
		fields = append(fields, apierr.Field("quest.name", "quest name cannot be empty", "value_error"))
	}
	if strings.TrimSpace(q.Description) == "" {
		fields = append(fields, apierr.Field("quest.description", "quest description cannot be empty", "value_error"))
	}
	if _, err := ParseCompletionState(string(q.CompletionState)); err != nil {
		fields = append(fields, apierr.Field("quest.completion_state",
			fmt.Sprintf("invalid completion_state %q", q.CompletionState), "enum"))
	}
	for name, amount := range q.Rewards.Currency {
		if strings.TrimSpace(name) == "" {
			fields = append(fields, apierr.Field("quest.rewards.currency", "currency keys cannot be empty", "value_error"))
		}
		if amount < 0 {
			fields = append(fields, apierr.Field("quest.rewards.currency",
				fmt.Sprintf("currency %q cannot be negative", name), "greater_than_equal"))
		}
	}
	if q.Rewards.Experience != nil && *q.Rewards.Experience < 0 {
		fields = append(fields, apierr.Field("quest.rewards.experience", "experience cannot be negative", "greater_than_equal"))
	}
	if len(fields) > 0 {
		return apierr.Invalid(fields...)
	}
	return nil
}

// ArchiveQuest appends the quest to the archive, evicting the oldest entries
// past the cap.
func ArchiveQuest(archive []Quest, q Quest) []Quest {
	out := append(append([]Quest{}, archive...), q)
	if len(out) > MaxArchivedQuests {
		out = out[len(out)-MaxArchivedQuests:]
	}
	return out
}
