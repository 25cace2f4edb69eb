package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

const (
	MaxPlayerActionLen = 8000
	MaxGMResponseLen   = 32000
	// Combined cap keeps a single turn document well under Firestore's 1 MiB
	// document limit even with multi-byte text.
	MaxTurnCombinedLen = 40000

	DefaultNarrativeN = 10
	MaxNarrativeN     = 100
)

// NarrativeTurn is one exchange in the running story: what the player did and
// how the game master responded.
type NarrativeTurn struct {
	TurnID       string                 `json:"turn_id"`
	TurnNumber   *int                   `json:"turn_number,omitempty"`
	PlayerAction string                 `json:"player_action"`
	GMResponse   string                 `json:"gm_response"`
	Timestamp    time.Time              `json:"timestamp"`
	GameState    map[string]interface{} `json:"game_state,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (t *NarrativeTurn) Validate() error {
	var fields []apierr.FieldError
	if strings.TrimSpace(t.PlayerAction) == "" {
		fields = append(fields, apierr.Field("player_action", "player_action cannot be empty", "value_error"))
	}
	if strings.TrimSpace(t.GMResponse) == "" {
		fields = append(fields, apierr.Field("gm_response", "gm_response cannot be empty", "value_error"))
	}
	actionLen := utf8.RuneCountInString(t.PlayerAction)
	responseLen := utf8.RuneCountInString(t.GMResponse)
	if actionLen > MaxPlayerActionLen {
		fields = append(fields, apierr.Field("player_action",
			fmt.Sprintf("player_action is %d characters, maximum is %d", actionLen, MaxPlayerActionLen), "too_long"))
	}
	if responseLen > MaxGMResponseLen {
		fields = append(fields, apierr.Field("gm_response",
			fmt.Sprintf("gm_response is %d characters, maximum is %d", responseLen, MaxGMResponseLen), "too_long"))
	}
	if n := actionLen + responseLen; n > MaxTurnCombinedLen {
		fields = append(fields, apierr.Field("turn",
			fmt.Sprintf("combined turn text is %d characters, maximum is %d", n, MaxTurnCombinedLen), "too_long"))
	}
	if len(fields) > 0 {
		return apierr.Invalid(fields...)
	}
	return nil
}

// ValidateNarrativeN bounds the "most recent n turns" parameter for reads.
func ValidateNarrativeN(n, max int) error {
	if n < 1 || n > max {
		return apierr.Validation(fmt.Sprintf("n must be between 1 and %d, got %d", max, n))
	}
	return nil
}
