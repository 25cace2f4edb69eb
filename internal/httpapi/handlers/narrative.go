package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/services"
)

type NarrativeHandler struct {
	narrative services.NarrativeService
	defaultN  int
	resp      *Responder
}

func NewNarrativeHandler(narrative services.NarrativeService, defaultN int, resp *Responder) *NarrativeHandler {
	return &NarrativeHandler{narrative: narrative, defaultN: defaultN, resp: resp}
}

// The request body uses the internal field names; stored and returned turns
// use the player_action/gm_response wire names.
type appendTurnRequest struct {
	UserAction string `json:"user_action"`
	AIResponse string `json:"ai_response"`
	Timestamp  string `json:"timestamp"`
}

// Append handles POST /characters/:id/narrative.
func (h *NarrativeHandler) Append(c *gin.Context) {
	var req appendTurnRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.resp.Error(c, apierr.Invalid(apierr.Field("body", err.Error(), "json_invalid")))
		return
	}
	var ts *time.Time
	if req.Timestamp != "" {
		parsed, err := domain.ParseTimestamp(req.Timestamp)
		if err != nil {
			h.resp.Error(c, apierr.Invalid(apierr.Field("timestamp", "timestamp is not a valid ISO-8601 value", "datetime_parsing")))
			return
		}
		ts = &parsed
	}
	turn, total, err := h.narrative.Append(c.Request.Context(), c.Param("id"), userIDHeader(c), services.AppendTurnInput{
		PlayerAction: req.UserAction,
		GMResponse:   req.AIResponse,
		Timestamp:    ts,
	})
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"turn": turn, "total_turns": total})
}

// Recent handles GET /characters/:id/narrative.
func (h *NarrativeHandler) Recent(c *gin.Context) {
	n, err := intQuery(c, "n", h.defaultN)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	var since *time.Time
	if raw, ok := c.GetQuery("since"); ok && raw != "" {
		parsed, err := domain.ParseTimestamp(raw)
		if err != nil {
			h.resp.Error(c, apierr.Validation("since is not a valid ISO-8601 timestamp"))
			return
		}
		since = &parsed
	}
	turns, meta, err := h.narrative.Recent(c.Request.Context(), c.Param("id"), userIDHeader(c), n, since)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"turns":    turns,
		"metadata": meta,
	})
}
