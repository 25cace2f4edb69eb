package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/services"
)

type QuestHandler struct {
	quests services.QuestService
	resp   *Responder
}

func NewQuestHandler(quests services.QuestService, resp *Responder) *QuestHandler {
	return &QuestHandler{quests: quests, resp: resp}
}

// Set handles PUT /characters/:id/quest.
func (h *QuestHandler) Set(c *gin.Context) {
	var quest domain.Quest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&quest); err != nil {
		h.resp.Error(c, apierr.Invalid(apierr.Field("body", err.Error(), "json_invalid")))
		return
	}
	stored, err := h.quests.Set(c.Request.Context(), c.Param("id"), userIDHeader(c), &quest)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": stored})
}

// Get handles GET /characters/:id/quest.
func (h *QuestHandler) Get(c *gin.Context) {
	quest, err := h.quests.Get(c.Request.Context(), c.Param("id"), userIDHeader(c))
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": quest, "has_active_quest": quest != nil})
}

// Delete handles DELETE /characters/:id/quest.
func (h *QuestHandler) Delete(c *gin.Context) {
	archived, err := h.quests.Delete(c.Request.Context(), c.Param("id"), userIDHeader(c))
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": archived, "archived": true, "has_active_quest": false})
}
