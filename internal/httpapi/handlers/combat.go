package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/services"
)

type CombatHandler struct {
	combat services.CombatService
	resp   *Responder
}

func NewCombatHandler(combat services.CombatService, resp *Responder) *CombatHandler {
	return &CombatHandler{combat: combat, resp: resp}
}

type updateCombatRequest struct {
	// CombatState is a pointer so an explicit null clears combat.
	CombatState *domain.CombatState `json:"combat_state"`
}

// Update handles PUT /characters/:id/combat.
func (h *CombatHandler) Update(c *gin.Context) {
	uid, err := requireUserIDHeader(c)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	var req updateCombatRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.resp.Error(c, apierr.Invalid(apierr.Field("body", err.Error(), "json_invalid")))
		return
	}
	env, err := h.combat.Update(c.Request.Context(), c.Param("id"), uid, req.CombatState)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// Get handles GET /characters/:id/combat.
func (h *CombatHandler) Get(c *gin.Context) {
	env, err := h.combat.Get(c.Request.Context(), c.Param("id"), userIDHeader(c))
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}
