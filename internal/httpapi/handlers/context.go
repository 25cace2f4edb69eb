package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/services"
)

type ContextHandler struct {
	contexts services.ContextService
	defaultN int
	resp     *Responder
}

func NewContextHandler(contexts services.ContextService, defaultN int, resp *Responder) *ContextHandler {
	return &ContextHandler{contexts: contexts, defaultN: defaultN, resp: resp}
}

// Get handles GET /characters/:id/context.
func (h *ContextHandler) Get(c *gin.Context) {
	recentN, err := intQuery(c, "recent_n", h.defaultN)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	opts := services.ContextOptions{
		RecentN:          recentN,
		IncludeNarrative: true,
		IncludeCombat:    true,
		IncludeQuest:     true,
		IncludePOIs:      false,
	}
	if opts.IncludeNarrative, err = boolQuery(c, "include_narrative", opts.IncludeNarrative); err != nil {
		h.resp.Error(c, err)
		return
	}
	if opts.IncludeCombat, err = boolQuery(c, "include_combat", opts.IncludeCombat); err != nil {
		h.resp.Error(c, err)
		return
	}
	if opts.IncludeQuest, err = boolQuery(c, "include_quest", opts.IncludeQuest); err != nil {
		h.resp.Error(c, err)
		return
	}
	if opts.IncludePOIs, err = boolQuery(c, "include_pois", opts.IncludePOIs); err != nil {
		h.resp.Error(c, err)
		return
	}
	resp, err := h.contexts.Get(c.Request.Context(), c.Param("id"), userIDHeader(c), opts)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func boolQuery(c *gin.Context, name string, fallback bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apierr.Validation(name + " must be a boolean")
	}
	return v, nil
}
