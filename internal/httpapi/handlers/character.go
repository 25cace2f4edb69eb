package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/services"
)

type CharacterHandler struct {
	characters services.CharacterService
	resp       *Responder
}

func NewCharacterHandler(characters services.CharacterService, resp *Responder) *CharacterHandler {
	return &CharacterHandler{characters: characters, resp: resp}
}

type createCharacterRequest struct {
	Name                string `json:"name"`
	Race                string `json:"race"`
	Class               string `json:"class"`
	AdventurePrompt     string `json:"adventure_prompt"`
	LocationID          string `json:"location_id"`
	LocationDisplayName string `json:"location_display_name"`
}

// Create handles POST /characters.
func (h *CharacterHandler) Create(c *gin.Context) {
	uid, err := requireUserIDHeader(c)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	var req createCharacterRequest
	// Unknown body fields are rejected, not silently dropped.
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.resp.Error(c, apierr.Invalid(apierr.Field("body", err.Error(), "json_invalid")))
		return
	}
	doc, err := h.characters.Create(c.Request.Context(), services.CreateCharacterInput{
		Name:                req.Name,
		Race:                req.Race,
		Class:               req.Class,
		AdventurePrompt:     req.AdventurePrompt,
		Owner:               *uid,
		LocationID:          req.LocationID,
		LocationDisplayName: req.LocationDisplayName,
	})
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// List handles GET /characters.
func (h *CharacterHandler) List(c *gin.Context) {
	uid, err := requireUserIDHeader(c)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	summaries, err := h.characters.List(c.Request.Context(), *uid, limit, offset)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": summaries, "count": len(summaries)})
}

// Get handles GET /characters/:id.
func (h *CharacterHandler) Get(c *gin.Context) {
	doc, err := h.characters.Get(c.Request.Context(), c.Param("id"), userIDHeader(c))
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.Validation(name + " must be an integer")
	}
	return v, nil
}
