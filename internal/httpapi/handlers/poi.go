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

type POIHandler struct {
	pois     services.POIService
	defaultN int
	resp     *Responder
}

func NewPOIHandler(pois services.POIService, defaultN int, resp *Responder) *POIHandler {
	return &POIHandler{pois: pois, defaultN: defaultN, resp: resp}
}

type createPOIRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Timestamp   string   `json:"timestamp"`
}

// Create handles POST /characters/:id/pois.
func (h *POIHandler) Create(c *gin.Context) {
	uid, err := requireUserIDHeader(c)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	var req createPOIRequest
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
	poi, migration, err := h.pois.Create(c.Request.Context(), c.Param("id"), uid, services.CreatePOIInput{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Timestamp:   ts,
	})
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	body := gin.H{"poi": poi}
	if migration != nil {
		body["migration"] = migration
	}
	c.JSON(http.StatusCreated, body)
}

// List handles GET /characters/:id/pois.
func (h *POIHandler) List(c *gin.Context) {
	n, err := intQuery(c, "n", h.defaultN)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	pois, meta, err := h.pois.List(c.Request.Context(), c.Param("id"), userIDHeader(c), n)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pois": pois, "metadata": meta})
}

// Summary handles GET /characters/:id/pois/summary.
func (h *POIHandler) Summary(c *gin.Context) {
	n, err := intQuery(c, "n", h.defaultN)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	summaries, meta, err := h.pois.Summary(c.Request.Context(), c.Param("id"), userIDHeader(c), n)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pois": summaries, "metadata": meta})
}
