// Package handlers maps HTTP requests onto the service layer and renders the
// uniform response envelopes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/journeylog/journeylog-backend/internal/httpapi/middleware"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
)

// Responder centralizes error rendering so every handler produces the same
// envelopes: {errors: [{loc, msg, type}]} for field-level failures, and
// {error, message, request_id} for everything else.
type Responder struct {
	log *logger.Logger
	// dev controls whether infrastructure detail reaches the client.
	dev bool
}

func NewResponder(baseLog *logger.Logger, environment string) *Responder {
	return &Responder{
		log: baseLog.With("component", "http"),
		dev: environment == "development",
	}
}

func (r *Responder) Error(c *gin.Context, err error) {
	ae := apierr.From(err)
	requestID := c.GetString(middleware.RequestIDKey)

	if ae.Status >= http.StatusInternalServerError {
		r.log.Error("request_failed",
			"request_id", requestID,
			"path", c.FullPath(),
			"status", ae.Status,
			"error", ae.Error(),
		)
	}

	// Field-level validation detail is always actionable and never redacted.
	if len(ae.Fields) > 0 {
		c.JSON(ae.Status, gin.H{"errors": ae.Fields})
		return
	}

	msg := ae.Msg
	if ae.Code == apierr.CodeInfrastructure && !r.dev {
		msg = "internal error; contact support with the request id"
	} else if msg == "" {
		msg = ae.Error()
	}
	c.JSON(ae.Status, gin.H{
		"error":      ae.Code,
		"message":    msg,
		"request_id": requestID,
	})
}

// userIDHeader distinguishes an absent X-User-Id (nil, anonymous where
// allowed) from a present-but-blank one (pointer to the blank value, which
// the service rejects).
func userIDHeader(c *gin.Context) *string {
	values, ok := c.Request.Header[http.CanonicalHeaderKey("X-User-Id")]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// requireUserIDHeader is for routes where the header itself is mandatory.
func requireUserIDHeader(c *gin.Context) (*string, error) {
	uid := userIDHeader(c)
	if uid == nil {
		return nil, apierr.Validation("X-User-Id header is required and cannot be empty")
	}
	return uid, nil
}
