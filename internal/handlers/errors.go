package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// respondError maps a service error onto the matching HTTP response.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.Conflict(c, err.Error())
	default:
		_ = c.Error(err)
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		utils.InternalServerError(c, "Internal server error")
	}
}

// parseOptionalDate converts an optional YYYY-MM-DD string. Binding has
// already checked the format.
func parseOptionalDate(c *gin.Context, field string, raw *string) (*time.Time, bool) {
	if raw == nil {
		return nil, true
	}
	t, err := models.ParseDate(*raw)
	if err != nil {
		utils.BadRequest(c, field+" must be a date in YYYY-MM-DD format")
		return nil, false
	}
	return &t, true
}
