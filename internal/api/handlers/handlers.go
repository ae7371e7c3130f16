package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/auth"
	"github.com/socialzwater/backend/internal/fingerprint"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/services"
)

const genericError = "An error occurred. Please try again."

func getOperatorID(c *gin.Context) uint {
	id, _ := auth.GetOperatorID(c)
	return id
}

func actor(c *gin.Context) services.Actor {
	return services.Actor{
		OperatorID: getOperatorID(c),
		IPAddress:  fingerprint.ClientIP(c.Request),
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(c.Query(key))
	return v
}

func queryUint(c *gin.Context, key string) uint {
	v, _ := strconv.ParseUint(c.Query(key), 10, 64)
	return uint(v)
}

// respondError maps service errors to status codes. Unexpected errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, services.ErrInvalidDateRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "field": "end_date"})
	case errors.Is(err, services.ErrInvalidRewardStatus), errors.Is(err, services.ErrNotSubmitted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status update"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrScanNotFound),
		errors.Is(err, services.ErrCampaignNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrDuplicateSubmission), errors.Is(err, services.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Session expired. Please scan the QR code again."})
	default:
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericError})
	}
}
