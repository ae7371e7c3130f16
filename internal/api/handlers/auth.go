package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/audit"
	"github.com/socialzwater/backend/internal/auth"
	"github.com/socialzwater/backend/internal/fingerprint"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/services"
)

type AuthHandler struct {
	services *services.Container
}

func NewAuthHandler(s *services.Container) *AuthHandler {
	return &AuthHandler{services: s}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in all fields."})
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), &req)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	// Failed attempts before a good password no longer count against the address
	if err := h.services.RateLimiter.ClearIP(c.Request.Context(), auth.ScopeAuth, c.ClientIP()); err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Warn().Err(err).Msg("Failed to clear login rate limit")
	}

	h.services.Audit.Log(c.Request.Context(), &audit.LogEntry{
		OperatorID: resp.Operator.ID,
		IPAddress:  fingerprint.ClientIP(c.Request),
		Action:     models.AuditLogin,
		Result:     models.AuditSuccess,
	})
	c.JSON(http.StatusOK, resp)
}

// Me returns the claims of the calling operator.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := auth.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operator_id": claims.OperatorID,
		"email":       claims.Email,
		"expires_at":  claims.ExpiresAt,
	})
}

type AuditHandler struct {
	services *services.Container
}

func NewAuditHandler(s *services.Container) *AuditHandler {
	return &AuditHandler{services: s}
}

// List pages through the audit trail, optionally for one campaign or action.
func (h *AuditHandler) List(c *gin.Context) {
	params := &audit.QueryParams{
		Action: models.AuditAction(c.Query("action")),
		Result: models.AuditResult(c.Query("result")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	if id := queryUint(c, "campaign_id"); id != 0 {
		params.CampaignID = &id
	}
	if id := queryUint(c, "operator_id"); id != 0 {
		params.OperatorID = &id
	}

	logs, total, err := h.services.Audit.Query(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total})
}
