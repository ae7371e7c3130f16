package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/fingerprint"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/services"
)

// VisitorCookie holds the opaque token that binds a browser to its scans.
const VisitorCookie = "sz_visitor"

// LandingHandler serves the public QR landing page and its form.
type LandingHandler struct {
	services *services.Container
}

func NewLandingHandler(s *services.Container) *LandingHandler {
	return &LandingHandler{services: s}
}

type submitForm struct {
	Name  string `form:"name" json:"name"`
	Phone string `form:"phone" json:"phone"`
}

func (h *LandingHandler) visitorToken(c *gin.Context) string {
	token, _ := c.Cookie(VisitorCookie)
	return token
}

func (h *LandingHandler) setVisitorToken(c *gin.Context, token string) {
	cfg := h.services.Config
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(VisitorCookie, token, int(cfg.BindingTTL.Seconds()), "/", "", cfg.CookieSecure, true)
}

func invalidQR(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Invalid or expired QR code", "view": "invalid_qr"})
}

// View resolves the scan for a landing page hit. ?new=true forces a new scan.
func (h *LandingHandler) View(c *gin.Context) {
	device := fingerprint.FromRequest(c.Request)
	res, err := h.services.Scan.Resolve(c.Request.Context(), &services.ResolveRequest{
		CampaignUID:  c.Param("uid"),
		VisitorToken: h.visitorToken(c),
		ForceNew:     strings.EqualFold(c.Query("new"), "true"),
		Device:       device,
	})
	if errors.Is(err, services.ErrCampaignInactive) {
		invalidQR(c)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.setVisitorToken(c, res.VisitorToken)
	c.JSON(http.StatusOK, gin.H{
		"campaign":          res.Campaign,
		"scan_id":           res.ScanID(),
		"show_form":         res.ShowForm,
		"resume_position":   res.ResumePosition,
		"already_submitted": res.AlreadySubmitted,
		"device_type":       device.DeviceType,
		"browser":           device.Browser,
		"os":                device.OS,
	})
}

// Submit records the landing form against the visitor's current scan.
func (h *LandingHandler) Submit(c *gin.Context) {
	var form submitForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scan, err := h.services.Submission.Submit(c.Request.Context(), &services.SubmitRequest{
		CampaignUID:  c.Param("uid"),
		VisitorToken: h.visitorToken(c),
		Name:         form.Name,
		Phone:        form.Phone,
	})
	switch {
	case errors.Is(err, services.ErrCampaignInactive):
		invalidQR(c)
		return
	case errors.Is(err, services.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": "This phone number has already been registered for this campaign"})
		return
	case err != nil:
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Registration successful! You will receive your reward within 24 hours.",
		"scan_id": scan.ID,
	})
}

// TrackingHandler receives progress callbacks from the landing page player.
type TrackingHandler struct {
	services *services.Container
}

func NewTrackingHandler(s *services.Container) *TrackingHandler {
	return &TrackingHandler{services: s}
}

func (h *TrackingHandler) Track(c *gin.Context) {
	var report services.ProgressReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid progress report"})
		return
	}

	progress, err := h.services.Tracking.Track(c.Request.Context(), &report)
	switch {
	case errors.Is(err, services.ErrScanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Scan not found"})
		return
	case err != nil:
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Uint("scan_id", report.ScanID).Msg("Progress update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericError})
		return
	}

	if progress.Skipped {
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "tracked": progress})
}
