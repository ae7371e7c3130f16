package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/services"
)

type RewardHandler struct {
	services *services.Container
}

func NewRewardHandler(s *services.Container) *RewardHandler {
	return &RewardHandler{services: s}
}

func (h *RewardHandler) List(c *gin.Context) {
	campaigns, err := h.services.Reward.Overview(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// Detail lists submissions filtered by ?status= and ?search= (name or phone).
func (h *RewardHandler) Detail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.services.Reward.Detail(c.Request.Context(), id, services.SubmissionFilter{
		Status: models.RewardStatus(c.Query("status")),
		Search: c.Query("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *RewardHandler) UpdateStatus(c *gin.Context) {
	campaignID, ok := parseID(c, "id")
	if !ok {
		return
	}
	scanID, ok := parseID(c, "scan_id")
	if !ok {
		return
	}

	var req services.RewardUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status update"})
		return
	}
	scan, err := h.services.Reward.UpdateStatus(c.Request.Context(), actor(c), campaignID, scanID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (h *RewardHandler) BulkUpdate(c *gin.Context) {
	campaignID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.BulkRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status update"})
		return
	}
	result, err := h.services.Reward.BulkUpdate(c.Request.Context(), actor(c), campaignID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RewardHandler) Export(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	filename, err := h.services.Export.Rewards(c.Request.Context(), actor(c), &buf, id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, filename, &buf)
}

func sendCSV(c *gin.Context, filename string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type ExportHandler struct {
	services *services.Container
}

func NewExportHandler(s *services.Container) *ExportHandler {
	return &ExportHandler{services: s}
}

// Scans exports one campaign's scans, or every campaign's without a uid.
func (h *ExportHandler) Scans(c *gin.Context) {
	var buf bytes.Buffer
	filename, err := h.services.Export.Scans(c.Request.Context(), actor(c), &buf, c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, filename, &buf)
}

// SupplyChain exports one of manufacturers, orders, suppliers or supplies.
func (h *ExportHandler) SupplyChain(c *gin.Context) {
	export := h.services.Export
	writers := map[string]func(*gin.Context, *bytes.Buffer) error{
		"manufacturers": func(c *gin.Context, b *bytes.Buffer) error { return export.Manufacturers(c.Request.Context(), b) },
		"orders":        func(c *gin.Context, b *bytes.Buffer) error { return export.Orders(c.Request.Context(), b) },
		"suppliers":     func(c *gin.Context, b *bytes.Buffer) error { return export.Suppliers(c.Request.Context(), b) },
		"supplies":      func(c *gin.Context, b *bytes.Buffer) error { return export.Supplies(c.Request.Context(), b) },
	}
	kind := c.Param("kind")
	write, ok := writers[kind]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown export"})
		return
	}

	var buf bytes.Buffer
	if err := write(c, &buf); err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, kind+".csv", &buf)
}
