package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialzwater/backend/internal/services"
)

type ClientHandler struct {
	services *services.Container
}

func NewClientHandler(s *services.Container) *ClientHandler {
	return &ClientHandler{services: s}
}

func (h *ClientHandler) List(c *gin.Context) {
	clients, total, err := h.services.Client.List(c.Request.Context(), c.Query("search"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "total": total})
}

func (h *ClientHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	client, err := h.services.Client.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req services.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.services.Client.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.services.Client.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Client.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "client deleted"})
}

type CampaignHandler struct {
	services *services.Container
}

func NewCampaignHandler(s *services.Container) *CampaignHandler {
	return &CampaignHandler{services: s}
}

func (h *CampaignHandler) List(c *gin.Context) {
	campaigns, total, err := h.services.Campaign.ListViews(c.Request.Context(), services.CampaignFilter{
		Search:   c.Query("search"),
		ClientID: queryUint(c, "client_id"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "total": total})
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var req services.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign, err := h.services.Campaign.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.services.Campaign.GetView(c.Request.Context(), campaign.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *CampaignHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := h.services.Campaign.GetView(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CampaignHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.services.Campaign.Update(c.Request.Context(), id, &req); err != nil {
		respondError(c, err)
		return
	}
	view, err := h.services.Campaign.GetView(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CampaignHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Campaign.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "campaign deleted"})
}

type ReportHandler struct {
	services *services.Container
}

func NewReportHandler(s *services.Container) *ReportHandler {
	return &ReportHandler{services: s}
}

func (h *ReportHandler) List(c *gin.Context) {
	reports, total, err := h.services.Report.List(c.Request.Context(), c.Query("search"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "total": total})
}

func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.services.Report.Detail(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type DashboardHandler struct {
	services *services.Container
}

func NewDashboardHandler(s *services.Container) *DashboardHandler {
	return &DashboardHandler{services: s}
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.services.Dashboard.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) GetRecentCampaigns(c *gin.Context) {
	campaigns, err := h.services.Dashboard.GetRecentCampaigns(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}
