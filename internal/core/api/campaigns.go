package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solatis/segmentkeeper/internal/types"
)

type recordCampaignRequest struct {
	SegmentID    string `json:"segmentId"`
	CampaignName string `json:"campaignName"`
	Message      string `json:"message"`
}

// RecordCampaign handles POST /api/campaigns.
func (h *Handler) RecordCampaign(c *gin.Context) {
	var req recordCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	log, err := h.segments.RecordCampaign(c.Request.Context(), types.SegmentID(req.SegmentID), req.CampaignName, req.Message)
	if err != nil {
		h.respondError(c, err, "Failed to create campaign")
		return
	}

	c.JSON(http.StatusCreated, log)
}

// CampaignHistory handles GET /api/campaigns/history?page&limit.
func (h *Handler) CampaignHistory(c *gin.Context) {
	page, size, err := pageParams(c, h.segments.DefaultPageSize())
	if err != nil {
		h.respondError(c, err, "Failed to fetch campaign history")
		return
	}

	result, err := h.segments.CampaignHistory(c.Request.Context(), page, size)
	if err != nil {
		h.respondError(c, err, "Failed to fetch campaign history")
		return
	}

	c.JSON(http.StatusOK, result)
}
