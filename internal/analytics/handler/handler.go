package handler

import (
	"errors"
	"net/http"
	"strconv"

	"popup-server/internal/analytics/processor"
	"popup-server/internal/observability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	processor processor.AnalyticsProcessor
	logger    *observability.Logger
}

func New(processor processor.AnalyticsProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// RecordEventRequest represents the HTTP request for a tracking beacon
type RecordEventRequest struct {
	EventType  string  `json:"eventType"`
	ShopDomain string  `json:"shopDomain,omitempty"`
	BlockID    *string `json:"blockId,omitempty"`
	SessionID  *string `json:"sessionId,omitempty"`
	Referrer   *string `json:"referrer,omitempty"`
	PageURL    *string `json:"pageUrl,omitempty"`
}

// HandleRecordEvent handles POST /api/analytics
func (h *Handler) HandleRecordEvent(c *gin.Context) {
	ctx := c.Request.Context()

	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error(ctx, "failed to bind analytics request", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	shopDomain := req.ShopDomain
	if shopDomain == "" {
		shopDomain = c.Query("shop")
	}
	if shopDomain == "" {
		shopDomain = c.GetHeader("X-Shopify-Shop-Domain")
	}
	if shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing shop domain"})
		return
	}

	ipAddress := observability.ClientIP(c)
	userAgent := c.Request.UserAgent()

	event, err := h.processor.RecordEvent(ctx, processor.RecordEventRequest{
		ShopDomain: shopDomain,
		EventType:  req.EventType,
		BlockID:    req.BlockID,
		SessionID:  req.SessionID,
		UserAgent:  &userAgent,
		IPAddress:  &ipAddress,
		Referrer:   req.Referrer,
		PageURL:    req.PageURL,
	})
	if err != nil {
		if errors.Is(err, processor.ErrMissingShopDomain) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing shop domain"})
			return
		}
		h.logger.Error(ctx, "failed to record event", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to record event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "eventId": event.ID})
}

// HandleGetAnalyticsData handles GET /api/analytics-data for the admin dashboard
func (h *Handler) HandleGetAnalyticsData(c *gin.Context) {
	ctx := c.Request.Context()

	shop, exists := c.Get("Shop-Domain")
	shopDomain, _ := shop.(string)
	if !exists || shopDomain == "" {
		h.logger.Error(ctx, "shop domain not found in context", nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a number"})
			return
		}
		days = parsed
	}

	data, err := h.processor.GetAnalyticsData(ctx, shopDomain, days)
	if err != nil {
		h.logger.Error(ctx, "failed to load analytics data", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analytics data"})
		return
	}

	c.JSON(http.StatusOK, data)
}
