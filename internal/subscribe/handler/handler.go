package handler

import (
	"errors"
	"net/http"

	"popup-server/internal/observability"
	"popup-server/internal/subscribe/processor"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	processor processor.SubscribeProcessor
	logger    *observability.Logger
}

func New(processor processor.SubscribeProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// SubscribeRequest represents the HTTP request for a popup form submission
type SubscribeRequest struct {
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Shop    string  `json:"shop,omitempty"`
	BlockID *string `json:"block_id,omitempty"`
}

// HandleSubscribe handles POST /api/subscribe
func (h *Handler) HandleSubscribe(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error(ctx, "failed to bind subscribe request", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	shopDomain := resolveShopDomain(c, req.Shop)
	if shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing shop domain"})
		return
	}

	response, err := h.processor.Subscribe(ctx, processor.SubscribeRequest{
		ShopDomain: shopDomain,
		Email:      req.Email,
		Phone:      req.Phone,
		BlockID:    req.BlockID,
	})
	if err != nil {
		if errors.Is(err, processor.ErrInvalidEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "valid email address required"})
			return
		}
		if errors.Is(err, processor.ErrMissingShopDomain) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing shop domain"})
			return
		}
		h.logger.Error(ctx, "failed to process subscription", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to process subscription"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// HandleGetSubscribers handles GET /api/subscribers for the embedded admin UI
func (h *Handler) HandleGetSubscribers(c *gin.Context) {
	ctx := c.Request.Context()

	shopDomain, ok := shopFromContext(c)
	if !ok {
		h.logger.Error(ctx, "shop domain not found in context", nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.processor.GetSubscriberStats(ctx, shopDomain)
	if err != nil {
		h.logger.Error(ctx, "failed to load subscriber stats", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscribers"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// HandleRemoveSubscriber handles DELETE /api/subscribers/:id
func (h *Handler) HandleRemoveSubscriber(c *gin.Context) {
	ctx := c.Request.Context()

	shopDomain, ok := shopFromContext(c)
	if !ok {
		h.logger.Error(ctx, "shop domain not found in context", nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := c.Param("id")
	if err := h.processor.RemoveSubscriber(ctx, shopDomain, id); err != nil {
		if errors.Is(err, processor.ErrSubscriberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscriber not found"})
			return
		}
		h.logger.Error(ctx, "failed to remove subscriber", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove subscriber"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func shopFromContext(c *gin.Context) (string, bool) {
	shop, exists := c.Get("Shop-Domain")
	if !exists {
		return "", false
	}
	shopDomain, ok := shop.(string)
	return shopDomain, ok && shopDomain != ""
}

// resolveShopDomain picks the shop domain from the request body, the shop
// query parameter, or the storefront proxy header, in that order.
func resolveShopDomain(c *gin.Context, bodyShop string) string {
	if bodyShop != "" {
		return bodyShop
	}
	if shop := c.Query("shop"); shop != "" {
		return shop
	}
	return c.GetHeader("X-Shopify-Shop-Domain")
}
