package handler

import (
	"net/http"
	"strings"

	"popup-server/internal/auth/processor"
	"popup-server/internal/observability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authProcessor processor.AuthProcessor
	logger        *observability.Logger
}

func New(authProcessor processor.AuthProcessor, logger *observability.Logger) Handler {
	return Handler{
		authProcessor: authProcessor,
		logger:        logger,
	}
}

// HandleSessionTokenMiddleware authenticates embedded admin requests. App
// Bridge sends the session token as a Bearer header; document loads carry it
// as the id_token query parameter.
func (h *Handler) HandleSessionTokenMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	tokenString := ""
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		tokenString = strings.TrimPrefix(header, "Bearer ")
	} else if idToken := c.Query("id_token"); idToken != "" {
		tokenString = idToken
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token is missing"})
		c.Abort()
		return
	}

	claims, err := h.authProcessor.ValidateSessionToken(ctx, tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	shopDomain, err := claims.ShopDomain()
	if err != nil {
		h.logger.Error(ctx, "session token has no usable shop", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token has no usable shop"})
		c.Abort()
		return
	}

	c.Set("Shop-Domain", shopDomain)
	c.Next()
}
