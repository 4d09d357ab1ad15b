package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"popup-server/internal/observability"
	"popup-server/internal/settings/processor"

	"github.com/gin-gonic/gin"
)

const actionUpdateSettings = "update_settings"

type Handler struct {
	processor processor.SettingsProcessor
	logger    *observability.Logger
}

func New(processor processor.SettingsProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// HandleGetSettings handles GET /api/settings for the embedded admin UI
func (h *Handler) HandleGetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	shopDomain, ok := shopFromContext(c)
	if !ok {
		h.logger.Error(ctx, "shop domain not found in context", nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	settings, err := h.processor.GetSettings(ctx, shopDomain)
	if err != nil {
		h.logger.Error(ctx, "failed to get settings", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettingsForm represents the form-encoded settings save from the admin UI
type UpdateSettingsForm struct {
	Action             string `form:"action"`
	IsEnabled          string `form:"isEnabled"`
	Title              string `form:"title"`
	Description        string `form:"description"`
	DiscountType       string `form:"discountType"`
	DiscountPercentage int    `form:"discountPercentage"`
	DiscountCode       string `form:"discountCode"`
	TargetCountries    string `form:"targetCountries"`
	PageRules          string `form:"pageRules"`
	ScheduleType       string `form:"scheduleType"`
	StartDate          string `form:"startDate"`
	EndDate            string `form:"endDate"`
	StartTime          string `form:"startTime"`
	EndTime            string `form:"endTime"`
	Position           string `form:"position"`
	TriggerType        string `form:"triggerType"`
	DelaySeconds       int    `form:"delaySeconds"`
	Frequency          string `form:"frequency"`
	BackgroundColor    string `form:"backgroundColor"`
	TextColor          string `form:"textColor"`
	ButtonColor        string `form:"buttonColor"`
}

// HandleUpdateSettings handles POST /api/popup-settings for the embedded admin UI
func (h *Handler) HandleUpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()

	shopDomain, ok := shopFromContext(c)
	if !ok {
		h.logger.Error(ctx, "shop domain not found in context", nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var form UpdateSettingsForm
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Error(ctx, "failed to bind settings form", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}
	if form.Action != actionUpdateSettings {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	req, err := formToRequest(form)
	if err != nil {
		h.logger.Error(ctx, "failed to parse settings form", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.processor.UpdateSettings(ctx, shopDomain, req)
	if err != nil {
		h.logger.Error(ctx, "failed to update settings", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// HandlePublicSettings handles GET /api/popup-settings for the storefront popup
func (h *Handler) HandlePublicSettings(c *gin.Context) {
	ctx := c.Request.Context()

	shopDomain := c.Query("shop")
	if shopDomain == "" {
		shopDomain = c.GetHeader("X-Shopify-Shop-Domain")
	}
	if shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop parameter required"})
		return
	}

	settings, found, err := h.processor.GetPublicSettings(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, processor.ErrMissingShopDomain) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shop parameter required"})
			return
		}
		h.logger.Error(ctx, "failed to get public settings", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	// No saved row yet: the storefront still gets the default configuration
	// so the popup can render.
	status := http.StatusOK
	if !found {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"success": found, "settings": settings})
}

func formToRequest(form UpdateSettingsForm) (processor.UpdateSettingsRequest, error) {
	req := processor.UpdateSettingsRequest{
		IsEnabled:          parseCheckbox(form.IsEnabled),
		Title:              form.Title,
		Description:        form.Description,
		DiscountType:       form.DiscountType,
		DiscountPercentage: form.DiscountPercentage,
		ScheduleType:       form.ScheduleType,
		Position:           form.Position,
		TriggerType:        form.TriggerType,
		DelaySeconds:       form.DelaySeconds,
		Frequency:          form.Frequency,
		BackgroundColor:    form.BackgroundColor,
		TextColor:          form.TextColor,
		ButtonColor:        form.ButtonColor,
	}

	if form.DiscountCode != "" {
		code := form.DiscountCode
		req.DiscountCode = &code
	}
	if form.TargetCountries != "" {
		for _, country := range strings.Split(form.TargetCountries, ",") {
			if country = strings.TrimSpace(country); country != "" {
				req.TargetCountries = append(req.TargetCountries, country)
			}
		}
	}
	if form.PageRules != "" {
		var rules map[string]interface{}
		if err := json.Unmarshal([]byte(form.PageRules), &rules); err != nil {
			return processor.UpdateSettingsRequest{}, errors.New("pageRules must be a JSON object")
		}
		req.PageRules = rules
	}

	var err error
	if req.StartDate, err = parseDate(form.StartDate); err != nil {
		return processor.UpdateSettingsRequest{}, errors.New("startDate must be YYYY-MM-DD")
	}
	if req.EndDate, err = parseDate(form.EndDate); err != nil {
		return processor.UpdateSettingsRequest{}, errors.New("endDate must be YYYY-MM-DD")
	}
	if form.StartTime != "" {
		t := form.StartTime
		req.StartTime = &t
	}
	if form.EndTime != "" {
		t := form.EndTime
		req.EndTime = &t
	}

	return req, nil
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(value) {
	case "true", "on", "1":
		return true
	}
	return false
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func shopFromContext(c *gin.Context) (string, bool) {
	shop, exists := c.Get("Shop-Domain")
	if !exists {
		return "", false
	}
	shopDomain, ok := shop.(string)
	return shopDomain, ok && shopDomain != ""
}
