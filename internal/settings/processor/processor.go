package processor

import (
	"context"
	"errors"
	"time"

	"popup-server/internal/observability"
	"popup-server/internal/store"
)

// SettingsStore defines the database operations required by SettingsProcessor
type SettingsStore interface {
	GetPopupSettings(ctx context.Context, shopDomain string) (store.PopupSettings, error)
	UpsertPopupSettings(ctx context.Context, params store.PopupSettingsParams) (store.PopupSettings, error)
}

var ErrMissingShopDomain = errors.New("missing shop domain")

type SettingsProcessor struct {
	store  SettingsStore
	logger *observability.Logger
}

func New(store SettingsStore, logger *observability.Logger) SettingsProcessor {
	return SettingsProcessor{
		store:  store,
		logger: logger,
	}
}

// DefaultSettings returns the popup configuration a shop gets before the
// merchant has saved anything.
func DefaultSettings(shopDomain string) store.PopupSettings {
	return store.PopupSettings{
		ShopDomain:         shopDomain,
		IsEnabled:          true,
		Title:              "Get 10% Off Your First Order!",
		Description:        "Enter your email to receive an exclusive discount code",
		DiscountType:       "percentage",
		DiscountPercentage: 10,
		TargetCountries:    store.StringArray{},
		PageRules:          store.JSONB{},
		ScheduleType:       "always",
		Position:           "center",
		TriggerType:        "page_load",
		DelaySeconds:       5,
		Frequency:          "once_per_session",
		BackgroundColor:    "#ffffff",
		TextColor:          "#333333",
		ButtonColor:        "#007cba",
	}
}

func defaultParams(shopDomain string) store.PopupSettingsParams {
	defaults := DefaultSettings(shopDomain)
	return store.PopupSettingsParams{
		ShopDomain:         defaults.ShopDomain,
		IsEnabled:          defaults.IsEnabled,
		Title:              defaults.Title,
		Description:        defaults.Description,
		DiscountType:       defaults.DiscountType,
		DiscountPercentage: defaults.DiscountPercentage,
		TargetCountries:    defaults.TargetCountries,
		PageRules:          defaults.PageRules,
		ScheduleType:       defaults.ScheduleType,
		Position:           defaults.Position,
		TriggerType:        defaults.TriggerType,
		DelaySeconds:       defaults.DelaySeconds,
		Frequency:          defaults.Frequency,
		BackgroundColor:    defaults.BackgroundColor,
		TextColor:          defaults.TextColor,
		ButtonColor:        defaults.ButtonColor,
	}
}

// GetSettings returns the shop's saved settings, creating the default row on
// first access so the admin UI always edits a persisted record.
func (p *SettingsProcessor) GetSettings(ctx context.Context, shopDomain string) (store.PopupSettings, error) {
	if shopDomain == "" {
		return store.PopupSettings{}, ErrMissingShopDomain
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: shopDomain},
	)

	settings, err := p.store.GetPopupSettings(ctx, shopDomain)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		p.logger.Error(ctx, "failed to get popup settings", err)
		return store.PopupSettings{}, err
	}

	created, err := p.store.UpsertPopupSettings(ctx, defaultParams(shopDomain))
	if err != nil {
		p.logger.Error(ctx, "failed to create default popup settings", err)
		return store.PopupSettings{}, err
	}
	p.logger.Info(ctx, "created default popup settings")
	return created, nil
}

// GetPublicSettings returns the settings the storefront popup renders. The
// second return value reports whether a saved row exists; when it does not,
// the defaults are returned without being persisted.
func (p *SettingsProcessor) GetPublicSettings(ctx context.Context, shopDomain string) (store.PopupSettings, bool, error) {
	if shopDomain == "" {
		return store.PopupSettings{}, false, ErrMissingShopDomain
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: shopDomain},
	)

	settings, err := p.store.GetPopupSettings(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DefaultSettings(shopDomain), false, nil
		}
		p.logger.Error(ctx, "failed to get popup settings", err)
		return store.PopupSettings{}, false, err
	}
	return settings, true, nil
}

// UpdateSettingsRequest carries a full replacement of the shop's settings
type UpdateSettingsRequest struct {
	IsEnabled          bool
	Title              string
	Description        string
	DiscountType       string
	DiscountPercentage int
	DiscountCode       *string
	TargetCountries    []string
	PageRules          map[string]interface{}
	ScheduleType       string
	StartDate          *time.Time
	EndDate            *time.Time
	StartTime          *string
	EndTime            *string
	Position           string
	TriggerType        string
	DelaySeconds       int
	Frequency          string
	BackgroundColor    string
	TextColor          string
	ButtonColor        string
}

// UpdateSettings persists a full settings row for the shop, creating it when
// none exists yet.
func (p *SettingsProcessor) UpdateSettings(ctx context.Context, shopDomain string, req UpdateSettingsRequest) (store.PopupSettings, error) {
	if shopDomain == "" {
		return store.PopupSettings{}, ErrMissingShopDomain
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: shopDomain},
	)

	pageRules := store.JSONB{}
	if req.PageRules != nil {
		pageRules = store.JSONB(req.PageRules)
	}
	targetCountries := store.StringArray{}
	if req.TargetCountries != nil {
		targetCountries = store.StringArray(req.TargetCountries)
	}

	params := store.PopupSettingsParams{
		ShopDomain:         shopDomain,
		IsEnabled:          req.IsEnabled,
		Title:              req.Title,
		Description:        req.Description,
		DiscountType:       req.DiscountType,
		DiscountPercentage: req.DiscountPercentage,
		DiscountCode:       req.DiscountCode,
		TargetCountries:    targetCountries,
		PageRules:          pageRules,
		ScheduleType:       req.ScheduleType,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Position:           req.Position,
		TriggerType:        req.TriggerType,
		DelaySeconds:       req.DelaySeconds,
		Frequency:          req.Frequency,
		BackgroundColor:    req.BackgroundColor,
		TextColor:          req.TextColor,
		ButtonColor:        req.ButtonColor,
	}

	settings, err := p.store.UpsertPopupSettings(ctx, params)
	if err != nil {
		p.logger.Error(ctx, "failed to save popup settings", err)
		return store.PopupSettings{}, err
	}

	p.logger.Info(ctx, "popup settings saved")
	return settings, nil
}
