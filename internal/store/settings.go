package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PopupSettingsParams carries the full settings field set. Saves are whole-row
// upserts keyed by shop domain; callers supply every field on every save.
type PopupSettingsParams struct {
	ShopDomain         string
	IsEnabled          bool
	Title              string
	Description        string
	DiscountType       string
	DiscountPercentage int
	DiscountCode       *string
	TargetCountries    []string
	PageRules          JSONB
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

const settingsColumns = `id, shop_domain, is_enabled, title, description, discount_type,
discount_percentage, discount_code, target_countries, page_rules, schedule_type,
start_date, end_date, start_time, end_time, position, trigger_type, delay_seconds,
frequency, background_color, text_color, button_color, created_at, updated_at`

const sqlGetPopupSettings = `
SELECT ` + settingsColumns + `
FROM popup_settings
WHERE shop_domain = $1
`

// GetPopupSettings retrieves the settings row for a shop
func (s *Store) GetPopupSettings(ctx context.Context, shopDomain string) (PopupSettings, error) {
	var settings PopupSettings
	err := s.db.GetContext(ctx, &settings, sqlGetPopupSettings, shopDomain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PopupSettings{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get popup settings", err)
		return PopupSettings{}, fmt.Errorf("failed to get popup settings: %w", err)
	}
	return settings, nil
}

const sqlUpsertPopupSettings = `
INSERT INTO popup_settings (
    shop_domain, is_enabled, title, description, discount_type, discount_percentage,
    discount_code, target_countries, page_rules, schedule_type, start_date, end_date,
    start_time, end_time, position, trigger_type, delay_seconds, frequency,
    background_color, text_color, button_color
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (shop_domain) DO UPDATE SET
    is_enabled = EXCLUDED.is_enabled,
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    discount_type = EXCLUDED.discount_type,
    discount_percentage = EXCLUDED.discount_percentage,
    discount_code = EXCLUDED.discount_code,
    target_countries = EXCLUDED.target_countries,
    page_rules = EXCLUDED.page_rules,
    schedule_type = EXCLUDED.schedule_type,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    position = EXCLUDED.position,
    trigger_type = EXCLUDED.trigger_type,
    delay_seconds = EXCLUDED.delay_seconds,
    frequency = EXCLUDED.frequency,
    background_color = EXCLUDED.background_color,
    text_color = EXCLUDED.text_color,
    button_color = EXCLUDED.button_color,
    updated_at = CURRENT_TIMESTAMP
RETURNING ` + settingsColumns + `
`

// UpsertPopupSettings creates or fully replaces the settings row for a shop
func (s *Store) UpsertPopupSettings(ctx context.Context, params PopupSettingsParams) (PopupSettings, error) {
	var settings PopupSettings
	err := s.db.GetContext(ctx, &settings, sqlUpsertPopupSettings,
		params.ShopDomain,
		params.IsEnabled,
		params.Title,
		params.Description,
		params.DiscountType,
		params.DiscountPercentage,
		params.DiscountCode,
		StringArray(params.TargetCountries),
		params.PageRules,
		params.ScheduleType,
		params.StartDate,
		params.EndDate,
		params.StartTime,
		params.EndTime,
		params.Position,
		params.TriggerType,
		params.DelaySeconds,
		params.Frequency,
		params.BackgroundColor,
		params.TextColor,
		params.ButtonColor)
	if err != nil {
		s.logger.Error(ctx, "failed to upsert popup settings", err)
		return PopupSettings{}, fmt.Errorf("failed to upsert popup settings: %w", err)
	}
	return settings, nil
}
