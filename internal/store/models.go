package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("incompatible type for JSONB")
	}

	if len(bytes) == 0 || string(bytes) == "null" {
		*j = make(JSONB)
		return nil
	}

	result := make(JSONB)
	err := json.Unmarshal(bytes, &result)
	if err != nil {
		return err
	}
	*j = result
	return nil
}

// StringArray is a custom type for PostgreSQL text[] arrays
type StringArray []string

// Value implements the driver.Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// Scan implements the sql.Scanner interface for StringArray
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var str string
	switch v := value.(type) {
	case []byte:
		str = string(v)
	case string:
		str = v
	default:
		return fmt.Errorf("unsupported type for StringArray: %T", value)
	}

	str = strings.Trim(str, "{}")
	if str == "" {
		*a = []string{}
		return nil
	}

	*a = strings.Split(str, ",")
	return nil
}

// ============================================================================
// Popup Domain Types
// ============================================================================

// EventType identifies a tracked storefront event
type EventType string

const (
	EventTypeVisit       EventType = "visit"
	EventTypePopupView   EventType = "popup_view"
	EventTypePopupSubmit EventType = "popup_submit"
)

// PopupSettings holds the popup configuration for a single shop. At most one
// row exists per shop domain.
type PopupSettings struct {
	ID                 uuid.UUID   `db:"id" json:"id"`
	ShopDomain         string      `db:"shop_domain" json:"shopDomain"`
	IsEnabled          bool        `db:"is_enabled" json:"isEnabled"`
	Title              string      `db:"title" json:"title"`
	Description        string      `db:"description" json:"description"`
	DiscountType       string      `db:"discount_type" json:"discountType"`
	DiscountPercentage int         `db:"discount_percentage" json:"discountPercentage"`
	DiscountCode       *string     `db:"discount_code" json:"discountCode,omitempty"`
	TargetCountries    StringArray `db:"target_countries" json:"targetCountries"`
	PageRules          JSONB       `db:"page_rules" json:"pageRules"`
	ScheduleType       string      `db:"schedule_type" json:"scheduleType"`
	StartDate          *time.Time  `db:"start_date" json:"startDate,omitempty"`
	EndDate            *time.Time  `db:"end_date" json:"endDate,omitempty"`
	StartTime          *string     `db:"start_time" json:"startTime,omitempty"`
	EndTime            *string     `db:"end_time" json:"endTime,omitempty"`
	Position           string      `db:"position" json:"position"`
	TriggerType        string      `db:"trigger_type" json:"triggerType"`
	DelaySeconds       int         `db:"delay_seconds" json:"delaySeconds"`
	Frequency          string      `db:"frequency" json:"frequency"`
	BackgroundColor    string      `db:"background_color" json:"backgroundColor"`
	TextColor          string      `db:"text_color" json:"textColor"`
	ButtonColor        string      `db:"button_color" json:"buttonColor"`
	CreatedAt          time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updatedAt"`
}

// PopupSubscriber is one row per successful popup form submission.
type PopupSubscriber struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ShopDomain   string    `db:"shop_domain" json:"shopDomain"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	DiscountCode string    `db:"discount_code" json:"discountCode"`
	BlockID      *string   `db:"block_id" json:"blockId,omitempty"`
	SubscribedAt time.Time `db:"subscribed_at" json:"subscribedAt"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	UsedDiscount bool      `db:"used_discount" json:"usedDiscount"`
}

// PopupAnalyticsEvent is an append-only record of a tracked client event.
type PopupAnalyticsEvent struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ShopDomain string    `db:"shop_domain" json:"shopDomain"`
	EventType  string    `db:"event_type" json:"eventType"`
	BlockID    *string   `db:"block_id" json:"blockId,omitempty"`
	SessionID  *string   `db:"session_id" json:"sessionId,omitempty"`
	UserAgent  *string   `db:"user_agent" json:"userAgent,omitempty"`
	IPAddress  *string   `db:"ip_address" json:"ipAddress,omitempty"`
	Referrer   *string   `db:"referrer" json:"referrer,omitempty"`
	PageURL    *string   `db:"page_url" json:"pageUrl,omitempty"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}

// DailyAnalytics is the per-shop, per-calendar-day counter rollup.
type DailyAnalytics struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ShopDomain       string    `db:"shop_domain" json:"shopDomain"`
	Date             time.Time `db:"date" json:"date"`
	TotalVisits      int       `db:"total_visits" json:"totalVisits"`
	PopupViews       int       `db:"popup_views" json:"popupViews"`
	PopupSubmissions int       `db:"popup_submissions" json:"popupSubmissions"`
	ConversionRate   float64   `db:"conversion_rate" json:"conversionRate"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}
