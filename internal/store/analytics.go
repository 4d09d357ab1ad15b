package store

import (
	"context"
	"fmt"
	"time"
)

// CreateAnalyticsEventParams represents parameters for recording a client event
type CreateAnalyticsEventParams struct {
	ShopDomain string
	EventType  string
	BlockID    *string
	SessionID  *string
	UserAgent  *string
	IPAddress  *string
	Referrer   *string
	PageURL    *string
}

const sqlCreateAnalyticsEvent = `
INSERT INTO popup_analytics_events (shop_domain, event_type, block_id, session_id, user_agent, ip_address, referrer, page_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, shop_domain, event_type, block_id, session_id, user_agent, ip_address, referrer, page_url, timestamp
`

// CreateAnalyticsEvent appends an immutable analytics event row
func (s *Store) CreateAnalyticsEvent(ctx context.Context, params CreateAnalyticsEventParams) (PopupAnalyticsEvent, error) {
	var event PopupAnalyticsEvent
	err := s.db.GetContext(ctx, &event, sqlCreateAnalyticsEvent,
		params.ShopDomain,
		params.EventType,
		params.BlockID,
		params.SessionID,
		params.UserAgent,
		params.IPAddress,
		params.Referrer,
		params.PageURL)
	if err != nil {
		s.logger.Error(ctx, "failed to create analytics event", err)
		return PopupAnalyticsEvent{}, fmt.Errorf("failed to create analytics event: %w", err)
	}
	return event, nil
}

const dailyAnalyticsColumns = `id, shop_domain, date, total_visits, popup_views, popup_submissions, conversion_rate, created_at, updated_at`

// The increment and the conversion-rate recompute happen in one statement so
// concurrent requests for the same shop/day can never under-count or store a
// stale rate.
const sqlIncrementDailyAnalytics = `
INSERT INTO daily_analytics (shop_domain, date, total_visits, popup_views, popup_submissions, conversion_rate)
VALUES ($1, $2, $3, $4::int, $5::int,
    CASE WHEN $4::int > 0 THEN ($5::float / $4::float) * 100 ELSE 0 END)
ON CONFLICT (shop_domain, date) DO UPDATE SET
    total_visits = daily_analytics.total_visits + EXCLUDED.total_visits,
    popup_views = daily_analytics.popup_views + EXCLUDED.popup_views,
    popup_submissions = daily_analytics.popup_submissions + EXCLUDED.popup_submissions,
    conversion_rate = CASE
        WHEN daily_analytics.popup_views + EXCLUDED.popup_views > 0
        THEN ((daily_analytics.popup_submissions + EXCLUDED.popup_submissions)::float
              / (daily_analytics.popup_views + EXCLUDED.popup_views)::float) * 100
        ELSE 0
    END,
    updated_at = CURRENT_TIMESTAMP
RETURNING ` + dailyAnalyticsColumns + `
`

// IncrementDailyAnalytics atomically bumps the counter matching the event type
// for the (shop, day) aggregate, creating the row when absent. Unrecognized
// event types leave every counter untouched but still touch the row.
func (s *Store) IncrementDailyAnalytics(ctx context.Context, shopDomain string, day time.Time, eventType EventType) (DailyAnalytics, error) {
	var visits, views, submissions int
	switch eventType {
	case EventTypeVisit:
		visits = 1
	case EventTypePopupView:
		views = 1
	case EventTypePopupSubmit:
		submissions = 1
	}

	day = day.UTC().Truncate(24 * time.Hour)

	var daily DailyAnalytics
	err := s.db.GetContext(ctx, &daily, sqlIncrementDailyAnalytics,
		shopDomain, day, visits, views, submissions)
	if err != nil {
		s.logger.Error(ctx, "failed to increment daily analytics", err)
		return DailyAnalytics{}, fmt.Errorf("failed to increment daily analytics: %w", err)
	}
	return daily, nil
}

const sqlGetDailyAnalyticsRange = `
SELECT ` + dailyAnalyticsColumns + `
FROM daily_analytics
WHERE shop_domain = $1 AND date >= $2 AND date <= $3
ORDER BY date ASC
`

// GetDailyAnalyticsRange retrieves daily aggregates for a shop within a date range
func (s *Store) GetDailyAnalyticsRange(ctx context.Context, shopDomain string, from, to time.Time) ([]DailyAnalytics, error) {
	var days []DailyAnalytics
	err := s.db.SelectContext(ctx, &days, sqlGetDailyAnalyticsRange, shopDomain, from, to)
	if err != nil {
		s.logger.Error(ctx, "failed to get daily analytics range", err)
		return nil, fmt.Errorf("failed to get daily analytics range: %w", err)
	}
	return days, nil
}

const sqlGetAnalyticsEventsRange = `
SELECT id, shop_domain, event_type, block_id, session_id, user_agent, ip_address, referrer, page_url, timestamp
FROM popup_analytics_events
WHERE shop_domain = $1 AND timestamp >= $2 AND timestamp <= $3
ORDER BY timestamp DESC
LIMIT $4
`

// GetAnalyticsEventsRange retrieves the most recent events for a shop within a
// time range, newest first
func (s *Store) GetAnalyticsEventsRange(ctx context.Context, shopDomain string, from, to time.Time, limit int) ([]PopupAnalyticsEvent, error) {
	var events []PopupAnalyticsEvent
	err := s.db.SelectContext(ctx, &events, sqlGetAnalyticsEventsRange, shopDomain, from, to, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to get analytics events", err)
		return nil, fmt.Errorf("failed to get analytics events: %w", err)
	}
	return events, nil
}

const sqlGetAnalyticsEventsByType = `
SELECT id, shop_domain, event_type, block_id, session_id, user_agent, ip_address, referrer, page_url, timestamp
FROM popup_analytics_events
WHERE shop_domain = $1 AND event_type = $2 AND timestamp >= $3 AND timestamp <= $4
ORDER BY timestamp DESC
LIMIT $5
`

// GetAnalyticsEventsByType retrieves the most recent events of one type for a
// shop within a time range, newest first
func (s *Store) GetAnalyticsEventsByType(ctx context.Context, shopDomain string, eventType EventType, from, to time.Time, limit int) ([]PopupAnalyticsEvent, error) {
	var events []PopupAnalyticsEvent
	err := s.db.SelectContext(ctx, &events, sqlGetAnalyticsEventsByType, shopDomain, eventType, from, to, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to get analytics events by type", err)
		return nil, fmt.Errorf("failed to get analytics events by type: %w", err)
	}
	return events, nil
}

// EventTypeCount represents the per-type event breakdown
type EventTypeCount struct {
	EventType string `db:"event_type" json:"eventType"`
	Count     int    `db:"count" json:"count"`
}

const sqlGetEventTypeBreakdown = `
SELECT event_type, COUNT(*)::int as count
FROM popup_analytics_events
WHERE shop_domain = $1 AND timestamp >= $2 AND timestamp <= $3
GROUP BY event_type
ORDER BY count DESC
`

// GetEventTypeBreakdown retrieves event counts grouped by type for a shop
func (s *Store) GetEventTypeBreakdown(ctx context.Context, shopDomain string, from, to time.Time) ([]EventTypeCount, error) {
	var breakdown []EventTypeCount
	err := s.db.SelectContext(ctx, &breakdown, sqlGetEventTypeBreakdown, shopDomain, from, to)
	if err != nil {
		s.logger.Error(ctx, "failed to get event type breakdown", err)
		return nil, fmt.Errorf("failed to get event type breakdown: %w", err)
	}
	return breakdown, nil
}

const sqlCountUniqueSessions = `
SELECT COUNT(DISTINCT session_id)::int
FROM popup_analytics_events
WHERE shop_domain = $1 AND event_type = 'visit' AND session_id IS NOT NULL
    AND timestamp >= $2 AND timestamp <= $3
`

// CountUniqueSessions counts distinct visitor sessions for a shop in a time range
func (s *Store) CountUniqueSessions(ctx context.Context, shopDomain string, from, to time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountUniqueSessions, shopDomain, from, to)
	if err != nil {
		s.logger.Error(ctx, "failed to count unique sessions", err)
		return 0, fmt.Errorf("failed to count unique sessions: %w", err)
	}
	return count, nil
}

const sqlPruneAnalyticsEvents = `
DELETE FROM popup_analytics_events WHERE timestamp < $1
`

// PruneAnalyticsEvents deletes raw events older than the cutoff. The daily
// rollups keep the aggregate history, so old raw rows are safe to drop.
func (s *Store) PruneAnalyticsEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, sqlPruneAnalyticsEvents, olderThan)
	if err != nil {
		s.logger.Error(ctx, "failed to prune analytics events", err)
		return 0, fmt.Errorf("failed to prune analytics events: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}
	return rows, nil
}
