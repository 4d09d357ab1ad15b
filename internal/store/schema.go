package store

import "context"

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
	`CREATE TABLE IF NOT EXISTS popup_settings (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		shop_domain TEXT NOT NULL UNIQUE,
		is_enabled BOOLEAN NOT NULL DEFAULT true,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		discount_type TEXT NOT NULL DEFAULT 'percentage',
		discount_percentage INTEGER NOT NULL DEFAULT 10,
		discount_code TEXT,
		target_countries TEXT[] NOT NULL DEFAULT '{}',
		page_rules JSONB NOT NULL DEFAULT '{}',
		schedule_type TEXT NOT NULL DEFAULT 'always',
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		start_time TEXT,
		end_time TEXT,
		position TEXT NOT NULL DEFAULT 'center',
		trigger_type TEXT NOT NULL DEFAULT 'page_load',
		delay_seconds INTEGER NOT NULL DEFAULT 5,
		frequency TEXT NOT NULL DEFAULT 'once_per_session',
		background_color TEXT NOT NULL DEFAULT '#ffffff',
		text_color TEXT NOT NULL DEFAULT '#333333',
		button_color TEXT NOT NULL DEFAULT '#007cba',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS popup_subscribers (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		shop_domain TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		discount_code TEXT NOT NULL UNIQUE,
		block_id TEXT,
		subscribed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		is_active BOOLEAN NOT NULL DEFAULT true,
		used_discount BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_popup_subscribers_shop ON popup_subscribers (shop_domain, subscribed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS popup_analytics_events (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		shop_domain TEXT NOT NULL,
		event_type TEXT NOT NULL,
		block_id TEXT,
		session_id TEXT,
		user_agent TEXT,
		ip_address TEXT,
		referrer TEXT,
		page_url TEXT,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_popup_analytics_events_shop_time ON popup_analytics_events (shop_domain, timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_popup_analytics_events_shop_type ON popup_analytics_events (shop_domain, event_type)`,
	`CREATE TABLE IF NOT EXISTS daily_analytics (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		shop_domain TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		total_visits INTEGER NOT NULL DEFAULT 0,
		popup_views INTEGER NOT NULL DEFAULT 0,
		popup_submissions INTEGER NOT NULL DEFAULT 0,
		conversion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (shop_domain, date)
	)`,
	`CREATE TABLE IF NOT EXISTS popup_rate_limits (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		rate_key TEXT NOT NULL,
		window_start TIMESTAMPTZ NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 1,
		UNIQUE (rate_key, window_start)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_popup_rate_limits_window ON popup_rate_limits (window_start)`,
}

// EnsureSchema creates the tables and indexes the store depends on. Every
// statement is idempotent so it runs on each startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error(ctx, "failed to apply schema statement", err)
			return err
		}
	}
	return nil
}
