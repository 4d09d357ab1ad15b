package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// CreatePopupSubscriberParams represents parameters for creating a subscriber
type CreatePopupSubscriberParams struct {
	ShopDomain   string
	Email        string
	Phone        *string
	DiscountCode string
	BlockID      *string
}

const sqlCreatePopupSubscriber = `
INSERT INTO popup_subscribers (shop_domain, email, phone, discount_code, block_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, shop_domain, email, phone, discount_code, block_id, subscribed_at, is_active, used_discount
`

// CreatePopupSubscriber persists a form submission. Discount codes are unique
// across subscribers; a conflict surfaces as ErrDuplicateDiscountCode so the
// caller can regenerate and retry.
func (s *Store) CreatePopupSubscriber(ctx context.Context, params CreatePopupSubscriberParams) (PopupSubscriber, error) {
	var subscriber PopupSubscriber
	err := s.db.GetContext(ctx, &subscriber, sqlCreatePopupSubscriber,
		params.ShopDomain,
		params.Email,
		params.Phone,
		params.DiscountCode,
		params.BlockID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PopupSubscriber{}, ErrDuplicateDiscountCode
		}
		s.logger.Error(ctx, "failed to create popup subscriber", err)
		return PopupSubscriber{}, fmt.Errorf("failed to create popup subscriber: %w", err)
	}
	return subscriber, nil
}

const sqlCountActiveSubscribers = `
SELECT COUNT(*)::int
FROM popup_subscribers
WHERE shop_domain = $1 AND is_active = true
`

// CountActiveSubscribers returns the number of active subscribers for a shop
func (s *Store) CountActiveSubscribers(ctx context.Context, shopDomain string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountActiveSubscribers, shopDomain)
	if err != nil {
		s.logger.Error(ctx, "failed to count active subscribers", err)
		return 0, fmt.Errorf("failed to count active subscribers: %w", err)
	}
	return count, nil
}

const sqlCountSubscribersSince = `
SELECT COUNT(*)::int
FROM popup_subscribers
WHERE shop_domain = $1 AND is_active = true AND subscribed_at >= $2
`

// CountSubscribersSince returns active subscribers that signed up at or after the cutoff
func (s *Store) CountSubscribersSince(ctx context.Context, shopDomain string, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountSubscribersSince, shopDomain, since)
	if err != nil {
		s.logger.Error(ctx, "failed to count subscribers since cutoff", err)
		return 0, fmt.Errorf("failed to count subscribers since cutoff: %w", err)
	}
	return count, nil
}

const sqlGetRecentSubscribers = `
SELECT id, shop_domain, email, phone, discount_code, block_id, subscribed_at, is_active, used_discount
FROM popup_subscribers
WHERE shop_domain = $1 AND is_active = true
ORDER BY subscribed_at DESC
LIMIT $2
`

// GetRecentSubscribers retrieves the most recent active subscribers for a shop
func (s *Store) GetRecentSubscribers(ctx context.Context, shopDomain string, limit int) ([]PopupSubscriber, error) {
	var subscribers []PopupSubscriber
	err := s.db.SelectContext(ctx, &subscribers, sqlGetRecentSubscribers, shopDomain, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to get recent subscribers", err)
		return nil, fmt.Errorf("failed to get recent subscribers: %w", err)
	}
	return subscribers, nil
}

const sqlDeactivateSubscriber = `
UPDATE popup_subscribers
SET is_active = false
WHERE id = $1 AND shop_domain = $2
`

// DeactivateSubscriber soft-deletes a subscriber
func (s *Store) DeactivateSubscriber(ctx context.Context, shopDomain string, id string) error {
	result, err := s.db.ExecContext(ctx, sqlDeactivateSubscriber, id, shopDomain)
	if err != nil {
		s.logger.Error(ctx, "failed to deactivate subscriber", err)
		return fmt.Errorf("failed to deactivate subscriber: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate subscriber: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
