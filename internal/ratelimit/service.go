package ratelimit

import (
	"context"
	"fmt"
	"time"

	"popup-server/internal/observability"
	"popup-server/internal/store"
)

const defaultWindow = time.Minute

// Result describes the outcome of a rate limit check
type Result struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetAt      time.Time
	RetryAfterMs int64
}

// Service implements a fixed-window request counter backed by Postgres
type Service struct {
	store  *store.Store
	logger *observability.Logger
	window time.Duration
}

// NewService creates a new rate limiting service
func NewService(store *store.Store, logger *observability.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		window: defaultWindow,
	}
}

// CheckRateLimit counts a request against the current window for the given
// key and reports whether it is still within the limit.
func (s *Service) CheckRateLimit(ctx context.Context, key string, limit int) (Result, error) {
	now := time.Now()
	windowStart := now.Truncate(s.window)
	resetAt := windowStart.Add(s.window)

	query := `
		INSERT INTO popup_rate_limits (rate_key, window_start, request_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (rate_key, window_start)
		DO UPDATE SET request_count = popup_rate_limits.request_count + 1
		RETURNING request_count`

	var count int
	if err := s.store.DB().GetContext(ctx, &count, query, key, windowStart); err != nil {
		return Result{}, fmt.Errorf("failed to count request for key %s: %w", key, err)
	}

	result := Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !result.Allowed {
		result.RetryAfterMs = time.Until(resetAt).Milliseconds()
		if result.RetryAfterMs < 0 {
			result.RetryAfterMs = 0
		}
	}
	return result, nil
}

// CleanupExpiredRecords removes windows old enough that they can no longer
// affect a rate limit decision.
func (s *Service) CleanupExpiredRecords(ctx context.Context) error {
	cutoff := time.Now().Add(-2 * s.window)

	result, err := s.store.DB().ExecContext(ctx,
		`DELETE FROM popup_rate_limits WHERE window_start < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up rate limit records: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		s.logger.Info(ctx, fmt.Sprintf("Cleaned up %d expired rate limit records", rows))
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
