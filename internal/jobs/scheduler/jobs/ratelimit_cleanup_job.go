package jobs

import (
	"context"
	"time"

	"popup-server/internal/observability"
	"popup-server/internal/ratelimit"
)

// RateLimitCleanupJob removes expired rate limit windows
type RateLimitCleanupJob struct {
	service *ratelimit.Service
	logger  *observability.Logger
}

// NewRateLimitCleanupJob creates a new rate limit cleanup job
func NewRateLimitCleanupJob(service *ratelimit.Service, logger *observability.Logger) *RateLimitCleanupJob {
	return &RateLimitCleanupJob{
		service: service,
		logger:  logger,
	}
}

// Name returns the job name
func (j *RateLimitCleanupJob) Name() string {
	return "ratelimit_cleanup"
}

// Schedule returns how often the job should run
func (j *RateLimitCleanupJob) Schedule() time.Duration {
	return 10 * time.Minute
}

// Run deletes rate limit windows that can no longer affect a decision
func (j *RateLimitCleanupJob) Run(ctx context.Context) error {
	return j.service.CleanupExpiredRecords(ctx)
}
