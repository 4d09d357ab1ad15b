package jobs

import (
	"context"
	"fmt"
	"time"

	"popup-server/internal/observability"
	"popup-server/internal/store"
)

// AnalyticsRetentionJob prunes raw analytics events past the retention
// window. The daily rollups are kept forever.
type AnalyticsRetentionJob struct {
	store         *store.Store
	logger        *observability.Logger
	retentionDays int
	interval      time.Duration
}

// NewAnalyticsRetentionJob creates a new analytics retention job
func NewAnalyticsRetentionJob(store *store.Store, logger *observability.Logger, retentionDays int) *AnalyticsRetentionJob {
	if retentionDays <= 0 {
		retentionDays = 90
	}

	return &AnalyticsRetentionJob{
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
		interval:      24 * time.Hour,
	}
}

// Name returns the job name
func (j *AnalyticsRetentionJob) Name() string {
	return "analytics_retention"
}

// Schedule returns how often the job should run
func (j *AnalyticsRetentionJob) Schedule() time.Duration {
	return j.interval
}

// Run prunes raw events older than the retention window
func (j *AnalyticsRetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	pruned, err := j.store.PruneAnalyticsEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune analytics events: %w", err)
	}

	if pruned > 0 {
		j.logger.Info(ctx, fmt.Sprintf("Pruned %d analytics events older than %s", pruned, cutoff.Format("2006-01-02")))
	}
	return nil
}
