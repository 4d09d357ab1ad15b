package bootstrap

import (
	"context"
	"fmt"

	"popup-server/internal/config"
	"popup-server/internal/observability"
	"popup-server/internal/store"

	analyticsHandler "popup-server/internal/analytics/handler"
	analyticsProcessor "popup-server/internal/analytics/processor"
	authHandler "popup-server/internal/auth/handler"
	authProcessor "popup-server/internal/auth/processor"
	"popup-server/internal/clients/mail"
	"popup-server/internal/clients/shopify"
	"popup-server/internal/jobs/scheduler"
	"popup-server/internal/jobs/scheduler/jobs"
	"popup-server/internal/ratelimit"
	settingsHandler "popup-server/internal/settings/handler"
	settingsProcessor "popup-server/internal/settings/processor"
	subscribeHandler "popup-server/internal/subscribe/handler"
	subscribeProcessor "popup-server/internal/subscribe/processor"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store       *store.Store
	Logger      *observability.Logger
	RateLimiter *ratelimit.Service
	Scheduler   *scheduler.Scheduler

	// Handlers
	AuthHandler      authHandler.Handler
	SettingsHandler  settingsHandler.Handler
	SubscribeHandler subscribeHandler.Handler
	AnalyticsHandler analyticsHandler.Handler
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	// Initialize database store
	connectionString := cfg.Database.ConnectionString()
	var err error
	deps.Store, err = store.New(connectionString, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := deps.Store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	// Initialize Shopify Admin API client
	shopifyClient := shopify.NewClient(cfg.Shopify.AccessToken, cfg.Shopify.APIVersion, logger)

	// Welcome emails are optional; without an API key subscribers still get
	// their code in the popup response.
	var mailClient subscribeProcessor.EmailSender
	if cfg.Mail.ResendAPIKey != "" {
		resendClient, err := mail.NewResendClient(cfg.Mail.ResendAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create resend client: %w", err)
		}
		mailClient = resendClient
	}

	// Initialize auth processor and handler
	authProc := authProcessor.New(cfg.Shopify.APISecret, logger)
	deps.AuthHandler = authHandler.New(authProc, logger)

	// Initialize settings processor and handler
	settingsProc := settingsProcessor.New(deps.Store, logger)
	deps.SettingsHandler = settingsHandler.New(settingsProc, logger)

	// Initialize subscribe processor and handler
	subscribeProc := subscribeProcessor.New(deps.Store, shopifyClient, mailClient, cfg.Mail.Sender, logger)
	deps.SubscribeHandler = subscribeHandler.New(subscribeProc, logger)

	// Initialize analytics processor and handler
	analyticsProc := analyticsProcessor.New(deps.Store, logger)
	deps.AnalyticsHandler = analyticsHandler.New(analyticsProc, logger)

	// Rate limiting for the public storefront endpoints
	deps.RateLimiter = ratelimit.NewService(deps.Store, logger)

	// Background maintenance jobs
	deps.Scheduler = scheduler.New(logger)
	deps.Scheduler.Register(jobs.NewRateLimitCleanupJob(deps.RateLimiter, logger))
	deps.Scheduler.Register(jobs.NewAnalyticsRetentionJob(deps.Store, logger, cfg.Server.AnalyticsRetentionDays))

	return deps, nil
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.Error(context.Background(), "failed to close database", err)
		}
	}
}
