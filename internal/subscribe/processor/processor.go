package processor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"popup-server/internal/clients/shopify"
	"popup-server/internal/observability"
	"popup-server/internal/store"
	"popup-server/internal/subscribe/utils"

	"github.com/google/uuid"
)

// SubscriberStore defines the database operations required by SubscribeProcessor
type SubscriberStore interface {
	GetPopupSettings(ctx context.Context, shopDomain string) (store.PopupSettings, error)
	CreatePopupSubscriber(ctx context.Context, params store.CreatePopupSubscriberParams) (store.PopupSubscriber, error)
	CountActiveSubscribers(ctx context.Context, shopDomain string) (int, error)
	CountSubscribersSince(ctx context.Context, shopDomain string, since time.Time) (int, error)
	GetRecentSubscribers(ctx context.Context, shopDomain string, limit int) ([]store.PopupSubscriber, error)
	DeactivateSubscriber(ctx context.Context, shopDomain string, id string) error
}

// DiscountClient defines the remote discount operations required by SubscribeProcessor
type DiscountClient interface {
	CreateBasicDiscountCode(ctx context.Context, shopDomain string, input map[string]interface{}) (string, error)
	FindDiscountCodeNode(ctx context.Context, shopDomain, code string) (string, error)
}

// EmailSender defines the email operations required by SubscribeProcessor
type EmailSender interface {
	SendEmail(ctx context.Context, from, to, subject, htmlContent string) (string, error)
}

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrMissingShopDomain  = errors.New("missing shop domain")
	ErrCodeGeneration     = errors.New("failed to produce a valid discount code")
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	defaultDiscountPercentage = 10
	discountTitlePrefix       = "Popup Discount - "
	// How long to wait before re-querying a freshly created discount code.
	// The Admin API is eventually consistent for code lookups.
	defaultVerifyDelay = 2 * time.Second
)

type SubscribeProcessor struct {
	store       SubscriberStore
	discounts   DiscountClient
	mail        EmailSender
	mailSender  string
	logger      *observability.Logger
	verifyDelay time.Duration
}

func New(store SubscriberStore, discounts DiscountClient, mail EmailSender, mailSender string, logger *observability.Logger) SubscribeProcessor {
	return SubscribeProcessor{
		store:       store,
		discounts:   discounts,
		mail:        mail,
		mailSender:  mailSender,
		logger:      logger,
		verifyDelay: defaultVerifyDelay,
	}
}

// SubscribeRequest represents a popup form submission
type SubscribeRequest struct {
	ShopDomain string
	Email      string
	Phone      *string
	BlockID    *string
}

// SubscribeResponse represents the outcome of a submission. Success means the
// subscriber was saved and holds a usable code; ShopifyDiscountCreated and
// CodeValidated report how far the remote registration got.
type SubscribeResponse struct {
	Success                bool    `json:"success"`
	DiscountCode           string  `json:"discount_code"`
	SubscriberID           string  `json:"subscriber_id"`
	ShopifyDiscountID      *string `json:"shopify_discount_id,omitempty"`
	ShopifyDiscountCreated bool    `json:"shopify_discount_created"`
	CodeValidated          bool    `json:"code_validated"`
}

// Subscribe saves a popup submission and issues a discount code. The code is
// reserved locally first, then registered with the shop; if remote
// registration fails the subscriber still gets the locally generated code.
func (p *SubscribeProcessor) Subscribe(ctx context.Context, req SubscribeRequest) (SubscribeResponse, error) {
	if req.ShopDomain == "" {
		return SubscribeResponse{}, ErrMissingShopDomain
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return SubscribeResponse{}, ErrInvalidEmail
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: req.ShopDomain},
		observability.Field{Key: "email", Value: email},
	)

	percentage := defaultDiscountPercentage
	settings, err := p.store.GetPopupSettings(ctx, req.ShopDomain)
	if err == nil {
		percentage = settings.DiscountPercentage
	} else if !errors.Is(err, store.ErrNotFound) {
		p.logger.Error(ctx, "failed to load popup settings", err)
		return SubscribeResponse{}, err
	}

	subscriber, err := p.createSubscriberWithCode(ctx, req, email)
	if err != nil {
		return SubscribeResponse{}, err
	}
	code := subscriber.DiscountCode
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "discount_code", Value: code},
	)

	response := SubscribeResponse{
		Success:      true,
		DiscountCode: code,
		SubscriberID: subscriber.ID.String(),
	}

	input := shopify.BasicDiscountInput(code, percentage, discountTitlePrefix+email, time.Now())
	nodeID, err := p.discounts.CreateBasicDiscountCode(ctx, req.ShopDomain, input)
	if err != nil {
		p.logger.Error(ctx, "failed to create shopify discount, falling back to local code", err)
	} else {
		response.ShopifyDiscountCreated = true
		response.ShopifyDiscountID = &nodeID
		response.CodeValidated = p.verifyDiscountCode(ctx, req.ShopDomain, code)
	}

	p.sendWelcomeEmail(ctx, email, code, percentage)

	p.logger.Info(ctx, "popup subscriber created")
	return response, nil
}

// createSubscriberWithCode generates a discount code and persists the
// subscriber. The unique constraint on discount codes can reject a collision;
// one regeneration attempt covers that.
func (p *SubscribeProcessor) createSubscriberWithCode(ctx context.Context, req SubscribeRequest, email string) (store.PopupSubscriber, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		code, err := utils.GenerateDiscountCode(time.Now())
		if err != nil {
			p.logger.Error(ctx, "failed to generate discount code", err)
			return store.PopupSubscriber{}, fmt.Errorf("failed to generate discount code: %w", err)
		}
		if !utils.ValidateDiscountCode(code) {
			lastErr = ErrCodeGeneration
			continue
		}

		subscriber, err := p.store.CreatePopupSubscriber(ctx, store.CreatePopupSubscriberParams{
			ShopDomain:   req.ShopDomain,
			Email:        email,
			Phone:        req.Phone,
			DiscountCode: code,
			BlockID:      req.BlockID,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateDiscountCode) {
				p.logger.Info(ctx, "discount code collision, regenerating")
				lastErr = err
				continue
			}
			p.logger.Error(ctx, "failed to create subscriber", err)
			return store.PopupSubscriber{}, err
		}
		return subscriber, nil
	}
	return store.PopupSubscriber{}, lastErr
}

// verifyDiscountCode re-queries the shop for a code created moments ago.
// Verification is best effort and never fails the submission.
func (p *SubscribeProcessor) verifyDiscountCode(ctx context.Context, shopDomain, code string) bool {
	if p.verifyDelay > 0 {
		select {
		case <-time.After(p.verifyDelay):
		case <-ctx.Done():
			return false
		}
	}

	_, err := p.discounts.FindDiscountCodeNode(ctx, shopDomain, code)
	if err != nil {
		p.logger.Info(ctx, "discount code not yet queryable on shop")
		return false
	}
	return true
}

const recentSubscribersLimit = 10

// SubscriberStats represents the admin dashboard subscriber summary
type SubscriberStats struct {
	TotalActive int                     `json:"totalActive"`
	Today       int                     `json:"today"`
	Recent      []store.PopupSubscriber `json:"recent"`
}

// GetSubscriberStats returns the admin view of a shop's subscriber list
func (p *SubscribeProcessor) GetSubscriberStats(ctx context.Context, shopDomain string) (SubscriberStats, error) {
	if shopDomain == "" {
		return SubscriberStats{}, ErrMissingShopDomain
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: shopDomain},
	)

	total, err := p.store.CountActiveSubscribers(ctx, shopDomain)
	if err != nil {
		return SubscriberStats{}, err
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	today, err := p.store.CountSubscribersSince(ctx, shopDomain, startOfDay)
	if err != nil {
		return SubscriberStats{}, err
	}

	recent, err := p.store.GetRecentSubscribers(ctx, shopDomain, recentSubscribersLimit)
	if err != nil {
		return SubscriberStats{}, err
	}
	if recent == nil {
		recent = []store.PopupSubscriber{}
	}

	return SubscriberStats{
		TotalActive: total,
		Today:       today,
		Recent:      recent,
	}, nil
}

// RemoveSubscriber deactivates a subscriber so the email is excluded from
// future exports without losing the issuance record.
func (p *SubscribeProcessor) RemoveSubscriber(ctx context.Context, shopDomain, id string) error {
	if shopDomain == "" {
		return ErrMissingShopDomain
	}
	subscriberID, err := uuid.Parse(id)
	if err != nil {
		return ErrSubscriberNotFound
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: shopDomain},
		observability.Field{Key: "subscriber_id", Value: id},
	)

	if err := p.store.DeactivateSubscriber(ctx, shopDomain, subscriberID.String()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSubscriberNotFound
		}
		p.logger.Error(ctx, "failed to deactivate subscriber", err)
		return err
	}

	p.logger.Info(ctx, "subscriber deactivated")
	return nil
}

func (p *SubscribeProcessor) sendWelcomeEmail(ctx context.Context, email, code string, percentage int) {
	if p.mail == nil {
		return
	}

	subject := fmt.Sprintf("Your %d%% discount code", percentage)
	html := fmt.Sprintf(
		`<p>Thanks for subscribing!</p><p>Use code <strong>%s</strong> at checkout for %d%% off your order.</p>`,
		code, percentage)

	if _, err := p.mail.SendEmail(ctx, p.mailSender, email, subject, html); err != nil {
		p.logger.Error(ctx, "failed to send welcome email", err)
	}
}
