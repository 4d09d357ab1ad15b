package processor

import (
	"context"
	"errors"
	"time"

	"popup-server/internal/observability"
	"popup-server/internal/store"
)

// AnalyticsStore defines the database operations required by AnalyticsProcessor
type AnalyticsStore interface {
	CreateAnalyticsEvent(ctx context.Context, params store.CreateAnalyticsEventParams) (store.PopupAnalyticsEvent, error)
	IncrementDailyAnalytics(ctx context.Context, shopDomain string, day time.Time, eventType store.EventType) (store.DailyAnalytics, error)
	GetDailyAnalyticsRange(ctx context.Context, shopDomain string, from, to time.Time) ([]store.DailyAnalytics, error)
	GetAnalyticsEventsRange(ctx context.Context, shopDomain string, from, to time.Time, limit int) ([]store.PopupAnalyticsEvent, error)
	GetAnalyticsEventsByType(ctx context.Context, shopDomain string, eventType store.EventType, from, to time.Time, limit int) ([]store.PopupAnalyticsEvent, error)
	GetEventTypeBreakdown(ctx context.Context, shopDomain string, from, to time.Time) ([]store.EventTypeCount, error)
	CountUniqueSessions(ctx context.Context, shopDomain string, from, to time.Time) (int, error)
}

var ErrMissingShopDomain = errors.New("missing shop domain")

const (
	defaultRangeDays     = 30
	maxRangeDays         = 90
	recentEventsLimit    = 50
	recentSubscribeLimit = 20
)

type AnalyticsProcessor struct {
	store  AnalyticsStore
	logger *observability.Logger
}

func New(store AnalyticsStore, logger *observability.Logger) AnalyticsProcessor {
	return AnalyticsProcessor{
		store:  store,
		logger: logger,
	}
}

// RecordEventRequest represents a storefront tracking beacon
type RecordEventRequest struct {
	ShopDomain string
	EventType  string
	BlockID    *string
	SessionID  *string
	UserAgent  *string
	IPAddress  *string
	Referrer   *string
	PageURL    *string
}

// RecordEvent appends the raw event and bumps the shop's daily aggregate for
// the event's UTC day. Event types outside the known set are still stored so
// the raw trail stays complete, but they do not touch the daily counters.
func (p *AnalyticsProcessor) RecordEvent(ctx context.Context, req RecordEventRequest) (store.PopupAnalyticsEvent, error) {
	if req.ShopDomain == "" {
		return store.PopupAnalyticsEvent{}, ErrMissingShopDomain
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: req.ShopDomain},
		observability.Field{Key: "event_type", Value: req.EventType},
	)

	event, err := p.store.CreateAnalyticsEvent(ctx, store.CreateAnalyticsEventParams{
		ShopDomain: req.ShopDomain,
		EventType:  req.EventType,
		BlockID:    req.BlockID,
		SessionID:  req.SessionID,
		UserAgent:  req.UserAgent,
		IPAddress:  req.IPAddress,
		Referrer:   req.Referrer,
		PageURL:    req.PageURL,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to record analytics event", err)
		return store.PopupAnalyticsEvent{}, err
	}

	switch eventType := store.EventType(req.EventType); eventType {
	case store.EventTypeVisit, store.EventTypePopupView, store.EventTypePopupSubmit:
		if _, err := p.store.IncrementDailyAnalytics(ctx, req.ShopDomain, event.Timestamp, eventType); err != nil {
			// The raw event is already saved; aggregate drift is repairable.
			p.logger.Error(ctx, "failed to increment daily analytics", err)
		}
	}

	return event, nil
}

// Summary represents the headline numbers on the analytics dashboard
type Summary struct {
	TotalVisits     int     `json:"totalVisits"`
	UniqueVisitors  int     `json:"uniqueVisitors"`
	TotalPopupViews int     `json:"totalPopupViews"`
	TotalSubmits    int     `json:"totalSubmissions"`
	ConversionRate  float64 `json:"conversionRate"`
	SuccessRate     float64 `json:"successRate"`
	ViewToVisitRate float64 `json:"viewToVisitRate"`
}

// ChartData represents the day-by-day chart series, one entry per day in the
// requested range with gaps zero-filled
type ChartData struct {
	Labels          []string  `json:"labels"`
	Visits          []int     `json:"visits"`
	PopupViews      []int     `json:"popupViews"`
	Submissions     []int     `json:"submissions"`
	ConversionRates []float64 `json:"conversionRates"`
}

// SubscriptionDetails represents the submission-focused dashboard section
type SubscriptionDetails struct {
	RecentSubmissions []store.PopupAnalyticsEvent `json:"recentSubmissions"`
	DailyBreakdown    []DailySubmissions          `json:"dailyBreakdown"`
}

// DailySubmissions represents submissions for a single day
type DailySubmissions struct {
	Date        string `json:"date"`
	Submissions int    `json:"submissions"`
}

// AnalyticsData represents the full dashboard payload
type AnalyticsData struct {
	Summary             Summary                     `json:"summary"`
	ChartData           ChartData                   `json:"chartData"`
	EventBreakdown      []store.EventTypeCount      `json:"eventBreakdown"`
	DailyAnalytics      []store.DailyAnalytics      `json:"dailyAnalytics"`
	RecentEvents        []store.PopupAnalyticsEvent `json:"recentEvents"`
	SubscriptionDetails SubscriptionDetails         `json:"subscriptionDetails"`
}

// GetAnalyticsData assembles the dashboard payload for the trailing N days
func (p *AnalyticsProcessor) GetAnalyticsData(ctx context.Context, shopDomain string, days int) (AnalyticsData, error) {
	if shopDomain == "" {
		return AnalyticsData{}, ErrMissingShopDomain
	}
	if days < 1 || days > maxRangeDays {
		days = defaultRangeDays
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "shop_domain", Value: shopDomain},
	)

	to := time.Now().UTC()
	from := to.Truncate(24 * time.Hour).AddDate(0, 0, -(days - 1))

	daily, err := p.store.GetDailyAnalyticsRange(ctx, shopDomain, from, to)
	if err != nil {
		return AnalyticsData{}, err
	}
	breakdown, err := p.store.GetEventTypeBreakdown(ctx, shopDomain, from, to)
	if err != nil {
		return AnalyticsData{}, err
	}
	recentEvents, err := p.store.GetAnalyticsEventsRange(ctx, shopDomain, from, to, recentEventsLimit)
	if err != nil {
		return AnalyticsData{}, err
	}
	recentSubmits, err := p.store.GetAnalyticsEventsByType(ctx, shopDomain, store.EventTypePopupSubmit, from, to, recentSubscribeLimit)
	if err != nil {
		return AnalyticsData{}, err
	}
	uniqueVisitors, err := p.store.CountUniqueSessions(ctx, shopDomain, from, to)
	if err != nil {
		return AnalyticsData{}, err
	}

	if daily == nil {
		daily = []store.DailyAnalytics{}
	}
	if breakdown == nil {
		breakdown = []store.EventTypeCount{}
	}
	if recentEvents == nil {
		recentEvents = []store.PopupAnalyticsEvent{}
	}
	if recentSubmits == nil {
		recentSubmits = []store.PopupAnalyticsEvent{}
	}

	dailyBreakdown := make([]DailySubmissions, 0, len(daily))
	for _, day := range daily {
		dailyBreakdown = append(dailyBreakdown, DailySubmissions{
			Date:        day.Date.Format("2006-01-02"),
			Submissions: day.PopupSubmissions,
		})
	}

	return AnalyticsData{
		Summary:        buildSummary(daily, uniqueVisitors),
		ChartData:      buildChartData(daily, from, days),
		EventBreakdown: breakdown,
		DailyAnalytics: daily,
		RecentEvents:   recentEvents,
		SubscriptionDetails: SubscriptionDetails{
			RecentSubmissions: recentSubmits,
			DailyBreakdown:    dailyBreakdown,
		},
	}, nil
}

func buildSummary(daily []store.DailyAnalytics, uniqueVisitors int) Summary {
	summary := Summary{UniqueVisitors: uniqueVisitors}
	for _, day := range daily {
		summary.TotalVisits += day.TotalVisits
		summary.TotalPopupViews += day.PopupViews
		summary.TotalSubmits += day.PopupSubmissions
	}
	if summary.TotalPopupViews > 0 {
		summary.ConversionRate = float64(summary.TotalSubmits) / float64(summary.TotalPopupViews) * 100
	}
	if summary.TotalVisits > 0 {
		summary.SuccessRate = float64(summary.TotalSubmits) / float64(summary.TotalVisits) * 100
		summary.ViewToVisitRate = float64(summary.TotalPopupViews) / float64(summary.TotalVisits) * 100
	}
	return summary
}

func buildChartData(daily []store.DailyAnalytics, from time.Time, days int) ChartData {
	byDate := make(map[string]store.DailyAnalytics, len(daily))
	for _, day := range daily {
		byDate[day.Date.Format("2006-01-02")] = day
	}

	chart := ChartData{
		Labels:          make([]string, 0, days),
		Visits:          make([]int, 0, days),
		PopupViews:      make([]int, 0, days),
		Submissions:     make([]int, 0, days),
		ConversionRates: make([]float64, 0, days),
	}
	for i := 0; i < days; i++ {
		label := from.AddDate(0, 0, i).Format("2006-01-02")
		day := byDate[label]
		chart.Labels = append(chart.Labels, label)
		chart.Visits = append(chart.Visits, day.TotalVisits)
		chart.PopupViews = append(chart.PopupViews, day.PopupViews)
		chart.Submissions = append(chart.Submissions, day.PopupSubmissions)
		chart.ConversionRates = append(chart.ConversionRates, day.ConversionRate)
	}
	return chart
}
