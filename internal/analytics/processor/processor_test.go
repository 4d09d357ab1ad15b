package processor

import (
	"context"
	"testing"
	"time"

	"popup-server/internal/observability"
	"popup-server/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAnalyticsStore is a mock implementation of AnalyticsStore
type MockAnalyticsStore struct {
	mock.Mock
}

func (m *MockAnalyticsStore) CreateAnalyticsEvent(ctx context.Context, params store.CreateAnalyticsEventParams) (store.PopupAnalyticsEvent, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(store.PopupAnalyticsEvent), args.Error(1)
}

func (m *MockAnalyticsStore) IncrementDailyAnalytics(ctx context.Context, shopDomain string, day time.Time, eventType store.EventType) (store.DailyAnalytics, error) {
	args := m.Called(ctx, shopDomain, day, eventType)
	return args.Get(0).(store.DailyAnalytics), args.Error(1)
}

func (m *MockAnalyticsStore) GetDailyAnalyticsRange(ctx context.Context, shopDomain string, from, to time.Time) ([]store.DailyAnalytics, error) {
	args := m.Called(ctx, shopDomain, from, to)
	return args.Get(0).([]store.DailyAnalytics), args.Error(1)
}

func (m *MockAnalyticsStore) GetAnalyticsEventsRange(ctx context.Context, shopDomain string, from, to time.Time, limit int) ([]store.PopupAnalyticsEvent, error) {
	args := m.Called(ctx, shopDomain, from, to, limit)
	return args.Get(0).([]store.PopupAnalyticsEvent), args.Error(1)
}

func (m *MockAnalyticsStore) GetAnalyticsEventsByType(ctx context.Context, shopDomain string, eventType store.EventType, from, to time.Time, limit int) ([]store.PopupAnalyticsEvent, error) {
	args := m.Called(ctx, shopDomain, eventType, from, to, limit)
	return args.Get(0).([]store.PopupAnalyticsEvent), args.Error(1)
}

func (m *MockAnalyticsStore) GetEventTypeBreakdown(ctx context.Context, shopDomain string, from, to time.Time) ([]store.EventTypeCount, error) {
	args := m.Called(ctx, shopDomain, from, to)
	return args.Get(0).([]store.EventTypeCount), args.Error(1)
}

func (m *MockAnalyticsStore) CountUniqueSessions(ctx context.Context, shopDomain string, from, to time.Time) (int, error) {
	args := m.Called(ctx, shopDomain, from, to)
	return args.Int(0), args.Error(1)
}

func TestRecordEvent_Success(t *testing.T) {
	mockStore := new(MockAnalyticsStore)
	p := New(mockStore, observability.NewLogger())

	shop := "example.myshopify.com"
	now := time.Now().UTC()
	saved := store.PopupAnalyticsEvent{ID: uuid.New(), ShopDomain: shop, EventType: "popup_view", Timestamp: now}

	mockStore.On("CreateAnalyticsEvent", mock.Anything, mock.MatchedBy(func(params store.CreateAnalyticsEventParams) bool {
		return params.ShopDomain == shop && params.EventType == "popup_view"
	})).Return(saved, nil)
	mockStore.On("IncrementDailyAnalytics", mock.Anything, shop, now, store.EventTypePopupView).
		Return(store.DailyAnalytics{}, nil)

	event, err := p.RecordEvent(context.Background(), RecordEventRequest{
		ShopDomain: shop,
		EventType:  "popup_view",
	})

	assert.NoError(t, err)
	assert.Equal(t, saved.ID, event.ID)
	mockStore.AssertExpectations(t)
}

func TestRecordEvent_UnknownTypeStoredWithoutAggregate(t *testing.T) {
	shop := "example.myshopify.com"

	for _, eventType := range []string{"custom_event", "click", "VISIT", "pageload"} {
		mockStore := new(MockAnalyticsStore)
		p := New(mockStore, observability.NewLogger())

		saved := store.PopupAnalyticsEvent{ID: uuid.New(), ShopDomain: shop, EventType: eventType, Timestamp: time.Now()}
		mockStore.On("CreateAnalyticsEvent", mock.Anything, mock.MatchedBy(func(params store.CreateAnalyticsEventParams) bool {
			return params.ShopDomain == shop && params.EventType == eventType
		})).Return(saved, nil)

		event, err := p.RecordEvent(context.Background(), RecordEventRequest{
			ShopDomain: shop,
			EventType:  eventType,
		})

		assert.NoError(t, err, "event type %q", eventType)
		assert.Equal(t, saved.ID, event.ID)
		mockStore.AssertExpectations(t)
		mockStore.AssertNotCalled(t, "IncrementDailyAnalytics",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestRecordEvent_MissingShop(t *testing.T) {
	p := New(new(MockAnalyticsStore), observability.NewLogger())

	_, err := p.RecordEvent(context.Background(), RecordEventRequest{EventType: "visit"})
	assert.ErrorIs(t, err, ErrMissingShopDomain)
}

func TestRecordEvent_AggregateFailureIsNotFatal(t *testing.T) {
	mockStore := new(MockAnalyticsStore)
	p := New(mockStore, observability.NewLogger())

	shop := "example.myshopify.com"
	saved := store.PopupAnalyticsEvent{ID: uuid.New(), ShopDomain: shop, EventType: "visit", Timestamp: time.Now()}

	mockStore.On("CreateAnalyticsEvent", mock.Anything, mock.Anything).Return(saved, nil)
	mockStore.On("IncrementDailyAnalytics", mock.Anything, shop, mock.Anything, store.EventTypeVisit).
		Return(store.DailyAnalytics{}, assert.AnError)

	event, err := p.RecordEvent(context.Background(), RecordEventRequest{
		ShopDomain: shop,
		EventType:  "visit",
	})

	assert.NoError(t, err)
	assert.Equal(t, saved.ID, event.ID)
}

func TestGetAnalyticsData_SummaryAndZeroFilledChart(t *testing.T) {
	mockStore := new(MockAnalyticsStore)
	p := New(mockStore, observability.NewLogger())

	shop := "example.myshopify.com"
	today := time.Now().UTC().Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)

	daily := []store.DailyAnalytics{
		{ShopDomain: shop, Date: yesterday, TotalVisits: 100, PopupViews: 50, PopupSubmissions: 10, ConversionRate: 20},
		{ShopDomain: shop, Date: today, TotalVisits: 60, PopupViews: 30, PopupSubmissions: 3, ConversionRate: 10},
	}
	submits := []store.PopupAnalyticsEvent{
		{ID: uuid.New(), EventType: "popup_submit", Timestamp: today},
	}

	mockStore.On("GetDailyAnalyticsRange", mock.Anything, shop, mock.Anything, mock.Anything).Return(daily, nil)
	mockStore.On("GetEventTypeBreakdown", mock.Anything, shop, mock.Anything, mock.Anything).
		Return([]store.EventTypeCount{{EventType: "visit", Count: 160}}, nil)
	mockStore.On("GetAnalyticsEventsRange", mock.Anything, shop, mock.Anything, mock.Anything, recentEventsLimit).
		Return([]store.PopupAnalyticsEvent{}, nil)
	mockStore.On("GetAnalyticsEventsByType", mock.Anything, shop, store.EventTypePopupSubmit, mock.Anything, mock.Anything, recentSubscribeLimit).
		Return(submits, nil)
	mockStore.On("CountUniqueSessions", mock.Anything, shop, mock.Anything, mock.Anything).Return(90, nil)

	data, err := p.GetAnalyticsData(context.Background(), shop, 7)

	assert.NoError(t, err)
	assert.Equal(t, 160, data.Summary.TotalVisits)
	assert.Equal(t, 90, data.Summary.UniqueVisitors)
	assert.Equal(t, 80, data.Summary.TotalPopupViews)
	assert.Equal(t, 13, data.Summary.TotalSubmits)
	assert.InDelta(t, 16.25, data.Summary.ConversionRate, 0.001)
	assert.InDelta(t, 8.125, data.Summary.SuccessRate, 0.001)
	assert.InDelta(t, 50.0, data.Summary.ViewToVisitRate, 0.001)

	// Chart covers every day in the window, gaps zero-filled
	assert.Len(t, data.ChartData.Labels, 7)
	assert.Len(t, data.ChartData.Visits, 7)
	assert.Equal(t, today.Format("2006-01-02"), data.ChartData.Labels[6])
	assert.Equal(t, 60, data.ChartData.Visits[6])
	assert.Equal(t, 100, data.ChartData.Visits[5])
	assert.Equal(t, 0, data.ChartData.Visits[0])

	assert.Len(t, data.SubscriptionDetails.RecentSubmissions, 1)
	assert.Len(t, data.SubscriptionDetails.DailyBreakdown, 2)
	assert.Equal(t, 10, data.SubscriptionDetails.DailyBreakdown[0].Submissions)
}

func TestGetAnalyticsData_ClampsDayRange(t *testing.T) {
	mockStore := new(MockAnalyticsStore)
	p := New(mockStore, observability.NewLogger())

	shop := "example.myshopify.com"
	mockStore.On("GetDailyAnalyticsRange", mock.Anything, shop, mock.Anything, mock.Anything).
		Return([]store.DailyAnalytics{}, nil)
	mockStore.On("GetEventTypeBreakdown", mock.Anything, shop, mock.Anything, mock.Anything).
		Return([]store.EventTypeCount{}, nil)
	mockStore.On("GetAnalyticsEventsRange", mock.Anything, shop, mock.Anything, mock.Anything, recentEventsLimit).
		Return([]store.PopupAnalyticsEvent{}, nil)
	mockStore.On("GetAnalyticsEventsByType", mock.Anything, shop, store.EventTypePopupSubmit, mock.Anything, mock.Anything, recentSubscribeLimit).
		Return([]store.PopupAnalyticsEvent{}, nil)
	mockStore.On("CountUniqueSessions", mock.Anything, shop, mock.Anything, mock.Anything).Return(0, nil)

	// Out-of-range values fall back to the 30 day default
	for _, days := range []int{0, -5, 1000} {
		data, err := p.GetAnalyticsData(context.Background(), shop, days)
		assert.NoError(t, err)
		assert.Len(t, data.ChartData.Labels, 30)
	}
}

func TestGetAnalyticsData_MissingShop(t *testing.T) {
	p := New(new(MockAnalyticsStore), observability.NewLogger())

	_, err := p.GetAnalyticsData(context.Background(), "", 7)
	assert.ErrorIs(t, err, ErrMissingShopDomain)
}
