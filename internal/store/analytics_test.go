package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func recordTestEvent(t *testing.T, testDB *TestDB, shop, eventType string, sessionID *string) PopupAnalyticsEvent {
	t.Helper()
	event, err := testDB.Store.CreateAnalyticsEvent(context.Background(), CreateAnalyticsEventParams{
		ShopDomain: shop,
		EventType:  eventType,
		SessionID:  sessionID,
	})
	if err != nil {
		t.Fatalf("failed to create analytics event: %v", err)
	}
	return event
}

func TestStore_CreateAnalyticsEvent(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t)
	ctx := context.Background()

	shop := testShopDomain()
	sessionID := "sess-1"
	pageURL := "https://" + shop + "/collections/sale"
	event, err := testDB.Store.CreateAnalyticsEvent(ctx, CreateAnalyticsEventParams{
		ShopDomain: shop,
		EventType:  "popup_view",
		SessionID:  &sessionID,
		PageURL:    &pageURL,
	})
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	if event.ID == uuid.Nil {
		t.Error("expected event ID to be set")
	}
	if event.EventType != "popup_view" {
		t.Errorf("EventType = %v, want popup_view", event.EventType)
	}
	if event.SessionID == nil || *event.SessionID != sessionID {
		t.Errorf("SessionID = %v, want %v", event.SessionID, sessionID)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_IncrementDailyAnalytics(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t)
	ctx := context.Background()

	shop := testShopDomain()
	day := time.Now().UTC()

	row, err := testDB.Store.IncrementDailyAnalytics(ctx, shop, day, EventTypeVisit)
	if err != nil {
		t.Fatalf("failed to increment: %v", err)
	}
	if row.TotalVisits != 1 || row.PopupViews != 0 || row.PopupSubmissions != 0 {
		t.Errorf("counters = %d/%d/%d, want 1/0/0", row.TotalVisits, row.PopupViews, row.PopupSubmissions)
	}

	for i := 0; i < 4; i++ {
		if row, err = testDB.Store.IncrementDailyAnalytics(ctx, shop, day, EventTypePopupView); err != nil {
			t.Fatalf("failed to increment: %v", err)
		}
	}
	if row, err = testDB.Store.IncrementDailyAnalytics(ctx, shop, day, EventTypePopupSubmit); err != nil {
		t.Fatalf("failed to increment: %v", err)
	}

	if row.TotalVisits != 1 {
		t.Errorf("TotalVisits = %d, want 1", row.TotalVisits)
	}
	if row.PopupViews != 4 {
		t.Errorf("PopupViews = %d, want 4", row.PopupViews)
	}
	if row.PopupSubmissions != 1 {
		t.Errorf("PopupSubmissions = %d, want 1", row.PopupSubmissions)
	}
	// 1 submission over 4 views
	if row.ConversionRate < 24.9 || row.ConversionRate > 25.1 {
		t.Errorf("ConversionRate = %v, want 25", row.ConversionRate)
	}
}

func TestStore_IncrementDailyAnalytics_Concurrent(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t)
	ctx := context.Background()

	shop := testShopDomain()
	day := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := testDB.Store.IncrementDailyAnalytics(ctx, shop, day, EventTypePopupView); err != nil {
				t.Errorf("concurrent increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	rows, err := testDB.Store.GetDailyAnalyticsRange(ctx, shop, day.Add(-time.Hour), day.Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to read daily analytics: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single row for the day, got %d", len(rows))
	}
	if rows[0].PopupViews != 20 {
		t.Errorf("PopupViews = %d, want 20", rows[0].PopupViews)
	}
}

func TestStore_GetEventTypeBreakdown(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t)
	ctx := context.Background()

	shop := testShopDomain()
	for i := 0; i < 3; i++ {
		recordTestEvent(t, testDB, shop, "visit", nil)
	}
	recordTestEvent(t, testDB, shop, "popup_view", nil)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	breakdown, err := testDB.Store.GetEventTypeBreakdown(ctx, shop, from, to)
	if err != nil {
		t.Fatalf("failed to get breakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 event types, got %d", len(breakdown))
	}
	// Ordered by count descending
	if breakdown[0].EventType != "visit" || breakdown[0].Count != 3 {
		t.Errorf("breakdown[0] = %+v, want visit/3", breakdown[0])
	}
	if breakdown[1].EventType != "popup_view" || breakdown[1].Count != 1 {
		t.Errorf("breakdown[1] = %+v, want popup_view/1", breakdown[1])
	}
}

func TestStore_CountUniqueSessions(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t)
	ctx := context.Background()

	shop := testShopDomain()
	sessA := "sess-a"
	sessB := "sess-b"
	recordTestEvent(t, testDB, shop, "visit", &sessA)
	recordTestEvent(t, testDB, shop, "visit", &sessA)
	recordTestEvent(t, testDB, shop, "visit", &sessB)
	recordTestEvent(t, testDB, shop, "visit", nil)
	// popup_view sessions don't count as visitors
	recordTestEvent(t, testDB, shop, "popup_view", &sessB)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	count, err := testDB.Store.CountUniqueSessions(ctx, shop, from, to)
	if err != nil {
		t.Fatalf("failed to count sessions: %v", err)
	}
	if count != 2 {
		t.Errorf("unique sessions = %d, want 2", count)
	}
}

func TestStore_GetAnalyticsEventsByType(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t)
	ctx := context.Background()

	shop := testShopDomain()
	recordTestEvent(t, testDB, shop, "visit", nil)
	recordTestEvent(t, testDB, shop, "popup_submit", nil)
	recordTestEvent(t, testDB, shop, "popup_submit", nil)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	events, err := testDB.Store.GetAnalyticsEventsByType(ctx, shop, EventTypePopupSubmit, from, to, 10)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(events))
	}
	for _, event := range events {
		if event.EventType != "popup_submit" {
			t.Errorf("EventType = %v, want popup_submit", event.EventType)
		}
	}
}

func TestStore_GetAnalyticsEventsRange_Limit(t *testing.T) {
	t.Parallel()
	testDB := SetupTestDB(t)
	ctx := context.Background()

	shop := testShopDomain()
	for i := 0; i < 5; i++ {
		recordTestEvent(t, testDB, shop, "visit", nil)
	}

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	events, err := testDB.Store.GetAnalyticsEventsRange(ctx, shop, from, to, 2)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(events))
	}
}
