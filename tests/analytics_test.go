//go:build integration
// +build integration

package tests

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordEvent(t *testing.T, shop, eventType, sessionID string) {
	t.Helper()
	POST(t, "/api/analytics").
		WithBody(map[string]interface{}{
			"eventType":  eventType,
			"shopDomain": shop,
			"sessionId":  sessionID,
			"pageUrl":    "https://" + shop + "/products/sample",
		}).
		Do().
		RequireStatus(http.StatusOK).
		AssertJSONField("success", true).
		AssertJSONFieldNotNil("eventId")
}

func TestAPI_Analytics_RecordEvent(t *testing.T) {
	shop := generateTestShopDomain()
	recordEvent(t, shop, "visit", uuid.New().String())
}

func TestAPI_Analytics_UnknownEventTypeStoredNotCounted(t *testing.T) {
	shop := generateTestShopDomain()
	token := signTestSessionToken(t, shop)

	// Unrecognized types are accepted and kept in the raw event trail.
	for _, eventType := range []string{"custom_event", "button_click", "Visit"} {
		recordEvent(t, shop, eventType, uuid.New().String())
	}

	// The daily counters only move for the known event types.
	resp := GET(t, "/api/analytics-data?days=7").WithToken(token).Do().
		RequireStatus(http.StatusOK)

	summary, ok := resp.JSON()["summary"].(map[string]interface{})
	require.True(t, ok, "summary should be an object")
	assert.Equal(t, float64(0), summary["totalVisits"])
	assert.Equal(t, float64(0), summary["totalPopupViews"])
	assert.Equal(t, float64(0), summary["totalSubmissions"])

	events, ok := resp.JSON()["recentEvents"].([]interface{})
	require.True(t, ok, "recentEvents should be an array")
	assert.Len(t, events, 3)
}

func TestAPI_Analytics_RejectsMissingShop(t *testing.T) {
	POST(t, "/api/analytics").
		WithBody(map[string]interface{}{"eventType": "visit"}).
		Do().
		AssertStatus(http.StatusBadRequest).
		AssertJSONField("success", false)
}

func TestAPI_AnalyticsData_RequiresSessionToken(t *testing.T) {
	GET(t, "/api/analytics-data").Do().
		AssertStatus(http.StatusUnauthorized)
}

func TestAPI_AnalyticsData_Dashboard(t *testing.T) {
	shop := generateTestShopDomain()
	token := signTestSessionToken(t, shop)

	session := uuid.New().String()
	recordEvent(t, shop, "visit", session)
	recordEvent(t, shop, "popup_view", session)
	recordEvent(t, shop, "popup_view", session)
	recordEvent(t, shop, "popup_submit", session)

	resp := GET(t, "/api/analytics-data?days=7").WithToken(token).Do().
		RequireStatus(http.StatusOK).
		AssertJSONFieldNotNil("summary").
		AssertJSONFieldNotNil("chartData").
		AssertJSONFieldNotNil("recentEvents")

	summary, ok := resp.JSON()["summary"].(map[string]interface{})
	require.True(t, ok, "summary should be an object")
	assert.Equal(t, float64(1), summary["totalVisits"])
	assert.Equal(t, float64(2), summary["totalPopupViews"])
	assert.Equal(t, float64(1), summary["totalSubmissions"])

	chart, ok := resp.JSON()["chartData"].(map[string]interface{})
	require.True(t, ok, "chartData should be an object")
	labels, ok := chart["labels"].([]interface{})
	require.True(t, ok, "chart labels should be an array")
	assert.Len(t, labels, 7, "chart should cover the requested range")

	events, ok := resp.JSON()["recentEvents"].([]interface{})
	require.True(t, ok, "recentEvents should be an array")
	assert.Len(t, events, 4)
}

func TestAPI_AnalyticsData_RejectsNonNumericDays(t *testing.T) {
	shop := generateTestShopDomain()
	token := signTestSessionToken(t, shop)

	GET(t, "/api/analytics-data?days=month").WithToken(token).Do().
		AssertStatus(http.StatusBadRequest).
		AssertError()
}

func TestAPI_AnalyticsData_EmptyShopReturnsZeroes(t *testing.T) {
	shop := generateTestShopDomain()
	token := signTestSessionToken(t, shop)

	resp := GET(t, "/api/analytics-data").WithToken(token).Do().
		RequireStatus(http.StatusOK)

	summary, ok := resp.JSON()["summary"].(map[string]interface{})
	require.True(t, ok, "summary should be an object")
	assert.Equal(t, float64(0), summary["totalVisits"])
	assert.Equal(t, float64(0), summary["conversionRate"])
}
