//go:build integration
// +build integration

package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func signTokenWith(t *testing.T, secret, dest string, expiresAt time.Time) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  dest + "/admin",
		"dest": dest,
		"aud":  "test-api-key",
		"sub":  "1",
		"exp":  expiresAt.Unix(),
		"nbf":  now.Add(-time.Minute).Unix(),
		"iat":  now.Add(-time.Minute).Unix(),
		"jti":  uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign session token: %v", err)
	}
	return signed
}

func TestAPI_SessionToken_Rejections(t *testing.T) {
	shop := generateTestShopDomain()

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "garbage token",
			token: "not.a.token",
		},
		{
			name:  "wrong signing secret",
			token: signTokenWith(t, "some-other-secret", fmt.Sprintf("https://%s", shop), time.Now().Add(time.Minute)),
		},
		{
			name:  "expired token",
			token: signTokenWith(t, apiSecret, fmt.Sprintf("https://%s", shop), time.Now().Add(-time.Hour)),
		},
		{
			name:  "dest outside shopify",
			token: signTokenWith(t, apiSecret, "https://evil.example.com", time.Now().Add(time.Minute)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			GET(t, "/api/settings").WithToken(tt.token).Do().
				AssertStatus(http.StatusUnauthorized).
				AssertError()
		})
	}
}

func TestAPI_SessionToken_FromQueryParam(t *testing.T) {
	shop := generateTestShopDomain()
	token := signTestSessionToken(t, shop)

	GET(t, "/api/settings?id_token="+token).Do().
		RequireStatus(http.StatusOK).
		AssertJSONFieldNotNil("settings")
}
