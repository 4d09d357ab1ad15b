package processor

import (
	"context"
	"testing"
	"time"

	"popup-server/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "shpss_test_secret"

func signSessionToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func sessionClaims(shop string, expiresIn time.Duration) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":  "https://" + shop + "/admin",
		"dest": "https://" + shop,
		"aud":  "test-api-key",
		"sub":  "12345",
		"exp":  now.Add(expiresIn).Unix(),
		"nbf":  now.Add(-time.Minute).Unix(),
		"iat":  now.Unix(),
	}
}

func TestValidateSessionToken_Valid(t *testing.T) {
	p := New(testSecret, observability.NewLogger())
	tokenString := signSessionToken(t, testSecret, sessionClaims("example.myshopify.com", time.Minute))

	claims, err := p.ValidateSessionToken(context.Background(), tokenString)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if claims.Dest != "https://example.myshopify.com" {
		t.Errorf("unexpected dest claim: %s", claims.Dest)
	}
}

func TestValidateSessionToken_Expired(t *testing.T) {
	p := New(testSecret, observability.NewLogger())
	tokenString := signSessionToken(t, testSecret, sessionClaims("example.myshopify.com", -time.Minute))

	_, err := p.ValidateSessionToken(context.Background(), tokenString)
	if err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateSessionToken_WrongSecret(t *testing.T) {
	p := New(testSecret, observability.NewLogger())
	tokenString := signSessionToken(t, "some-other-secret", sessionClaims("example.myshopify.com", time.Minute))

	_, err := p.ValidateSessionToken(context.Background(), tokenString)
	if err != ErrParseToken {
		t.Errorf("expected ErrParseToken, got %v", err)
	}
}

func TestValidateSessionToken_Garbage(t *testing.T) {
	p := New(testSecret, observability.NewLogger())

	_, err := p.ValidateSessionToken(context.Background(), "not.a.token")
	if err != ErrParseToken {
		t.Errorf("expected ErrParseToken, got %v", err)
	}
}

func TestShopDomain(t *testing.T) {
	tests := []struct {
		name    string
		dest    string
		want    string
		wantErr error
	}{
		{"standard dest", "https://example.myshopify.com", "example.myshopify.com", nil},
		{"trailing slash", "https://example.myshopify.com/", "example.myshopify.com", nil},
		{"empty dest", "", "", ErrMissingDest},
		{"path in dest", "https://example.myshopify.com/admin", "", ErrInvalidShopHost},
		{"non shopify host", "https://evil.example.com", "", ErrInvalidShopHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := SessionClaims{Dest: tt.dest}
			got, err := claims.ShopDomain()
			if err != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
