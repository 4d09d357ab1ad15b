package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"popup-server/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpiredToken    = errors.New("session token expired")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrParseToken      = errors.New("failed to parse session token")
	ErrMissingDest     = errors.New("session token missing destination claim")
	ErrInvalidShopHost = errors.New("destination is not a myshopify host")
)

// SessionClaims are the claims carried by an embedded app session token. The
// dest claim names the shop the admin session belongs to.
type SessionClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

type AuthProcessor struct {
	apiSecret string
	logger    *observability.Logger
}

func New(apiSecret string, logger *observability.Logger) AuthProcessor {
	return AuthProcessor{
		apiSecret: apiSecret,
		logger:    logger,
	}
}

// ValidateSessionToken verifies an App Bridge session token signed with the
// app's API secret and returns its claims.
func (p *AuthProcessor) ValidateSessionToken(ctx context.Context, token string) (SessionClaims, error) {
	var claims SessionClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.apiSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			p.logger.Error(ctx, "session token expired", err)
			return SessionClaims{}, ErrExpiredToken
		}
		p.logger.Error(ctx, "failed to parse session token", err)
		return SessionClaims{}, ErrParseToken
	}
	if !t.Valid {
		return SessionClaims{}, ErrInvalidToken
	}

	return claims, nil
}

// ShopDomain derives the shop's myshopify domain from the token's dest claim,
// e.g. "https://example.myshopify.com" yields "example.myshopify.com".
func (c SessionClaims) ShopDomain() (string, error) {
	if c.Dest == "" {
		return "", ErrMissingDest
	}
	host := strings.TrimPrefix(c.Dest, "https://")
	host = strings.TrimSuffix(host, "/")
	if host == "" || strings.Contains(host, "/") {
		return "", ErrInvalidShopHost
	}
	if !strings.HasSuffix(host, ".myshopify.com") {
		return "", ErrInvalidShopHost
	}
	return host, nil
}
