package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const AccessTokenCookie = "access_token"

var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
)

// StorefrontClaims are issued by the storefront when it hands a buyer over to
// checkout. OrderID binds the token to a single order.
type StorefrontClaims struct {
	OrderID uint `json:"order_id"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

func ExtractAccessToken(r *http.Request) string {
	// cookie first
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if cookie.Value != "" {
			return cookie.Value
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// the auto-submit redirect page is opened by a plain link
	return r.URL.Query().Get("token")
}

// ParseStorefrontToken validates an HMAC signed token and its expiry.
func ParseStorefrontToken(raw string, secret []byte) (*StorefrontClaims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &StorefrontClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.OrderID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func WithClaims(ctx context.Context, c *StorefrontClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFrom(ctx context.Context) (*StorefrontClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*StorefrontClaims)
	return c, ok && c != nil
}
