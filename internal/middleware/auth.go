package middleware

import (
	"errors"
	"net/http"

	"nochex-be/internal/auth"
	"nochex-be/internal/logger"

	"go.uber.org/zap"
)

// RequireStorefrontToken rejects requests without a valid storefront token
// and stores the parsed claims in the request context.
func RequireStorefrontToken(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.ParseStorefrontToken(auth.ExtractAccessToken(r), secret)
			if err != nil {
				if !errors.Is(err, auth.ErrMissingToken) {
					logger.FromCtx(r.Context()).Warn("storefront token rejected", zap.Error(err))
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
