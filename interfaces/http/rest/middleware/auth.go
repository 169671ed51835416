package middleware

import (
	"net/http"
	"strings"

	"braindump/pkg/auth"
	"braindump/pkg/common"
	apperrors "braindump/pkg/errors"

	"go.uber.org/zap"
)

// Authenticate validates the bearer token on every request and attaches the
// user identity to the context. Behind API Gateway the JWT authorizer has
// already run, so pre-authorized requests are trusted from headers instead.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewKeyedRateLimiter(100)
	userLimiter := auth.NewKeyedRateLimiter(200)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ipLimiter.Allow(clientIP(r)) {
				common.RespondError(w, apperrors.NewRateLimitError())
				return
			}

			userCtx, err := resolveUser(r, validator)
			if err != nil {
				logger.Warn("Unauthenticated request",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				common.RespondError(w, apperrors.NewUnauthorizedError(err.Error()))
				return
			}

			if !userLimiter.Allow(userCtx.UserID) {
				common.RespondError(w, apperrors.NewRateLimitError())
				return
			}

			ctx := auth.SetUserInContext(r.Context(), userCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveUser(r *http.Request, validator *auth.JWTValidator) (*auth.UserContext, error) {
	// Lambda path: the API Gateway authorizer validated the JWT and the
	// adapter copied its claims into headers.
	if r.Header.Get("X-API-Gateway-Authorized") == "true" {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			return nil, auth.ErrInvalidClaims
		}
		return &auth.UserContext{
			UserID: userID,
			Email:  r.Header.Get("X-User-Email"),
		}, nil
	}

	token := extractToken(r)
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &auth.UserContext{UserID: claims.UserID, Email: claims.Email}, nil
}

// extractToken pulls the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return header
}

// clientIP extracts the client IP address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
