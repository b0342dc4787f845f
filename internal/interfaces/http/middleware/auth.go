package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/infrastructure/auth"
	"github.com/restoledger/backend/internal/infrastructure/logger"
	"github.com/restoledger/backend/internal/interfaces/http/dto"
)

const (
	// ClaimsKey is the gin context key of the validated admin claims
	ClaimsKey    = "admin_claims"
	bearerPrefix = "Bearer "
)

// RequireRole rejects requests without a valid bearer token carrying role
func RequireRole(jwtService *auth.JWTService, role string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			abortAuth(c, log, auth.ErrInvalidToken, "Missing bearer token")
			return
		}

		claims, err := jwtService.Authorize(strings.TrimSpace(token), role)
		if err != nil {
			abortAuth(c, log, err, "Token rejected")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithSubject(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

// GetClaims returns the claims stored by RequireRole
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	code, status := dto.ErrCodeUnauthorized, http.StatusUnauthorized
	switch {
	case errors.Is(err, auth.ErrForbidden):
		code, status, message = dto.ErrCodeForbidden, http.StatusForbidden, "Admin role required"
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrNoSecret):
		code, status, message = dto.ErrCodeInternal, http.StatusServiceUnavailable, "Admin API is not configured"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrMissingSubject):
		code = dto.ErrCodeTokenInvalid
	}

	log.Warn("Admin authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
	)
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
