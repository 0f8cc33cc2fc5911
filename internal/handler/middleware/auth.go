package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/service"
	"go.uber.org/zap"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	userIDContextKey    = "userID"
)

// TokenValidator verifies a bearer token and yields the user it was issued for.
type TokenValidator interface {
	ValidateToken(rawToken string) (uuid.UUID, *service.Claims, error)
}

func AuthMiddleware(validator TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AuthMiddleware")
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeader)
		if authHeader == "" {
			log.Debug("Authorization header is missing")
			_ = c.Error(fmt.Errorf("%w: authorization header required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			log.Debug("Authorization header format is invalid")
			_ = c.Error(fmt.Errorf("%w: invalid authorization header format", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if tokenString == "" {
			log.Debug("Token is missing after Bearer prefix")
			_ = c.Error(fmt.Errorf("%w: token missing", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		userID, _, err := validator.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Token validation failed", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		log.Debug("Access token validated", zap.String("user_id", userID.String()))
		c.Set(userIDContextKey, userID)

		c.Next()
	}
}

// GetUserID returns the authenticated caller. ok is false outside AuthMiddleware.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(userIDContextKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
