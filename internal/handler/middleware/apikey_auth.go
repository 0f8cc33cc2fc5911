package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/apikey"
	"github.com/templatestore/license-service/internal/ierr"
	"go.uber.org/zap"
)

const (
	apiKeyHeader       = "X-API-Key"
	apiKeyIDContextKey = "apiKeyID"
)

// APIKeyAuthenticator resolves presented keys for administrative routes.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, fullKey string) (*apikey.APIKey, error)
	TouchLastUsed(id uuid.UUID)
}

func APIKeyAuthMiddleware(keys APIKeyAuthenticator, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("APIKeyAuthMiddleware")
	return func(c *gin.Context) {
		apiKeyFromHeader := c.GetHeader(apiKeyHeader)
		if apiKeyFromHeader == "" {
			log.Debug("API Key header is missing", zap.String("header", apiKeyHeader))
			_ = c.Error(fmt.Errorf("%w: api key required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		keyRecord, err := keys.Authenticate(c.Request.Context(), apiKeyFromHeader)
		if err != nil {
			log.Warn("API key rejected", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		keys.TouchLastUsed(keyRecord.ID)

		log.Info("API key validated successfully", zap.String("prefix", keyRecord.Prefix), zap.String("key_id", keyRecord.ID.String()))
		c.Set(apiKeyIDContextKey, keyRecord.ID)
		c.Next()
	}
}

// GetAPIKeyID returns the key that authenticated the request.
func GetAPIKeyID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(apiKeyIDContextKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
