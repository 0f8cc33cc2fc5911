package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/apikey"
	"github.com/templatestore/license-service/internal/handler/dto"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/util"
	"go.uber.org/zap"
)

const touchTimeout = 5 * time.Second

// APIKeyService issues and verifies the keys that guard admin routes. Only a
// bcrypt hash is stored; the plaintext leaves the service exactly once.
type APIKeyService struct {
	repo   apikey.Repository
	logger *zap.Logger
}

func NewAPIKeyService(repo apikey.Repository, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{repo: repo, logger: logger.Named("APIKeyService")}
}

func (s *APIKeyService) CreateAPIKey(ctx context.Context, description string) (*dto.CreateAPIKeyResponse, error) {
	plain, prefix, hash, err := util.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generate api key: %v", ierr.ErrInternalServer, err)
	}

	key := &apikey.APIKey{KeyHash: hash, Prefix: prefix, Description: description, IsEnabled: true}
	if _, err := s.repo.Create(ctx, key); err != nil {
		s.logger.Error("Failed to store api key", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("repository error creating api key: %w", err)
	}

	s.logger.Info("API key created", zap.String("id", key.ID.String()), zap.String("prefix", prefix))
	return &dto.CreateAPIKeyResponse{
		ID:          key.ID,
		Key:         plain,
		Prefix:      prefix,
		Description: description,
		CreatedAt:   key.CreatedAt,
	}, nil
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context) ([]*dto.APIKeyResponse, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository error listing api keys: %w", err)
	}

	out := make([]*dto.APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, &dto.APIKeyResponse{
			ID:          k.ID,
			Prefix:      k.Prefix,
			Description: k.Description,
			Enabled:     k.IsEnabled,
			CreatedAt:   k.CreatedAt,
			LastUsedAt:  k.LastUsedAt,
		})
	}
	return out, nil
}

func (s *APIKeyService) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Disable(ctx, id)
	switch {
	case errors.Is(err, apikey.ErrAPIKeyNotFound):
		return fmt.Errorf("%w: api key %s", ierr.ErrNotFound, id)
	case err != nil:
		s.logger.Error("Failed to revoke api key", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("repository error revoking api key %s: %w", id, err)
	}
	s.logger.Info("API key revoked", zap.String("id", id.String()))
	return nil
}

// Authenticate resolves a presented key to its enabled record. A malformed
// key is unauthenticated; a well-formed but unknown or revoked key is
// forbidden.
func (s *APIKeyService) Authenticate(ctx context.Context, presented string) (*apikey.APIKey, error) {
	prefix, ok := util.ParseAPIKey(presented)
	if !ok {
		return nil, fmt.Errorf("%w: invalid api key format", ierr.ErrUnauthorized)
	}

	record, err := s.repo.FindByPrefix(ctx, prefix)
	if errors.Is(err, apikey.ErrAPIKeyNotFound) {
		return nil, fmt.Errorf("%w: %w", ierr.ErrForbidden, ierr.ErrAPIKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("repository error finding api key: %w", err)
	}

	if !util.CompareAPIKey(record.KeyHash, presented) {
		s.logger.Warn("API key secret mismatch", zap.String("key_id", record.ID.String()))
		return nil, fmt.Errorf("%w: %w", ierr.ErrForbidden, ierr.ErrAPIKeyNotFound)
	}
	return record, nil
}

// TouchLastUsed records key usage off the request path.
func (s *APIKeyService) TouchLastUsed(id uuid.UUID) {
	usedAt := time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		if err := s.repo.UpdateLastUsed(ctx, id, usedAt); err != nil {
			s.logger.Warn("Failed to record api key usage", zap.String("key_id", id.String()), zap.Error(err))
		}
	}()
}
