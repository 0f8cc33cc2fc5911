package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/storage/memstorage"
	"go.uber.org/zap"
)

func TestAPIKeyService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewAPIKeyService(memstorage.NewStore().APIKeys(), zap.NewNop())

	created, err := svc.CreateAPIKey(ctx, "ops console")
	require.NoError(t, err)
	assert.Contains(t, created.Key, created.Prefix)
	assert.False(t, created.CreatedAt.IsZero())

	key, err := svc.Authenticate(ctx, created.Key)
	require.NoError(t, err)
	assert.Equal(t, created.ID, key.ID)

	tampered := created.Key[:len(created.Key)-1] + "#"
	_, err = svc.Authenticate(ctx, tampered)
	assert.ErrorIs(t, err, ierr.ErrForbidden)

	_, err = svc.Authenticate(ctx, "not a key")
	assert.ErrorIs(t, err, ierr.ErrUnauthorized)

	keys, err := svc.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].Enabled)

	require.NoError(t, svc.RevokeAPIKey(ctx, created.ID))
	_, err = svc.Authenticate(ctx, created.Key)
	assert.ErrorIs(t, err, ierr.ErrForbidden)

	err = svc.RevokeAPIKey(ctx, uuid.New())
	assert.ErrorIs(t, err, ierr.ErrNotFound)
}
