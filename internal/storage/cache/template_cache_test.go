package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/metrics"
	"go.uber.org/zap"
)

type countingRepo struct {
	templates map[uuid.UUID]*catalog.Template
	calls     int
}

func (r *countingRepo) FindTemplateByID(_ context.Context, id uuid.UUID) (*catalog.Template, error) {
	r.calls++
	t, ok := r.templates[id]
	if !ok {
		return nil, catalog.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func TestTemplateRepository_CachesHits(t *testing.T) {
	id := uuid.New()
	next := &countingRepo{templates: map[uuid.UUID]*catalog.Template{id: {ID: id, Title: "Landing", Slug: "landing"}}}

	repo, err := NewTemplateRepository(next, 8, time.Minute, metrics.NewNop(), zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := repo.FindTemplateByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "landing", got.Slug)
	}
	assert.Equal(t, 1, next.calls)
}

func TestTemplateRepository_Expires(t *testing.T) {
	id := uuid.New()
	next := &countingRepo{templates: map[uuid.UUID]*catalog.Template{id: {ID: id, Slug: "landing"}}}

	repo, err := NewTemplateRepository(next, 8, time.Minute, metrics.NewNop(), zap.NewNop())
	require.NoError(t, err)

	now := time.Now()
	repo.now = func() time.Time { return now }
	_, err = repo.FindTemplateByID(context.Background(), id)
	require.NoError(t, err)

	repo.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = repo.FindTemplateByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestTemplateRepository_MissesNotCached(t *testing.T) {
	next := &countingRepo{templates: map[uuid.UUID]*catalog.Template{}}
	repo, err := NewTemplateRepository(next, 8, time.Minute, metrics.NewNop(), zap.NewNop())
	require.NoError(t, err)

	id := uuid.New()
	_, err = repo.FindTemplateByID(context.Background(), id)
	assert.ErrorIs(t, err, catalog.ErrTemplateNotFound)
	_, err = repo.FindTemplateByID(context.Background(), id)
	assert.ErrorIs(t, err, catalog.ErrTemplateNotFound)
	assert.Equal(t, 2, next.calls)
}
