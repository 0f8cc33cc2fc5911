package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/metrics"
	"go.uber.org/zap"
)

const DefaultTemplateTTL = 5 * time.Minute

type cachedTemplate struct {
	template catalog.Template
	loadedAt time.Time
}

// TemplateRepository memoizes catalog lookups. Misses are not cached.
type TemplateRepository struct {
	next    catalog.Repository
	cache   *lru.Cache[uuid.UUID, cachedTemplate]
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewTemplateRepository(next catalog.Repository, size int, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) (*TemplateRepository, error) {
	c, err := lru.New[uuid.UUID, cachedTemplate](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}
	return &TemplateRepository{
		next:    next,
		cache:   c,
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
		logger:  logger.Named("TemplateCache"),
	}, nil
}

var _ catalog.Repository = (*TemplateRepository)(nil)

func (r *TemplateRepository) FindTemplateByID(ctx context.Context, id uuid.UUID) (*catalog.Template, error) {
	if entry, ok := r.cache.Get(id); ok {
		if r.now().Sub(entry.loadedAt) < r.ttl {
			r.metrics.TemplateCacheHits.WithLabelValues("hit").Inc()
			t := entry.template
			return &t, nil
		}
		r.cache.Remove(id)
	}
	r.metrics.TemplateCacheHits.WithLabelValues("miss").Inc()

	t, err := r.next.FindTemplateByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.Add(id, cachedTemplate{template: *t, loadedAt: r.now()})
	r.logger.Debug("Template cached", zap.String("id", id.String()))
	return t, nil
}
