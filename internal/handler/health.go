package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statusDisabled = "disabled"

type HealthHandler struct {
	db     func(ctx context.Context) error
	redis  func(ctx context.Context) error
	logger *zap.Logger
}

// NewHealthHandler reports a nil dependency as disabled rather than failing,
// so the in-memory mode stays healthy.
func NewHealthHandler(db *pgxpool.Pool, rdb redis.UniversalClient, logger *zap.Logger) *HealthHandler {
	h := &HealthHandler{logger: logger.Named("HealthHandler")}
	if db != nil {
		h.db = db.Ping
	}
	if rdb != nil {
		h.redis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return h
}

func (h *HealthHandler) Check(c *gin.Context) {
	dbStatus := h.probe(c.Request.Context(), "PostgreSQL", h.db)
	redisStatus := h.probe(c.Request.Context(), "Redis", h.redis)

	status, code := "ok", http.StatusOK
	if dbStatus == "error" || redisStatus == "error" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"dependencies": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

func (h *HealthHandler) probe(ctx context.Context, name string, ping func(context.Context) error) string {
	if ping == nil {
		return statusDisabled
	}
	if err := ping(ctx); err != nil {
		h.logger.Error("Health check: ping failed", zap.String("dependency", name), zap.Error(err))
		return "error"
	}
	return "ok"
}
