package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/templatestore/license-service/internal/handler/dto"
	"github.com/templatestore/license-service/internal/handler/middleware"
	"github.com/templatestore/license-service/internal/metrics"
	"github.com/templatestore/license-service/internal/ratelimit"
	"go.uber.org/zap"
)

// RouterDeps carries everything the HTTP surface is built from. Limiter and
// MetricsHandler are optional.
type RouterDeps struct {
	Health    *HealthHandler
	Licenses  *LicenseHandler
	Downloads *DownloadHandler
	Orders    *OrderHandler
	APIKeys   *APIKeyHandler

	Tokens  middleware.TokenValidator
	Keys    middleware.APIKeyAuthenticator
	Limiter middleware.RateLimiter

	RedeemLimit    ratelimit.LimitConfig
	AllowOrigins   []string
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

func NewRouter(d RouterDeps, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		logger.Error(logMsg, zap.Stack("stack"))

		// The error middleware sits below this frame and never sees the
		// unwound request, so the response is written here.
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.APIErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred.",
		})
	}))

	if len(d.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: d.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Origin",
				"Content-Type",
				"Accept",
				"Authorization",
				"X-API-Key",
			},
			ExposeHeaders:    []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(middleware.ErrorHandlerMiddleware(logger))

	router.GET("/healthz", d.Health.Check)
	if d.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	authMiddleware := middleware.AuthMiddleware(d.Tokens, logger)
	apiKeyAuthMiddleware := middleware.APIKeyAuthMiddleware(d.Keys, logger)

	apiV1 := router.Group("/api/v1")
	{
		redeem := []gin.HandlerFunc{}
		if d.Limiter != nil {
			redeem = append(redeem, middleware.RateLimitMiddleware(d.Limiter, "redeem", d.RedeemLimit, d.Metrics, logger))
		}
		redeem = append(redeem, d.Downloads.Redeem)
		apiV1.GET("/downloads/:token", redeem...)

		downloadRoutes := apiV1.Group("/downloads")
		downloadRoutes.Use(authMiddleware)
		{
			downloadRoutes.POST("", d.Downloads.Create)
			downloadRoutes.GET("", d.Downloads.List)
		}

		licenseRoutes := apiV1.Group("/licenses")
		licenseRoutes.Use(authMiddleware)
		{
			licenseRoutes.POST("", d.Licenses.Issue)
			licenseRoutes.GET("", d.Licenses.List)
		}

		orderRoutes := apiV1.Group("/orders")
		orderRoutes.Use(authMiddleware)
		{
			orderRoutes.GET("/session/:sessionId", d.Orders.GetBySession)
		}

		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(apiKeyAuthMiddleware)
		{
			adminRoutes.PATCH("/licenses/:id/status", d.Licenses.UpdateStatus)

			adminRoutes.POST("/apikeys", d.APIKeys.Create)
			adminRoutes.GET("/apikeys", d.APIKeys.List)
			adminRoutes.DELETE("/apikeys/:id", d.APIKeys.Revoke)
		}
	}

	return router
}
