package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "license_service"

// Metrics holds the business counters exported on /metrics.
type Metrics struct {
	LicensesIssued    *prometheus.CounterVec
	Entitlements      *prometheus.CounterVec
	DownloadsCreated  prometheus.Counter
	Redemptions       *prometheus.CounterVec
	TokenCollisions   prometheus.Counter
	RateLimited       prometheus.Counter
	TemplateCacheHits *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LicensesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "licenses_issued_total",
			Help:      "Licenses issued, by tier.",
		}, []string{"tier"}),
		Entitlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_decisions_total",
			Help:      "Entitlement checks, by outcome.",
		}, []string{"result"}),
		DownloadsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_created_total",
			Help:      "Download tokens minted.",
		}),
		Redemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_redemptions_total",
			Help:      "Download token redemptions, by outcome.",
		}, []string{"result"}),
		TokenCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_token_collisions_total",
			Help:      "Token unique violations that forced a retry.",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redeem_rate_limited_total",
			Help:      "Redeem requests rejected by the rate limiter.",
		}),
		TemplateCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_cache_lookups_total",
			Help:      "Template cache lookups, by hit or miss.",
		}, []string{"result"}),
	}
}

// NewNop returns metrics registered on a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Outcome label for a successful decision.
const ResultOK = "ok"
