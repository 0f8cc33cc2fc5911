package license

import (
	"strings"
	"time"
)

type Tier string

const (
	TierPersonal   Tier = "PERSONAL"
	TierCommercial Tier = "COMMERCIAL"
	TierEnterprise Tier = "ENTERPRISE"
)

// TierPolicy is the fixed quota and validity granted by a tier.
type TierPolicy struct {
	MaxDownloads  int
	DownloadLimit int
	ValidityDays  int
}

// TierPolicies maps every sellable tier to its policy.
var TierPolicies = map[Tier]TierPolicy{
	TierPersonal: {
		MaxDownloads:  3,
		DownloadLimit: 1,
		ValidityDays:  365,
	},
	TierCommercial: {
		MaxDownloads:  5,
		DownloadLimit: 3,
		ValidityDays:  730,
	},
	TierEnterprise: {
		MaxDownloads:  Unlimited,
		DownloadLimit: Unlimited,
		ValidityDays:  1825,
	},
}

// PolicyFor returns the policy of a known tier.
func PolicyFor(t Tier) (TierPolicy, bool) {
	p, ok := TierPolicies[t]
	return p, ok
}

// ParseTier accepts tiers case-insensitively.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := TierPolicies[t]
	return t, ok
}

// Validity is exact day arithmetic: days * 24h.
func (p TierPolicy) Validity() time.Duration {
	return time.Duration(p.ValidityDays) * 24 * time.Hour
}
