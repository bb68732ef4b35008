package plan

import "strings"

type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
	TierMax     Tier = "max"
)

// UnlimitedQuota marks a quota without an upper bound.
const UnlimitedQuota = -1

// Features are the entitlements a tier grants.
type Features struct {
	JobPostQuota int     `json:"job_post_quota"`
	ProfileBoost float64 `json:"profile_boost"`
	Featured     bool    `json:"featured"`
}

var tierFeatures = map[Tier]Features{
	TierFree:    {JobPostQuota: 1, ProfileBoost: 1.0},
	TierStarter: {JobPostQuota: 5, ProfileBoost: 1.0},
	TierPremium: {JobPostQuota: 15, ProfileBoost: 1.5, Featured: true},
	TierPro:     {JobPostQuota: 50, ProfileBoost: 2.0, Featured: true},
	TierMax:     {JobPostQuota: UnlimitedQuota, ProfileBoost: 3.0, Featured: true},
}

func ParseTier(value string) (Tier, bool) {
	tier := Tier(strings.ToLower(strings.TrimSpace(value)))
	_, ok := tierFeatures[tier]
	return tier, ok
}

func (t Tier) Valid() bool {
	_, ok := tierFeatures[t]
	return ok
}

// Features returns the free tier's features for unknown tiers.
func (t Tier) Features() Features {
	if f, ok := tierFeatures[t]; ok {
		return f
	}
	return tierFeatures[TierFree]
}

func (t Tier) Paid() bool {
	return t.Valid() && t != TierFree
}

func (t Tier) String() string {
	return string(t)
}
