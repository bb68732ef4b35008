package plan

import (
	"errors"
	"strings"

	"github.com/smallbiznis/talentloop/internal/config"
)

var ErrUnknownPlanReference = errors.New("unknown_plan_reference")

type MatchKind string

const (
	MatchExact MatchKind = "exact"
	// MatchAmountFallback is reported when only the charged amount matched.
	// Two plans with the same price are indistinguishable this way.
	MatchAmountFallback MatchKind = "amount_fallback"
)

type Match struct {
	Tier           Tier
	Months         int
	Kind           MatchKind
	CatalogVersion string
}

// Catalog resolves provider price references against the current plan table.
type Catalog struct {
	holder *config.PlanCatalogHolder
}

func NewCatalog(holder *config.PlanCatalogHolder) *Catalog {
	return &Catalog{holder: holder}
}

// Resolve prefers an exact price reference and falls back to amount entries.
func (c *Catalog) Resolve(priceRef string, amount int64, currency string) (Match, error) {
	if c == nil || c.holder == nil {
		return Match{}, ErrUnknownPlanReference
	}
	table := c.holder.Get()

	priceRef = strings.TrimSpace(priceRef)
	if priceRef != "" {
		for _, entry := range table.Entries {
			if strings.TrimSpace(entry.PriceRef) != priceRef {
				continue
			}
			return toMatch(entry, MatchExact, table.Version)
		}
	}

	if amount <= 0 {
		return Match{}, ErrUnknownPlanReference
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	for _, entry := range table.Entries {
		if entry.PriceRef != "" || entry.Amount != amount {
			continue
		}
		entryCurrency := strings.ToLower(strings.TrimSpace(entry.Currency))
		if currency != "" && entryCurrency != "" && entryCurrency != currency {
			continue
		}
		return toMatch(entry, MatchAmountFallback, table.Version)
	}
	return Match{}, ErrUnknownPlanReference
}

func (c *Catalog) Version() string {
	if c == nil || c.holder == nil {
		return ""
	}
	return c.holder.Get().Version
}

func toMatch(entry config.PlanEntry, kind MatchKind, version string) (Match, error) {
	tier, ok := ParseTier(entry.Tier)
	if !ok || tier == TierFree {
		return Match{}, ErrUnknownPlanReference
	}
	return Match{
		Tier:           tier,
		Months:         entry.Months,
		Kind:           kind,
		CatalogVersion: version,
	}, nil
}
