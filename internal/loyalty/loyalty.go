package loyalty

import (
	"errors"
	"fmt"
)

// Tier is a customer status level derived purely from accumulated points.
// It is never stored: any code path holding a points value derives the tier
// on demand.
type Tier int

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierPlatinum
)

var tierNames = [...]string{"bronze", "silver", "gold", "platinum"}

func (t Tier) String() string {
	if t < TierBronze || t > TierPlatinum {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Config carries the tier thresholds and earning multipliers. Thresholds are
// ascending point floors; multipliers are percentages (150 = 1.5x) and must
// strictly increase with rank.
type Config struct {
	Thresholds     [4]int64 `json:"thresholds"`
	MultiplierPcts [4]int64 `json:"multiplierPcts"`
	StampRules     []StampRule `json:"stampRules"`
}

// DefaultConfig returns the production thresholds and multipliers.
func DefaultConfig() Config {
	return Config{
		Thresholds:     [4]int64{0, 500, 1500, 5000},
		MultiplierPcts: [4]int64{100, 125, 150, 200},
		StampRules: []StampRule{
			{Family: "pizza", Required: 10},
			{Family: "soufflet", Required: 10},
			{Family: "texmex", Required: 10},
		},
	}
}

// Validate reports configuration problems that make accrual undefined.
func (c Config) Validate() error {
	if c.Thresholds[0] != 0 {
		return errors.New("bronze threshold must be zero")
	}
	for i := 1; i < len(c.Thresholds); i++ {
		if c.Thresholds[i] <= c.Thresholds[i-1] {
			return fmt.Errorf("thresholds must be strictly ascending, got %v", c.Thresholds)
		}
	}
	for i := 0; i < len(c.MultiplierPcts); i++ {
		if c.MultiplierPcts[i] <= 0 {
			return fmt.Errorf("multiplier for %s must be positive", Tier(i))
		}
		if i > 0 && c.MultiplierPcts[i] <= c.MultiplierPcts[i-1] {
			return errors.New("multipliers must strictly increase with tier rank")
		}
	}
	for _, r := range c.StampRules {
		if r.Family == "" || r.Required <= 0 {
			return fmt.Errorf("stamp rule %q is malformed", r.Family)
		}
	}
	return nil
}

// TierOf derives the tier for a points balance.
func (c Config) TierOf(points int64) Tier {
	if points < 0 {
		points = 0
	}
	tier := TierBronze
	for i := len(c.Thresholds) - 1; i > 0; i-- {
		if points >= c.Thresholds[i] {
			tier = Tier(i)
			break
		}
	}
	return tier
}

// PointsEarned computes accrual for an order: floor(whole euros of the grand
// total) times the tier multiplier, floored. grandTotal is in euro cents.
func (c Config) PointsEarned(grandTotal int64, tier Tier) int64 {
	if grandTotal <= 0 {
		return 0
	}
	if tier < TierBronze || tier > TierPlatinum {
		tier = TierBronze
	}
	euros := grandTotal / 100
	return euros * c.MultiplierPcts[tier] / 100
}

// Progress describes the next tier and the points still needed to reach it.
type Progress struct {
	Tier         Tier  `json:"tier"`
	PointsNeeded int64 `json:"pointsNeeded"`
}

// NextTier returns progress toward the next tier for the given balance, or
// nil when the balance is already platinum.
func (c Config) NextTier(points int64) *Progress {
	current := c.TierOf(points)
	if current == TierPlatinum {
		return nil
	}
	next := current + 1
	needed := c.Thresholds[next] - points
	if needed < 0 {
		needed = 0
	}
	return &Progress{Tier: next, PointsNeeded: needed}
}

// Account is a loyalty balance. Tier is intentionally absent as a field:
// it is recomputed from Points so the two can never drift.
type Account struct {
	Phone  string `json:"phone"`
	Name   string `json:"name,omitempty"`
	Points int64  `json:"points"`
}

// Tier derives the account's tier under the given config.
func (a Account) Tier(cfg Config) Tier {
	return cfg.TierOf(a.Points)
}
