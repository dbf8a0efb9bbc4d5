package loyalty

// The stamp card is a punch-card counter per product family, fully
// independent from the points balance. The two systems share only the
// customer identity and never read each other's counters.

// StampRule says how many purchases of a family earn one free item.
type StampRule struct {
	Family   string `json:"family"`
	Required int    `json:"required"`
}

// StampCard tracks per-family purchase counts and how many free items have
// already been redeemed.
type StampCard struct {
	Counts   map[string]int `json:"counts"`
	Redeemed int            `json:"redeemed"`
}

// StampProgress reports the state of one family's punch card.
type StampProgress struct {
	Family    string `json:"family"`
	Current   int    `json:"current"`
	Required  int    `json:"required"`
	FreeItems int    `json:"freeItems"`
}

// FreeItems returns how many free items a count has earned under a rule.
func (r StampRule) FreeItems(count int) int {
	if count <= 0 || r.Required <= 0 {
		return 0
	}
	return count / r.Required
}

// ProgressFor computes punch-card progress for every configured family.
// Families with no purchases still appear so the UI can render empty cards.
func (c Config) ProgressFor(card StampCard) []StampProgress {
	out := make([]StampProgress, 0, len(c.StampRules))
	for _, rule := range c.StampRules {
		count := card.Counts[rule.Family]
		out = append(out, StampProgress{
			Family:    rule.Family,
			Current:   count % rule.Required,
			Required:  rule.Required,
			FreeItems: rule.FreeItems(count),
		})
	}
	return out
}

// AvailableRewards returns how many earned free items have not been redeemed
// yet. Redemptions are counted card-wide, across families.
func (c Config) AvailableRewards(card StampCard) int {
	earned := 0
	for _, rule := range c.StampRules {
		earned += rule.FreeItems(card.Counts[rule.Family])
	}
	available := earned - card.Redeemed
	if available < 0 {
		return 0
	}
	return available
}

// AddStamps returns a copy of the card with the family counters increased.
// The input card is not mutated.
func AddStamps(card StampCard, family string, n int) StampCard {
	if n <= 0 || family == "" {
		return card
	}
	counts := make(map[string]int, len(card.Counts)+1)
	for k, v := range card.Counts {
		counts[k] = v
	}
	counts[family] += n
	return StampCard{Counts: counts, Redeemed: card.Redeemed}
}
