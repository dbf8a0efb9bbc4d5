package loyalty

import "testing"

func TestTierOfBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		points int64
		want   Tier
	}{
		{0, TierBronze},
		{499, TierBronze},
		{500, TierSilver},
		{1499, TierSilver},
		{1500, TierGold},
		{4999, TierGold},
		{5000, TierPlatinum},
		{250000, TierPlatinum},
		{-10, TierBronze},
	}
	for _, tc := range cases {
		if got := cfg.TierOf(tc.points); got != tc.want {
			t.Fatalf("TierOf(%d) = %s, want %s", tc.points, got, tc.want)
		}
	}
}

func TestPointsEarned(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name       string
		grandTotal int64
		tier       Tier
		want       int64
	}{
		{"gold 40 euros", 4000, TierGold, 60},
		{"bronze whole euros", 2350, TierBronze, 23},
		{"silver rounds down", 2350, TierSilver, 28}, // 23 * 1.25 = 28.75
		{"platinum doubles", 1999, TierPlatinum, 38},
		{"sub-euro order", 99, TierGold, 0},
		{"zero total", 0, TierPlatinum, 0},
		{"negative total", -500, TierBronze, 0},
	}
	for _, tc := range cases {
		if got := cfg.PointsEarned(tc.grandTotal, tc.tier); got != tc.want {
			t.Fatalf("%s: PointsEarned(%d, %s) = %d, want %d", tc.name, tc.grandTotal, tc.tier, got, tc.want)
		}
	}
}

func TestNextTier(t *testing.T) {
	cfg := DefaultConfig()

	p := cfg.NextTier(420)
	if p == nil || p.Tier != TierSilver || p.PointsNeeded != 80 {
		t.Fatalf("unexpected progress from bronze: %+v", p)
	}

	p = cfg.NextTier(1500)
	if p == nil || p.Tier != TierPlatinum || p.PointsNeeded != 3500 {
		t.Fatalf("unexpected progress from gold floor: %+v", p)
	}

	if p = cfg.NextTier(5000); p != nil {
		t.Fatalf("platinum must have no next tier, got %+v", p)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	bad := cfg
	bad.Thresholds = [4]int64{0, 500, 500, 5000}
	if err := bad.Validate(); err == nil {
		t.Fatal("non-ascending thresholds must fail validation")
	}

	bad = cfg
	bad.MultiplierPcts = [4]int64{100, 125, 125, 200}
	if err := bad.Validate(); err == nil {
		t.Fatal("non-increasing multipliers must fail validation")
	}

	bad = cfg
	bad.StampRules = []StampRule{{Family: "pizza", Required: 0}}
	if err := bad.Validate(); err == nil {
		t.Fatal("zero stamp requirement must fail validation")
	}
}

func TestAccountTierNeverStored(t *testing.T) {
	cfg := DefaultConfig()
	a := Account{Phone: "0612345678", Points: 480}
	if a.Tier(cfg) != TierBronze {
		t.Fatalf("expected bronze at 480 points")
	}
	a.Points += cfg.PointsEarned(4000, a.Tier(cfg)) // +40
	if a.Points != 520 || a.Tier(cfg) != TierSilver {
		t.Fatalf("expected silver at %d points", a.Points)
	}
}

func TestStampProgress(t *testing.T) {
	cfg := DefaultConfig()
	card := StampCard{}
	for i := 0; i < 13; i++ {
		card = AddStamps(card, "pizza", 1)
	}
	card = AddStamps(card, "texmex", 4)

	byFamily := map[string]StampProgress{}
	for _, p := range cfg.ProgressFor(card) {
		byFamily[p.Family] = p
	}
	if p := byFamily["pizza"]; p.Current != 3 || p.FreeItems != 1 {
		t.Fatalf("pizza card: %+v", p)
	}
	if p := byFamily["texmex"]; p.Current != 4 || p.FreeItems != 0 {
		t.Fatalf("texmex card: %+v", p)
	}
	if p, ok := byFamily["soufflet"]; !ok || p.Current != 0 {
		t.Fatalf("untouched family must still be reported: %+v", p)
	}
}

func TestAvailableRewards(t *testing.T) {
	cfg := DefaultConfig()

	card := StampCard{Counts: map[string]int{"pizza": 23, "texmex": 10}}
	if got := cfg.AvailableRewards(card); got != 3 {
		t.Fatalf("expected 3 rewards (2 pizza + 1 texmex), got %d", got)
	}

	card.Redeemed = 2
	if got := cfg.AvailableRewards(card); got != 1 {
		t.Fatalf("redeemed rewards must be subtracted, got %d", got)
	}

	card.Redeemed = 5
	if got := cfg.AvailableRewards(card); got != 0 {
		t.Fatalf("availability never goes negative, got %d", got)
	}
}

func TestAddStampsImmutable(t *testing.T) {
	orig := StampCard{Counts: map[string]int{"pizza": 2}}
	next := AddStamps(orig, "pizza", 3)
	if orig.Counts["pizza"] != 2 {
		t.Fatalf("AddStamps mutated its input: %v", orig.Counts)
	}
	if next.Counts["pizza"] != 5 {
		t.Fatalf("expected 5 stamps, got %d", next.Counts["pizza"])
	}
	if same := AddStamps(orig, "", 1); same.Counts["pizza"] != 2 {
		t.Fatalf("empty family must be a no-op")
	}
}
