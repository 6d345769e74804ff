package combat

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/village"
)

func fixedRoll(v float64) Roll { return func() float64 { return v } }

func battle(att, home village.Units, wall int) Battle {
	return Battle{
		Attackers: att,
		Home:      home,
		Wall:      wall,
		Loyalty:   100,
		Resources: village.Resources{500, 500, 500},
	}
}

func TestZeroOffenseZeroDefense(t *testing.T) {
	cat := catalog.New(nil, []catalog.Unit{
		{ID: "peasant", Class: catalog.Infantry, Speed: 10, Carry: 5},
	})
	res := Resolve(cat, battle(village.Units{"peasant": 5}, nil, 0), nil)

	if res.AttackerWon {
		t.Fatal("attacker should lose a 0 vs 0 battle")
	}
	if res.AttackersAfter["peasant"] != 5 {
		t.Errorf("attackers after = %v, want no casualties", res.AttackersAfter)
	}
	if !res.Loot.IsZero() {
		t.Errorf("loot = %v, want none", res.Loot)
	}
}

func TestPureScoutAgainstNoScouts(t *testing.T) {
	cat := catalog.Default()
	res := Resolve(cat, battle(village.Units{catalog.Scout: 10}, village.Units{catalog.Spear: 100}, 5), nil)

	if res.ScoutsLost != 0 || res.AttackersAfter[catalog.Scout] != 10 {
		t.Errorf("lost %d scouts, want 0", res.ScoutsLost)
	}
	if !res.ScoutWin {
		t.Error("expected scouting win")
	}
	if res.AttackerWon {
		t.Error("pure scouting never fights the main battle")
	}
	if res.DefendersAfter[catalog.Spear] != 100 {
		t.Errorf("defenders touched: %v", res.DefendersAfter)
	}
	if !res.Intel.Resources || res.Intel.Buildings {
		t.Errorf("intel at tech 1 = %+v, want resources only", res.Intel)
	}
}

func TestScoutLosses(t *testing.T) {
	tests := []struct {
		name           string
		attack, defend int
		wantLost       int
	}{
		{"outnumbered two to one", 10, 20, 10},
		{"no defenders", 10, 0, 0},
		{"quarter ratio", 10, 5, 1}, // floor(10 * 0.25^1.5)
		{"even", 10, 10, 3},         // floor(10 * 0.5^1.5)
	}
	for _, tt := range tests {
		if got := scoutLosses(tt.attack, tt.defend); got != tt.wantLost {
			t.Errorf("%s: scoutLosses(%d, %d) = %d, want %d", tt.name, tt.attack, tt.defend, got, tt.wantLost)
		}
	}
}

func TestIntelTiers(t *testing.T) {
	cat := catalog.Default()
	b := battle(village.Units{catalog.Scout: 10}, village.Units{catalog.Scout: 5}, 0)
	b.AttackerTechs = map[catalog.UnitID]int{catalog.Scout: 2}
	res := Resolve(cat, b, nil)

	// 9 of 10 survive: 90% is not above 90%.
	if !res.Intel.Resources || !res.Intel.Buildings || res.Intel.Away {
		t.Errorf("intel = %+v", res.Intel)
	}

	b.Home = nil
	b.AttackerTechs[catalog.Scout] = 3
	res = Resolve(cat, b, nil)
	if !res.Intel.Away {
		t.Errorf("full survival at tech 3 should reveal away units: %+v", res.Intel)
	}
}

func TestAttackerWinIsGraded(t *testing.T) {
	cat := catalog.Default()
	res := Resolve(cat, battle(village.Units{catalog.Axe: 100}, village.Units{catalog.Spear: 100}, 0), nil)

	if !res.AttackerWon {
		t.Fatalf("4000 offense vs 1500 defense should win: off=%v def=%v", res.Offense, res.Defense)
	}
	// (1500/4000)^1.5 = 0.2296
	if got := res.AttackersAfter[catalog.Axe]; got != 78 {
		t.Errorf("surviving axes = %d, want 78", got)
	}
	if !res.HomeAfter.Empty() {
		t.Errorf("defender should be wiped out, got %v", res.HomeAfter)
	}
	if res.Loot != (village.Resources{260, 260, 260}) {
		t.Errorf("loot = %v, want 260 each", res.Loot)
	}
}

func TestAttackerLossIsTotal(t *testing.T) {
	cat := catalog.Default()
	b := battle(village.Units{catalog.Axe: 10, catalog.Scout: 2}, village.Units{catalog.Spear: 100}, 0)
	b.Stacks = []village.SupportStack{{Origin: 9, Units: village.Units{catalog.Sword: 10}}}
	res := Resolve(cat, b, nil)

	if res.AttackerWon {
		t.Fatal("400 offense should lose to 2000 defense")
	}
	if res.AttackersAfter[catalog.Axe] != 0 {
		t.Errorf("axes after loss = %d, want 0", res.AttackersAfter[catalog.Axe])
	}
	if res.AttackersAfter[catalog.Scout] != 2 {
		t.Errorf("scouts follow the scouting phase only, got %d", res.AttackersAfter[catalog.Scout])
	}
	// (400/2000)^1.5 = 0.0894
	if got := res.HomeAfter[catalog.Spear]; got != 92 {
		t.Errorf("spears after = %d, want 92", got)
	}
	if got := res.StacksAfter[0].Units[catalog.Sword]; got != 10 {
		t.Errorf("stationed swords after = %d, want 10", got)
	}
}

func TestCavalryFacesCavalryDefense(t *testing.T) {
	cat := catalog.Default()
	res := Resolve(cat, battle(village.Units{catalog.LightCav: 10}, village.Units{catalog.Spear: 10}, 0), nil)
	if res.Defense != 450 {
		t.Errorf("defense = %v, want spear cavalry defense 450", res.Defense)
	}
	if got := res.AttackersAfter[catalog.LightCav]; got != 8 {
		t.Errorf("light cavalry after = %d, want 8", got)
	}
}

func TestWallModifiers(t *testing.T) {
	cat := catalog.Default()
	res := Resolve(cat, battle(village.Units{catalog.Axe: 10}, nil, 4), nil)
	// 0 * 1.2 + 4*20
	if res.Defense != 80 {
		t.Errorf("defense behind empty wall 4 = %v, want 80", res.Defense)
	}
}

func TestFewRamsDoNoWallDamage(t *testing.T) {
	cat := catalog.Default()
	res := Resolve(cat, battle(village.Units{catalog.Axe: 1000, catalog.Ram: 4}, nil, 3), nil)
	if !res.AttackerWon {
		t.Fatal("expected win")
	}
	if res.EffectiveWall != 3 || res.WallAfter != 3 {
		t.Errorf("effective=%d after=%d, want 3 and 3", res.EffectiveWall, res.WallAfter)
	}
}

func TestRamsDamageWallOnWin(t *testing.T) {
	cat := catalog.Default()
	res := Resolve(cat, battle(village.Units{catalog.Axe: 1000, catalog.Ram: 25}, nil, 3), nil)
	if res.AttackersAfter[catalog.Ram] != 25 {
		t.Fatalf("rams should survive: %v", res.AttackersAfter)
	}
	// floor(25/20) = 1 level.
	if res.EffectiveWall != 2 || res.WallAfter != 2 {
		t.Errorf("effective=%d after=%d, want 2 and 2", res.EffectiveWall, res.WallAfter)
	}

	res = Resolve(cat, battle(village.Units{catalog.Axe: 1000, catalog.Ram: 40}, nil, 1), nil)
	if res.WallAfter != 0 || res.EffectiveWall != 0 {
		t.Errorf("wall should clamp at 0, got effective=%d after=%d", res.EffectiveWall, res.WallAfter)
	}
}

func TestRamsDamageWallOnLoss(t *testing.T) {
	cat := catalog.Default()
	res := Resolve(cat, battle(village.Units{catalog.Axe: 300, catalog.Ram: 100}, village.Units{catalog.Spear: 1000}, 5), nil)
	if res.AttackerWon {
		t.Fatal("expected loss")
	}
	// floor(100 * 12200/15000) = 81 rams acted, 4 levels.
	if res.WallAfter != 1 {
		t.Errorf("wall after = %d, want 1", res.WallAfter)
	}
}

func TestNoblesLowerLoyalty(t *testing.T) {
	cat := catalog.Default()
	b := battle(village.Units{catalog.Axe: 1000, catalog.Noble: 1}, nil, 0)
	res := Resolve(cat, b, fixedRoll(0.999))
	if res.LoyaltyDrop != 35 || res.LoyaltyAfter != 65 || res.Conquered {
		t.Errorf("drop=%d after=%v conquered=%v", res.LoyaltyDrop, res.LoyaltyAfter, res.Conquered)
	}

	b.Loyalty = 30
	res = Resolve(cat, b, fixedRoll(0))
	if res.Conquered {
		t.Fatal("loyalty 30 - 20 is not a conquest")
	}
	if res.LoyaltyAfter != 10 {
		t.Errorf("loyalty after = %v, want 10", res.LoyaltyAfter)
	}

	b.Attackers = village.Units{catalog.Axe: 1000, catalog.Noble: 2}
	res = Resolve(cat, b, fixedRoll(0))
	if !res.Conquered || res.LoyaltyAfter != village.ConquestLoyalty {
		t.Errorf("conquered=%v loyalty=%v", res.Conquered, res.LoyaltyAfter)
	}
	if res.NoblesConsumed != 1 || res.AttackersAfter[catalog.Noble] != 1 {
		t.Errorf("nobles consumed=%d left=%d", res.NoblesConsumed, res.AttackersAfter[catalog.Noble])
	}
}

func TestLootEvenShares(t *testing.T) {
	tests := []struct {
		capacity int
		stock    village.Resources
		want     village.Resources
	}{
		{100, village.Resources{1000, 0, 0}, village.Resources{100, 0, 0}},
		{100, village.Resources{10, 1000, 1000}, village.Resources{10, 45, 45}},
		{10, village.Resources{1, 1, 1}, village.Resources{1, 1, 1}},
		{2, village.Resources{5, 5, 5}, village.Resources{1, 1, 0}},
		{0, village.Resources{5, 5, 5}, village.Resources{}},
		{90, village.Resources{10.7, 99.9, 99.9}, village.Resources{10, 40, 40}},
	}
	for _, tt := range tests {
		if got := Loot(tt.capacity, tt.stock); got != tt.want {
			t.Errorf("Loot(%d, %v) = %v, want %v", tt.capacity, tt.stock, got, tt.want)
		}
	}
}

func TestLootNeverExceedsBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		capacity := rng.Intn(5000)
		stock := village.Resources{rng.Float64() * 3000, rng.Float64() * 3000, rng.Float64() * 3000}
		loot := Loot(capacity, stock)
		if loot.Total() > float64(capacity) {
			t.Fatalf("loot %v exceeds capacity %d", loot, capacity)
		}
		for r := range loot {
			if loot[r] > math.Floor(stock[r]) || loot[r] < 0 {
				t.Fatalf("loot %v exceeds stock %v", loot, stock)
			}
		}
		want := math.Min(float64(capacity), stock.Floor().Total())
		if loot.Total() != want {
			t.Fatalf("loot %v total %v, want %v", loot, loot.Total(), want)
		}
	}
}
