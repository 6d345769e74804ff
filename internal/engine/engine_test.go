package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/config"
	"github.com/talgya/hinterland/internal/entropy"
	"github.com/talgya/hinterland/internal/village"
	"github.com/talgya/hinterland/internal/world"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// emptyWorld is a world with only the player's start village; tests place
// the rest by hand.
func emptyWorld(t *testing.T, tweak func(*config.Config)) *World {
	t.Helper()
	cfg := config.Default()
	cfg.Sim.WarlordChance = 0
	cfg.Sim.BarbarianChance = 0
	cfg.AI.AttackEnabled = false
	if tweak != nil {
		tweak(&cfg)
	}
	w := NewWorld(catalog.Default(), cfg, entropy.NewSeeded(1), t0)
	if len(w.Villages) != 1 {
		t.Fatalf("villages = %d, want only the start", len(w.Villages))
	}
	return w
}

func player(t *testing.T, w *World) *village.Village {
	t.Helper()
	v, ok := w.Village(1)
	if !ok {
		t.Fatal("start village missing")
	}
	return v
}

func place(w *World, x, y int, name string, owner village.Owner) *village.Village {
	return w.addVillage(world.Coord{X: x, Y: y}, name, owner)
}

func wantReason(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
	r, ok := AsRejection(err)
	if !ok {
		t.Fatalf("err %v is not a rejection", err)
	}
	if r.Reason != reasons[target] {
		t.Errorf("reason = %q, want %q", r.Reason, reasons[target])
	}
}

func closeTo(a, b village.Resources) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-6 {
			return false
		}
	}
	return true
}

func TestNewWorldStart(t *testing.T) {
	w := NewWorld(catalog.Default(), config.Default(), entropy.NewSeeded(3), t0)
	v := player(t, w)
	if v.Name != world.PlayerStartName || v.X != 100 || v.Y != 100 {
		t.Errorf("start = %q at %d,%d", v.Name, v.X, v.Y)
	}
	if !v.Owner.IsPlayer() {
		t.Errorf("owner = %q", v.Owner)
	}
	if len(w.Villages) < 2 {
		t.Errorf("first chunk produced no neighbours")
	}
	if p := w.Profiles[village.OwnerPlayer]; p == nil || !p.Alive {
		t.Errorf("player profile = %+v", p)
	}
	for _, n := range w.Villages {
		if n.Owner.IsWarlord() && n.Level(catalog.Wall) != 5 {
			t.Errorf("warlord %d not fortified", n.ID)
		}
	}
}

func TestTickIgnoresNonPositiveSteps(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	before := v.Resources

	w.Tick(t0)
	w.Tick(t0.Add(-time.Hour))
	if v.Resources != before || !w.LastTick.Equal(t0) {
		t.Errorf("non-positive tick changed state: %v, last %v", v.Resources, w.LastTick)
	}

	w.Tick(t0.Add(time.Hour))
	// Level 1 producers make 34.8 an hour.
	want := before.Add(village.Resources{34.8, 34.8, 34.8})
	if !closeTo(v.Resources, want) {
		t.Errorf("after an hour = %v, want %v", v.Resources, want)
	}
}

// One long tick lands where many short ticks do, for accrual and queues.
func TestIdempotentCatchUp(t *testing.T) {
	setup := func() *World {
		w := emptyWorld(t, nil)
		v := player(t, w)
		v.Buildings[catalog.Barracks] = 1
		v.Resources = village.Resources{900, 900, 900}
		for _, b := range []catalog.BuildingID{catalog.TimberCamp, catalog.Warehouse, catalog.TimberCamp, catalog.ClayPit} {
			if _, err := w.IssueBuildOrder(v.ID, b, t0); err != nil {
				t.Fatalf("build %s: %v", b, err)
			}
		}
		if _, err := w.IssueTrainOrder(v.ID, catalog.Spear, 2, t0); err != nil {
			t.Fatal(err)
		}
		if _, err := w.IssueTrainOrder(v.ID, catalog.Axe, 2, t0); err != nil {
			t.Fatal(err)
		}
		return w
	}

	once, steps := setup(), setup()
	end := t0.Add(2 * time.Hour)
	once.Tick(end)
	for i := 1; i <= 120; i++ {
		steps.Tick(t0.Add(time.Duration(i) * time.Minute))
	}

	a, b := player(t, once), player(t, steps)
	if !closeTo(a.Resources, b.Resources) {
		t.Errorf("resources differ: %v vs %v", a.Resources, b.Resources)
	}
	for id, lvl := range a.Buildings {
		if b.Buildings[id] != lvl {
			t.Errorf("%s: %d vs %d", id, lvl, b.Buildings[id])
		}
	}
	if a.Level(catalog.TimberCamp) != 3 || a.Level(catalog.ClayPit) != 2 {
		t.Errorf("queue not drained: camp %d clay %d", a.Level(catalog.TimberCamp), a.Level(catalog.ClayPit))
	}
	if a.Units[catalog.Spear] != 2 || a.Units[catalog.Axe] != 2 {
		t.Errorf("training not drained: %v", a.Units)
	}
	if a.Units[catalog.Spear] != b.Units[catalog.Spear] || a.Units[catalog.Axe] != b.Units[catalog.Axe] {
		t.Errorf("units differ: %v vs %v", a.Units, b.Units)
	}
}

func TestNormalizeRepairsLegacyData(t *testing.T) {
	w := emptyWorld(t, nil)
	cat := w.Catalog()
	legacy := &village.Village{ID: 9, X: 5, Y: 5, Name: "Old", Owner: "enemy", Loyalty: 140}
	barb := &village.Village{ID: 10, X: 6, Y: 5, Name: "Ruin", Owner: "barb", Resources: village.Resources{-5, 10, 10}}
	w.Villages = append(w.Villages, legacy, barb, nil)
	w.Missions = append(w.Missions, &Mission{Type: MissionSupport, Origin: 1, Target: 9, Arrival: t0.Add(time.Hour)}, nil)

	w.Attach(cat, w.Config(), entropy.NewSeeded(2))

	if !legacy.Owner.IsWarlord() {
		t.Errorf("enemy tag became %q", legacy.Owner)
	}
	if barb.Owner != village.OwnerBarbarian {
		t.Errorf("barb tag became %q", barb.Owner)
	}
	if legacy.Loyalty != village.MaxLoyalty || barb.Resources[0] != 0 {
		t.Errorf("clamps not applied: loyalty %v resources %v", legacy.Loyalty, barb.Resources)
	}
	if len(legacy.Buildings) != len(cat.Buildings()) || legacy.Tech(catalog.Axe) != 1 {
		t.Errorf("maps not backfilled: %v", legacy.Buildings)
	}
	if _, ok := legacy.Queues.Training[village.TrainingQueue(catalog.Barracks)]; !ok {
		t.Errorf("training queues not backfilled")
	}
	if len(w.Villages) != 3 || len(w.Missions) != 1 || w.Missions[0].ID == "" {
		t.Errorf("nil entries or ids not repaired: %d villages, %d missions", len(w.Villages), len(w.Missions))
	}
	if w.NextVillageID != 11 {
		t.Errorf("next id = %d, want 11", w.NextVillageID)
	}
	if tile, ok := w.Map.Get(world.Coord{X: 5, Y: 5}); !ok || tile.Village != 9 {
		t.Errorf("tile not rebuilt: %+v", tile)
	}
	if p := w.Profiles[legacy.Owner]; p == nil || !p.Alive {
		t.Errorf("warlord profile missing")
	}
}

func TestRemoveVillageEliminatesOwner(t *testing.T) {
	w := emptyWorld(t, nil)
	wl := place(w, 20, 20, "Grim Keep", village.WarlordOwner(7))
	if !w.Profiles[wl.Owner].Alive {
		t.Fatal("fresh warlord not alive")
	}
	if !w.RemoveVillage(wl.ID) {
		t.Fatal("remove failed")
	}
	if w.Profiles[wl.Owner].Alive {
		t.Error("warlord with no villages still alive")
	}
	if tile, _ := w.Map.Get(world.Coord{X: 20, Y: 20}); tile.Kind != world.TileEmpty {
		t.Errorf("tile left as %q", tile.Kind)
	}
	if w.RemoveVillage(wl.ID) {
		t.Error("second remove succeeded")
	}
}

func TestGenerateChunk(t *testing.T) {
	w := NewWorld(catalog.Default(), config.Default(), entropy.NewSeeded(5), t0)
	before := w.Map.Len()
	if _, err := w.GenerateChunk(world.Coord{X: 150, Y: 150}); err != nil {
		t.Fatal(err)
	}
	if w.Map.Len() != before+15*15 {
		t.Errorf("tiles = %d, want %d", w.Map.Len(), before+15*15)
	}
	_, err := w.GenerateChunk(world.Coord{X: -1, Y: 4})
	wantReason(t, err, ErrOutOfBounds)
}

func TestRenameVillage(t *testing.T) {
	w := emptyWorld(t, nil)
	wantReason(t, w.RenameVillage(1, ""), ErrInvalidName)
	wantReason(t, w.RenameVillage(99, "x"), ErrVillageNotFound)
	if err := w.RenameVillage(1, "Harbor"); err != nil {
		t.Fatal(err)
	}
	if tile, _ := w.Map.Get(world.Coord{X: 100, Y: 100}); tile.Name != "Harbor" {
		t.Errorf("tile name = %q", tile.Name)
	}
}
