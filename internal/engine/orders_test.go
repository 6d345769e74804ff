package engine

import (
	"testing"
	"time"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/config"
	"github.com/talgya/hinterland/internal/village"
)

func buildCost(w *World, b catalog.BuildingID, level int) village.Resources {
	def, _ := w.Catalog().Building(b)
	return village.FromCost(def.CostAt(level))
}

func TestBuildOrderAccepted(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	before := v.Resources

	o, err := w.IssueBuildOrder(v.ID, catalog.TimberCamp, t0)
	if err != nil {
		t.Fatal(err)
	}
	if want := before.Sub(village.Resources{62, 75, 50}); v.Resources != want {
		t.Errorf("resources = %v, want %v", v.Resources, want)
	}
	// floor(60 * 1.2 * 0.95) with HQ 1
	if o.Duration != 68*time.Second || !o.Finish.Equal(t0.Add(68*time.Second)) {
		t.Errorf("order = %+v", o)
	}
	if o.Population != 1 {
		t.Errorf("reserved population = %d, want 1", o.Population)
	}

	second, err := w.IssueBuildOrder(v.ID, catalog.TimberCamp, t0)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Finish.IsZero() {
		t.Errorf("queued order started early: %v", second.Finish)
	}
	if got := v.VirtualLevel(catalog.TimberCamp); got != 3 {
		t.Errorf("virtual level = %d, want 3", got)
	}
}

func TestBuildOrderRejections(t *testing.T) {
	w := emptyWorld(t, func(c *config.Config) { c.Sim.BuildQueueLimit = 2 })
	v := player(t, w)

	_, err := w.IssueBuildOrder(99, catalog.Farm, t0)
	wantReason(t, err, ErrVillageNotFound)
	_, err = w.IssueBuildOrder(v.ID, "Castle", t0)
	wantReason(t, err, ErrUnknownBuilding)

	v.Buildings[catalog.Academy] = 3
	_, err = w.IssueBuildOrder(v.ID, catalog.Academy, t0)
	wantReason(t, err, ErrMaxLevel)
	v.Buildings[catalog.Academy] = 0

	_, err = w.IssueBuildOrder(v.ID, catalog.Smithy, t0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.IssueBuildOrder(v.ID, catalog.Workshop, t0)
	wantReason(t, err, ErrInsufficientResources)

	if _, err := w.IssueBuildOrder(v.ID, catalog.Farm, t0); err != nil {
		t.Fatal(err)
	}
	_, err = w.IssueBuildOrder(v.ID, catalog.Farm, t0)
	wantReason(t, err, ErrQueueFull)
}

func TestRejectionLeavesStateUntouched(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Resources = village.Resources{10, 10, 10}
	snapshot := v.Clone()

	if _, err := w.IssueBuildOrder(v.ID, catalog.Barracks, t0); err == nil {
		t.Fatal("expected rejection")
	}
	if v.Resources != snapshot.Resources || len(v.Queues.Build) != 0 {
		t.Errorf("rejected order mutated village: %v, %d queued", v.Resources, len(v.Queues.Build))
	}
}

func TestFarmZeroBlocksPopulation(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Buildings[catalog.Farm] = 0
	v.Buildings[catalog.Barracks] = 1
	before := v.Resources

	if free := w.Population(v).Free(); free != 0 {
		t.Fatalf("free population = %d, want 0", free)
	}
	_, err := w.IssueTrainOrder(v.ID, catalog.Spear, 1, t0)
	wantReason(t, err, ErrInsufficientPopulation)
	_, err = w.IssueBuildOrder(v.ID, catalog.TimberCamp, t0)
	wantReason(t, err, ErrInsufficientPopulation)
	if v.Resources != before {
		t.Errorf("rejections spent resources: %v", v.Resources)
	}

	// Farm and warehouse are exempt.
	if _, err := w.IssueBuildOrder(v.ID, catalog.Farm, t0); err != nil {
		t.Errorf("farm rejected: %v", err)
	}
	if _, err := w.IssueBuildOrder(v.ID, catalog.Warehouse, t0); err != nil {
		t.Errorf("warehouse rejected: %v", err)
	}
}

func TestBuildQueueRunsInOrder(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)

	camp, _ := w.IssueBuildOrder(v.ID, catalog.TimberCamp, t0)
	clay, _ := w.IssueBuildOrder(v.ID, catalog.ClayPit, t0)

	w.Tick(camp.Finish.Add(time.Second))
	if v.Level(catalog.TimberCamp) != 2 || v.Level(catalog.ClayPit) != 1 {
		t.Fatalf("after first finish: camp %d clay %d", v.Level(catalog.TimberCamp), v.Level(catalog.ClayPit))
	}
	head := v.Queues.Build[0]
	if want := camp.Finish.Add(clay.Duration); !head.Finish.Equal(want) {
		t.Errorf("chained finish = %v, want %v", head.Finish, want)
	}

	w.Tick(head.Finish)
	if v.Level(catalog.ClayPit) != 2 || len(v.Queues.Build) != 0 {
		t.Errorf("second order not applied: clay %d, %d queued", v.Level(catalog.ClayPit), len(v.Queues.Build))
	}
}

func TestQueueViewFinishesAreOrdered(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Resources = village.Resources{900, 900, 900}
	for _, b := range []catalog.BuildingID{catalog.Farm, catalog.TimberCamp, catalog.Farm, catalog.IronMine} {
		if _, err := w.IssueBuildOrder(v.ID, b, t0); err != nil {
			t.Fatal(err)
		}
	}
	now := t0.Add(30 * time.Second)
	items, err := w.QueueView(v.ID, village.QueueBuild, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("items = %d", len(items))
	}
	for k := 1; k < len(items); k++ {
		if items[k].Finish.Before(items[k-1].Finish) {
			t.Errorf("entry %d finishes before entry %d", k, k-1)
		}
	}
	if items[0].Remaining != v.Queues.Build[0].Finish.Sub(now) {
		t.Errorf("head remaining = %v", items[0].Remaining)
	}
	_, err = w.QueueView(v.ID, "castle", now)
	wantReason(t, err, ErrInvalidQueueEntry)
}

func TestResearch(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)

	_, err := w.IssueResearchOrder(v.ID, catalog.Spear, t0)
	wantReason(t, err, ErrMissingPrerequisite)

	v.Buildings[catalog.Smithy] = 1
	before := v.Resources
	o, err := w.IssueResearchOrder(v.ID, catalog.Spear, t0)
	if err != nil {
		t.Fatal(err)
	}
	if want := (village.Resources{250, 150, 50}); o.Cost != want || v.Resources != before.Sub(want) {
		t.Errorf("cost = %v, resources = %v", o.Cost, v.Resources)
	}
	// floor(20 * 10 * 0.9)
	if o.Duration != 180*time.Second || o.Level != 2 {
		t.Errorf("order = %+v", o)
	}
	_, err = w.IssueResearchOrder(v.ID, catalog.Axe, t0)
	wantReason(t, err, ErrQueueFull)

	w.Tick(o.Finish)
	if v.Tech(catalog.Spear) != 2 || len(v.Queues.Research) != 0 {
		t.Errorf("tech = %d, %d queued", v.Tech(catalog.Spear), len(v.Queues.Research))
	}

	_, err = w.IssueResearchOrder(v.ID, catalog.Noble, t0)
	wantReason(t, err, ErrMaxLevel)
}

func TestTrainingBatchesMerge(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Buildings[catalog.Barracks] = 1
	kind := village.TrainingQueue(catalog.Barracks)

	first, err := w.IssueTrainOrder(v.ID, catalog.Spear, 2, t0)
	if err != nil {
		t.Fatal(err)
	}
	unit := first.UnitTime
	if unit != 19200*time.Millisecond {
		t.Fatalf("unit time = %v", unit)
	}
	merged, err := w.IssueTrainOrder(v.ID, catalog.Spear, 3, t0)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Count != 5 || len(v.Queues.Training[kind]) != 1 {
		t.Fatalf("merge failed: %+v, %d batches", merged, len(v.Queues.Training[kind]))
	}
	items, _ := w.QueueView(v.ID, kind, t0)
	if items[0].Remaining != 5*unit {
		t.Errorf("cold batch remaining = %v, want %v", items[0].Remaining, 5*unit)
	}

	if _, err := w.IssueTrainOrder(v.ID, catalog.Axe, 1, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := w.IssueTrainOrder(v.ID, catalog.Spear, 1, t0); err != nil {
		t.Fatal(err)
	}
	if n := len(v.Queues.Training[kind]); n != 3 {
		t.Errorf("batches = %d, want 3", n)
	}
	if want := (village.Resources{500 - 6*50 - 60, 500 - 6*30 - 30, 500 - 6*10 - 40}); v.Resources != want {
		t.Errorf("resources = %v, want %v", v.Resources, want)
	}
}

func TestTrainingRejections(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)

	_, err := w.IssueTrainOrder(v.ID, catalog.Spear, 0, t0)
	wantReason(t, err, ErrInvalidCount)
	_, err = w.IssueTrainOrder(v.ID, catalog.Spear, 1, t0)
	wantReason(t, err, ErrMissingPrerequisite)
	_, err = w.IssueTrainOrder(v.ID, "Dragon", 1, t0)
	wantReason(t, err, ErrUnknownUnit)

	v.Buildings[catalog.Workshop] = 1
	_, err = w.IssueTrainOrder(v.ID, catalog.Catapult, 1, t0)
	wantReason(t, err, ErrUnitDisabled)

	v.Buildings[catalog.Barracks] = 1
	_, err = w.IssueTrainOrder(v.ID, catalog.Spear, 100, t0)
	wantReason(t, err, ErrInsufficientResources)
}

func TestTrainingHandsOverTime(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Buildings[catalog.Barracks] = 1

	w.IssueTrainOrder(v.ID, catalog.Spear, 2, t0)
	w.IssueTrainOrder(v.ID, catalog.Axe, 1, t0)

	// Spears at 19.2s and 38.4s, then the axe 21.12s later.
	w.Tick(t0.Add(59 * time.Second))
	if v.Units[catalog.Spear] != 2 || v.Units[catalog.Axe] != 0 {
		t.Fatalf("at 59s: %v", v.Units)
	}
	w.Tick(t0.Add(60 * time.Second))
	if v.Units[catalog.Axe] != 1 {
		t.Errorf("axe not trained at 60s: %v", v.Units)
	}
	if n := len(v.Queues.Training[village.TrainingQueue(catalog.Barracks)]); n != 0 {
		t.Errorf("%d batches left", n)
	}
}

func TestMaxTrainable(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Resources = village.Resources{1000, 1000, 100}
	// Iron limits swords to 1.
	if n := w.MaxTrainable(v, catalog.Sword); n != 1 {
		t.Errorf("swords = %d, want 1", n)
	}
	if n := w.MaxTrainable(v, "Dragon"); n != 0 {
		t.Errorf("unknown unit = %d", n)
	}
}
