package engine

import (
	"testing"
	"time"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/village"
)

func TestCancelCascadesToLaterLevels(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Resources = village.Resources{900, 900, 900}
	start := v.Resources

	for _, b := range []catalog.BuildingID{catalog.TimberCamp, catalog.TimberCamp, catalog.ClayPit, catalog.TimberCamp} {
		if _, err := w.IssueBuildOrder(v.ID, b, t0); err != nil {
			t.Fatal(err)
		}
	}
	reserved := v.Queues.ReservedPopulation()

	c, err := w.CancelQueueEntry(v.ID, village.QueueBuild, 1, t0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Removed != 2 {
		t.Errorf("removed = %d, want 2", c.Removed)
	}
	wantRefund := buildCost(w, catalog.TimberCamp, 2).Add(buildCost(w, catalog.TimberCamp, 3))
	if c.Refund != wantRefund {
		t.Errorf("refund = %v, want %v", c.Refund, wantRefund)
	}
	if len(v.Queues.Build) != 2 || v.Queues.Build[0].Building != catalog.TimberCamp || v.Queues.Build[1].Building != catalog.ClayPit {
		t.Errorf("queue after cancel = %+v", v.Queues.Build)
	}
	if v.Queues.ReservedPopulation() != reserved-c.Population {
		t.Errorf("population not released: %d", v.Queues.ReservedPopulation())
	}
	want := start.Sub(buildCost(w, catalog.TimberCamp, 1)).Sub(buildCost(w, catalog.ClayPit, 1))
	if v.Resources != want {
		t.Errorf("resources = %v, want %v", v.Resources, want)
	}
}

func TestCancelEverythingConserves(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	v.Buildings[catalog.Barracks] = 1
	v.Buildings[catalog.Smithy] = 1
	v.Resources = village.Resources{900, 900, 900}
	start := v.Resources

	w.IssueBuildOrder(v.ID, catalog.Farm, t0)
	w.IssueBuildOrder(v.ID, catalog.IronMine, t0)
	w.IssueBuildOrder(v.ID, catalog.Farm, t0)
	w.IssueResearchOrder(v.ID, catalog.Axe, t0)
	w.IssueTrainOrder(v.ID, catalog.Spear, 3, t0)
	w.IssueTrainOrder(v.ID, catalog.Sword, 2, t0)

	kind := village.TrainingQueue(catalog.Barracks)
	for _, k := range []village.QueueKind{village.QueueBuild, village.QueueResearch, kind} {
		for v.Queues.Len(k) > 0 {
			if _, err := w.CancelQueueEntry(v.ID, k, v.Queues.Len(k)-1, t0); err != nil {
				t.Fatalf("cancel %s: %v", k, err)
			}
		}
	}
	if v.Resources != start {
		t.Errorf("resources = %v, want %v", v.Resources, start)
	}
	if p := w.Population(v); p.Reserved != 0 || p.Training != 0 {
		t.Errorf("population still held: %+v", p)
	}
}

func TestCancelHeadStartsNext(t *testing.T) {
	w := emptyWorld(t, nil)
	v := player(t, w)
	w.IssueBuildOrder(v.ID, catalog.TimberCamp, t0)
	clay, _ := w.IssueBuildOrder(v.ID, catalog.ClayPit, t0)

	now := t0.Add(20 * time.Second)
	w.Tick(now)
	if _, err := w.CancelQueueEntry(v.ID, village.QueueBuild, 0, now); err != nil {
		t.Fatal(err)
	}
	if head := v.Queues.Build[0]; head.Building != catalog.ClayPit || !head.Finish.Equal(now.Add(clay.Duration)) {
		t.Errorf("head = %+v", head)
	}

	v.Buildings[catalog.Barracks] = 1
	kind := village.TrainingQueue(catalog.Barracks)
	w.IssueTrainOrder(v.ID, catalog.Spear, 2, now)
	w.IssueTrainOrder(v.ID, catalog.Axe, 1, now)
	later := now.Add(5 * time.Second)
	c, err := w.CancelQueueEntry(v.ID, kind, 0, later)
	if err != nil {
		t.Fatal(err)
	}
	if c.Population != 2 || c.Refund != (village.Resources{100, 60, 20}) {
		t.Errorf("batch cancel = %+v", c)
	}
	axe := v.Queues.Training[kind][0]
	if axe.Unit != catalog.Axe || !axe.Finish.Equal(later.Add(axe.UnitTime)) {
		t.Errorf("next batch = %+v", axe)
	}
}

func TestCancelRejectsBadEntries(t *testing.T) {
	w := emptyWorld(t, nil)
	_, err := w.CancelQueueEntry(1, village.QueueBuild, 0, t0)
	wantReason(t, err, ErrInvalidQueueEntry)
	_, err = w.CancelQueueEntry(1, "castle", 0, t0)
	wantReason(t, err, ErrInvalidQueueEntry)
	_, err = w.CancelQueueEntry(42, village.QueueBuild, 0, t0)
	wantReason(t, err, ErrVillageNotFound)
}
