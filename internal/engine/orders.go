package engine

import (
	"log/slog"
	"math"
	"time"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/village"
)

// Buildings that grant population or storage may always be queued.
var populationExempt = map[catalog.BuildingID]bool{
	catalog.Farm:      true,
	catalog.Warehouse: true,
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(math.Round(s * float64(time.Second)))
}

// IssueBuildOrder queues the next level of building b. Levels and prices
// count every upgrade already queued for b. Resources and population are
// taken immediately.
func (w *World) IssueBuildOrder(id village.ID, b catalog.BuildingID, now time.Time) (village.BuildOrder, error) {
	v, ok := w.index[id]
	if !ok {
		return village.BuildOrder{}, reject(ErrVillageNotFound, "village %d", id)
	}
	def, ok := w.cat.Building(b)
	if !ok {
		return village.BuildOrder{}, reject(ErrUnknownBuilding, "%q", b)
	}

	level := v.VirtualLevel(b)
	if level >= def.MaxLevel {
		return village.BuildOrder{}, reject(ErrMaxLevel, "%s is at %d of %d", b, level, def.MaxLevel)
	}
	if limit := w.cfg.Sim.BuildQueueLimit; limit > 0 && len(v.Queues.Build) >= limit {
		return village.BuildOrder{}, reject(ErrQueueFull, "%d of %d", len(v.Queues.Build), limit)
	}
	cost := village.FromCost(def.CostAt(level))
	if !v.Resources.Covers(cost) {
		return village.BuildOrder{}, reject(ErrInsufficientResources, "need %v", cost)
	}
	pop := def.PopulationDelta(level)
	if free := w.Population(v).Free(); !populationExempt[b] && pop > free {
		return village.BuildOrder{}, reject(ErrInsufficientPopulation, "need %d, %d free", pop, free)
	}

	dur := seconds(def.SecondsAt(level, v.Level(catalog.Headquarters)))
	order := village.BuildOrder{Building: b, Duration: dur, Population: pop}
	if len(v.Queues.Build) == 0 {
		order.Finish = now.Add(dur)
	}
	v.Resources = v.Resources.Sub(cost)
	v.Queues.Build = append(v.Queues.Build, order)
	slog.Debug("build order accepted", "village", id, "building", b, "level", level+1)
	return order, nil
}

// IssueResearchOrder queues the next tech level of unit u. Research needs a
// smithy and only one order may be outstanding.
func (w *World) IssueResearchOrder(id village.ID, u catalog.UnitID, now time.Time) (village.ResearchOrder, error) {
	v, ok := w.index[id]
	if !ok {
		return village.ResearchOrder{}, reject(ErrVillageNotFound, "village %d", id)
	}
	def, ok := w.cat.Unit(u)
	if !ok {
		return village.ResearchOrder{}, reject(ErrUnknownUnit, "%q", u)
	}

	level := v.VirtualTech(u)
	if level >= max(def.MaxTechLevel, 1) {
		return village.ResearchOrder{}, reject(ErrMaxLevel, "%s tech is at %d", u, level)
	}
	if v.Level(catalog.Smithy) < 1 {
		return village.ResearchOrder{}, reject(ErrMissingPrerequisite, "%s required", catalog.Smithy)
	}
	if len(v.Queues.Research) > 0 {
		return village.ResearchOrder{}, reject(ErrQueueFull, "research already running")
	}
	cost := village.FromCost(def.ResearchCost(level))
	if !v.Resources.Covers(cost) {
		return village.ResearchOrder{}, reject(ErrInsufficientResources, "need %v", cost)
	}

	dur := seconds(def.ResearchSeconds(v.Level(catalog.Smithy)))
	order := village.ResearchOrder{
		Unit:     u,
		Level:    level + 1,
		Duration: dur,
		Finish:   now.Add(dur),
		Cost:     cost,
	}
	v.Resources = v.Resources.Sub(cost)
	v.Queues.Research = append(v.Queues.Research, order)
	return order, nil
}

// IssueTrainOrder queues count units of u in the unit's training building.
// An order for the same unit as the last batch in that queue is merged into
// it.
func (w *World) IssueTrainOrder(id village.ID, u catalog.UnitID, count int, now time.Time) (village.TrainingBatch, error) {
	v, ok := w.index[id]
	if !ok {
		return village.TrainingBatch{}, reject(ErrVillageNotFound, "village %d", id)
	}
	def, ok := w.cat.Unit(u)
	if !ok {
		return village.TrainingBatch{}, reject(ErrUnknownUnit, "%q", u)
	}
	if count <= 0 {
		return village.TrainingBatch{}, reject(ErrInvalidCount, "%d", count)
	}
	if def.Role == catalog.RoleCatapult && !w.cfg.Sim.EnableCatapults {
		return village.TrainingBatch{}, reject(ErrUnitDisabled, "%s", u)
	}
	building := v.Level(def.TrainingBuilding)
	if building < 1 {
		return village.TrainingBatch{}, reject(ErrMissingPrerequisite, "%s required", def.TrainingBuilding)
	}
	cost := village.FromCost(def.Cost).Scale(float64(count))
	if !v.Resources.Covers(cost) {
		return village.TrainingBatch{}, reject(ErrInsufficientResources, "need %v", cost)
	}
	pop := def.Population * count
	if free := w.Population(v).Free(); pop > free {
		return village.TrainingBatch{}, reject(ErrInsufficientPopulation, "need %d, %d free", pop, free)
	}

	if v.Queues.Training == nil {
		v.Queues.Training = make(map[village.QueueKind][]village.TrainingBatch)
	}
	kind := village.TrainingQueue(def.TrainingBuilding)
	batches := v.Queues.Training[kind]
	if n := len(batches); n > 0 && batches[n-1].Unit == u {
		batches[n-1].Count += count
	} else {
		unitTime := seconds(def.UnitSeconds(building))
		b := village.TrainingBatch{Unit: u, Count: count, UnitTime: unitTime}
		if n == 0 {
			b.Finish = now.Add(unitTime)
		}
		batches = append(batches, b)
	}
	v.Queues.Training[kind] = batches
	v.Resources = v.Resources.Sub(cost)
	return batches[len(batches)-1], nil
}

// MaxTrainable is how many units of u v could order right now, limited by
// resources and free population.
func (w *World) MaxTrainable(v *village.Village, u catalog.UnitID) int {
	def, ok := w.cat.Unit(u)
	if !ok {
		return 0
	}
	n := math.MaxInt32
	for i, c := range def.Cost {
		if c > 0 {
			n = min(n, int(v.Resources[i]/c))
		}
	}
	if def.Population > 0 {
		n = min(n, w.Population(v).Free()/def.Population)
	}
	return max(n, 0)
}
