// Package economy computes storage, population and production for villages
// and advances resource accrual.
package economy

import (
	"math"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/village"
)

const (
	baseStorage      = 1000.0
	storageGrowth    = 1.2295
	baseFarm         = 240.0
	farmGrowth       = 1.172
	baseProduction   = 30.0 // Per hour at level 0
	productionGrowth = 1.16
)

// Producers maps each resource to the building that produces it.
var Producers = [3]catalog.BuildingID{catalog.TimberCamp, catalog.ClayPit, catalog.IronMine}

// Deployments reports units a village has outside its walls: on missions
// it launched and in support stacks it keeps elsewhere.
type Deployments interface {
	UnitsAway(id village.ID) village.Units
}

// StorageCapacity is the per-resource cap set by the warehouse. Below level 1
// the cap stays at the level-1 floor.
func StorageCapacity(v *village.Village) float64 {
	return StorageAt(v.Level(catalog.Warehouse))
}

// StorageAt is the cap for a warehouse level.
func StorageAt(level int) float64 {
	if level < 1 {
		return baseStorage
	}
	return math.Floor(baseStorage * math.Pow(storageGrowth, float64(level-1)))
}

// PopulationLimit is the population capacity granted by the farm; zero
// without a farm.
func PopulationLimit(v *village.Village) int {
	lvl := v.Level(catalog.Farm)
	if lvl < 1 {
		return 0
	}
	return int(math.Floor(baseFarm * math.Pow(farmGrowth, float64(lvl-1))))
}

// Population is the breakdown of a village's population usage.
type Population struct {
	Buildings int `json:"buildings"` // Footprint of standing buildings
	Reserved  int `json:"reserved"`  // Held by queued build orders
	Home      int `json:"home"`
	Training  int `json:"training"` // Whole remaining batch counts
	Away      int `json:"away"`     // Missions and support stacks elsewhere
	Limit     int `json:"limit"`
}

// Used is the total population in use.
func (p Population) Used() int {
	return p.Buildings + p.Reserved + p.Home + p.Training + p.Away
}

// Free is the capacity still available, never negative.
func (p Population) Free() int {
	if f := p.Limit - p.Used(); f > 0 {
		return f
	}
	return 0
}

// PopulationOf computes the full population breakdown of v.
func PopulationOf(cat *catalog.Catalog, v *village.Village, dep Deployments) Population {
	p := Population{Limit: PopulationLimit(v)}
	for id, lvl := range v.Buildings {
		if b, ok := cat.Building(id); ok {
			p.Buildings += b.PopulationAt(lvl)
		}
	}
	p.Reserved = v.Queues.ReservedPopulation()
	p.Home = v.Units.Population(cat)
	p.Training = v.Queues.TrainingUnits().Population(cat)
	if dep != nil {
		p.Away = dep.UnitsAway(v.ID).Population(cat)
	}
	return p
}

// PopulationUsed is the total population in use by v.
func PopulationUsed(cat *catalog.Catalog, v *village.Village, dep Deployments) int {
	return PopulationOf(cat, v, dep).Used()
}

// ProductionPerHour is the hourly output of a producer at level.
func ProductionPerHour(level int) float64 {
	return baseProduction * math.Pow(productionGrowth, float64(level))
}

// Rates is the per-second production of each resource.
func Rates(v *village.Village) village.Resources {
	var r village.Resources
	for i, b := range Producers {
		r[i] = ProductionPerHour(v.Level(b)) / 3600
	}
	return r
}

// Accrue advances production by seconds and clamps every resource to the
// storage cap. Stock pushed above the cap by loot or deliveries is cut back
// on the next accrual.
func Accrue(v *village.Village, seconds float64) {
	if seconds <= 0 {
		return
	}
	capacity := StorageCapacity(v)
	rates := Rates(v)
	for i := range v.Resources {
		v.Resources[i] = math.Min(capacity, v.Resources[i]+rates[i]*seconds)
	}
	v.Resources = v.Resources.Clamp()
}

// RegenerateLoyalty restores one loyalty point per hour up to the maximum.
func RegenerateLoyalty(v *village.Village, seconds float64) {
	if seconds <= 0 || v.Loyalty >= village.MaxLoyalty {
		return
	}
	v.Loyalty += seconds / 3600
	v.ClampLoyalty()
}
