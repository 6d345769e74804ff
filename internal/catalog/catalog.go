// Package catalog holds the static building and unit tables.
// Everything here is read-only once loaded; the simulation only looks things up.
package catalog

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// BuildingID identifies a building kind.
type BuildingID string

// UnitID identifies a unit kind.
type UnitID string

const (
	Headquarters BuildingID = "headquarters"
	TimberCamp   BuildingID = "timber_camp"
	ClayPit      BuildingID = "clay_pit"
	IronMine     BuildingID = "iron_mine"
	Farm         BuildingID = "farm"
	Warehouse    BuildingID = "warehouse"
	Barracks     BuildingID = "barracks"
	Stable       BuildingID = "stable"
	Workshop     BuildingID = "workshop"
	Smithy       BuildingID = "smithy"
	Academy      BuildingID = "academy"
	Wall         BuildingID = "wall"
	Market       BuildingID = "market"
)

const (
	Spear    UnitID = "spear"
	Sword    UnitID = "sword"
	Axe      UnitID = "axe"
	Scout    UnitID = "scout"
	LightCav UnitID = "light_cav"
	HeavyCav UnitID = "heavy_cav"
	Ram      UnitID = "ram"
	Catapult UnitID = "catapult"
	Noble    UnitID = "noble"
)

// Class splits units for the weighted defense blend.
type Class string

const (
	Infantry Class = "infantry"
	Cavalry  Class = "cavalry"
)

// Role marks units with special combat behaviour.
type Role string

const (
	RoleNone     Role = ""
	RoleScout    Role = "scout"    // fights only in the scouting phase
	RoleRam      Role = "ram"      // lowers the effective wall
	RoleCatapult Role = "catapult" // siege, trainable only when enabled
	RoleNoble    Role = "noble"    // lowers loyalty on a win
)

// Cost is a (wood, clay, iron) triple.
type Cost [3]float64

// Building is one row of the building table.
type Building struct {
	ID             BuildingID `yaml:"id" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	BaseCost       Cost       `yaml:"base_cost" json:"base_cost"`
	CostFactor     float64    `yaml:"cost_factor" json:"cost_factor"`         // Growth per level for cost and population
	BaseSeconds    float64    `yaml:"base_seconds" json:"base_seconds"`       // Level-0 construction time
	MaxLevel       int        `yaml:"max_level" json:"max_level"`
	BasePopulation float64    `yaml:"base_population" json:"base_population"` // Footprint at level 1
	Points         int        `yaml:"points" json:"points"`                   // Score at level 1
}

// Unit is one row of the unit table.
type Unit struct {
	ID               UnitID     `yaml:"id" json:"id"`
	Name             string     `yaml:"name" json:"name"`
	Class            Class      `yaml:"class" json:"class"`
	Role             Role       `yaml:"role" json:"role"`
	Cost             Cost       `yaml:"cost" json:"cost"`
	Population       int        `yaml:"population" json:"population"`
	Attack           float64    `yaml:"attack" json:"attack"`
	DefenseGeneral   float64    `yaml:"defense_general" json:"defense_general"`
	DefenseCavalry   float64    `yaml:"defense_cavalry" json:"defense_cavalry"`
	Carry            int        `yaml:"carry" json:"carry"`
	Speed            float64    `yaml:"speed" json:"speed"` // Minutes per tile, higher is slower
	TrainingSeconds  float64    `yaml:"training_seconds" json:"training_seconds"`
	TrainingBuilding BuildingID `yaml:"training_building" json:"training_building"`
	MaxTechLevel     int        `yaml:"max_tech_level" json:"max_tech_level"`
}

// CostAt is the price of upgrading from level to level+1.
func (b Building) CostAt(level int) Cost {
	mult := math.Pow(b.CostFactor, float64(level))
	var c Cost
	for i := range c {
		c[i] = math.Floor(b.BaseCost[i] * mult)
	}
	return c
}

// PopulationAt is the footprint of the building standing at level.
func (b Building) PopulationAt(level int) int {
	if level <= 0 {
		return 0
	}
	return int(math.Round(b.BasePopulation * math.Pow(b.CostFactor, float64(level-1))))
}

// PopulationDelta is the extra footprint of going from level to level+1.
func (b Building) PopulationDelta(level int) int {
	d := b.PopulationAt(level+1) - b.PopulationAt(level)
	if d < 0 {
		return 0
	}
	return d
}

// PointsAt is the score a building contributes at level.
func (b Building) PointsAt(level int) int {
	if level <= 0 {
		return 0
	}
	return int(math.Floor(float64(b.Points) * math.Pow(1.2, float64(level-1))))
}

// SecondsAt is the construction time of the level+1 upgrade with the given
// headquarters level.
func (b Building) SecondsAt(level, hq int) float64 {
	return math.Floor(b.BaseSeconds * math.Pow(1.2, float64(level)) * math.Pow(0.95, float64(hq)))
}

// ResearchCost is the price of raising the unit from tech level to level+1.
func (u Unit) ResearchCost(level int) Cost {
	var c Cost
	for i := range c {
		c[i] = math.Floor(u.Cost[i] * float64(level) * 5)
	}
	return c
}

// ResearchSeconds is the research time with the given smithy level.
func (u Unit) ResearchSeconds(smithy int) float64 {
	return math.Floor(u.TrainingSeconds * 10 * math.Pow(0.9, float64(smithy)))
}

// UnitSeconds is the time to train one unit with the given training-building level.
func (u Unit) UnitSeconds(buildingLevel int) float64 {
	return u.TrainingSeconds * math.Pow(0.96, float64(buildingLevel))
}

// TopTechLevel is the highest research level TechMultiplier knows.
const TopTechLevel = 3

// TechMultiplier scales attack and defense by research level.
func TechMultiplier(level int) float64 {
	switch level {
	case 2:
		return 1.25
	case 3:
		return 1.40
	default:
		return 1.0
	}
}

// Catalog is the lookup table handed to the simulation.
type Catalog struct {
	buildings map[BuildingID]Building
	units     map[UnitID]Unit

	buildingOrder []BuildingID
	unitOrder     []UnitID
}

// New builds a catalog from explicit rows.
func New(buildings []Building, units []Unit) *Catalog {
	c := &Catalog{
		buildings: make(map[BuildingID]Building, len(buildings)),
		units:     make(map[UnitID]Unit, len(units)),
	}
	for _, b := range buildings {
		if _, ok := c.buildings[b.ID]; !ok {
			c.buildingOrder = append(c.buildingOrder, b.ID)
		}
		c.buildings[b.ID] = b
	}
	for _, u := range units {
		if _, ok := c.units[u.ID]; !ok {
			c.unitOrder = append(c.unitOrder, u.ID)
		}
		c.units[u.ID] = u
	}
	return c
}

// Default returns the stock tables.
func Default() *Catalog {
	return New(defaultBuildings(), defaultUnits())
}

// Building looks up a building by id.
func (c *Catalog) Building(id BuildingID) (Building, bool) {
	b, ok := c.buildings[id]
	return b, ok
}

// Unit looks up a unit by id.
func (c *Catalog) Unit(id UnitID) (Unit, bool) {
	u, ok := c.units[id]
	return u, ok
}

// Buildings returns all buildings in table order.
func (c *Catalog) Buildings() []Building {
	out := make([]Building, 0, len(c.buildingOrder))
	for _, id := range c.buildingOrder {
		out = append(out, c.buildings[id])
	}
	return out
}

// Units returns all units in table order.
func (c *Catalog) Units() []Unit {
	out := make([]Unit, 0, len(c.unitOrder))
	for _, id := range c.unitOrder {
		out = append(out, c.units[id])
	}
	return out
}

// UnitsTrainedIn returns the units whose training building is b, in table order.
func (c *Catalog) UnitsTrainedIn(b BuildingID) []UnitID {
	var out []UnitID
	for _, id := range c.unitOrder {
		if c.units[id].TrainingBuilding == b {
			out = append(out, id)
		}
	}
	return out
}

// TrainingBuildings returns the distinct training buildings in table order.
func (c *Catalog) TrainingBuildings() []BuildingID {
	seen := make(map[BuildingID]bool)
	var out []BuildingID
	for _, id := range c.unitOrder {
		b := c.units[id].TrainingBuilding
		if b != "" && !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

// overrides is the on-disk shape of a catalog file.
type overrides struct {
	Buildings []Building `yaml:"buildings"`
	Units     []Unit     `yaml:"units"`
}

// Load reads a YAML file of building and unit rows and merges it onto the
// stock tables. Rows replace stock rows with the same id; new ids are appended.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var o overrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := Default()
	for _, b := range o.Buildings {
		if err := validateBuilding(b); err != nil {
			return nil, err
		}
		if _, ok := c.buildings[b.ID]; !ok {
			c.buildingOrder = append(c.buildingOrder, b.ID)
		}
		c.buildings[b.ID] = b
	}
	for _, u := range o.Units {
		if err := validateUnit(c, u); err != nil {
			return nil, err
		}
		if _, ok := c.units[u.ID]; !ok {
			c.unitOrder = append(c.unitOrder, u.ID)
		}
		c.units[u.ID] = u
	}
	return c, nil
}

func validateBuilding(b Building) error {
	switch {
	case b.ID == "":
		return fmt.Errorf("catalog: building without id")
	case b.CostFactor <= 0:
		return fmt.Errorf("catalog: building %s: cost_factor must be positive", b.ID)
	case b.BaseSeconds < 0:
		return fmt.Errorf("catalog: building %s: negative base_seconds", b.ID)
	case b.MaxLevel <= 0:
		return fmt.Errorf("catalog: building %s: max_level must be positive", b.ID)
	}
	return nil
}

func validateUnit(c *Catalog, u Unit) error {
	switch {
	case u.ID == "":
		return fmt.Errorf("catalog: unit without id")
	case u.Speed <= 0:
		return fmt.Errorf("catalog: unit %s: speed must be positive", u.ID)
	case u.TrainingSeconds < 0:
		return fmt.Errorf("catalog: unit %s: negative training_seconds", u.ID)
	case u.MaxTechLevel < 0 || u.MaxTechLevel > TopTechLevel:
		return fmt.Errorf("catalog: unit %s: max_tech_level must be between 0 and %d", u.ID, TopTechLevel)
	}
	if _, ok := c.buildings[u.TrainingBuilding]; !ok {
		return fmt.Errorf("catalog: unit %s: unknown training building %q", u.ID, u.TrainingBuilding)
	}
	return nil
}

// SortUnitIDs orders ids by table position; unknown ids sort last by name.
func (c *Catalog) SortUnitIDs(ids []UnitID) {
	pos := make(map[UnitID]int, len(c.unitOrder))
	for i, id := range c.unitOrder {
		pos[id] = i
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, oki := pos[ids[i]]
		pj, okj := pos[ids[j]]
		switch {
		case oki && okj:
			return pi < pj
		case oki != okj:
			return oki
		default:
			return ids[i] < ids[j]
		}
	})
}
