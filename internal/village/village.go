// Package village defines villages, their stocks, queues and garrisons.
package village

import (
	"fmt"
	"strings"

	"github.com/talgya/hinterland/internal/catalog"
)

// ID is a unique identifier for a village.
type ID uint64

// Owner tags who controls a village.
type Owner string

const (
	OwnerPlayer    Owner = "player"
	OwnerBarbarian Owner = "barbarian"
)

const warlordPrefix = "warlord-"

// WarlordOwner returns the owner tag of the n-th AI warlord.
func WarlordOwner(n uint64) Owner {
	return Owner(fmt.Sprintf("%s%d", warlordPrefix, n))
}

// IsWarlord reports whether o is an AI warlord.
func (o Owner) IsWarlord() bool {
	return strings.HasPrefix(string(o), warlordPrefix)
}

// IsPlayer reports whether o is the human player.
func (o Owner) IsPlayer() bool {
	return o == OwnerPlayer
}

// StartingResources is what every new village holds.
var StartingResources = Resources{500, 500, 500}

const (
	MaxLoyalty      = 100.0
	ConquestLoyalty = 25.0 // Loyalty right after a takeover
)

// SupportStack is a garrison another village keeps here.
type SupportStack struct {
	Origin ID    `json:"origin"`
	Units  Units `json:"units"`
}

// Village is one settlement on the map.
type Village struct {
	ID        ID                         `json:"id"`
	X         int                        `json:"x"`
	Y         int                        `json:"y"`
	Name      string                     `json:"name"`
	Owner     Owner                      `json:"owner"`
	Resources Resources                  `json:"resources"`
	Buildings map[catalog.BuildingID]int `json:"buildings"`
	Units     Units                      `json:"units"` // At home
	Techs     map[catalog.UnitID]int     `json:"techs"`
	Loyalty   float64                    `json:"loyalty"`
	Points    int                        `json:"points"`
	Queues    Queues                     `json:"queues"`
	Stationed []SupportStack             `json:"stationed"`
}

// New creates a village with the stock starting layout: the headquarters,
// resource buildings, farm and warehouse at level 1.
func New(cat *catalog.Catalog, id ID, x, y int, name string, owner Owner) *Village {
	v := &Village{
		ID:        id,
		X:         x,
		Y:         y,
		Name:      name,
		Owner:     owner,
		Resources: StartingResources,
		Buildings: make(map[catalog.BuildingID]int),
		Units:     make(Units),
		Techs:     make(map[catalog.UnitID]int),
		Loyalty:   MaxLoyalty,
		Queues:    NewQueues(cat),
	}
	for _, b := range cat.Buildings() {
		v.Buildings[b.ID] = 0
	}
	for _, b := range []catalog.BuildingID{
		catalog.Headquarters, catalog.TimberCamp, catalog.ClayPit,
		catalog.IronMine, catalog.Farm, catalog.Warehouse,
	} {
		v.Buildings[b] = 1
	}
	for _, u := range cat.Units() {
		v.Units[u.ID] = 0
		v.Techs[u.ID] = 1
	}
	v.RecomputePoints(cat)
	return v
}

// Fortify applies the garrisoned warlord layout.
func (v *Village) Fortify(cat *catalog.Catalog) {
	for b, lvl := range map[catalog.BuildingID]int{
		catalog.Wall:         5,
		catalog.Barracks:     5,
		catalog.Headquarters: 10,
		catalog.Farm:         15,
		catalog.Warehouse:    15,
		catalog.TimberCamp:   12,
		catalog.ClayPit:      12,
		catalog.IronMine:     12,
	} {
		v.Buildings[b] = lvl
	}
	v.Units.Add(Units{
		catalog.Spear:    300,
		catalog.Sword:    300,
		catalog.HeavyCav: 50,
		catalog.Scout:    50,
	})
	v.RecomputePoints(cat)
}

// Level is the completed level of building b.
func (v *Village) Level(b catalog.BuildingID) int {
	return v.Buildings[b]
}

// Tech is the research level of unit u, 1 when never researched.
func (v *Village) Tech(u catalog.UnitID) int {
	if lvl := v.Techs[u]; lvl > 0 {
		return lvl
	}
	return 1
}

// VirtualLevel is the level of b once every queued upgrade completes.
func (v *Village) VirtualLevel(b catalog.BuildingID) int {
	return v.Level(b) + v.Queues.QueuedBuilds(b)
}

// VirtualTech is the tech level of u once queued research completes.
func (v *Village) VirtualTech(u catalog.UnitID) int {
	return v.Tech(u) + v.Queues.QueuedResearch(u)
}

// RecomputePoints refreshes the derived score from building levels.
func (v *Village) RecomputePoints(cat *catalog.Catalog) {
	total := 0
	for id, lvl := range v.Buildings {
		if b, ok := cat.Building(id); ok {
			total += b.PointsAt(lvl)
		}
	}
	v.Points = total
}

// ClampLoyalty keeps loyalty within [0, 100].
func (v *Village) ClampLoyalty() {
	switch {
	case v.Loyalty < 0:
		v.Loyalty = 0
	case v.Loyalty > MaxLoyalty:
		v.Loyalty = MaxLoyalty
	}
}

// Stack returns the support stack from origin, if any.
func (v *Village) Stack(origin ID) (*SupportStack, int) {
	for i := range v.Stationed {
		if v.Stationed[i].Origin == origin {
			return &v.Stationed[i], i
		}
	}
	return nil, -1
}

// Station merges units into the stack keyed by origin, creating it if absent.
func (v *Village) Station(origin ID, units Units) {
	if s, _ := v.Stack(origin); s != nil {
		s.Units.Add(units)
		return
	}
	v.Stationed = append(v.Stationed, SupportStack{Origin: origin, Units: units.Clone().Compact()})
}

// Unstation removes and returns the stack from origin.
func (v *Village) Unstation(origin ID) (SupportStack, bool) {
	s, i := v.Stack(origin)
	if s == nil {
		return SupportStack{}, false
	}
	out := *s
	v.Stationed = append(v.Stationed[:i], v.Stationed[i+1:]...)
	return out, true
}

// Defenders is home units plus every stationed stack.
func (v *Village) Defenders() Units {
	out := v.Units.Clone()
	for _, s := range v.Stationed {
		out.Add(s.Units)
	}
	return out.Compact()
}

// Clone deep-copies the village for read-only callers.
func (v *Village) Clone() *Village {
	out := *v
	out.Buildings = make(map[catalog.BuildingID]int, len(v.Buildings))
	for k, n := range v.Buildings {
		out.Buildings[k] = n
	}
	out.Techs = make(map[catalog.UnitID]int, len(v.Techs))
	for k, n := range v.Techs {
		out.Techs[k] = n
	}
	out.Units = v.Units.Clone()
	out.Queues = v.Queues.Clone()
	out.Stationed = make([]SupportStack, len(v.Stationed))
	for i, s := range v.Stationed {
		out.Stationed[i] = SupportStack{Origin: s.Origin, Units: s.Units.Clone()}
	}
	return &out
}

// Distance is the straight-line tile distance between two villages.
func Distance(a, b *Village) float64 {
	return TileDistance(a.X, a.Y, b.X, b.Y)
}
