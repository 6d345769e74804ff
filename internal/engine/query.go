package engine

import (
	"github.com/talgya/hinterland/internal/economy"
	"github.com/talgya/hinterland/internal/village"
	"github.com/talgya/hinterland/internal/world"
)

// Garrison is a support stack seen from the village that sent it.
type Garrison struct {
	Host  village.ID    `json:"host"`
	Units village.Units `json:"units"`
}

// EconomyView is the derived economy of a village.
type EconomyView struct {
	Storage    float64            `json:"storage"`
	Population economy.Population `json:"population"`
	Production village.Resources  `json:"production"` // Per hour
	Free       int                `json:"free_population"`
	Away       village.Units      `json:"away,omitempty"`
	Support    []Garrison         `json:"support,omitempty"`
}

// Economy computes storage, population and production for village id.
func (w *World) Economy(id village.ID) (EconomyView, error) {
	v, ok := w.index[id]
	if !ok {
		return EconomyView{}, reject(ErrVillageNotFound, "village %d", id)
	}
	pop := w.Population(v)
	view := EconomyView{
		Storage:    economy.StorageCapacity(v),
		Population: pop,
		Production: economy.Rates(v).Scale(3600),
		Free:       pop.Free(),
		Away:       w.UnitsAway(id),
	}
	for _, host := range w.Villages {
		if s, _ := host.Stack(id); s != nil && host.ID != id {
			view.Support = append(view.Support, Garrison{Host: host.ID, Units: s.Units.Clone()})
		}
	}
	return view, nil
}

// Tiles returns the map tiles inside the rectangle, row by row.
func (w *World) Tiles(min, max world.Coord) []world.Tile {
	return w.Map.Rect(min, max)
}

// TileAt returns the tile under village v.
func (w *World) TileAt(v *village.Village) (world.Tile, bool) {
	return w.Map.Get(coordOf(v))
}
